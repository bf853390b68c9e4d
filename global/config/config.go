package config

import "time"

const MaxAttachmentBytes = 5 << 20 // 5 MiB, checked before any encoding work

// AppConfig carries everything the realtime subsystem needs. Values are
// injected by the host application; nothing is read from ambient state.
type AppConfig struct {
	APIBase string // REST base, e.g. "https://portal.example.com"
	WSBase  string // socket base, e.g. "wss://portal.example.com"

	MaxAttachmentBytes int64

	DialTimeout    time.Duration // websocket handshake
	RequestTimeout time.Duration // one REST round trip

	// Redial policy for owner-driven reconnects.
	RedialMaxInterval time.Duration
	RedialMaxElapsed  time.Duration
}

func Default() AppConfig {
	return AppConfig{
		MaxAttachmentBytes: MaxAttachmentBytes,
		DialTimeout:        10 * time.Second,
		RequestTimeout:     15 * time.Second,
		RedialMaxInterval:  30 * time.Second,
		RedialMaxElapsed:   5 * time.Minute,
	}
}
