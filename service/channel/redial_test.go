package channel

import (
	"context"
	"testing"
	"time"
)

func TestRedialBuildsFreshChannels(t *testing.T) {
	peer := newTestPeer(t)

	attempts := 0
	policy := RedialPolicy{MaxInterval: 50 * time.Millisecond, MaxElapsed: 5 * time.Second}
	ch, err := Redial(context.Background(), policy, func() *Channel {
		attempts++
		if attempts == 1 {
			// First attempt points nowhere; the next one must get a
			// brand-new instance, closed channels never reopen.
			return New("ws://127.0.0.1:1/ws/chat/", 200*time.Millisecond, nil)
		}
		return New(peer.url, 5*time.Second, nil)
	})
	if err != nil {
		t.Fatalf("redial: %v", err)
	}
	t.Cleanup(ch.Close)

	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if ch.State() != StateOpen {
		t.Fatalf("state = %v, want open", ch.State())
	}
}

func TestRedialHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RedialPolicy{MaxInterval: 10 * time.Millisecond, MaxElapsed: time.Second}
	_, err := Redial(ctx, policy, func() *Channel {
		return New("ws://127.0.0.1:1/ws/chat/", 100*time.Millisecond, nil)
	})
	if err == nil {
		t.Fatal("expected an error once the context is gone")
	}
}
