package chat

import (
	"strings"
)

// AttachmentKind is derived at render time from the payload's filename
// or data-URI media type. Best-effort hint, not a security boundary.
type AttachmentKind int

const (
	KindGenericFile AttachmentKind = iota
	KindImage
	KindAudio
	KindPdf
)

func (k AttachmentKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	case KindPdf:
		return "pdf"
	}
	return "file"
}

// Attachment is an encoded, transport-ready payload. Payload is a data
// URI (or a plain URL when the server sends one back).
type Attachment struct {
	Payload  string
	Filename string
}

// Kind classifies the attachment. The tag is never stored; callers
// re-derive it whenever they render.
func (a *Attachment) Kind() AttachmentKind {
	if a == nil {
		return KindGenericFile
	}
	hint := a.Filename
	if hint == "" {
		hint = a.Payload
	}
	return Classify(hint)
}

// Classify maps a filename or data URI to an AttachmentKind.
func Classify(hint string) AttachmentKind {
	if strings.HasPrefix(hint, "data:") {
		mediaType := hint[len("data:"):]
		if i := strings.IndexAny(mediaType, ";,"); i >= 0 {
			mediaType = mediaType[:i]
		}
		switch {
		case strings.HasPrefix(mediaType, "image/"):
			return KindImage
		case strings.HasPrefix(mediaType, "audio/"):
			return KindAudio
		case mediaType == "application/pdf":
			return KindPdf
		}
		return KindGenericFile
	}

	ext := strings.ToLower(hint)
	if i := strings.LastIndex(ext, "."); i >= 0 {
		ext = ext[i+1:]
	} else {
		return KindGenericFile
	}
	switch ext {
	case "pdf":
		return KindPdf
	case "mp3", "wav", "webm":
		return KindAudio
	case "jpeg", "jpg", "png", "gif":
		return KindImage
	}
	return KindGenericFile
}

// Message is one entry of the room feed. At least one of Body or
// Attachment is set.
type Message struct {
	ID     string
	Sender string
	Body   string
	Attachment *Attachment
}
