package media

import (
	"errors"
	"strings"
	"testing"

	"CarePortal/global/config"
	"CarePortal/tools/errs"
)

func TestEncodeRejectsOversized(t *testing.T) {
	enc := NewEncoder(config.Default())

	data := make([]byte, config.MaxAttachmentBytes+1)
	_, err := enc.Encode("big.pdf", data)
	if !errors.Is(err, errs.ErrAttachmentTooLarge) {
		t.Fatalf("expected AttachmentTooLarge, got %v", err)
	}
}

func TestEncodeAcceptsExactLimit(t *testing.T) {
	enc := NewEncoder(config.Default())

	data := make([]byte, config.MaxAttachmentBytes)
	att, err := enc.Encode("scan.pdf", data)
	if err != nil {
		t.Fatalf("exactly the limit must pass, got %v", err)
	}
	if att.Filename != "scan.pdf" {
		t.Errorf("filename = %q", att.Filename)
	}
	if !strings.HasPrefix(att.Payload, "data:application/pdf;base64,") {
		t.Errorf("unexpected payload prefix: %.40s", att.Payload)
	}
}

func TestEncodeMimeFromExtension(t *testing.T) {
	enc := NewEncoder(config.Default())
	cases := []struct {
		name string
		want string
	}{
		{"photo.PNG", "data:image/png;base64,"},
		{"clip.webm", "data:audio/webm;base64,"},
		{"voice.mp3", "data:audio/mpeg;base64,"},
	}
	for _, c := range cases {
		att, err := enc.Encode(c.name, []byte{1, 2, 3})
		if err != nil {
			t.Fatalf("Encode(%q): %v", c.name, err)
		}
		if !strings.HasPrefix(att.Payload, c.want) {
			t.Errorf("Encode(%q) payload prefix %.40s, want %s", c.name, att.Payload, c.want)
		}
	}
}

func TestEncodeCustomLimit(t *testing.T) {
	cfg := config.Default()
	cfg.MaxAttachmentBytes = 8
	enc := NewEncoder(cfg)

	if _, err := enc.Encode("a.bin", make([]byte, 9)); !errors.Is(err, errs.ErrAttachmentTooLarge) {
		t.Fatalf("expected AttachmentTooLarge, got %v", err)
	}
	if _, err := enc.Encode("a.bin", make([]byte, 8)); err != nil {
		t.Fatalf("limit itself must pass, got %v", err)
	}
}
