package media

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"CarePortal/global/config"
	"CarePortal/module/chat"
	"CarePortal/tools/errs"
)

// Extensions the portal cares about. Anything else falls back to
// content sniffing.
var mimeByExt = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"webm": "audio/webm",
}

// Encoder validates and encodes user-chosen files for transport. The
// size gate runs before any encoding work; it is the only client-side
// validation, content sniffing beyond the extension is out of scope.
type Encoder struct {
	maxBytes int64
}

func NewEncoder(cfg config.AppConfig) *Encoder {
	maxBytes := cfg.MaxAttachmentBytes
	if maxBytes <= 0 {
		maxBytes = config.MaxAttachmentBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// Encode turns raw bytes into a data-URI attachment.
func (e *Encoder) Encode(filename string, data []byte) (*chat.Attachment, error) {
	if int64(len(data)) > e.maxBytes {
		return nil, errs.ErrAttachmentTooLarge.WrapMsg(
			fmt.Sprintf("%d bytes > limit %d", len(data), e.maxBytes))
	}
	return &chat.Attachment{
		Payload:  DataURI(filename, data),
		Filename: filename,
	}, nil
}

// DataURI builds a base64 data URI for the payload.
func DataURI(filename string, data []byte) string {
	return "data:" + mimeFor(filename, data) + ";base64," +
		base64.StdEncoding.EncodeToString(data)
}

func mimeFor(filename string, data []byte) string {
	ext := strings.ToLower(filename)
	if i := strings.LastIndex(ext, "."); i >= 0 {
		if m, ok := mimeByExt[ext[i+1:]]; ok {
			return m
		}
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}
