package media

import (
	"bytes"
	"context"
	"sync"

	"CarePortal/module/chat"
	"CarePortal/tools/errs"
	"CarePortal/tools/safe"
)

// VoiceFilename names every finalized clip.
const VoiceFilename = "voice_message.webm"

// Source abstracts the platform recording primitive. Open requests the
// capture device and returns a chunk stream plus a stop function; the
// stream must be closed after stop is called.
type Source interface {
	Open(ctx context.Context) (chunks <-chan []byte, stop func(), err error)
}

type captureState int

const (
	captureIdle captureState = iota
	captureRecording
)

// Recorder produces exactly one attachment per recording session:
// idle -> recording -> idle. One recording at a time per instance.
type Recorder struct {
	source  Source
	encoder *Encoder

	mu      sync.Mutex
	state   captureState
	buf     bytes.Buffer
	stopFn  func()
	drained chan struct{}
}

func NewRecorder(source Source, encoder *Encoder) *Recorder {
	return &Recorder{source: source, encoder: encoder}
}

// Start requests the capture device and begins buffering chunks.
// Starting while already recording is a caller error.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state == captureRecording {
		r.mu.Unlock()
		return errs.ErrRecorderBusy.WrapMsg("start while recording")
	}
	r.state = captureRecording
	r.buf.Reset()
	r.drained = make(chan struct{})
	r.mu.Unlock()

	chunks, stop, err := r.source.Open(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = captureIdle
		r.mu.Unlock()
		return errs.ErrMicrophoneUnavailable.WrapMsg(err.Error())
	}

	r.mu.Lock()
	r.stopFn = stop
	drained := r.drained
	r.mu.Unlock()

	safe.SafeGo(func() {
		for chunk := range chunks {
			r.mu.Lock()
			r.buf.Write(chunk)
			r.mu.Unlock()
		}
		close(drained)
	})
	return nil
}

// Stop finalizes the buffered chunks into a single clip and encodes it
// through the same data-URI path as file attachments.
func (r *Recorder) Stop() (*chat.Attachment, error) {
	r.mu.Lock()
	if r.state != captureRecording {
		r.mu.Unlock()
		return nil, errs.ErrRecorderBusy.WrapMsg("stop while idle")
	}
	stop := r.stopFn
	drained := r.drained
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
	<-drained // wait for the chunk stream to flush

	r.mu.Lock()
	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	r.buf.Reset()
	r.state = captureIdle
	r.stopFn = nil
	r.mu.Unlock()

	return r.encoder.Encode(VoiceFilename, data)
}

// Recording reports whether a capture session is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == captureRecording
}
