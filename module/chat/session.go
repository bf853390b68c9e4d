package chat

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"CarePortal/global/config"
	"CarePortal/logger"
	"CarePortal/service/channel"
)

// Session turns one room id plus an auth token into a live, ordered
// message feed with a typing indicator. One Session owns one channel;
// nothing is shared across rooms or tabs.
//
// Typing notifications are forwarded as-is. Rate limiting rapid
// start/stop toggles is the caller's concern.
type Session struct {
	cfg    config.AppConfig
	roomID string
	token  string
	self   string // identity used to suppress the local typing echo

	mu         sync.Mutex
	ch         *channel.Channel
	messages   []Message
	typingUser string
	seq        int64

	// compose state, owned exclusively by this session
	composeText string
	staged      *Attachment
}

// NewSession builds a session. With an empty room id or token the
// session is inert: Open never dials and every send is a no-op.
func NewSession(cfg config.AppConfig, roomID, token, self string) *Session {
	return &Session{
		cfg:    cfg,
		roomID: roomID,
		token:  token,
		self:   self,
	}
}

func (s *Session) inert() bool {
	return s.roomID == "" || s.token == ""
}

// Open dials the room socket. No-op for inert sessions and on repeat calls.
func (s *Session) Open(ctx context.Context) error {
	if s.inert() {
		logger.Debug("[chat] inert session, not opening")
		return nil
	}
	s.mu.Lock()
	if s.ch != nil {
		s.mu.Unlock()
		return nil
	}
	ch := channel.New(
		channel.ChatURL(s.cfg.WSBase, s.roomID, s.token),
		s.cfg.DialTimeout,
		s.handleEvent,
	)
	s.ch = ch
	s.mu.Unlock()

	return ch.Open(ctx)
}

// handleEvent runs on the channel's read goroutine, one frame at a time.
func (s *Session) handleEvent(evt channel.Event) {
	switch kindOf(evt) {
	case frameTyping:
		f, err := parseTyping(evt)
		if err != nil {
			logger.Warnf("[chat] %v", err)
			return
		}
		s.applyTyping(f)
	case frameHistory:
		f, err := parseHistory(evt)
		if err != nil {
			logger.Warnf("[chat] %v", err)
			return
		}
		s.applyHistory(f)
	case frameMessage:
		f, err := parseMessage(evt)
		if err != nil {
			logger.Warnf("[chat] %v", err)
			return
		}
		s.applyMessage(f)
	}
}

func (s *Session) applyTyping(f *typingFrame) {
	if f.User == "" || f.User == s.self {
		// Never show the local echo.
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.IsTyping {
		s.typingUser = f.User
		return
	}
	// A stop from a different user does not clear the current indicator.
	if s.typingUser == f.User {
		s.typingUser = ""
	}
}

// applyHistory replaces the entire feed with the server snapshot.
func (s *Session) applyHistory(f *historyFrame) {
	msgs := make([]Message, 0, len(f.Messages))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range f.Messages {
		w := &f.Messages[i]
		if w.Body == "" && w.File == "" {
			continue
		}
		s.seq++
		msgs = append(msgs, w.toMessage(strconv.FormatInt(s.seq, 10)))
	}
	s.messages = msgs
}

// applyMessage appends in arrival order; the feed is never reordered.
func (s *Session) applyMessage(f *wireMessage) {
	if f.Body == "" && f.File == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.messages = append(s.messages, f.toMessage(strconv.FormatInt(s.seq, 10)))
	if f.Sender != "" && f.Sender == s.typingUser {
		s.typingUser = ""
	}
}

// Messages returns a snapshot of the feed in display order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// TypingUser returns the remote identity currently typing, or "".
func (s *Session) TypingUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typingUser
}

// SetComposeText mirrors the text box into the session's compose state.
func (s *Session) SetComposeText(text string) {
	s.mu.Lock()
	s.composeText = text
	s.mu.Unlock()
}

// StageAttachment holds an encoded attachment for the next send.
func (s *Session) StageAttachment(att *Attachment) {
	s.mu.Lock()
	s.staged = att
	s.mu.Unlock()
}

func (s *Session) StagedAttachment() *Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged
}

// SendMessage emits one outbound message frame. A blank text with no
// attachment is a no-op. Delivery is fire-and-forget: compose state is
// cleared whether or not the frame ever reaches the server.
func (s *Session) SendMessage(text string, att *Attachment) {
	if strings.TrimSpace(text) == "" && att == nil {
		return
	}
	s.mu.Lock()
	ch := s.ch
	s.composeText = ""
	s.staged = nil
	s.mu.Unlock()
	if ch == nil {
		return
	}

	var file *string
	if att != nil {
		file = &att.Payload
	}
	ch.Send(outMessage{Type: "message", Body: text, File: file})
}

// SendStaged sends the current compose state.
func (s *Session) SendStaged() {
	s.mu.Lock()
	text, att := s.composeText, s.staged
	s.mu.Unlock()
	s.SendMessage(text, att)
}

// NotifyTyping emits a typing frame. Call with true when composing
// starts and false when the compose field is left or the message sent.
func (s *Session) NotifyTyping(isTyping bool) {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	if ch == nil {
		return
	}
	ch.Send(outTyping{Type: "typing", IsTyping: isTyping})
}

// Closed reports whether the underlying channel reached its terminal
// state (or the session is inert/unopened).
func (s *Session) Closed() bool {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	if ch == nil {
		return true
	}
	return ch.State() == channel.StateClosed
}

// Close releases the channel. Safe to call multiple times.
func (s *Session) Close() {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}
