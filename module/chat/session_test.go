package chat

import (
	"context"
	"testing"

	"CarePortal/global/config"
	"CarePortal/service/channel"
)

func newTestSession() *Session {
	return NewSession(config.Default(), "42", "token", "alice")
}

func TestAppendOrderMatchesArrival(t *testing.T) {
	s := newTestSession()
	s.handleEvent(channel.Event{"sender": "dr-bob", "message": "first"})
	s.handleEvent(channel.Event{"type": "typing", "user": "dr-bob", "is_typing": true})
	s.handleEvent(channel.Event{"sender": "dr-bob", "message": "second"})
	s.handleEvent(channel.Event{"sender": "alice", "message": "third"})

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Body != want {
			t.Errorf("messages[%d] = %q, want %q", i, msgs[i].Body, want)
		}
	}
}

func TestHistoryReplacesEntireList(t *testing.T) {
	s := newTestSession()
	s.handleEvent(channel.Event{"sender": "dr-bob", "message": "stale"})
	s.handleEvent(channel.Event{
		"type": "history",
		"messages": []any{
			map[string]any{"id": "m1", "sender": "dr-bob", "message": "one"},
			map[string]any{"id": "m2", "sender": "alice", "message": "two"},
		},
	})

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected exactly the snapshot, got %d messages", len(msgs))
	}
	if msgs[0].Body != "one" || msgs[1].Body != "two" {
		t.Errorf("unexpected snapshot order: %q, %q", msgs[0].Body, msgs[1].Body)
	}
	if msgs[0].ID != "m1" {
		t.Errorf("server id should survive, got %q", msgs[0].ID)
	}
}

func TestTypingExclusivity(t *testing.T) {
	s := newTestSession()
	s.handleEvent(channel.Event{"type": "typing", "user": "dr-bob", "is_typing": true})
	if s.TypingUser() != "dr-bob" {
		t.Fatalf("expected dr-bob typing, got %q", s.TypingUser())
	}

	// Stop from a different user must not clear the indicator.
	s.handleEvent(channel.Event{"type": "typing", "user": "dr-carol", "is_typing": false})
	if s.TypingUser() != "dr-bob" {
		t.Fatalf("indicator cleared by wrong user, got %q", s.TypingUser())
	}

	s.handleEvent(channel.Event{"type": "typing", "user": "dr-bob", "is_typing": false})
	if s.TypingUser() != "" {
		t.Fatalf("indicator should clear, got %q", s.TypingUser())
	}
}

func TestTypingSelfEchoSuppressed(t *testing.T) {
	s := newTestSession()
	s.handleEvent(channel.Event{"type": "typing", "user": "alice", "is_typing": true})
	if s.TypingUser() != "" {
		t.Fatalf("local echo should never show, got %q", s.TypingUser())
	}
}

func TestNewMessageClearsTypingFromSameUser(t *testing.T) {
	s := newTestSession()
	s.handleEvent(channel.Event{"type": "typing", "user": "dr-bob", "is_typing": true})
	s.handleEvent(channel.Event{"sender": "dr-bob", "message": "done typing"})
	if s.TypingUser() != "" {
		t.Fatalf("message arrival should clear typing, got %q", s.TypingUser())
	}

	s.handleEvent(channel.Event{"type": "typing", "user": "dr-bob", "is_typing": true})
	s.handleEvent(channel.Event{"sender": "dr-carol", "message": "unrelated"})
	if s.TypingUser() != "dr-bob" {
		t.Fatalf("message from another user must not clear typing, got %q", s.TypingUser())
	}
}

func TestMessageInvariantDropsEmptyFrames(t *testing.T) {
	s := newTestSession()
	s.handleEvent(channel.Event{"sender": "dr-bob", "message": ""})
	if len(s.Messages()) != 0 {
		t.Fatal("frame with no body and no file must not enter the feed")
	}

	s.handleEvent(channel.Event{"sender": "dr-bob", "file": "data:image/png;base64,AAAA"})
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Attachment == nil {
		t.Fatal("attachment-only frame should enter the feed")
	}
	if msgs[0].Attachment.Kind() != KindImage {
		t.Errorf("expected image kind, got %v", msgs[0].Attachment.Kind())
	}
}

func TestBlankSendIsNoOp(t *testing.T) {
	s := newTestSession()
	s.SetComposeText("   ")
	s.StageAttachment(nil)
	s.SendMessage("   ", nil)

	if len(s.Messages()) != 0 {
		t.Fatal("blank send must leave the feed unchanged")
	}
}

func TestSendClearsComposeState(t *testing.T) {
	s := newTestSession()
	att := &Attachment{Payload: "data:image/png;base64,AAAA", Filename: "photo.png"}
	s.SetComposeText("hello")
	s.StageAttachment(att)

	// Unopened session: the frame goes nowhere, compose state clears anyway.
	s.SendStaged()
	if s.StagedAttachment() != nil {
		t.Fatal("staged attachment should clear after send")
	}
	s.mu.Lock()
	text := s.composeText
	s.mu.Unlock()
	if text != "" {
		t.Fatalf("compose text should clear after send, got %q", text)
	}
}

func TestInertSessionNeverOpens(t *testing.T) {
	s := NewSession(config.Default(), "", "token", "alice")
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("inert open should be a no-op, got %v", err)
	}
	if !s.Closed() {
		t.Fatal("inert session should report closed")
	}
}
