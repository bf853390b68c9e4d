package chat

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CarePortal/global/config"
	"CarePortal/service/devserver"
)

var testSecret = []byte("test-secret")

func newLivePortal(t *testing.T) (*devserver.Server, config.AppConfig) {
	t.Helper()
	srv := devserver.New(testSecret)
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIBase = ts.URL
	cfg.WSBase = "ws" + strings.TrimPrefix(ts.URL, "http")
	return srv, cfg
}

func openLiveSession(t *testing.T, srv *devserver.Server, cfg config.AppConfig, user, role string) *Session {
	t.Helper()
	token, err := srv.IssueToken(user, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	s := NewSession(cfg, "42", token, user)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open session for %s: %v", user, err)
	}
	t.Cleanup(s.Close)
	return s
}

func waitLive(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLiveMessageExchange(t *testing.T) {
	srv, cfg := newLivePortal(t)

	patient := openLiveSession(t, srv, cfg, "alice", "patient")
	doctor := openLiveSession(t, srv, cfg, "dr-bob", "doctor")

	doctor.SendMessage("hello alice", nil)
	waitLive(t, func() bool { return len(patient.Messages()) == 1 }, "doctor message")

	msgs := patient.Messages()
	if msgs[0].Sender != "dr-bob" || msgs[0].Body != "hello alice" {
		t.Fatalf("got %+v", msgs[0])
	}

	// Sender sees its own message echoed back through the room.
	waitLive(t, func() bool { return len(doctor.Messages()) == 1 }, "echo to sender")

	patient.SendMessage("hi doctor", &Attachment{
		Payload:  "data:image/png;base64,AAAA",
		Filename: "photo.png",
	})
	waitLive(t, func() bool { return len(doctor.Messages()) == 2 }, "patient reply")

	reply := doctor.Messages()[1]
	if reply.Attachment == nil || reply.Attachment.Kind() != KindImage {
		t.Fatalf("attachment lost or misclassified: %+v", reply.Attachment)
	}
}

func TestLiveHistorySnapshotOnJoin(t *testing.T) {
	srv, cfg := newLivePortal(t)

	doctor := openLiveSession(t, srv, cfg, "dr-bob", "doctor")
	doctor.SendMessage("first", nil)
	doctor.SendMessage("second", nil)
	waitLive(t, func() bool { return len(doctor.Messages()) == 2 }, "room history")

	// A late joiner gets the full snapshot, not an empty feed.
	patient := openLiveSession(t, srv, cfg, "alice", "patient")
	waitLive(t, func() bool { return len(patient.Messages()) == 2 }, "history snapshot")

	msgs := patient.Messages()
	if msgs[0].Body != "first" || msgs[1].Body != "second" {
		t.Fatalf("snapshot order wrong: %q, %q", msgs[0].Body, msgs[1].Body)
	}
}

func TestLiveTypingIndicator(t *testing.T) {
	srv, cfg := newLivePortal(t)

	patient := openLiveSession(t, srv, cfg, "alice", "patient")
	doctor := openLiveSession(t, srv, cfg, "dr-bob", "doctor")

	doctor.NotifyTyping(true)
	waitLive(t, func() bool { return patient.TypingUser() == "dr-bob" }, "typing on")

	// The typist never sees their own indicator.
	if doctor.TypingUser() != "" {
		t.Fatalf("self echo leaked: %q", doctor.TypingUser())
	}

	doctor.NotifyTyping(false)
	waitLive(t, func() bool { return patient.TypingUser() == "" }, "typing off")
}

func TestLiveCloseStopsDelivery(t *testing.T) {
	srv, cfg := newLivePortal(t)

	patient := openLiveSession(t, srv, cfg, "alice", "patient")
	doctor := openLiveSession(t, srv, cfg, "dr-bob", "doctor")

	patient.Close()
	waitLive(t, patient.Closed, "terminal state")

	doctor.SendMessage("anyone there?", nil)
	time.Sleep(150 * time.Millisecond)
	if len(patient.Messages()) != 0 {
		t.Fatal("frames must not be applied to a closed session")
	}
}
