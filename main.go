package main

import (
	"context"
	"net/http"
	"time"

	"CarePortal/global/config"
	"CarePortal/logger"
	"CarePortal/module/access"
	"CarePortal/module/chat"
	"CarePortal/module/media"
	"CarePortal/module/notify"
	"CarePortal/service/devserver"
)

// Demo wiring: boots the dev portal stub, gates room entry for a
// patient, opens the chat session and the notification channel, and
// exchanges a couple of frames.
func main() {
	secret := []byte("dev-only-secret")
	srv := devserver.New(secret)
	srv.AddSlot("7", "42")

	go func() {
		if err := http.ListenAndServe("127.0.0.1:8080", srv.Engine()); err != nil {
			logger.Errorf("devserver: %v", err)
		}
	}()
	time.Sleep(200 * time.Millisecond)

	cfg := config.Default()
	cfg.APIBase = "http://127.0.0.1:8080"
	cfg.WSBase = "ws://127.0.0.1:8080"

	patientToken, err := srv.IssueToken("alice", "patient")
	if err != nil {
		logger.Errorf("issue token: %v", err)
		return
	}
	doctorToken, err := srv.IssueToken("dr-bob", "doctor")
	if err != nil {
		logger.Errorf("issue token: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	validator := access.NewValidator(cfg, patientToken)
	target, roomID, err := validator.Authorize(ctx, "7", patientToken)
	if err != nil {
		logger.Errorf("room gate: %v", err)
		return
	}
	logger.Infof("patient routed to %s", target)

	notifications := notify.NewChannel(cfg, patientToken)
	if err := notifications.Open(ctx); err != nil {
		logger.Warnf("notifications: %v", err)
	}
	defer notifications.Close()

	patient := chat.NewSession(cfg, roomID, patientToken, "alice")
	if err := patient.Open(ctx); err != nil {
		logger.Errorf("patient session: %v", err)
		return
	}
	defer patient.Close()

	doctor := chat.NewSession(cfg, roomID, doctorToken, "dr-bob")
	if err := doctor.Open(ctx); err != nil {
		logger.Errorf("doctor session: %v", err)
		return
	}
	defer doctor.Close()

	doctor.NotifyTyping(true)
	doctor.SendMessage("Hello, how can I help you today?", nil)
	doctor.NotifyTyping(false)

	encoder := media.NewEncoder(cfg)
	att, err := encoder.Encode("photo.png", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		logger.Errorf("encode: %v", err)
		return
	}
	patient.SendMessage("Here is the rash I mentioned", att)

	srv.PushNotification("alice", "chat_activated", "Your consultation chat is ready")

	time.Sleep(500 * time.Millisecond)

	for _, m := range patient.Messages() {
		kind := "text"
		if m.Attachment != nil {
			kind = m.Attachment.Kind().String()
		}
		logger.Infof("[%s] %s (%s)", m.Sender, m.Body, kind)
	}
	logger.Infof("unread notifications: %d", notifications.UnreadCount())
}
