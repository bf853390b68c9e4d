package chat

import (
	"CarePortal/service/channel"
	"CarePortal/tools/decode"
	"CarePortal/tools/errs"
)

// Inbound frames form a closed union keyed by the "type" field. A frame
// with no type (or an unknown one carrying a sender) is itself a chat
// message; that matches the wire protocol, where plain messages are
// sent untagged.
type frameKind int

const (
	frameMessage frameKind = iota
	frameTyping
	frameHistory
)

type typingFrame struct {
	User     string `json:"user"`
	IsTyping bool   `json:"is_typing"`
}

type historyFrame struct {
	Messages []wireMessage `json:"messages"`
}

type wireMessage struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Body   string `json:"message"`
	File   string `json:"file"`
}

// Outbound frames.
type outTyping struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

type outMessage struct {
	Type string  `json:"type"`
	Body string  `json:"message"`
	File *string `json:"file"`
}

func kindOf(evt channel.Event) frameKind {
	t, _ := evt["type"].(string)
	switch t {
	case "typing":
		return frameTyping
	case "history":
		return frameHistory
	}
	return frameMessage
}

func parseTyping(evt channel.Event) (*typingFrame, error) {
	f, err := decode.MapToStruct[typingFrame](evt)
	if err != nil {
		return nil, errs.ErrMalformedFrame.WrapMsg(err.Error())
	}
	return f, nil
}

func parseHistory(evt channel.Event) (*historyFrame, error) {
	f, err := decode.MapToStruct[historyFrame](evt)
	if err != nil {
		return nil, errs.ErrMalformedFrame.WrapMsg(err.Error())
	}
	return f, nil
}

func parseMessage(evt channel.Event) (*wireMessage, error) {
	f, err := decode.MapToStruct[wireMessage](evt)
	if err != nil {
		return nil, errs.ErrMalformedFrame.WrapMsg(err.Error())
	}
	return f, nil
}

func (w *wireMessage) toMessage(fallbackID string) Message {
	m := Message{
		ID:     w.ID,
		Sender: w.Sender,
		Body:   w.Body,
	}
	if m.ID == "" {
		m.ID = fallbackID
	}
	if w.File != "" {
		m.Attachment = &Attachment{Payload: w.File}
	}
	return m
}
