package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"CarePortal/global/config"
	"CarePortal/logger"
	"CarePortal/service/channel"
	"CarePortal/tools/decode"
	"CarePortal/tools/errs"

	"github.com/go-resty/resty/v2"
)

type wireNotification struct {
	ID        string `json:"id"`
	Type      string `json:"notification_type"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
	IsRead    bool   `json:"is_read"`
}

// Channel maintains the authenticated user's live notification list:
// one REST seed fetch, then pushes over an app-wide socket keyed by the
// session token rather than a room.
type Channel struct {
	cfg   config.AppConfig
	token string
	rest  *resty.Client

	mu    sync.Mutex
	ch    *channel.Channel
	items []Notification
	seq   int64
}

func NewChannel(cfg config.AppConfig, token string) *Channel {
	rest := resty.New().
		SetBaseURL(cfg.APIBase).
		SetTimeout(cfg.RequestTimeout).
		SetAuthToken(token)
	return &Channel{cfg: cfg, token: token, rest: rest}
}

// Open seeds the list over REST and then dials the notification socket.
// Without a session token the channel stays inert. A failed seed fetch
// is logged and the socket still opened; the list starts empty.
func (n *Channel) Open(ctx context.Context) error {
	if n.token == "" {
		logger.Debug("[notify] no session token, staying inert")
		return nil
	}
	n.mu.Lock()
	if n.ch != nil {
		n.mu.Unlock()
		return nil
	}
	ch := channel.New(
		channel.NotifyURL(n.cfg.WSBase, n.token),
		n.cfg.DialTimeout,
		n.handleEvent,
	)
	n.ch = ch
	n.mu.Unlock()

	if err := n.seed(ctx); err != nil {
		logger.Warnf("[notify] seed fetch: %v", err)
	}
	return ch.Open(ctx)
}

func (n *Channel) seed(ctx context.Context) error {
	var wire []wireNotification
	resp, err := n.rest.R().
		SetContext(ctx).
		SetResult(&wire).
		Get("/api/notifications")
	if err != nil {
		return errs.ErrTransportUnavailable.WrapMsg(err.Error())
	}
	if resp.IsError() {
		return errs.ErrTransportUnavailable.WrapMsg(resp.Status())
	}

	// Server order is newest first; keep it.
	items := make([]Notification, 0, len(wire))
	for i := range wire {
		items = append(items, fromWire(&wire[i]))
	}
	n.mu.Lock()
	n.items = items
	n.mu.Unlock()
	return nil
}

func fromWire(w *wireNotification) Notification {
	created, err := time.Parse(time.RFC3339, w.CreatedAt)
	if err != nil {
		created = time.Time{}
	}
	return Notification{
		ID:        w.ID,
		Type:      ParseType(w.Type),
		Message:   w.Message,
		CreatedAt: created,
		IsRead:    w.IsRead,
	}
}

// handleEvent prepends each live push as a new unread entry.
func (n *Channel) handleEvent(evt channel.Event) {
	w, err := decode.MapToStruct[wireNotification](evt)
	if err != nil {
		logger.Warnf("[notify] %v", errs.ErrMalformedFrame.WithDetail(err.Error()))
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	item := Notification{
		ID:        w.ID,
		Type:      ParseType(w.Type),
		Message:   w.Message,
		CreatedAt: time.Now(),
		IsRead:    false,
	}
	if item.ID == "" {
		item.ID = "live-" + strconv.FormatInt(n.seq, 10)
	}
	n.items = append([]Notification{item}, n.items...)
}

// Notifications returns a snapshot in display order.
func (n *Channel) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

// UnreadCount is derived, never stored.
func (n *Channel) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for i := range n.items {
		if !n.items[i].IsRead {
			count++
		}
	}
	return count
}

// MarkRead flips one entry after the server acknowledges.
func (n *Channel) MarkRead(ctx context.Context, id string) error {
	resp, err := n.rest.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/api/notifications/%s/read", id))
	if err != nil {
		return errs.ErrTransportUnavailable.WrapMsg(err.Error())
	}
	if resp.IsError() {
		return errs.ErrTransportUnavailable.WrapMsg(resp.Status())
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].IsRead = true
			break
		}
	}
	return nil
}

// MarkAllRead flips every entry after the server acknowledges.
func (n *Channel) MarkAllRead(ctx context.Context) error {
	resp, err := n.rest.R().
		SetContext(ctx).
		Post("/api/notifications/read-all")
	if err != nil {
		return errs.ErrTransportUnavailable.WrapMsg(err.Error())
	}
	if resp.IsError() {
		return errs.ErrTransportUnavailable.WrapMsg(resp.Status())
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		n.items[i].IsRead = true
	}
	return nil
}

// Delete removes the entry locally whatever the server said. Losing the
// race against a failed delete is accepted; the list refreshes on the
// next seed fetch anyway.
func (n *Channel) Delete(ctx context.Context, id string) error {
	resp, err := n.rest.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/notifications/%s", id))

	n.mu.Lock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	if err != nil {
		return errs.ErrTransportUnavailable.WrapMsg(err.Error())
	}
	if resp.IsError() {
		return errs.ErrTransportUnavailable.WrapMsg(resp.Status())
	}
	return nil
}

// Close releases the socket. Safe to call multiple times.
func (n *Channel) Close() {
	n.mu.Lock()
	ch := n.ch
	n.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}
