package channel

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"sync"
	"time"

	"CarePortal/logger"
	"CarePortal/tools/errs"
	"CarePortal/tools/safe"

	"github.com/gorilla/websocket"
)

// State of one channel. Closed is terminal: a new Channel must be
// built to reconnect (see Redial).
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Event is one parsed inbound frame.
type Event map[string]any

// Handler receives parsed inbound frames, one at a time, in transport
// order. It runs on the channel's read goroutine.
type Handler func(Event)

// Channel owns one websocket connection. It is exclusively owned by the
// session that created it; no multiplexing.
type Channel struct {
	url         string
	dialTimeout time.Duration
	handler     Handler

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	opened bool
	done   chan struct{}
}

func New(rawURL string, dialTimeout time.Duration, handler Handler) *Channel {
	return &Channel{
		url:         rawURL,
		dialTimeout: dialTimeout,
		handler:     handler,
		state:       StateConnecting,
		done:        make(chan struct{}),
	}
}

// ChatURL builds the room socket URL with the bearer token in the query.
func ChatURL(wsBase, roomID, token string) string {
	q := url.Values{}
	q.Set("room_id", roomID)
	q.Set("token", token)
	return wsBase + "/ws/chat/?" + q.Encode()
}

// NotifyURL builds the app-wide notification socket URL.
func NotifyURL(wsBase, token string) string {
	q := url.Values{}
	q.Set("token", token)
	return wsBase + "/ws/notifications/?" + q.Encode()
}

// Open dials the socket and starts the read loop. Idempotent per
// instance: repeat calls are no-ops. A dial failure leaves the channel
// closed; the returned error is informational (already logged), owners
// watching State need not inspect it.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.opened || c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.opened = true
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		logger.Warnf("[channel] dial failed url=%s err=%v", redactToken(c.url), err)
		c.Close()
		return errs.ErrTransportUnavailable.WrapMsg(err.Error())
	}

	c.mu.Lock()
	if c.state == StateClosed {
		// Closed while dialing.
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	safe.SafeGo(c.readLoop)
	return nil
}

// Send serializes v to one JSON text frame. At-most-once, no buffering:
// if the channel is not open the frame is dropped silently.
func (c *Channel) Send(v any) {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != StateOpen || conn == nil {
		logger.Debug("[channel] send dropped, state=" + state.String())
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("[channel] marshal outbound: %v", err)
		return
	}
	if err := c.write(data); err != nil {
		logger.Warnf("[channel] write failed: %v", err)
		c.Close()
	}
}

func (c *Channel) write(data []byte) error {
	// gorilla allows one concurrent writer; serialize under the lock.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen || c.conn == nil {
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the channel reaches its terminal state.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close releases the transport. Safe to call multiple times; frames
// that race Close are discarded, not delivered.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	conn := c.conn
	c.conn = nil
	close(c.done)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

func (c *Channel) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[channel] peer closed: %v", err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[channel] read timeout: %v", err)
			} else if c.State() != StateClosed {
				logger.Warnf("[channel] read err: %v", err)
			}
			c.Close()
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[channel] %v sample=%q len=%d",
				errs.ErrMalformedFrame.WithDetail(err.Error()), sample, len(data))
			continue
		}

		// Late frame after Close: discard, never apply to a dead owner.
		select {
		case <-c.done:
			return
		default:
		}
		if c.handler != nil {
			c.handler(evt)
		}
	}
}

func redactToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("token") != "" {
		q.Set("token", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
