// Package devserver is a stub of the portal's realtime surface: the
// chat and notification sockets plus the REST endpoints the client
// consumes. It exists for local development and package tests; the
// production backend lives elsewhere.
package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"CarePortal/logger"
	midsec "CarePortal/middleware/security"
	"CarePortal/tools/ids"
	"CarePortal/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type storedMessage struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Body   string `json:"message"`
	File   string `json:"file,omitempty"`
}

type storedNotification struct {
	ID        string `json:"id"`
	Type      string `json:"notification_type"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
	IsRead    bool   `json:"is_read"`
}

type room struct {
	history []storedMessage
	conns   map[*websocket.Conn]string // conn -> user
}

type Server struct {
	jwtOpts security.Options
	engine  *gin.Engine

	mu         sync.Mutex
	wmu        sync.Mutex // serializes websocket writes
	rooms      map[string]*room
	slots      map[string]string // slot id -> room id
	notifs     map[string][]storedNotification
	notifConns map[string][]*websocket.Conn // user -> conns
}

func New(secret []byte) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		jwtOpts:    security.DefaultOptions(secret),
		rooms:      make(map[string]*room),
		slots:      make(map[string]string),
		notifs:     make(map[string][]storedNotification),
		notifConns: make(map[string][]*websocket.Conn),
	}

	r := gin.New()
	r.GET("/ws/chat/", s.handleChatWS)
	r.GET("/ws/notifications/", s.handleNotifyWS)

	api := r.Group("/api", midsec.Middleware(midsec.Options{JWT: s.jwtOpts}))
	api.GET("/chat/validate", s.handleValidate)
	api.GET("/notifications", s.handleList)
	api.POST("/notifications/:id/read", s.handleMarkRead)
	api.POST("/notifications/read-all", s.handleMarkAllRead)
	api.DELETE("/notifications/:id", s.handleDelete)
	s.engine = r
	return s
}

// Engine exposes the handler for httptest or a local listener.
func (s *Server) Engine() http.Handler { return s.engine }

// IssueToken signs a portal token for a user/role pair.
func (s *Server) IssueToken(userID, role string) (string, error) {
	token, _, err := security.Generate(s.jwtOpts, userID, role)
	return token, err
}

// AddSlot maps a bookable slot to its chat room.
func (s *Server) AddSlot(slotID, roomID string) {
	s.mu.Lock()
	s.slots[slotID] = roomID
	s.mu.Unlock()
}

// SeedNotification stores one list entry for the user.
func (s *Server) SeedNotification(userID, typ, message string, isRead bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ids.GenerateString()
	entry := storedNotification{
		ID:        id,
		Type:      typ,
		Message:   message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		IsRead:    isRead,
	}
	// newest first
	s.notifs[userID] = append([]storedNotification{entry}, s.notifs[userID]...)
	return id
}

// PushNotification stores an entry and pushes it to the user's open
// notification sockets.
func (s *Server) PushNotification(userID, typ, message string) {
	s.SeedNotification(userID, typ, message, false)
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.notifConns[userID]...)
	s.mu.Unlock()
	frame := map[string]any{"notification_type": typ, "message": message}
	for _, c := range conns {
		if err := s.writeJSON(c, frame); err != nil {
			logger.Warnf("[devserver] notify push: %v", err)
		}
	}
}

func (s *Server) identityFromQuery(c *gin.Context) *security.Identity {
	token := c.Query("token")
	if token == "" {
		return nil
	}
	id, err := security.Verify(s.jwtOpts, token)
	if err != nil {
		logger.Warnf("[devserver] bad token: %v", err)
		return nil
	}
	return id
}

func (s *Server) handleChatWS(c *gin.Context) {
	identity := s.identityFromQuery(c)
	roomID := c.Query("room_id")
	if identity == nil || roomID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[devserver] upgrade: %v", err)
		return
	}
	defer func() {
		s.leaveRoom(roomID, ws)
		_ = ws.Close()
	}()

	rm := s.joinRoom(roomID, ws, identity.UserID)

	// Full history snapshot on entry.
	s.mu.Lock()
	snapshot := append([]storedMessage(nil), rm.history...)
	s.mu.Unlock()
	if err := s.writeJSON(ws, map[string]any{"type": "history", "messages": snapshot}); err != nil {
		return
	}

	for {
		_, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if !websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[devserver] read: %v", rerr)
			}
			return
		}
		s.handleChatFrame(roomID, identity.UserID, ws, data)
	}
}

func (s *Server) handleChatFrame(roomID, user string, from *websocket.Conn, data []byte) {
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		logger.Warnf("[devserver] drop frame: %v", err)
		return
	}

	typ, _ := frame["type"].(string)
	switch typ {
	case "typing":
		isTyping, _ := frame["is_typing"].(bool)
		s.broadcast(roomID, from, map[string]any{
			"type": "typing", "user": user, "is_typing": isTyping,
		})
	case "message":
		body, _ := frame["message"].(string)
		file, _ := frame["file"].(string)
		s.mu.Lock()
		msg := storedMessage{
			ID:     ids.GenerateString(),
			Sender: user,
			Body:   body,
			File:   file,
		}
		rm := s.rooms[roomID]
		if rm != nil {
			rm.history = append(rm.history, msg)
		}
		s.mu.Unlock()
		s.broadcast(roomID, nil, map[string]any{
			"id": msg.ID, "sender": msg.Sender, "message": msg.Body, "file": msg.File,
		})
	default:
		logger.Infof("[devserver] unknown frame type %q", typ)
	}
}

func (s *Server) joinRoom(roomID string, ws *websocket.Conn, user string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := s.rooms[roomID]
	if rm == nil {
		rm = &room{conns: make(map[*websocket.Conn]string)}
		s.rooms[roomID] = rm
	}
	rm.conns[ws] = user
	return rm
}

func (s *Server) leaveRoom(roomID string, ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm := s.rooms[roomID]; rm != nil {
		delete(rm.conns, ws)
	}
}

// broadcast sends a frame to every room member except skip.
func (s *Server) broadcast(roomID string, skip *websocket.Conn, frame map[string]any) {
	s.mu.Lock()
	rm := s.rooms[roomID]
	var conns []*websocket.Conn
	if rm != nil {
		for c := range rm.conns {
			if c != skip {
				conns = append(conns, c)
			}
		}
	}
	s.mu.Unlock()
	for _, c := range conns {
		if err := s.writeJSON(c, frame); err != nil {
			logger.Warnf("[devserver] broadcast: %v", err)
		}
	}
}

func (s *Server) writeJSON(ws *websocket.Conn, v any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return ws.WriteJSON(v)
}

func (s *Server) handleNotifyWS(c *gin.Context) {
	identity := s.identityFromQuery(c)
	if identity == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[devserver] upgrade: %v", err)
		return
	}

	s.mu.Lock()
	s.notifConns[identity.UserID] = append(s.notifConns[identity.UserID], ws)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		conns := s.notifConns[identity.UserID]
		for i, cn := range conns {
			if cn == ws {
				s.notifConns[identity.UserID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Push-only socket; just drain until the peer leaves.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleValidate(c *gin.Context) {
	slotID := c.Query("slot_id")
	s.mu.Lock()
	roomID, ok := s.slots[slotID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "slot is not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "room_id": roomID})
}

func (s *Server) handleList(c *gin.Context) {
	identity := midsec.Identity(c)
	s.mu.Lock()
	list := append([]storedNotification(nil), s.notifs[identity.UserID]...)
	s.mu.Unlock()
	if list == nil {
		list = []storedNotification{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	identity := midsec.Identity(c)
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifs[identity.UserID] {
		if s.notifs[identity.UserID][i].ID == id {
			s.notifs[identity.UserID][i].IsRead = true
			c.Status(http.StatusOK)
			return
		}
	}
	c.Status(http.StatusNotFound)
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	identity := midsec.Identity(c)
	s.mu.Lock()
	for i := range s.notifs[identity.UserID] {
		s.notifs[identity.UserID][i].IsRead = true
	}
	s.mu.Unlock()
	c.Status(http.StatusOK)
}

func (s *Server) handleDelete(c *gin.Context) {
	identity := midsec.Identity(c)
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifs[identity.UserID]
	for i := range list {
		if list[i].ID == id {
			s.notifs[identity.UserID] = append(list[:i], list[i+1:]...)
			c.Status(http.StatusOK)
			return
		}
	}
	c.Status(http.StatusNotFound)
}
