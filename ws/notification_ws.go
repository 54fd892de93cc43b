package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// NotificationHub คือศูนย์กลางส่ง notification สดผ่าน WebSocket (1 user มีได้หลาย connection)
type NotificationHub struct {
	clients    map[string]map[*client]bool // userID -> set of clients
	broadcast  chan Delivery
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	log        logrus.FieldLogger
}

// Delivery = notification ที่จะส่งให้ทุก connection ของ user
type Delivery struct {
	UserID       string
	Notification *entity.Notification
}

type client struct {
	conn   *websocket.Conn
	userID string
	send   chan *entity.Notification
}

func NewNotificationHub(log logrus.FieldLogger) *NotificationHub {
	return &NotificationHub{
		clients:    make(map[string]map[*client]bool),
		broadcast:  make(chan Delivery, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run คอยฟัง register/unregister/broadcast จนกว่าจะ Stop
func (h *NotificationHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.remove(c)

		case d := <-h.broadcast:
			h.mu.RLock()
			var slow []*client
			for c := range h.clients[d.UserID] {
				select {
				case c.send <- d.Notification:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			// client ที่อ่านไม่ทันโดนตัดทิ้ง
			for _, c := range slow {
				h.remove(c)
			}

		case <-h.done:
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *NotificationHub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.userID]; ok && set[c] {
		delete(set, c)
		close(c.send)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// Stop closes every connection; Run returns afterwards.
func (h *NotificationHub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Publish never blocks the caller; when the queue is full the live copy is dropped (the inbox still has it).
func (h *NotificationHub) Publish(userID string, n *entity.Notification) {
	select {
	case h.broadcast <- Delivery{UserID: userID, Notification: n}:
	case <-h.done:
	default:
		h.log.WithField("user_id", userID).Warn("notification hub queue full, dropping live delivery")
	}
}

// Online reports how many live connections userID has.
func (h *NotificationHub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WS route: /ws/notifications
func (h *NotificationHub) HandleWebSocket(c *gin.Context) {
	userID := utils.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
		return
	}

	// --- Upgrade HTTP → WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade")
		return
	}

	cl := &client{conn: conn, userID: userID, send: make(chan *entity.Notification, sendBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(cl)
	go h.readPump(cl)
}

// readPump only watches for close/pong; clients do not send anything meaningful.
func (h *NotificationHub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).WithField("user_id", c.userID).Debug("ws read")
			}
			return
		}
	}
}

func (h *NotificationHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case n, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(liveMessage(n)); err != nil {
				h.log.WithError(err).WithField("user_id", c.userID).Debug("ws write")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type wireNotification struct {
	ID        uint            `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data,omitempty"`
	Target    string          `json:"target"`
	CreatedAt time.Time       `json:"createdAt"`
}

func liveMessage(n *entity.Notification) wireNotification {
	w := wireNotification{
		ID: n.ID, Type: n.Type, Title: n.Title, Body: n.Body, Target: n.Target, CreatedAt: n.CreatedAt,
	}
	if n.Data != "" && json.Valid([]byte(n.Data)) {
		w.Data = json.RawMessage(n.Data)
	}
	return w
}
