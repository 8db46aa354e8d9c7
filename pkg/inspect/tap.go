package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// streamMessage is one tap record pushed to WebSocket subscribers.
type streamMessage struct {
	Type      string    `json:"type"`
	Client    string    `json:"client"`
	Interface string    `json:"interface,omitempty"`
	Message   string    `json:"message,omitempty"`
	Opcode    uint16    `json:"opcode,omitempty"`
	TookUs    int64     `json:"took_us,omitempty"`
	Object    uint32    `json:"object,omitempty"`
	Code      uint32    `json:"code,omitempty"`
	Text      string    `json:"text,omitempty"`
	Time      time.Time `json:"time"`
}

// tapBuffer bounds the publish queue. When subscribers cannot keep up,
// records are dropped rather than stalling dispatch.
const tapBuffer = 256

// tap fans dispatched-message records out to WebSocket subscribers.
type tap struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]bool

	queue  chan streamMessage
	closed chan struct{}
	once   sync.Once
}

func newTap(logger *slog.Logger) *tap {
	t := &tap{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // diagnostic surface, bind to localhost
			},
		},
		conns:  make(map[*websocket.Conn]bool),
		queue:  make(chan streamMessage, tapBuffer),
		closed: make(chan struct{}),
	}
	go t.pump()
	return t
}

// publish hands a record to the broadcast goroutine. Never blocks; a
// full queue drops the record.
func (t *tap) publish(msg streamMessage) {
	select {
	case t.queue <- msg:
	case <-t.closed:
	default:
		// Subscribers lagging; drop.
	}
}

func (t *tap) pump() {
	for {
		select {
		case msg := <-t.queue:
			t.broadcast(msg)
		case <-t.closed:
			return
		}
	}
}

func (t *tap) broadcast(msg streamMessage) {
	t.mu.RLock()
	if len(t.conns) == 0 {
		t.mu.RUnlock()
		return
	}
	conns := make([]*websocket.Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		t.logger.Error("marshal stream message", "error", err)
		return
	}

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			t.drop(conn)
		}
	}
}

// handleWebSocket upgrades the request and keeps the connection until
// the subscriber hangs up. Subscribers are write-only; inbound frames
// are read and discarded to service control messages.
func (t *tap) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	t.mu.Lock()
	t.conns[conn] = true
	t.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	t.drop(conn)
}

func (t *tap) drop(conn *websocket.Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
	conn.Close()
}

func (t *tap) close() {
	t.once.Do(func() { close(t.closed) })

	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.conns {
		conn.Close()
		delete(t.conns, conn)
	}
}
