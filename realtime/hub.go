package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cadence/collab-server/utils"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Conn is the transport surface the realtime core needs from a connection.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// client is one attached connection: a buffered outbound queue drained by a
// single writer goroutine, so delivery order per connection matches enqueue
// order and a stalled socket never blocks anyone else.
type client struct {
	id   string
	conn Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Hub owns the connID → client table and is the only component that writes
// to transport sockets.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	sendBuffer int
	logger     *utils.Logger
	metrics    *Metrics
}

func NewHub(sendBuffer int, logger *utils.Logger, metrics *Metrics) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		clients:    make(map[string]*client),
		sendBuffer: sendBuffer,
		logger:     logger,
		metrics:    metrics,
	}
}

// Attach registers the connection and starts its writer goroutine.
func (h *Hub) Attach(connID string, conn Conn) {
	c := &client{
		id:   connID,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()

	h.metrics.ActiveConnections.Inc()
	go h.writePump(c)
}

// Detach removes the connection and stops its writer. Safe to call more than
// once and for unknown connIDs.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	h.metrics.ActiveConnections.Dec()
}

// deliver enqueues data for one connection. Returns false if the connection
// is gone or its buffer is full; the caller treats that as an isolated
// delivery failure.
func (h *Hub) deliver(connID string, data []byte) bool {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()

	if c == nil {
		return false
	}

	select {
	case <-c.done:
		return false
	case c.send <- data:
		return true
	default:
		// Buffer full: slow consumer. Drop rather than block the publisher.
		return false
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("Websocket write failed", "conn_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
