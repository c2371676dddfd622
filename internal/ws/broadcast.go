package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibe-virtuoso/backend/internal/supervisor"
)

var ErrTooManyConnections = errors.New("too many websocket connections")

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func newClient(conn *websocket.Conn, b *Broadcaster) *client {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// Broadcaster tracks connected websocket clients. Each client has its own
// write pump, so a slow client never blocks the others.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int
}

// NewBroadcaster creates a broadcaster accepting up to maxConns clients;
// zero means unlimited.
func NewBroadcaster(maxConns int) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		maxConns: maxConns,
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		return nil, ErrTooManyConnections
	}
	c := newClient(conn, b)
	b.clients[c] = true
	gaugeClients.Set(float64(len(b.clients)))
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	gaugeClients.Set(float64(len(b.clients)))
	b.mu.Unlock()
}

// Send queues v for one client. It reports false when the client is gone
// or cannot keep up; the caller should treat the connection as lost.
func (b *Broadcaster) Send(c *client, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return true
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		metricSendFailures.Inc()
		return false
	}
}

// Broadcast queues v for every client, disconnecting the ones that cannot
// keep up.
func (b *Broadcaster) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		log.Printf("ws client too slow, disconnecting")
		metricSendFailures.Inc()
		b.RemoveClient(c)
	}
}

// SupervisorChanged pushes a supervisor state transition to every client.
func (b *Broadcaster) SupervisorChanged(st supervisor.Status) {
	b.Broadcast(newSupervisorState(st))
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
