// Package hub is the websocket side of the tracking engine: one hub per
// order, fan-out filtered by role. It implements the engine's Publisher
// port; delivery is at-most-once to whoever is connected right now.
package hub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/thebowwman/ordertrack/internals/domain"
)

type orderHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func newOrderHub() *orderHub {

	return &orderHub{clients: make(map[*Client]struct{})}
}

func (h *orderHub) broadcast(b []byte, filter func(*Client) bool) {

	h.mu.RLock()
	for c := range h.clients {

		if filter == nil || filter(c) {
			c.Send(b)
		}
	}

	h.mu.RUnlock()
}

// Hubs maps order IDs to their connection hubs.
type Hubs struct {
	m sync.Map
}

func NewHubs() *Hubs { return &Hubs{} }

func (hs *Hubs) get(orderID string) *orderHub {

	if v, ok := hs.m.Load(orderID); ok {
		return v.(*orderHub)
	}
	v, _ := hs.m.LoadOrStore(orderID, newOrderHub())
	return v.(*orderHub)
}

func (hs *Hubs) Add(orderID string, c *Client) {
	h := hs.get(orderID)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (hs *Hubs) Remove(orderID string, c *Client) {
	h := hs.get(orderID)
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Publish sends the event to connected clients holding the given role.
func (hs *Hubs) Publish(orderID string, role domain.Role, event any) {

	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	hs.get(orderID).broadcast(b, func(c *Client) bool { return c.Role() == role })
}

// Broadcast sends the event to every connected participant of the order.
func (hs *Hubs) Broadcast(orderID string, event any) {

	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	hs.get(orderID).broadcast(b, nil)
}

func RandID(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)

}

// Client wraps one websocket connection with its role. Writes are
// serialized by the client mutex and bounded by a 5s timeout.
type Client struct {
	conn *websocket.Conn
	role domain.Role
	mu   sync.Mutex
}

func NewClient(conn *websocket.Conn, role domain.Role) *Client {

	return &Client{
		conn: conn,
		role: role,
	}
}

func (c *Client) Send(b []byte) {

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = c.conn.Write(ctx, websocket.MessageText, b)

}

func (c *Client) Role() domain.Role { return c.role }

func (c *Client) SendJSON(v any) {

	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Send(b)
}
