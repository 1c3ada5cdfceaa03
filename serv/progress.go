package serv

import (
	"sync"

	"github.com/gorilla/websocket"
)

// progressHub fans a mirror job's progress lines out to every subscribed
// websocket client, the nearest analogue here to GraphJin's subscription
// websocket.
type progressHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{clients: map[*websocket.Conn]struct{}{}}
}

func (h *progressHub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *progressHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.Close() //nolint:errcheck
}

// broadcast sends line to every connected client, dropping any connection
// that errors on write.
func (h *progressHub) broadcast(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			delete(h.clients, c)
			c.Close() //nolint:errcheck
		}
	}
}

func (h *progressHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close() //nolint:errcheck
		delete(h.clients, c)
	}
}
