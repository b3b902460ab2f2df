package server

import (
	"bubbles/communication"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const idlePingInterval = 30 * time.Second

// Hub fans status snapshots out to the connected websocket clients from a
// single goroutine.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	broadcast chan communication.StatusDTO
}

type client struct {
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		broadcast: make(chan communication.StatusDTO, 64),
	}
}

func newClient() *client {
	return &client{send: make(chan []byte, 16)}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case status := <-h.broadcast:
			msg := communication.Message{Type: communication.StatusMessage, Payload: mustMarshal(status)}
			h.mu.Lock()
			for c := range h.clients {
				c.sendJSON(msg)
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast drops the snapshot when the queue is full; a newer one follows.
func (h *Hub) Broadcast(status communication.StatusDTO) {
	select {
	case h.broadcast <- status:
	default:
	}
}

func (h *Hub) Register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *client) sendJSON(msg communication.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writeWithHeartbeat drains send onto conn and pings the client after
// idlePingInterval without writes.
func writeWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(idlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(communication.Message{Type: communication.PingMessage})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < idlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
