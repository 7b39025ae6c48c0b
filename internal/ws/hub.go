package ws

import (
	"context"
	"log"
	"sync"
)

// Hub fans batch events out to connected dashboard clients. Run owns the
// client set; everything else talks to it through channels.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	logger     *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Printf("ws=connect total_clients=%d", total)

		case client := <-h.unregister:
			if h.drop(client) {
				h.logger.Printf("ws=disconnect total_clients=%d", h.ClientCount())
			}

		case message := <-h.broadcast:
			h.mutex.RLock()
			snapshot := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				snapshot = append(snapshot, c)
			}
			h.mutex.RUnlock()

			slow := 0
			for _, client := range snapshot {
				select {
				case client.send <- message:
				default:
					// a client that cannot keep up is cut off
					h.drop(client)
					slow++
				}
			}
			h.logger.Printf("ws=broadcast clients=%d dropped=%d", len(snapshot), slow)
		}
	}
}

func (h *Hub) drop(client *Client) bool {
	if client == nil {
		return false
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	close(client.send)
	return true
}

func (h *Hub) Register(client *Client) {
	if h == nil {
		return
	}
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	if h == nil {
		return
	}
	select {
	case h.unregister <- client:
	default:
		h.drop(client)
	}
}

// Broadcast never blocks the caller; when the queue is full the message is
// dropped.
func (h *Hub) Broadcast(message []byte) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Printf("ws=broadcast status=dropped reason=buffer_full")
	}
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
