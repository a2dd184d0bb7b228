package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Room names clients can subscribe to.
const (
	RoomStock  = "stock"
	RoomOrders = "orders"
)

// Client is one websocket subscriber.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Room string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// Hub fans events out to subscribed websocket clients. Slow clients are
// dropped rather than blocking the broadcast.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for room, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.rooms[c.Room]; conns != nil && conns[c] {
				delete(conns, c)
				close(c.Send)
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.rooms[m.Room], c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// StockChanged notifies storefront clients that a product's inventory moved.
func (h *Hub) StockChanged(productID string, stock int, available bool) {
	h.publish(RoomStock, map[string]any{
		"type":      "stock",
		"productId": productID,
		"stock":     stock,
		"available": available,
		"timestamp": time.Now().Unix(),
	})
}

// OrderStatusChanged notifies clients that an order moved to a new status.
func (h *Hub) OrderStatusChanged(orderID, status string) {
	h.publish(RoomOrders, map[string]any{
		"type":      "orderStatus",
		"orderId":   orderID,
		"status":    status,
		"timestamp": time.Now().Unix(),
	})
}

// Stop closes every client send channel and ends the Run loop.
func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) publish(room string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Println("live marshal:", err)
		return
	}
	select {
	case h.broadcast <- broadcastMsg{Room: room, Data: data}:
	case <-h.quit:
	}
}
