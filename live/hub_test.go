package live

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: RoomStock,
	}
	hub.register <- client

	hub.StockChanged("p-1", 4, true)

	select {
	case got := <-client.Send:
		var msg map[string]any
		if err := json.Unmarshal(got, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg["type"] != "stock" || msg["productId"] != "p-1" {
			t.Fatalf("unexpected message: %s", got)
		}
		if msg["stock"].(float64) != 4 || msg["available"] != true {
			t.Fatalf("unexpected stock payload: %s", got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	hub.unregister <- client
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	stockClient := &Client{Send: make(chan []byte, 10), Room: RoomStock}
	orderClient := &Client{Send: make(chan []byte, 10), Room: RoomOrders}
	hub.register <- stockClient
	hub.register <- orderClient

	hub.OrderStatusChanged("o-1", "shipped")

	select {
	case got := <-orderClient.Send:
		var msg map[string]any
		if err := json.Unmarshal(got, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg["orderId"] != "o-1" || msg["status"] != "shipped" {
			t.Fatalf("unexpected message: %s", got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for order message")
	}

	select {
	case got := <-stockClient.Send:
		t.Fatalf("stock subscriber received order event: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// buffer of one: the second broadcast cannot be delivered
	slow := &Client{Send: make(chan []byte, 1), Room: RoomStock}
	hub.register <- slow

	hub.StockChanged("p-1", 3, true)
	hub.StockChanged("p-1", 2, true)

	// the slow client got dropped: its channel is closed after the drain
	deadline := time.After(1 * time.Second)
	got := 0
	for {
		select {
		case _, ok := <-slow.Send:
			if !ok {
				if got != 1 {
					t.Fatalf("expected exactly 1 delivered message before drop, got %d", got)
				}
				return
			}
			got++
		case <-deadline:
			t.Fatal("timeout waiting for channel close")
		}
	}
}
