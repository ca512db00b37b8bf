// Package websocket maintains the set of active clients and pushes
// progress events to them. Captures run in background workers, so the
// socket stream is the only live feedback a caller gets.
package websocket

import (
	"encoding/json"
	"log"
)

// ownedMessage targets every connection registered under one owner ID.
type ownedMessage struct {
	owner string
	data  []byte
}

// Hub routes messages between the workers producing events and the
// connected clients. All client bookkeeping happens on the Run
// goroutine, so no locks are needed.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages for every client.
	broadcast chan []byte

	// Inbound messages for a single owner's clients.
	direct chan ownedMessage

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		direct:     make(chan ownedMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run processes register, unregister and message events until the
// process exits. Start it once, as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		case message := <-h.direct:
			for client := range h.clients {
				if client.owner == message.owner {
					h.deliver(client, message.data)
				}
			}
		}
	}
}

// deliver drops the client if its send buffer is full rather than
// letting one slow reader stall the hub.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastJSON marshals v and sends it to every connected client.
func (h *Hub) BroadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}
	h.broadcast <- data
}

// PublishTo marshals v and sends it to the clients registered under
// ownerID only.
func (h *Hub) PublishTo(ownerID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}
	h.direct <- ownedMessage{owner: ownerID, data: data}
}
