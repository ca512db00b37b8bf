// Package notify decouples event producers from the websocket hub.
// Workers publish through the Publisher interface, so their tests can
// capture events without standing up socket machinery.
package notify

import (
	"github.com/anishtr4/screenshuter-sub001/internal/websocket"
)

// Publisher delivers one event to every connection an owner holds.
type Publisher interface {
	Publish(ownerID string, event string, payload interface{})
}

// Envelope is the wire shape of every pushed event.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// HubPublisher routes events through the websocket hub.
type HubPublisher struct {
	hub *websocket.Hub
}

func NewHubPublisher(hub *websocket.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ownerID string, event string, payload interface{}) {
	p.hub.PublishTo(ownerID, Envelope{Event: event, Payload: payload})
}

// Discard swallows every event. Useful for callers that run without a
// live hub, like the maintenance CLI.
type Discard struct{}

func (Discard) Publish(string, string, interface{}) {}
