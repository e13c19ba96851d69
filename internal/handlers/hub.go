// internal/handlers/hub.go
package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/room"
	"github.com/sirupsen/logrus"
)

// Client is one live connection's outbound side. State views are
// latest-wins: a newer view replaces one the writer has not sent yet, so a
// slow reader skips versions but never ends on a stale one.
type Client struct {
	ID      uuid.UUID
	OutChan chan OutMessage

	mu         sync.Mutex
	latest     *OutMessage
	stateReady chan struct{}
	logger     *logrus.Entry
}

// NewClient returns a client with an outbox of size buffered messages.
func NewClient(size int, logger *logrus.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:         id,
		OutChan:    make(chan OutMessage, size),
		stateReady: make(chan struct{}, 1),
		logger:     logger.WithField("conn", id),
	}
}

// Write queues msg without blocking. Non-state messages are dropped, with a
// warning, when the outbox is full.
func (c *Client) Write(msg OutMessage) bool {
	if msg.Type == "state" {
		c.mu.Lock()
		c.latest = &msg
		c.mu.Unlock()
		select {
		case c.stateReady <- struct{}{}:
		default:
		}
		return true
	}
	select {
	case c.OutChan <- msg:
		return true
	default:
		c.logger.WithField("type", msg.Type).Warn("OutChan full, dropped message")
		return false
	}
}

// WriteError is a convenience to send an error object.
func (c *Client) WriteError(code, message string) {
	c.Write(OutMessage{Type: "error", Code: code, Message: message})
}

// StateReady fires when TakeState has something to return.
func (c *Client) StateReady() <-chan struct{} {
	return c.stateReady
}

// TakeState returns the newest unsent view, if any.
func (c *Client) TakeState() (OutMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return OutMessage{}, false
	}
	msg := *c.latest
	c.latest = nil
	return msg, true
}

// Hub tracks live clients and fans room changes out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]*Client
	registry *room.Registry
	logger   *logrus.Logger

	// sendMu keeps every client's sequence of views in version order.
	sendMu sync.Mutex
}

// NewHub returns an empty hub reading rooms from registry.
func NewHub(registry *room.Registry, logger *logrus.Logger) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]*Client),
		registry: registry,
		logger:   logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *Hub) Client(id uuid.UUID) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastRoom sends every connection bound in roomID its own view.
func (h *Hub) BroadcastRoom(roomID uuid.UUID) {
	r, ok := h.registry.Get(roomID)
	if !ok {
		return
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	views := r.Views()
	for connID, view := range views {
		c, ok := h.Client(connID)
		if !ok {
			continue
		}
		v := view
		c.Write(OutMessage{Type: "state", RoomID: roomID.String(), View: &v})
	}
	h.logger.WithFields(logrus.Fields{"room": roomID, "recipients": len(views)}).Trace("state broadcast")
}
