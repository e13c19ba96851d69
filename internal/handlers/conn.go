// internal/handlers/conn.go
package handlers

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/game"
	"github.com/jason-s-yu/kargo/internal/models"
	"github.com/jason-s-yu/kargo/internal/room"
	"github.com/sirupsen/logrus"
)

// InMessage is any message a client sends.
//
//	{"type":"create_room","name":"ann"}
//	{"type":"join_room","roomId":"...","name":"ben"}
//	{"type":"action","roomId":"...","playerId":"...","action":{"type":"DISCARD","cardId":"..."}}
//	{"type":"leave_room"} {"type":"sync"} {"type":"ping"}
type InMessage struct {
	Type     string             `json:"type"`
	Name     string             `json:"name,omitempty"`
	RoomID   string             `json:"roomId,omitempty"`
	PlayerID string             `json:"playerId,omitempty"`
	Action   *models.GameAction `json:"action,omitempty"`
}

// OutMessage is any message the server sends.
type OutMessage struct {
	Type     string            `json:"type"`
	RoomID   string            `json:"roomId,omitempty"`
	PlayerID string            `json:"playerId,omitempty"`
	Token    string            `json:"token,omitempty"`
	Action   models.ActionType `json:"action,omitempty"`
	Code     string            `json:"code,omitempty"`
	Message  string            `json:"message,omitempty"`
	View     *room.View        `json:"view,omitempty"`
}

// ConnHandler routes one connection's inbound messages to the registry.
type ConnHandler struct {
	client *Client
	gs     *GameServer
	log    *logrus.Entry

	closeOnce sync.Once
}

// Client returns the outbound side of the connection.
func (h *ConnHandler) Client() *Client {
	return h.client
}

// ID is the connection id the registry binds players to.
func (h *ConnHandler) ID() uuid.UUID {
	return h.client.ID
}

// Handle processes one raw text frame.
func (h *ConnHandler) Handle(data []byte) {
	start := time.Now()
	h.gs.Monitor.IncMessagesReceived()
	defer func() { h.gs.Monitor.ObserveMessageLatency(time.Since(start)) }()

	var msg InMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.WithError(err).Warn("invalid JSON")
		h.client.WriteError(CodeBadRequest, "invalid JSON format")
		return
	}

	switch msg.Type {
	case "create_room":
		h.createRoom(msg)
	case "join_room":
		h.joinRoom(msg)
	case "action":
		h.action(msg)
	case "leave_room":
		h.leaveRoom()
	case "sync":
		h.sync()
	case "ping":
		h.client.Write(OutMessage{Type: "pong"})
	default:
		h.log.WithField("type", msg.Type).Warn("unknown message type")
		h.client.WriteError(CodeBadRequest, "unknown message type: "+msg.Type)
	}
}

func (h *ConnHandler) createRoom(msg InMessage) {
	roomID, playerID, err := h.gs.Registry.Create(h.ID(), msg.Name)
	if err != nil {
		h.replyError(err)
		return
	}
	h.seated("room_created", roomID, playerID)
}

func (h *ConnHandler) joinRoom(msg InMessage) {
	roomID, err := uuid.Parse(msg.RoomID)
	if err != nil {
		h.client.WriteError(CodeBadRequest, "invalid roomId")
		return
	}
	playerID, err := h.gs.Registry.Join(h.ID(), roomID, msg.Name)
	if err != nil {
		h.replyError(err)
		return
	}
	h.seated("room_joined", roomID, playerID)
}

func (h *ConnHandler) seated(kind string, roomID, playerID uuid.UUID) {
	token, err := h.gs.Tokens.CreateSessionToken(roomID, playerID)
	if err != nil {
		h.log.WithError(err).Error("failed to sign seat token")
	}
	h.client.Write(OutMessage{
		Type:     kind,
		RoomID:   roomID.String(),
		PlayerID: playerID.String(),
		Token:    token,
	})
}

func (h *ConnHandler) action(msg InMessage) {
	roomID, err := uuid.Parse(msg.RoomID)
	if err != nil {
		h.client.WriteError(CodeBadRequest, "invalid roomId")
		return
	}
	playerID, err := uuid.Parse(msg.PlayerID)
	if err != nil {
		h.client.WriteError(CodeBadRequest, "invalid playerId")
		return
	}
	if msg.Action == nil {
		h.client.WriteError(CodeBadRequest, "missing action")
		return
	}

	if err := h.gs.Registry.Submit(h.ID(), roomID, playerID, *msg.Action); err != nil {
		h.replyError(err)
		return
	}
	h.client.Write(OutMessage{Type: "ack", RoomID: roomID.String(), Action: msg.Action.Type})
}

func (h *ConnHandler) leaveRoom() {
	roomID, ok := h.gs.Registry.RemoveConnection(h.ID())
	if !ok {
		h.client.WriteError(string(game.KindNotFound), "not in a room")
		return
	}
	h.client.Write(OutMessage{Type: "room_left", RoomID: roomID.String()})
}

func (h *ConnHandler) sync() {
	roomID, ok := h.gs.Registry.RoomOf(h.ID())
	if !ok {
		h.client.WriteError(string(game.KindNotFound), "not in a room")
		return
	}
	r, ok := h.gs.Registry.Get(roomID)
	if !ok {
		h.client.WriteError(string(game.KindNotFound), game.ReasonRoomNotFound)
		return
	}
	playerID, ok := r.BoundPlayer(h.ID())
	if !ok {
		h.client.WriteError(string(game.KindNotFound), game.ReasonPlayerNotFound)
		return
	}
	v := r.View(playerID)
	h.client.Write(OutMessage{Type: "state", RoomID: roomID.String(), View: &v})
}

// replyError turns a registry error into a wire error. Anything that is not a
// client rejection is reported as internal without details.
func (h *ConnHandler) replyError(err error) {
	var ge *game.Error
	if errors.As(err, &ge) {
		h.client.WriteError(string(ge.Kind), ge.Reason)
		return
	}
	if errors.Is(err, game.ErrInvariant) {
		h.log.WithError(err).Error("action hit a state invariant")
	} else {
		h.log.WithError(err).Error("request failed")
	}
	h.client.WriteError(CodeInternal, "internal error")
}

// Close releases the connection's seat and unregisters it. Safe to call twice.
func (h *ConnHandler) Close() {
	h.closeOnce.Do(func() {
		h.gs.Registry.RemoveConnection(h.ID())
		h.gs.Hub.Unregister(h.ID())
		h.gs.Monitor.ConnectionClosed()
	})
}
