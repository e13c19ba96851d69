// internal/handlers/rooms.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/auth"
)

// ListRoomsHandler returns the rooms still open for joining.
func ListRoomsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, gs.Registry.Lobbies())
	}
}

// RoomStateHandler returns the masked view of the seat named by the bearer
// token. Route: GET /rooms/{roomId}/state
func RoomStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := uuid.Parse(r.PathValue("roomId"))
		if err != nil {
			http.Error(w, "invalid roomId", http.StatusBadRequest)
			return
		}

		token := extractSeatToken(r)
		if token == "" {
			http.Error(w, "missing seat token", http.StatusUnauthorized)
			return
		}
		playerID, err := gs.Tokens.AuthorizeSeat(token, roomID)
		if errors.Is(err, auth.ErrRoomMismatch) {
			http.Error(w, "token is for another room", http.StatusForbidden)
			return
		}
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		rm, ok := gs.Registry.Get(roomID)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if !rm.HasPlayer(playerID) {
			http.Error(w, "seat no longer exists", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, rm.View(playerID))
	}
}

// PingHandler is a liveness probe.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("pong"))
}
