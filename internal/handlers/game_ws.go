// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/kargo/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	readLimit    = 4096
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// GameWSHandler upgrades the HTTP connection to WebSocket and serves the
// room protocol on it until either side closes.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	logger := gs.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: gs.AllowedOrigins,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the kargo subprotocol")
			return
		}
		c.SetReadLimit(readLimit)

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		h := gs.Connect()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, h.Client(), logger)
		err = readPump(ctx, c, h, logger)

		h.Close()
		cancel()
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPump feeds text frames to h until the connection ends. A normal close
// returns nil.
func readPump(ctx context.Context, c *websocket.Conn, h *ConnHandler, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.WithField("conn", h.ID()).Warnf("received non-text message type %d, ignoring", typ)
			continue
		}
		h.Handle(data)
	}
}

// writePump drains the client's queues onto the socket and keeps it alive
// with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, client *Client, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	log := logger.WithField("conn", client.ID)

	for {
		var msg OutMessage
		select {
		case <-ctx.Done():
			return
		case msg = <-client.OutChan:
		case <-client.StateReady():
			var ok bool
			if msg, ok = client.TakeState(); !ok {
				continue
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Warn("ping failed, assuming disconnect")
				c.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
			continue
		}

		data, err := json.Marshal(msg)
		if err != nil {
			log.WithError(err).Error("failed to marshal outgoing message")
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = c.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			log.WithError(err).Warn("failed to write to websocket")
			c.Close(websocket.StatusGoingAway, "write failed")
			return
		}
	}
}
