// internal/handlers/game_ws_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, protocols ...string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: protocols})
	require.NoError(t, err)
	return c
}

func writeMsg(t *testing.T, ctx context.Context, c *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) OutMessage {
	t.Helper()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg OutMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	gs := newTestServer(t)
	srv := httptest.NewServer(gs.Routes())
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dial(t, ctx, srv, Subprotocol)
	defer host.Close(websocket.StatusNormalClosure, "")
	writeMsg(t, ctx, host, map[string]string{"type": "create_room", "name": "ann"})
	created := readUntil(t, ctx, host, "room_created")

	guest := dial(t, ctx, srv, Subprotocol)
	writeMsg(t, ctx, guest, map[string]string{"type": "join_room", "roomId": created.RoomID, "name": "ben"})
	readUntil(t, ctx, guest, "room_joined")

	for {
		st := readUntil(t, ctx, host, "state")
		if len(st.View.State.Players) == 2 {
			break
		}
	}

	guest.Close(websocket.StatusNormalClosure, "bye")
	for {
		st := readUntil(t, ctx, host, "state")
		if len(st.View.State.Players) == 1 {
			break
		}
	}
	assert.Eventually(t, func() bool { return gs.Hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	writeMsg(t, ctx, host, map[string]string{"type": "ping"})
	readUntil(t, ctx, host, "pong")
}

func TestWebSocketRejectsWrongSubprotocol(t *testing.T) {
	gs := newTestServer(t)
	srv := httptest.NewServer(gs.Routes())
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dial(t, ctx, srv)
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
	assert.Zero(t, gs.Hub.Len())
}
