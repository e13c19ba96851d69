// internal/handlers/rooms_test.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, srv *httptest.Server, path, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestPingHandler(t *testing.T) {
	gs := newTestServer(t)
	srv := httptest.NewServer(gs.Routes())
	defer srv.Close()

	resp, body := get(t, srv, "/ping", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestListRooms(t *testing.T) {
	gs := newTestServer(t)
	srv := httptest.NewServer(gs.Routes())
	defer srv.Close()

	a, b := twoSeatRoom(t, gs)
	lone := gs.Connect()
	send(t, lone, map[string]string{"type": "create_room", "name": "solo"})
	require.Equal(t, "room_created", reply(t, lone).Type)

	resp, body := get(t, srv, "/rooms", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rooms []room.Summary
	require.NoError(t, json.Unmarshal(body, &rooms))
	assert.Len(t, rooms, 2)

	startGame(t, a, b)
	_, body = get(t, srv, "/rooms", "")
	require.NoError(t, json.Unmarshal(body, &rooms))
	require.Len(t, rooms, 1, "started rooms are hidden")
	assert.Equal(t, 1, rooms[0].Players)
}

func TestRoomStateHandler(t *testing.T) {
	gs := newTestServer(t)
	srv := httptest.NewServer(gs.Routes())
	defer srv.Close()

	a, b := twoSeatRoom(t, gs)
	startGame(t, a, b)
	token, err := gs.Tokens.CreateSessionToken(uuid.MustParse(b.roomID), uuid.MustParse(b.playerID))
	require.NoError(t, err)

	resp, body := get(t, srv, "/rooms/"+b.roomID+"/state", token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var view room.View
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, b.playerID, view.You.String())
	for _, ps := range view.State.Players {
		for _, c := range ps.Hand {
			assert.Equal(t, ps.PlayerID.String() == b.playerID, c.Known())
		}
	}

	cookieReq, err := http.NewRequest(http.MethodGet, srv.URL+"/rooms/"+b.roomID+"/state", nil)
	require.NoError(t, err)
	cookieReq.Header.Set("Cookie", seatCookieName+"="+token)
	cookieResp, err := http.DefaultClient.Do(cookieReq)
	require.NoError(t, err)
	cookieResp.Body.Close()
	assert.Equal(t, http.StatusOK, cookieResp.StatusCode)

	resp, _ = get(t, srv, "/rooms/"+b.roomID+"/state", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, srv, "/rooms/"+b.roomID+"/state", "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, srv, "/rooms/"+uuid.NewString()+"/state", token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = get(t, srv, "/rooms/not-a-uuid/state", token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ghostRoom := uuid.New()
	ghost, err := gs.Tokens.CreateSessionToken(ghostRoom, uuid.New())
	require.NoError(t, err)
	resp, _ = get(t, srv, "/rooms/"+ghostRoom.String()+"/state", ghost)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	stranger, err := gs.Tokens.CreateSessionToken(uuid.MustParse(b.roomID), uuid.New())
	require.NoError(t, err)
	resp, _ = get(t, srv, "/rooms/"+b.roomID+"/state", stranger)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestExtractSeatToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, extractSeatToken(r))

	r.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", extractSeatToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, extractSeatToken(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", "other=1; kargo_seat=tok; x=y")
	assert.Equal(t, "tok", extractSeatToken(r))

	// a cookie whose name merely ends in kargo_seat is someone else's
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", "xkargo_seat=forged")
	assert.Empty(t, extractSeatToken(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", "xkargo_seat=forged; kargo_seat=real")
	assert.Equal(t, "real", extractSeatToken(r))
}
