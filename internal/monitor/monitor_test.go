package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jason-s-yu/kargo/internal/game"
	"github.com/jason-s-yu/kargo/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCounts(t *testing.T) {
	m := NewMonitor("kargo_test")

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.RoomsActive(3)
	m.ActionApplied(models.ActionDraw, time.Millisecond)
	m.ActionApplied(models.ActionDraw, time.Millisecond)
	m.ActionRejected(models.ActionDiscard, game.KindIllegalAction)
	m.IncMessagesReceived()

	mt := m.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.OpenConnections))
	assert.Equal(t, 3.0, testutil.ToFloat64(mt.ActiveRooms))
	assert.Equal(t, 2.0, testutil.ToFloat64(mt.ActionsApplied.WithLabelValues("DRAW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ActionsRejected.WithLabelValues("DISCARD", "illegal_action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.MessagesReceived))
}

func TestMonitorsAreIndependent(t *testing.T) {
	a := NewMonitor("kargo_test")
	b := NewMonitor("kargo_test")
	a.RoomsActive(5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Metrics().ActiveRooms))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMonitor("kargo_test")
	m.RoomsActive(2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "kargo_test_active_rooms 2")
}
