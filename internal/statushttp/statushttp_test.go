package statushttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl1pag/pocsag-transmitter/internal/event"
	"github.com/dl1pag/pocsag-transmitter/internal/telemetry"
)

func TestTelemetryEndpointServesCurrentSnapshot(t *testing.T) {
	bus := event.New(nil)
	tel := telemetry.New(bus, 10, telemetry.Software{Name: "test-node", Version: "1.0.0"})
	tel.SetOnAir(true)

	s := New(tel, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/telemetry")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap telemetry.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.True(t, snap.OnAir)
	assert.Equal(t, "test-node", snap.Software.Name)
}

func TestOtherPathsServeStaticAssets(t *testing.T) {
	bus := event.New(nil)
	tel := telemetry.New(bus, 10, telemetry.Software{Name: "test-node", Version: "1.0.0"})

	s := New(tel, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
