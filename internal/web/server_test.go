package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gpsbridge/internal/models"
	"gpsbridge/internal/web"
	"gpsbridge/pkg/gnss"
	"gpsbridge/tests/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReceiver serves canned feed and fix state.
type fakeReceiver struct {
	snap gnss.Snapshot
	feed models.FeedStats
}

func (f *fakeReceiver) FixSnapshot() gnss.Snapshot  { return f.snap }
func (f *fakeReceiver) FeedStats() models.FeedStats { return f.feed }

// fakeConsoleState serves canned console counters.
type fakeConsoleState struct {
	stats models.ConsoleStats
}

func (f *fakeConsoleState) Stats() models.ConsoleStats { return f.stats }

func newTestServer(powerCtl *mocks.FakePowerController, console web.ConsoleState) *web.Server {
	receiver := &fakeReceiver{
		snap: gnss.Snapshot{Valid: true, Latitude: 48.1173, Longitude: 11.5166},
		feed: models.FeedStats{PortOpen: true, Lines: 10},
	}
	return web.NewServer("127.0.0.1:0", "dev-1", receiver, console, nil, powerCtl, zerolog.Nop())
}

func doRequest(s *web.Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// TestServer_Health tests the liveness endpoint.
func TestServer_Health(t *testing.T) {
	s := newTestServer(mocks.NewFakePowerController(true), nil)

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// TestServer_Status tests the full status document.
func TestServer_Status(t *testing.T) {
	console := &fakeConsoleState{stats: models.ConsoleStats{Clients: 2, LinesOut: 99}}
	s := newTestServer(mocks.NewFakePowerController(true), console)

	rec := doRequest(s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.BridgeStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "dev-1", status.DeviceID)
	assert.Equal(t, "on", status.Power)
	assert.True(t, status.Fix.Valid)
	assert.InDelta(t, 48.1173, status.Fix.Latitude, 0.0001)
	assert.Equal(t, uint64(10), status.Feed.Lines)
	require.NotNil(t, status.Console)
	assert.Equal(t, 2, status.Console.Clients)
	assert.Nil(t, status.Storage, "storage section should be absent when disabled")
}

// TestServer_GetPower tests the power read endpoint.
func TestServer_GetPower(t *testing.T) {
	s := newTestServer(mocks.NewFakePowerController(false), nil)

	rec := doRequest(s, http.MethodGet, "/api/power", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"power":"off"}`, rec.Body.String())
}

// TestServer_SetPower tests switching the rail through the API.
func TestServer_SetPower(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	s := newTestServer(powerCtl, nil)

	rec := doRequest(s, http.MethodPost, "/api/power", `{"state":"on"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"power":"on"}`, rec.Body.String())
	assert.True(t, powerCtl.State())

	rec = doRequest(s, http.MethodPost, "/api/power", `{"state":"off"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"power":"off"}`, rec.Body.String())
	assert.False(t, powerCtl.State())
}

// TestServer_SetPowerRejectsUnknownState tests input validation.
func TestServer_SetPowerRejectsUnknownState(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	s := newTestServer(powerCtl, nil)

	rec := doRequest(s, http.MethodPost, "/api/power", `{"state":"reboot"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, powerCtl.OnCalls())
	assert.Equal(t, 0, powerCtl.OffCalls())
}

// TestServer_SetPowerControllerFailure tests that a failing rail maps to
// an internal error.
func TestServer_SetPowerControllerFailure(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	powerCtl.FailWith(assert.AnError)
	s := newTestServer(powerCtl, nil)

	rec := doRequest(s, http.MethodPost, "/api/power", `{"state":"on"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// TestServer_StartStopGuards tests the lifecycle guards.
func TestServer_StartStopGuards(t *testing.T) {
	s := newTestServer(mocks.NewFakePowerController(false), nil)

	require.NoError(t, s.Start())
	err := s.Start()
	assert.Error(t, err)
	assert.Equal(t, "web server is already running", err.Error())

	require.NoError(t, s.Stop())
	err = s.Stop()
	assert.Error(t, err)
	assert.Equal(t, "web server is not running", err.Error())
}
