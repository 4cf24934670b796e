package services_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"gpsbridge/internal/constants"
	"gpsbridge/internal/models"
	"gpsbridge/internal/services"
	"gpsbridge/pkg/encryption"
	"gpsbridge/pkg/file"
	"gpsbridge/tests/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// updateHarness wires an UpdateService against a real signature manager
// and a temp state file, and exposes the captured subscription handler.
type updateHarness struct {
	svc       *services.UpdateService
	mqtt      *mocks.MockMQTTClient
	manager   *encryption.SignatureManager
	stateFile string
	handler   MQTT.MessageHandler
	fs        *file.FileService
}

func newUpdateHarness(t *testing.T) *updateHarness {
	t.Helper()

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "signing.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("update-signing-key"), 0o600))

	fs := file.NewFileService()
	manager := encryption.NewSignatureManager(fs)
	require.NoError(t, manager.Initialize(keyPath))

	deviceInfo := new(mocks.MockDeviceInfo)
	deviceInfo.On("GetDeviceID").Return("dev-1")

	h := &updateHarness{
		mqtt:      new(mocks.MockMQTTClient),
		manager:   manager,
		stateFile: filepath.Join(dir, "update_state.json"),
		fs:        fs,
	}
	h.mqtt.On("Subscribe", "gpsbridge/update/dev-1", byte(1), mock.Anything).
		Run(func(args mock.Arguments) { h.handler = args.Get(2).(MQTT.MessageHandler) }).
		Return(okToken())
	h.mqtt.On("Unsubscribe", []string{"gpsbridge/update/dev-1"}).Return(okToken())

	h.svc = services.NewUpdateService("gpsbridge/update", 1, h.stateFile,
		deviceInfo, h.mqtt, manager, fs, zerolog.Nop())
	return h
}

func (h *updateHarness) deliver(t *testing.T, manifest models.ReleaseManifest) {
	t.Helper()

	payload, err := json.Marshal(manifest)
	require.NoError(t, err)
	signed, err := h.manager.Sign(payload)
	require.NoError(t, err)
	require.NotNil(t, h.handler, "service did not subscribe")
	h.handler(nil, mocks.NewMockMessage("gpsbridge/update/dev-1", signed))
}

func (h *updateHarness) readState(t *testing.T) models.UpdateState {
	t.Helper()

	var state models.UpdateState
	require.NoError(t, h.fs.ReadJsonFile(h.stateFile, &state))
	return state
}

// TestUpdateService_AdvertisesNewerVersion tests that a signed manifest
// with a newer version produces an advisory and persists the state.
func TestUpdateService_AdvertisesNewerVersion(t *testing.T) {
	h := newUpdateHarness(t)

	var advisory []byte
	h.mqtt.On("Publish", "gpsbridge/update/dev-1/available", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) { advisory = args.Get(3).([]byte) }).
		Return(okToken()).Once()

	require.NoError(t, h.svc.Start())
	h.deliver(t, models.ReleaseManifest{Version: "1.3.0", URL: "https://releases.example.com/1.3.0"})

	require.NotNil(t, advisory, "no advisory was published")
	var adv models.UpdateAdvisory
	require.NoError(t, json.Unmarshal(advisory, &adv))
	assert.Equal(t, "dev-1", adv.DeviceID)
	assert.Equal(t, constants.AgentVersion, adv.CurrentVersion)
	assert.Equal(t, "1.3.0", adv.AvailableVersion)
	assert.Equal(t, "https://releases.example.com/1.3.0", adv.URL)

	state := h.readState(t)
	assert.Equal(t, "1.3.0", state.LastSeenVersion)
	assert.Equal(t, string(constants.UpdateStatusAvailable), state.Status)
}

// TestUpdateService_SkipsOlderVersion tests that an older or equal
// version is recorded but not advertised.
func TestUpdateService_SkipsOlderVersion(t *testing.T) {
	h := newUpdateHarness(t)

	require.NoError(t, h.svc.Start())
	h.deliver(t, models.ReleaseManifest{Version: "1.1.0"})

	h.mqtt.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	state := h.readState(t)
	assert.Equal(t, "1.1.0", state.LastSeenVersion)
	assert.Equal(t, string(constants.UpdateStatusSkipped), state.Status)
}

// TestUpdateService_IgnoresDuplicateManifest tests that the same version
// is advertised only once.
func TestUpdateService_IgnoresDuplicateManifest(t *testing.T) {
	h := newUpdateHarness(t)

	h.mqtt.On("Publish", "gpsbridge/update/dev-1/available", byte(1), false, mock.Anything).
		Return(okToken())

	require.NoError(t, h.svc.Start())
	h.deliver(t, models.ReleaseManifest{Version: "1.3.0"})
	h.deliver(t, models.ReleaseManifest{Version: "1.3.0"})

	h.mqtt.AssertNumberOfCalls(t, "Publish", 1)
}

// TestUpdateService_RejectsBadSignature tests that an unsigned or
// tampered manifest is dropped before evaluation.
func TestUpdateService_RejectsBadSignature(t *testing.T) {
	h := newUpdateHarness(t)

	require.NoError(t, h.svc.Start())

	payload, err := json.Marshal(models.ReleaseManifest{Version: "9.9.9"})
	require.NoError(t, err)
	signed, err := h.manager.Sign(payload)
	require.NoError(t, err)
	signed[len(signed)-1] ^= 0xff

	h.handler(nil, mocks.NewMockMessage("gpsbridge/update/dev-1", signed))

	h.mqtt.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, h.fs.FileExists(h.stateFile), "rejected manifest must not touch the state")
}

// TestUpdateService_IgnoresInvalidVersion tests that a manifest with a
// version that does not parse is dropped.
func TestUpdateService_IgnoresInvalidVersion(t *testing.T) {
	h := newUpdateHarness(t)

	require.NoError(t, h.svc.Start())
	h.deliver(t, models.ReleaseManifest{Version: "not-a-version"})

	h.mqtt.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, h.fs.FileExists(h.stateFile))
}

// TestUpdateService_RestoresPersistedState tests that a restart does not
// re-advertise a version that was already evaluated.
func TestUpdateService_RestoresPersistedState(t *testing.T) {
	h := newUpdateHarness(t)

	state := models.UpdateState{LastSeenVersion: "1.3.0", Status: string(constants.UpdateStatusAvailable)}
	require.NoError(t, h.fs.WriteJsonFile(h.stateFile, &state))

	require.NoError(t, h.svc.Start())
	h.deliver(t, models.ReleaseManifest{Version: "1.3.0"})

	h.mqtt.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestUpdateService_StartStopGuards tests the running state guards.
func TestUpdateService_StartStopGuards(t *testing.T) {
	h := newUpdateHarness(t)

	require.NoError(t, h.svc.Start())
	err := h.svc.Start()
	assert.Error(t, err)
	assert.Equal(t, "update service is already running", err.Error())

	require.NoError(t, h.svc.Stop())
	err = h.svc.Stop()
	assert.Error(t, err)
	assert.Equal(t, "update service is not running", err.Error())
}
