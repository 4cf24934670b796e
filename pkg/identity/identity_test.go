package identity_test

import (
	"os"
	"path/filepath"
	"testing"

	"gpsbridge/pkg/file"
	"gpsbridge/pkg/identity"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeviceInfo_LoadDeviceInfo tests loading a well-formed identity
// file.
func TestDeviceInfo_LoadDeviceInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_id":"dev-42","name":"bench unit"}`), 0o644))

	info := identity.NewDeviceInfo(path, file.NewFileService(), zerolog.Nop())
	assert.NoError(t, info.LoadDeviceInfo())
	assert.Equal(t, "dev-42", info.GetDeviceID())
}

// TestDeviceInfo_LoadMissingFile tests the error path for a missing
// identity file.
func TestDeviceInfo_LoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")

	info := identity.NewDeviceInfo(path, file.NewFileService(), zerolog.Nop())
	assert.Error(t, info.LoadDeviceInfo())
}

// TestDeviceInfo_LoadRejectsEmptyDeviceID tests that a file without a
// device_id is rejected.
func TestDeviceInfo_LoadRejectsEmptyDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_id":"  "}`), 0o644))

	info := identity.NewDeviceInfo(path, file.NewFileService(), zerolog.Nop())
	err := info.LoadDeviceInfo()
	assert.Error(t, err)
	assert.Equal(t, "device identity file contains no device_id", err.Error())
}

// TestDeviceInfo_SaveDeviceID tests that a saved ID survives a reload.
func TestDeviceInfo_SaveDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	fs := file.NewFileService()

	info := identity.NewDeviceInfo(path, fs, zerolog.Nop())
	assert.NoError(t, info.SaveDeviceID("dev-7"))
	assert.Equal(t, "dev-7", info.GetDeviceID())

	reloaded := identity.NewDeviceInfo(path, fs, zerolog.Nop())
	assert.NoError(t, reloaded.LoadDeviceInfo())
	assert.Equal(t, "dev-7", reloaded.GetDeviceID())
}

// TestDeviceInfo_SaveRejectsEmptyDeviceID tests the empty ID guard.
func TestDeviceInfo_SaveRejectsEmptyDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")

	info := identity.NewDeviceInfo(path, file.NewFileService(), zerolog.Nop())
	assert.Error(t, info.SaveDeviceID(" "))
	assert.False(t, file.NewFileService().FileExists(path))
}
