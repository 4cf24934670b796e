// Package identity manages the persistent identity of the device the
// agent runs on.
package identity

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"gpsbridge/pkg/file"
)

// DeviceInfoInterface exposes the device identity to services.
type DeviceInfoInterface interface {
	LoadDeviceInfo() error
	GetDeviceID() string
	SaveDeviceID(deviceID string) error
}

// Identity is the on-disk shape of the device identity file.
type Identity struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name,omitempty"`
}

// DeviceInfo loads and persists the device identity through FileOperations.
type DeviceInfo struct {
	deviceInfoFile string
	config         Identity
	fileClient     file.FileOperations
	logger         zerolog.Logger
}

// NewDeviceInfo creates a DeviceInfo bound to the given identity file.
func NewDeviceInfo(deviceInfoFile string, fileClient file.FileOperations, logger zerolog.Logger) *DeviceInfo {
	return &DeviceInfo{
		deviceInfoFile: deviceInfoFile,
		fileClient:     fileClient,
		logger:         logger,
	}
}

// LoadDeviceInfo reads the identity file and validates the device ID.
func (d *DeviceInfo) LoadDeviceInfo() error {
	if err := d.fileClient.ReadJsonFile(d.deviceInfoFile, &d.config); err != nil {
		d.logger.Error().Err(err).Str("file", d.deviceInfoFile).Msg("Failed to read device identity file")
		return err
	}
	if strings.TrimSpace(d.config.DeviceID) == "" {
		err := errors.New("device identity file contains no device_id")
		d.logger.Error().Err(err).Str("file", d.deviceInfoFile).Msg("Invalid device identity")
		return err
	}
	d.logger.Info().Str("device_id", d.config.DeviceID).Msg("Loaded device identity")
	return nil
}

// GetDeviceID returns the loaded device ID.
func (d *DeviceInfo) GetDeviceID() string {
	return d.config.DeviceID
}

// SaveDeviceID persists a new device ID to the identity file.
func (d *DeviceInfo) SaveDeviceID(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return errors.New("device ID must not be empty")
	}
	d.config.DeviceID = deviceID
	if err := d.fileClient.WriteJsonFile(d.deviceInfoFile, &d.config); err != nil {
		d.logger.Error().Err(err).Str("file", d.deviceInfoFile).Msg("Failed to write device identity file")
		return err
	}
	return nil
}
