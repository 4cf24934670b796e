package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"gpsbridge/internal/constants"
	"gpsbridge/internal/models"
	"gpsbridge/pkg/encryption"
	"gpsbridge/pkg/file"
	"gpsbridge/pkg/identity"
	"gpsbridge/pkg/mqtt"
)

// UpdateService listens for signed release manifests and advertises
// newer versions on the availability topic. It never installs anything;
// the fleet tooling decides what to do with the advisory. Evaluation
// state is persisted so a manifest is not re-advertised after a restart.
type UpdateService struct {
	subTopic   string
	qos        int
	stateFile  string
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	verifier   encryption.SignatureVerifier
	fileClient file.FileOperations
	logger     zerolog.Logger

	mu      sync.Mutex
	running bool
	state   models.UpdateState
}

// NewUpdateService creates the manifest listener.
func NewUpdateService(subTopic string, qos int, stateFile string,
	deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient,
	verifier encryption.SignatureVerifier, fileClient file.FileOperations,
	logger zerolog.Logger) *UpdateService {
	return &UpdateService{
		subTopic:   subTopic,
		qos:        qos,
		stateFile:  stateFile,
		deviceInfo: deviceInfo,
		mqttClient: mqttClient,
		verifier:   verifier,
		fileClient: fileClient,
		logger:     logger,
		state:      models.UpdateState{Status: string(constants.UpdateStatusIdle)},
	}
}

// Start restores the persisted state and subscribes to the update topic.
func (u *UpdateService) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		return errors.New("update service is already running")
	}
	u.loadState()

	topic := u.subTopic + "/" + u.deviceInfo.GetDeviceID()
	token := u.mqttClient.Subscribe(topic, byte(u.qos), u.handleManifest)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	u.running = true
	u.logger.Info().Str("topic", topic).Str("version", constants.AgentVersion).Msg("Update service subscribed")
	return nil
}

// Stop unsubscribes from the update topic.
func (u *UpdateService) Stop() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		return errors.New("update service is not running")
	}
	topic := u.subTopic + "/" + u.deviceInfo.GetDeviceID()
	token := u.mqttClient.Unsubscribe(topic)
	if token.Wait() && token.Error() != nil {
		u.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to unsubscribe")
	}
	u.running = false
	u.logger.Info().Msg("Update service stopped")
	return nil
}

// handleManifest verifies and evaluates one manifest message.
func (u *UpdateService) handleManifest(client MQTT.Client, msg MQTT.Message) {
	payload, ok := u.verifier.Verify(msg.Payload())
	if !ok {
		u.logger.Warn().Msg("Rejected manifest with a bad signature")
		return
	}
	var manifest models.ReleaseManifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		u.logger.Error().Err(err).Msg("Invalid manifest payload")
		return
	}
	u.evaluate(manifest)
}

func (u *UpdateService) evaluate(manifest models.ReleaseManifest) {
	current, err := semver.NewVersion(constants.AgentVersion)
	if err != nil {
		u.logger.Error().Err(err).Str("version", constants.AgentVersion).Msg("Agent version is not semver")
		return
	}
	offered, err := semver.NewVersion(manifest.Version)
	if err != nil {
		u.logger.Warn().Err(err).Str("version", manifest.Version).Msg("Manifest carries an invalid version")
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.LastSeenVersion == manifest.Version {
		u.logger.Debug().Str("version", manifest.Version).Msg("Manifest already evaluated")
		return
	}

	status := constants.UpdateStatusSkipped
	if offered.GreaterThan(current) {
		status = constants.UpdateStatusAvailable
		u.publishAdvisory(manifest)
	} else {
		u.logger.Debug().
			Str("offered", manifest.Version).
			Str("current", constants.AgentVersion).
			Msg("Manifest version is not newer, skipping")
	}

	u.state = models.UpdateState{
		LastSeenVersion: manifest.Version,
		Status:          string(status),
		EvaluatedAt:     time.Now().UTC(),
	}
	u.saveState()
}

func (u *UpdateService) publishAdvisory(manifest models.ReleaseManifest) {
	advisory := models.UpdateAdvisory{
		DeviceID:         u.deviceInfo.GetDeviceID(),
		CurrentVersion:   constants.AgentVersion,
		AvailableVersion: manifest.Version,
		URL:              manifest.URL,
		Timestamp:        time.Now().UTC(),
	}
	payload, err := json.Marshal(advisory)
	if err != nil {
		u.logger.Error().Err(err).Msg("Failed to marshal update advisory")
		return
	}
	topic := fmt.Sprintf("%s/%s/available", u.subTopic, u.deviceInfo.GetDeviceID())
	token := u.mqttClient.Publish(topic, byte(u.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		u.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to publish update advisory")
		return
	}
	u.logger.Info().
		Str("current", constants.AgentVersion).
		Str("available", manifest.Version).
		Msg("Update available")
}

// loadState restores the evaluation state; a missing file is normal on
// first run.
func (u *UpdateService) loadState() {
	if u.stateFile == "" || !u.fileClient.FileExists(u.stateFile) {
		return
	}
	if err := u.fileClient.ReadJsonFile(u.stateFile, &u.state); err != nil {
		u.logger.Warn().Err(err).Str("file", u.stateFile).Msg("Failed to restore update state")
	}
}

func (u *UpdateService) saveState() {
	if u.stateFile == "" {
		return
	}
	if err := u.fileClient.WriteJsonFile(u.stateFile, &u.state); err != nil {
		u.logger.Error().Err(err).Str("file", u.stateFile).Msg("Failed to persist update state")
	}
}
