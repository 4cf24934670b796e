package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gpsbridge/internal/constants"
	"gpsbridge/internal/models"
	"gpsbridge/pkg/identity"
	"gpsbridge/pkg/mqtt"
	"gpsbridge/pkg/power"
)

// HeartbeatService periodically publishes a liveness message carrying
// the receiver power state and fix health.
type HeartbeatService struct {
	pubTopic   string
	interval   time.Duration
	qos        int
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	powerCtl   power.Controller
	fixSource  FixSource
	logger     zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeatService creates the heartbeat publisher.
func NewHeartbeatService(pubTopic string, interval time.Duration, qos int,
	deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient,
	powerCtl power.Controller, fixSource FixSource, logger zerolog.Logger) *HeartbeatService {
	return &HeartbeatService{
		pubTopic:   pubTopic,
		interval:   interval,
		qos:        qos,
		deviceInfo: deviceInfo,
		mqttClient: mqttClient,
		powerCtl:   powerCtl,
		fixSource:  fixSource,
		logger:     logger,
	}
}

// Start begins publishing heartbeats. The first heartbeat goes out
// immediately so the backend sees the device without waiting a full
// interval.
func (h *HeartbeatService) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx != nil {
		return errors.New("heartbeat service is already running")
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.wg.Add(1)
	go h.run()
	h.logger.Info().Str("topic", h.pubTopic).Dur("interval", h.interval).Msg("Heartbeat service started")
	return nil
}

// Stop halts heartbeat publishing.
func (h *HeartbeatService) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx == nil {
		return errors.New("heartbeat service is not running")
	}
	h.cancel()
	h.wg.Wait()
	h.ctx = nil
	h.cancel = nil
	h.logger.Info().Msg("Heartbeat service stopped")
	return nil
}

func (h *HeartbeatService) run() {
	defer h.wg.Done()
	h.publishHeartbeat()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.publishHeartbeat()
		}
	}
}

func (h *HeartbeatService) publishHeartbeat() {
	powerState := constants.PowerStateOff
	if h.powerCtl.State() {
		powerState = constants.PowerStateOn
	}
	heartbeat := models.Heartbeat{
		DeviceID:   h.deviceInfo.GetDeviceID(),
		Timestamp:  time.Now().UTC(),
		Status:     constants.StatusAlive,
		Version:    constants.AgentVersion,
		PowerState: powerState,
		FixValid:   h.fixSource.FixSnapshot().Valid,
	}

	payload, err := json.Marshal(heartbeat)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal heartbeat")
		return
	}
	topic := h.pubTopic + "/" + h.deviceInfo.GetDeviceID()
	token := h.mqttClient.Publish(topic, byte(h.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		h.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to publish heartbeat")
		return
	}
	h.logger.Debug().Str("power", powerState).Msg("Heartbeat published")
}
