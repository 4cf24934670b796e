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
	"gpsbridge/internal/storage"
	"gpsbridge/pkg/gnss"
	"gpsbridge/pkg/identity"
	"gpsbridge/pkg/location"
	"gpsbridge/pkg/mqtt"
)

// FixSource supplies the current receiver fix.
type FixSource interface {
	FixSnapshot() gnss.Snapshot
}

// PositionService periodically publishes the device position. While the
// receiver has a valid fix the fix is published and handed to the track
// recorder; otherwise the network geolocation fallback is consulted.
// Fallback positions are published but never recorded.
type PositionService struct {
	pubTopic   string
	qos        int
	interval   time.Duration
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	fixSource  FixSource
	fallback   location.Provider
	recorder   *storage.AsyncRecorder
	logger     zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPositionService creates the publisher. fallback and recorder may be
// nil.
func NewPositionService(pubTopic string, qos int, interval time.Duration,
	deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient,
	fixSource FixSource, fallback location.Provider, recorder *storage.AsyncRecorder,
	logger zerolog.Logger) *PositionService {
	return &PositionService{
		pubTopic:   pubTopic,
		qos:        qos,
		interval:   interval,
		deviceInfo: deviceInfo,
		mqttClient: mqttClient,
		fixSource:  fixSource,
		fallback:   fallback,
		recorder:   recorder,
		logger:     logger,
	}
}

// Start launches the periodic publisher.
func (p *PositionService) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		return errors.New("position service is already running")
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.wg.Add(1)
	go p.run()
	p.logger.Info().Str("topic", p.pubTopic).Dur("interval", p.interval).Msg("Position service started")
	return nil
}

// Stop halts publishing and closes the fallback provider.
func (p *PositionService) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return errors.New("position service is not running")
	}
	p.cancel()
	p.wg.Wait()
	if p.fallback != nil {
		if err := p.fallback.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close geolocation provider")
		}
	}
	p.ctx = nil
	p.cancel = nil
	p.logger.Info().Msg("Position service stopped")
	return nil
}

func (p *PositionService) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.publishPosition()
		}
	}
}

func (p *PositionService) publishPosition() {
	pos, ok := p.buildPosition()
	if !ok {
		p.logger.Debug().Msg("No position available, skipping publish")
		return
	}

	payload, err := json.Marshal(pos)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to marshal position")
		return
	}
	topic := p.pubTopic + "/" + p.deviceInfo.GetDeviceID()
	token := p.mqttClient.Publish(topic, byte(p.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		p.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to publish position")
		return
	}
	p.logger.Debug().
		Str("source", pos.Source).
		Float64("lat", pos.Latitude).
		Float64("lon", pos.Longitude).
		Msg("Position published")

	if pos.Source == constants.PositionSourceGPS && p.recorder != nil {
		p.recorder.Record(pos)
	}
}

func (p *PositionService) buildPosition() (models.Position, bool) {
	snap := p.fixSource.FixSnapshot()
	if snap.Valid {
		return models.Position{
			DeviceID:   p.deviceInfo.GetDeviceID(),
			Timestamp:  time.Now().UTC(),
			Latitude:   snap.Latitude,
			Longitude:  snap.Longitude,
			AltitudeM:  snap.AltitudeM,
			SpeedKt:    snap.SpeedKt,
			CourseDeg:  snap.CourseDeg,
			Satellites: snap.Satellites,
			HDOP:       snap.HDOP,
			Source:     constants.PositionSourceGPS,
		}, true
	}

	if p.fallback == nil {
		return models.Position{}, false
	}
	ctx, cancel := context.WithTimeout(p.ctx, 15*time.Second)
	defer cancel()
	loc, err := p.fallback.GetLocation(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Geolocation fallback failed")
		return models.Position{}, false
	}
	accuracy := loc.AccuracyM
	return models.Position{
		DeviceID:  p.deviceInfo.GetDeviceID(),
		Timestamp: time.Now().UTC(),
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		AccuracyM: &accuracy,
		Source:    constants.PositionSourceGeolocation,
	}, true
}
