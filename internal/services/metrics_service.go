package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gpsbridge/internal/metrics_collectors"
	"gpsbridge/internal/models"
	"gpsbridge/internal/utils"
	"gpsbridge/pkg/file"
	"gpsbridge/pkg/identity"
	"gpsbridge/pkg/mqtt"
)

// MetricsService samples the registered collectors on a fixed interval
// and publishes the readings. Which collectors run is controlled by a
// separate JSON config file so monitoring can be tuned without touching
// the main configuration.
type MetricsService struct {
	pubTopic   string
	interval   time.Duration
	timeout    time.Duration
	qos        int
	configFile string
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	fileClient file.FileOperations
	receiver   metrics_collectors.ReceiverSource
	logger     zerolog.Logger

	registry   *metrics_collectors.MetricsRegistry
	workerPool *utils.WorkerPool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMetricsService creates the metrics publisher. receiver may be nil
// when no receiver collector should be offered.
func NewMetricsService(pubTopic string, interval, timeout time.Duration, qos int, configFile string,
	deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient, fileClient file.FileOperations,
	receiver metrics_collectors.ReceiverSource, logger zerolog.Logger) *MetricsService {
	return &MetricsService{
		pubTopic:   pubTopic,
		interval:   interval,
		timeout:    timeout,
		qos:        qos,
		configFile: configFile,
		deviceInfo: deviceInfo,
		mqttClient: mqttClient,
		fileClient: fileClient,
		receiver:   receiver,
		logger:     logger,
	}
}

// Start loads the metrics config, registers the enabled collectors and
// begins the collection loop.
func (s *MetricsService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return errors.New("metrics service is already running")
	}

	config, err := s.loadAndValidateMetricsConfig()
	if err != nil {
		return err
	}
	s.registry = metrics_collectors.NewMetricsRegistry()
	s.registerCollectors(config)
	s.workerPool = utils.NewWorkerPool(4, 8)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	go s.run()
	s.logger.Info().
		Int("collectors", len(s.registry.GetCollectors())).
		Dur("interval", s.interval).
		Msg("Metrics service started")
	return nil
}

// Stop halts collection and shuts the worker pool down.
func (s *MetricsService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return errors.New("metrics service is not running")
	}
	s.cancel()
	s.wg.Wait()
	s.workerPool.Shutdown()
	s.workerPool = nil
	s.ctx = nil
	s.cancel = nil
	s.logger.Info().Msg("Metrics service stopped")
	return nil
}

func (s *MetricsService) loadAndValidateMetricsConfig() (*models.MetricsConfig, error) {
	var config models.MetricsConfig
	if err := s.fileClient.ReadJsonFile(s.configFile, &config); err != nil {
		return nil, err
	}
	if !(config.MonitorCPU || config.MonitorMemory || config.MonitorDisk ||
		config.MonitorNetwork || config.MonitorGoroutines || config.MonitorReceiver ||
		config.MonitorProcesses) {
		return nil, errors.New("metrics config enables no collector")
	}
	if config.MonitorProcesses && len(config.ProcessNames) == 0 {
		return nil, errors.New("monitor_processes requires process_names")
	}
	return &config, nil
}

func (s *MetricsService) registerCollectors(config *models.MetricsConfig) {
	s.registry.Register(&metrics_collectors.CPUMetricCollector{Logger: s.logger}, config)
	s.registry.Register(&metrics_collectors.MemoryMetricCollector{Logger: s.logger}, config)
	s.registry.Register(&metrics_collectors.DiskMetricCollector{Logger: s.logger}, config)
	s.registry.Register(&metrics_collectors.NetworkMetricCollector{Logger: s.logger}, config)
	s.registry.Register(&metrics_collectors.GoroutineMetricCollector{Logger: s.logger}, config)
	s.registry.Register(&metrics_collectors.ProcessMetricCollector{
		Logger:       s.logger,
		ProcessNames: utils.SliceToSet(config.ProcessNames),
	}, config)
	if s.receiver != nil {
		s.registry.Register(&metrics_collectors.ReceiverMetricCollector{
			Logger: s.logger,
			Source: s.receiver,
		}, config)
	}
}

func (s *MetricsService) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.collectAndPublish()
		}
	}
}

// collectAndPublish samples every collector in parallel under a shared
// deadline and publishes whatever was collected.
func (s *MetricsService) collectAndPublish() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	readings := make(map[string]models.MetricReading)
	var readingsMu sync.Mutex
	var collectWG sync.WaitGroup

	for _, collector := range s.registry.GetCollectors() {
		collector := collector
		collectWG.Add(1)
		s.workerPool.Submit(func() {
			defer collectWG.Done()
			value := collector.Collect(ctx)
			if value == nil {
				return
			}
			readingsMu.Lock()
			readings[collector.Name()] = models.MetricReading{Value: value, Unit: collector.Unit()}
			readingsMu.Unlock()
		})
	}
	collectWG.Wait()

	if len(readings) == 0 {
		s.logger.Debug().Msg("No metrics collected this cycle")
		return
	}
	s.publishMetrics(&models.SystemMetrics{
		DeviceID:  s.deviceInfo.GetDeviceID(),
		Timestamp: time.Now().UTC(),
		Metrics:   readings,
	})
}

// publishMetrics retries a few times with a growing backoff before
// giving the cycle up.
func (s *MetricsService) publishMetrics(metrics *models.SystemMetrics) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal metrics")
		return
	}
	topic := s.pubTopic + "/" + s.deviceInfo.GetDeviceID()

	for attempt := 1; attempt <= 3; attempt++ {
		token := s.mqttClient.Publish(topic, byte(s.qos), false, payload)
		if token.Wait() && token.Error() == nil {
			s.logger.Debug().Int("metrics", len(metrics.Metrics)).Msg("Metrics published")
			return
		}
		s.logger.Warn().Err(token.Error()).Int("attempt", attempt).Msg("Failed to publish metrics, retrying")
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	s.logger.Error().Str("topic", topic).Msg("Giving up publishing metrics this cycle")
}
