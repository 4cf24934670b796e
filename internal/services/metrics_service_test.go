package services_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gpsbridge/internal/metrics_collectors"
	"gpsbridge/internal/models"
	"gpsbridge/internal/services"
	"gpsbridge/pkg/file"
	"gpsbridge/pkg/gnss"
	"gpsbridge/tests/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReceiverSource feeds canned receiver health to the collector.
type fakeReceiverSource struct {
	feed models.FeedStats
	snap gnss.Snapshot
}

func (f *fakeReceiverSource) FeedStats() models.FeedStats { return f.feed }
func (f *fakeReceiverSource) FixSnapshot() gnss.Snapshot  { return f.snap }

func writeMetricsConfig(t *testing.T, config models.MetricsConfig) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metrics.json")
	payload, err := json.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, payload, 0o644))
	return path
}

func newMetricsService(configFile string, mqttClient *mocks.MockMQTTClient, receiver metrics_collectors.ReceiverSource) *services.MetricsService {
	deviceInfo := new(mocks.MockDeviceInfo)
	deviceInfo.On("GetDeviceID").Return("dev-1")

	return services.NewMetricsService("gpsbridge/metrics", 20*time.Millisecond, time.Second, 1, configFile,
		deviceInfo, mqttClient, file.NewFileService(), receiver, zerolog.Nop())
}

// TestMetricsService_PublishesGoroutineMetric tests an end to end cycle
// with the goroutine collector.
func TestMetricsService_PublishesGoroutineMetric(t *testing.T) {
	configFile := writeMetricsConfig(t, models.MetricsConfig{MonitorGoroutines: true})
	mqttClient := new(mocks.MockMQTTClient)
	published := capturePublishes(mqttClient, "gpsbridge/metrics/dev-1")

	svc := newMetricsService(configFile, mqttClient, nil)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	assert.Eventually(t, func() bool { return len(published()) >= 1 }, 2*time.Second, 10*time.Millisecond)

	var metrics models.SystemMetrics
	require.NoError(t, json.Unmarshal(published()[0], &metrics))
	assert.Equal(t, "dev-1", metrics.DeviceID)
	reading, ok := metrics.Metrics["goroutines"]
	require.True(t, ok, "goroutines metric missing")
	assert.Greater(t, reading.Value.(float64), float64(0))
}

// TestMetricsService_PublishesReceiverMetric tests that the receiver
// collector surfaces feed and fix health.
func TestMetricsService_PublishesReceiverMetric(t *testing.T) {
	configFile := writeMetricsConfig(t, models.MetricsConfig{MonitorReceiver: true})
	mqttClient := new(mocks.MockMQTTClient)
	published := capturePublishes(mqttClient, "gpsbridge/metrics/dev-1")

	receiver := &fakeReceiverSource{
		feed: models.FeedStats{PortOpen: true, Lines: 42, Reconnects: 2},
		snap: gnss.Snapshot{Valid: true},
	}
	svc := newMetricsService(configFile, mqttClient, receiver)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	assert.Eventually(t, func() bool { return len(published()) >= 1 }, 2*time.Second, 10*time.Millisecond)

	var metrics models.SystemMetrics
	require.NoError(t, json.Unmarshal(published()[0], &metrics))
	reading, ok := metrics.Metrics["receiver"]
	require.True(t, ok, "receiver metric missing")

	sample, ok := reading.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, sample["port_open"])
	assert.Equal(t, float64(42), sample["lines"])
	assert.Equal(t, true, sample["fix_valid"])
}

// TestMetricsService_RejectsEmptyConfig tests that a config enabling
// nothing refuses to start.
func TestMetricsService_RejectsEmptyConfig(t *testing.T) {
	configFile := writeMetricsConfig(t, models.MetricsConfig{})
	svc := newMetricsService(configFile, new(mocks.MockMQTTClient), nil)

	err := svc.Start()
	require.Error(t, err)
	assert.Equal(t, "metrics config enables no collector", err.Error())
}

// TestMetricsService_RejectsProcessesWithoutNames tests the process
// collector prerequisite.
func TestMetricsService_RejectsProcessesWithoutNames(t *testing.T) {
	configFile := writeMetricsConfig(t, models.MetricsConfig{MonitorProcesses: true})
	svc := newMetricsService(configFile, new(mocks.MockMQTTClient), nil)

	err := svc.Start()
	require.Error(t, err)
	assert.Equal(t, "monitor_processes requires process_names", err.Error())
}

// TestMetricsService_MissingConfigFile tests the config read error path.
func TestMetricsService_MissingConfigFile(t *testing.T) {
	svc := newMetricsService(filepath.Join(t.TempDir(), "missing.json"), new(mocks.MockMQTTClient), nil)
	assert.Error(t, svc.Start())
}

// TestMetricsService_StartStopGuards tests the running state guards.
func TestMetricsService_StartStopGuards(t *testing.T) {
	configFile := writeMetricsConfig(t, models.MetricsConfig{MonitorGoroutines: true})
	mqttClient := new(mocks.MockMQTTClient)
	capturePublishes(mqttClient, "gpsbridge/metrics/dev-1")

	svc := newMetricsService(configFile, mqttClient, nil)

	require.NoError(t, svc.Start())
	err := svc.Start()
	assert.Error(t, err)
	assert.Equal(t, "metrics service is already running", err.Error())

	require.NoError(t, svc.Stop())
	err = svc.Stop()
	assert.Error(t, err)
	assert.Equal(t, "metrics service is not running", err.Error())
}
