package metrics_collectors

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"

	"gpsbridge/internal/models"
)

// GoroutineMetricCollector reports the goroutine count of the agent
// itself, a cheap leak indicator.
type GoroutineMetricCollector struct {
	Logger zerolog.Logger
}

func (g *GoroutineMetricCollector) Name() string {
	return "goroutines"
}

func (g *GoroutineMetricCollector) Collect(ctx context.Context) interface{} {
	return runtime.NumGoroutine()
}

func (g *GoroutineMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorGoroutines
}

func (g *GoroutineMetricCollector) Unit() string {
	return "count"
}

func (g *GoroutineMetricCollector) Description() string {
	return "Number of goroutines in the agent process"
}
