// Package metrics_collectors defines the pluggable collectors the
// metrics service samples on each cycle.
package metrics_collectors

import (
	"context"

	"gpsbridge/internal/models"
)

// MetricCollector is implemented by every metric source. Collect returns
// nil when the sample could not be taken; the service skips nil values.
type MetricCollector interface {
	Name() string
	Collect(ctx context.Context) interface{}
	IsEnabled(config *models.MetricsConfig) bool
	Unit() string
	Description() string
}
