package metrics_collectors

import "gpsbridge/internal/models"

// MetricsRegistry holds the collectors enabled by the metrics config.
type MetricsRegistry struct {
	collectors []MetricCollector
}

func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{}
}

// Register adds a collector when the config enables it.
func (r *MetricsRegistry) Register(collector MetricCollector, config *models.MetricsConfig) {
	if collector.IsEnabled(config) {
		r.collectors = append(r.collectors, collector)
	}
}

// GetCollectors returns the registered collectors in registration order.
func (r *MetricsRegistry) GetCollectors() []MetricCollector {
	return r.collectors
}
