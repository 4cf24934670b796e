package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"

	"gpsbridge/internal/models"
)

// CPUMetricCollector reports total CPU utilization across all cores.
type CPUMetricCollector struct {
	Logger zerolog.Logger
}

func (c *CPUMetricCollector) Name() string {
	return "cpu_usage"
}

func (c *CPUMetricCollector) Collect(ctx context.Context) interface{} {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(percentages) == 0 {
		c.Logger.Warn().Err(err).Msg("Failed to collect CPU usage")
		return nil
	}
	return percentages[0]
}

func (c *CPUMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorCPU
}

func (c *CPUMetricCollector) Unit() string {
	return "percent"
}

func (c *CPUMetricCollector) Description() string {
	return "Total CPU utilization across all cores"
}
