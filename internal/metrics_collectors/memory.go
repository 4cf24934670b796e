package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/mem"

	"gpsbridge/internal/models"
)

// MemoryMetricCollector reports used physical memory.
type MemoryMetricCollector struct {
	Logger zerolog.Logger
}

func (m *MemoryMetricCollector) Name() string {
	return "memory_usage"
}

func (m *MemoryMetricCollector) Collect(ctx context.Context) interface{} {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		m.Logger.Warn().Err(err).Msg("Failed to collect memory usage")
		return nil
	}
	return vm.UsedPercent
}

func (m *MemoryMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorMemory
}

func (m *MemoryMetricCollector) Unit() string {
	return "percent"
}

func (m *MemoryMetricCollector) Description() string {
	return "Used physical memory"
}
