package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"

	"gpsbridge/internal/models"
)

// ProcessMetricCollector reports CPU and memory shares of the configured
// processes, keyed by process name.
type ProcessMetricCollector struct {
	Logger zerolog.Logger
	// ProcessNames is the set of names to look for.
	ProcessNames map[string]struct{}
}

func (p *ProcessMetricCollector) Name() string {
	return "processes"
}

func (p *ProcessMetricCollector) Collect(ctx context.Context) interface{} {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("Failed to list processes")
		return nil
	}

	usage := make(map[string]models.ProcessUsage)
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if _, wanted := p.ProcessNames[name]; !wanted {
			continue
		}
		cpuPercent, err := proc.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		memPercent, err := proc.MemoryPercentWithContext(ctx)
		if err != nil {
			continue
		}
		// Sum over all processes sharing the name.
		prev := usage[name]
		usage[name] = models.ProcessUsage{
			CPUPercent:    prev.CPUPercent + cpuPercent,
			MemoryPercent: prev.MemoryPercent + memPercent,
		}
	}
	if len(usage) == 0 {
		return nil
	}
	return usage
}

func (p *ProcessMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorProcesses && len(config.ProcessNames) > 0
}

func (p *ProcessMetricCollector) Unit() string {
	return "percent"
}

func (p *ProcessMetricCollector) Description() string {
	return "CPU and memory shares of the configured processes"
}
