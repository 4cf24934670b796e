package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/disk"

	"gpsbridge/internal/models"
)

// DiskMetricCollector reports used space on one filesystem.
type DiskMetricCollector struct {
	Logger zerolog.Logger
	// Path is the mount point to sample, "/" when empty.
	Path string
}

func (d *DiskMetricCollector) Name() string {
	return "disk_usage"
}

func (d *DiskMetricCollector) Collect(ctx context.Context) interface{} {
	path := d.Path
	if path == "" {
		path = "/"
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		d.Logger.Warn().Err(err).Str("path", path).Msg("Failed to collect disk usage")
		return nil
	}
	return usage.UsedPercent
}

func (d *DiskMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorDisk
}

func (d *DiskMetricCollector) Unit() string {
	return "percent"
}

func (d *DiskMetricCollector) Description() string {
	return "Used space on the root filesystem"
}
