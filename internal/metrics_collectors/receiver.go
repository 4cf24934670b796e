package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"

	"gpsbridge/internal/models"
	"gpsbridge/pkg/gnss"
)

// ReceiverSource exposes the receiver feed and fix state to the
// collector without tying it to a concrete service.
type ReceiverSource interface {
	FeedStats() models.FeedStats
	FixSnapshot() gnss.Snapshot
}

// ReceiverMetricCollector reports health counters of the receiver feed.
type ReceiverMetricCollector struct {
	Logger zerolog.Logger
	Source ReceiverSource
}

func (r *ReceiverMetricCollector) Name() string {
	return "receiver"
}

func (r *ReceiverMetricCollector) Collect(ctx context.Context) interface{} {
	if r.Source == nil {
		return nil
	}
	feed := r.Source.FeedStats()
	fix := r.Source.FixSnapshot()

	sample := map[string]interface{}{
		"port_open":    feed.PortOpen,
		"lines":        feed.Lines,
		"oversized":    feed.Oversized,
		"reconnects":   feed.Reconnects,
		"parse_errors": fix.Stats.ParseErrors,
		"fix_valid":    fix.Valid,
	}
	if fix.Satellites != nil {
		sample["satellites"] = *fix.Satellites
	}
	return sample
}

func (r *ReceiverMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorReceiver
}

func (r *ReceiverMetricCollector) Unit() string {
	return ""
}

func (r *ReceiverMetricCollector) Description() string {
	return "Receiver feed and fix health counters"
}
