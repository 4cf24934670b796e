package metrics_collectors

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/net"

	"gpsbridge/internal/models"
)

// NetworkMetricCollector reports aggregate transfer rates. Rates are
// derived from the difference to the previous sample, so the first
// collection yields no value.
type NetworkMetricCollector struct {
	Logger zerolog.Logger

	mu            sync.Mutex
	lastBytesSent uint64
	lastBytesRecv uint64
	lastSample    time.Time
}

func (n *NetworkMetricCollector) Name() string {
	return "network_io"
}

func (n *NetworkMetricCollector) Collect(ctx context.Context) interface{} {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		n.Logger.Warn().Err(err).Msg("Failed to collect network counters")
		return nil
	}
	now := time.Now()
	sent := counters[0].BytesSent
	recv := counters[0].BytesRecv

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lastSample.IsZero() {
		n.lastBytesSent = sent
		n.lastBytesRecv = recv
		n.lastSample = now
		return nil
	}

	elapsed := now.Sub(n.lastSample).Seconds()
	if elapsed <= 0 {
		return nil
	}
	rates := map[string]float64{
		"tx_bytes_per_sec": float64(sent-n.lastBytesSent) / elapsed,
		"rx_bytes_per_sec": float64(recv-n.lastBytesRecv) / elapsed,
	}
	n.lastBytesSent = sent
	n.lastBytesRecv = recv
	n.lastSample = now
	return rates
}

func (n *NetworkMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorNetwork
}

func (n *NetworkMetricCollector) Unit() string {
	return "bytes_per_sec"
}

func (n *NetworkMetricCollector) Description() string {
	return "Aggregate network transfer rates since the previous sample"
}
