package models

import "time"

// MetricReading is one collected metric value together with its unit.
type MetricReading struct {
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// SystemMetrics is the payload published on the metrics topic.
type SystemMetrics struct {
	DeviceID  string                   `json:"device_id"`
	Timestamp time.Time                `json:"timestamp"`
	Metrics   map[string]MetricReading `json:"metrics"`
}

// ProcessUsage is the per-process share reported by the process collector.
type ProcessUsage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
}

// MetricsConfig controls which collectors the metrics service registers.
// It is loaded from a JSON file so that the set of monitored resources
// can be changed without touching the main configuration.
type MetricsConfig struct {
	MonitorCPU        bool     `json:"monitor_cpu"`
	MonitorMemory     bool     `json:"monitor_memory"`
	MonitorDisk       bool     `json:"monitor_disk"`
	MonitorNetwork    bool     `json:"monitor_network"`
	MonitorGoroutines bool     `json:"monitor_goroutines"`
	MonitorReceiver   bool     `json:"monitor_receiver"`
	MonitorProcesses  bool     `json:"monitor_processes"`
	ProcessNames      []string `json:"process_names,omitempty"`
}
