package models

import "time"

// Heartbeat is the periodic liveness message published by the agent.
type Heartbeat struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	// PowerState mirrors the receiver power rail at publish time.
	PowerState string `json:"power_state"`
	// FixValid reports whether the last parsed fix was valid and fresh.
	FixValid bool `json:"fix_valid"`
}
