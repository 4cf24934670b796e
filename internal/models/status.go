package models

import (
	"time"

	"gpsbridge/pkg/gnss"
)

// FeedStats counts activity on the receiver serial feed.
type FeedStats struct {
	PortOpen   bool      `json:"port_open"`
	Lines      uint64    `json:"lines"`
	Oversized  uint64    `json:"oversized"`
	Reconnects uint64    `json:"reconnects"`
	LastLineAt time.Time `json:"last_line_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// ConsoleStats counts activity on the console listener.
type ConsoleStats struct {
	Clients      int    `json:"clients"`
	LinesOut     uint64 `json:"lines_out"`
	DroppedLines uint64 `json:"dropped_lines"`
	Commands     uint64 `json:"commands"`
}

// StorageStats counts activity of the track recorder.
type StorageStats struct {
	Sinks   []string `json:"sinks"`
	Queued  uint64   `json:"queued"`
	Saved   uint64   `json:"saved"`
	Dropped uint64   `json:"dropped"`
	Errors  uint64   `json:"errors"`
}

// BridgeStatus is the aggregate state returned by the status API.
type BridgeStatus struct {
	DeviceID  string        `json:"device_id"`
	Version   string        `json:"version"`
	StartedAt time.Time     `json:"started_at"`
	Power     string        `json:"power"`
	Fix       gnss.Snapshot `json:"fix"`
	Feed      FeedStats     `json:"feed"`
	Console   *ConsoleStats `json:"console,omitempty"`
	Storage   *StorageStats `json:"storage,omitempty"`
}
