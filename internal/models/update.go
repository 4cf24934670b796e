package models

import "time"

// ReleaseManifest describes a published agent release. Manifests arrive
// on the update topic with an HMAC signature appended to the payload.
type ReleaseManifest struct {
	Version    string    `json:"version"`
	URL        string    `json:"url"`
	SHA256     string    `json:"sha256,omitempty"`
	ReleasedAt time.Time `json:"released_at,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// UpdateAdvisory is published when a manifest advertises a version newer
// than the running agent.
type UpdateAdvisory struct {
	DeviceID         string    `json:"device_id"`
	CurrentVersion   string    `json:"current_version"`
	AvailableVersion string    `json:"available_version"`
	URL              string    `json:"url"`
	Timestamp        time.Time `json:"timestamp"`
}

// UpdateState is the evaluation state persisted between restarts so that
// the same release is not advertised twice.
type UpdateState struct {
	LastSeenVersion string    `json:"last_seen_version"`
	Status          string    `json:"status"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}
