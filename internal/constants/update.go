package constants

// UpdateStatus represents the outcome of evaluating a release manifest.
type UpdateStatus string

const (
	// UpdateStatusIdle means no manifest has been evaluated yet.
	UpdateStatusIdle UpdateStatus = "idle"
	// UpdateStatusAvailable means the manifest advertises a newer version.
	UpdateStatusAvailable UpdateStatus = "available"
	// UpdateStatusSkipped means the manifest version is not newer than the
	// running agent.
	UpdateStatusSkipped UpdateStatus = "skipped"
)
