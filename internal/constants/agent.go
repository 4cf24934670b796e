package constants

// StatusAlive is the status string carried by heartbeat messages.
const StatusAlive = "alive"

// Position sources.
const (
	PositionSourceGPS         = "gps"
	PositionSourceGeolocation = "geolocation"
)

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultBaudRate          = 9600
	DefaultMaxLineBytes      = 1024
	DefaultReconnectDelay    = 2
	DefaultStaleFixAfter     = 10
	DefaultConsoleClients    = 8
	DefaultConsoleQueue      = 64
	DefaultStorageBuffer     = 256
	DefaultStorageWorkers    = 2
	DefaultMetricsInterval   = 60
	DefaultPositionInterval  = 30
	DefaultHeartbeatInterval = 60
)
