package constants

// AgentVersion is the semantic version of this build. Release builds
// override it with -ldflags "-X gpsbridge/internal/constants.AgentVersion=...".
var AgentVersion = "1.2.0"
