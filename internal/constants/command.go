package constants

// Commands accepted on the MQTT command plane.
const (
	CommandPowerOn     = "power_on"
	CommandPowerOff    = "power_off"
	CommandPowerStatus = "power_status"
)

// Command statuses
const (
	// CommandStatusSuccess indicates that the command was applied
	CommandStatusSuccess = "success"
	// CommandStatusFailed indicates that the command could not be applied
	CommandStatusFailed = "failed"
)

// Single-byte console commands. The control UART of the original bridge
// accepted exactly these two bytes; every other byte is ignored.
const (
	ConsoleBytePowerOff byte = '0'
	ConsoleBytePowerOn  byte = '1'
)
