package constants

// Power rail states as reported in telemetry and API responses.
const (
	PowerStateOn  = "on"
	PowerStateOff = "off"
)

// Power drivers selectable in the configuration.
const (
	// PowerDriverGPIO drives a real GPIO line through the character device.
	PowerDriverGPIO = "gpio"
	// PowerDriverNone tracks the requested state in software only.
	PowerDriverNone = "none"
)
