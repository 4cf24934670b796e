//go:build !linux

package power

import (
	"errors"

	"github.com/rs/zerolog"
)

// NewGPIOController is unavailable off Linux; configure the "none" driver
// instead.
func NewGPIOController(cfg GPIOConfig, logger zerolog.Logger) (Controller, error) {
	return nil, errors.New("gpio power control requires linux")
}
