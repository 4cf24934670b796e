// Package power drives the receiver's power rail. The GPIO controller
// talks to a real line through the character device; the nop controller
// tracks the requested state in software for hosts without one.
package power

import (
	"sync"

	"github.com/rs/zerolog"
)

// consumer is the label attached to the requested GPIO line.
const consumer = "gpsbridge-power"

// Controller switches the receiver power rail. Implementations must be
// safe for concurrent use.
type Controller interface {
	On() error
	Off() error
	// State returns the last applied state, true meaning powered.
	State() bool
	Close() error
}

// GPIOConfig selects the line the GPIO controller drives.
type GPIOConfig struct {
	// Chip names the gpiochip to use. Empty probes common chips.
	Chip string
	// Pin is the line number, matched by name ("GPIO<pin>") first and by
	// raw offset when the chip does not name its lines that way.
	Pin int
	// ActiveLow inverts the electrical level for a powered rail.
	ActiveLow bool
	// InitialOn is the state applied when the line is requested.
	InitialOn bool
}

// levelFor maps a logical power state to the electrical level.
func levelFor(on, activeLow bool) int {
	level := 0
	if on {
		level = 1
	}
	if activeLow {
		level = 1 - level
	}
	return level
}

// NopController implements Controller without hardware access.
type NopController struct {
	mu     sync.Mutex
	state  bool
	logger zerolog.Logger
}

// NewNopController creates a software-only controller in the given state.
func NewNopController(initialOn bool, logger zerolog.Logger) *NopController {
	return &NopController{state: initialOn, logger: logger}
}

func (n *NopController) On() error {
	return n.set(true)
}

func (n *NopController) Off() error {
	return n.set(false)
}

func (n *NopController) set(on bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != on {
		n.logger.Info().Bool("on", on).Msg("Receiver power state changed (no gpio driver)")
	}
	n.state = on
	return nil
}

func (n *NopController) State() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *NopController) Close() error {
	return nil
}
