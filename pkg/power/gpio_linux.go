//go:build linux

package power

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"
)

// chipCandidates are probed in order when no chip is configured. Recent
// Raspberry Pi models expose the header on a different chip than older
// ones, so a single default is not enough.
var chipCandidates = []string{"gpiochip0", "gpiochip4"}

type gpioController struct {
	mu        sync.Mutex
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	activeLow bool
	state     bool
	logger    zerolog.Logger
}

// NewGPIOController requests the configured line as an output and applies
// the initial state.
func NewGPIOController(cfg GPIOConfig, logger zerolog.Logger) (Controller, error) {
	candidates := chipCandidates
	if cfg.Chip != "" {
		candidates = []string{cfg.Chip}
	}

	var lastErr error
	for _, name := range candidates {
		chip, err := gpiocdev.NewChip(name)
		if err != nil {
			lastErr = err
			continue
		}

		offset, err := chip.FindLine(fmt.Sprintf("GPIO%d", cfg.Pin))
		if err != nil {
			// Not all boards name their lines; fall back to the raw offset.
			offset = cfg.Pin
		}

		line, err := chip.RequestLine(offset,
			gpiocdev.AsOutput(levelFor(cfg.InitialOn, cfg.ActiveLow)),
			gpiocdev.WithConsumer(consumer))
		if err != nil {
			chip.Close()
			lastErr = err
			continue
		}

		logger.Info().
			Str("chip", name).
			Int("offset", offset).
			Bool("active_low", cfg.ActiveLow).
			Bool("on", cfg.InitialOn).
			Msg("Requested receiver power line")

		return &gpioController{
			chip:      chip,
			line:      line,
			activeLow: cfg.ActiveLow,
			state:     cfg.InitialOn,
			logger:    logger,
		}, nil
	}
	return nil, fmt.Errorf("no usable gpiochip for pin %d: %w", cfg.Pin, lastErr)
}

func (g *gpioController) On() error {
	return g.set(true)
}

func (g *gpioController) Off() error {
	return g.set(false)
}

func (g *gpioController) set(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.line.SetValue(levelFor(on, g.activeLow)); err != nil {
		return fmt.Errorf("failed to set power line: %w", err)
	}
	g.state = on
	g.logger.Info().Bool("on", on).Msg("Receiver power switched")
	return nil
}

func (g *gpioController) State() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Close releases the line without changing its level, so the receiver
// keeps its last commanded power state across agent restarts.
func (g *gpioController) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.line.Close(), g.chip.Close())
}
