package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gpsbridge/internal/models"
	"gpsbridge/pkg/gnss"
	"gpsbridge/pkg/serialport"
)

// LineSink receives every line read from the receiver.
type LineSink interface {
	Broadcast(line string)
}

// GPSService owns the serial connection to the receiver. It frames the
// stream into lines, feeds the fix tracker and forwards each line to the
// attached console. Lost connections are reopened until the service is
// stopped; the receiver being powered off just looks like a silent port.
type GPSService struct {
	device         string
	baudRate       int
	maxLineBytes   int
	reconnectDelay time.Duration
	open           serialport.Opener
	tracker        *gnss.Tracker
	sink           LineSink
	logger         zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	portMu   sync.Mutex
	port     io.ReadWriteCloser
	portOpen atomic.Bool

	lines        atomic.Uint64
	oversized    atomic.Uint64
	reconnects   atomic.Uint64
	lastLineNano atomic.Int64

	errMu     sync.Mutex
	lastError string
}

// NewGPSService creates the service. A nil opener uses the real serial
// device; tests inject their own. sink may be nil when no console is
// attached.
func NewGPSService(device string, baudRate, maxLineBytes int, reconnectDelay time.Duration,
	open serialport.Opener, tracker *gnss.Tracker, sink LineSink, logger zerolog.Logger) *GPSService {
	if open == nil {
		open = serialport.Open
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	return &GPSService{
		device:         device,
		baudRate:       baudRate,
		maxLineBytes:   maxLineBytes,
		reconnectDelay: reconnectDelay,
		open:           open,
		tracker:        tracker,
		sink:           sink,
		logger:         logger,
	}
}

// Start launches the read loop.
func (g *GPSService) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx != nil {
		return errors.New("gps service is already running")
	}
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.wg.Add(1)
	go g.run()
	g.logger.Info().Str("device", g.device).Int("baud", g.baudRate).Msg("GPS service started")
	return nil
}

// Stop closes the device and waits for the read loop to exit.
func (g *GPSService) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx == nil {
		return errors.New("gps service is not running")
	}
	g.cancel()
	g.closePort()
	g.wg.Wait()
	g.ctx = nil
	g.cancel = nil
	g.logger.Info().Msg("GPS service stopped")
	return nil
}

func (g *GPSService) run() {
	defer g.wg.Done()
	for {
		if err := g.session(); err != nil {
			g.setLastError(err)
		}
		select {
		case <-g.ctx.Done():
			return
		case <-time.After(g.reconnectDelay):
		}
		g.reconnects.Add(1)
	}
}

// session opens the device and pumps lines until the stream fails.
func (g *GPSService) session() error {
	port, err := g.open(g.device, g.baudRate)
	if err != nil {
		g.logger.Warn().Err(err).Str("device", g.device).Msg("Failed to open receiver device")
		return err
	}
	g.setPort(port)
	defer g.closePort()
	// Stop may have fired between open and setPort; its closePort saw no
	// port yet, so bail out here instead of blocking in a read.
	if g.ctx.Err() != nil {
		return nil
	}
	g.logger.Info().Str("device", g.device).Msg("Receiver device opened")

	reader := serialport.NewLineReader(port, g.maxLineBytes)
	oversizedBase := g.oversized.Load()
	for {
		line, err := reader.ReadLine()
		g.oversized.Store(oversizedBase + reader.Oversized())
		if err != nil {
			if g.ctx.Err() != nil {
				return nil
			}
			g.logger.Warn().Err(err).Str("device", g.device).Msg("Receiver stream ended")
			return err
		}

		g.lines.Add(1)
		g.lastLineNano.Store(time.Now().UnixNano())

		if err := g.tracker.Update(line); err != nil {
			g.logger.Debug().Err(err).Str("line", line).Msg("Unparseable sentence")
		}
		if g.sink != nil {
			g.sink.Broadcast(line)
		}
	}
}

func (g *GPSService) setPort(port io.ReadWriteCloser) {
	g.portMu.Lock()
	g.port = port
	g.portMu.Unlock()
	g.portOpen.Store(true)
}

// closePort releases the device and unblocks a blocked read.
func (g *GPSService) closePort() {
	g.portMu.Lock()
	if g.port != nil {
		g.port.Close()
		g.port = nil
	}
	g.portMu.Unlock()
	g.portOpen.Store(false)
}

func (g *GPSService) setLastError(err error) {
	g.errMu.Lock()
	g.lastError = err.Error()
	g.errMu.Unlock()
}

// FixSnapshot returns the current fix state.
func (g *GPSService) FixSnapshot() gnss.Snapshot {
	return g.tracker.Snapshot()
}

// FeedStats returns counters for the serial feed.
func (g *GPSService) FeedStats() models.FeedStats {
	var lastLine time.Time
	if nano := g.lastLineNano.Load(); nano != 0 {
		lastLine = time.Unix(0, nano)
	}
	g.errMu.Lock()
	lastErr := g.lastError
	g.errMu.Unlock()

	return models.FeedStats{
		PortOpen:   g.portOpen.Load(),
		Lines:      g.lines.Load(),
		Oversized:  g.oversized.Load(),
		Reconnects: g.reconnects.Load(),
		LastLineAt: lastLine,
		LastError:  lastErr,
	}
}
