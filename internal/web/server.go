// Package web serves the local status and power API.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"gpsbridge/internal/constants"
	"gpsbridge/internal/models"
	"gpsbridge/pkg/gnss"
	"gpsbridge/pkg/power"
)

// ReceiverState exposes the receiver feed and fix to the API.
type ReceiverState interface {
	FixSnapshot() gnss.Snapshot
	FeedStats() models.FeedStats
}

// ConsoleState exposes console counters to the API.
type ConsoleState interface {
	Stats() models.ConsoleStats
}

// StorageState exposes recorder counters to the API.
type StorageState interface {
	Stats() models.StorageStats
}

// Server is the local HTTP API. It implements the service lifecycle so
// the registry can manage it alongside the other services.
type Server struct {
	echo      *echo.Echo
	addr      string
	deviceID  string
	startedAt time.Time

	receiver ReceiverState
	console  ConsoleState
	storage  StorageState
	powerCtl power.Controller
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewServer wires the routes. console and storage may be nil when those
// components are disabled.
func NewServer(addr, deviceID string, receiver ReceiverState, console ConsoleState,
	storage StorageState, powerCtl power.Controller, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		addr:     addr,
		deviceID: deviceID,
		receiver: receiver,
		console:  console,
		storage:  storage,
		powerCtl: powerCtl,
		logger:   logger,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/status", s.handleStatus)
	e.GET("/api/power", s.handleGetPower)
	e.POST("/api/power", s.handleSetPower)
	return s
}

// Handler returns the underlying HTTP handler, mainly so tests can
// drive the routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("web server is already running")
	}
	s.running = true
	s.startedAt = time.Now().UTC()
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Web server stopped unexpectedly")
		}
	}()
	s.logger.Info().Str("listen", s.addr).Msg("Web API listening")
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return errors.New("web server is not running")
	}
	s.running = false
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	status := models.BridgeStatus{
		DeviceID:  s.deviceID,
		Version:   constants.AgentVersion,
		StartedAt: s.startedAt,
		Power:     s.powerString(),
		Fix:       s.receiver.FixSnapshot(),
		Feed:      s.receiver.FeedStats(),
	}
	if s.console != nil {
		cs := s.console.Stats()
		status.Console = &cs
	}
	if s.storage != nil {
		ss := s.storage.Stats()
		status.Storage = &ss
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleGetPower(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"power": s.powerString()})
}

func (s *Server) handleSetPower(c echo.Context) error {
	var req struct {
		State string `json:"state"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var err error
	switch req.State {
	case constants.PowerStateOn:
		err = s.powerCtl.On()
	case constants.PowerStateOff:
		err = s.powerCtl.Off()
	default:
		return echo.NewHTTPError(http.StatusBadRequest, `state must be "on" or "off"`)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.logger.Info().Str("state", req.State).Str("remote", c.RealIP()).Msg("Receiver power set via API")
	return c.JSON(http.StatusOK, map[string]string{"power": s.powerString()})
}

func (s *Server) powerString() string {
	if s.powerCtl.State() {
		return constants.PowerStateOn
	}
	return constants.PowerStateOff
}
