// Package service_registry wires the configured services together and
// manages their lifecycle: start in registration order, stop in reverse,
// and roll back cleanly when a start fails.
package service_registry

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gpsbridge/internal/services"
	"gpsbridge/internal/storage"
	"gpsbridge/internal/utils"
	"gpsbridge/internal/web"
	"gpsbridge/pkg/encryption"
	"gpsbridge/pkg/file"
	"gpsbridge/pkg/gnss"
	"gpsbridge/pkg/identity"
	"gpsbridge/pkg/location"
	"gpsbridge/pkg/mqtt"
	"gpsbridge/pkg/power"
)

// Service is the lifecycle contract every long-running component
// implements.
type Service interface {
	Start() error
	Stop() error
}

type registeredService struct {
	name    string
	service Service
}

// ServiceRegistry holds the registered services in start order.
type ServiceRegistry struct {
	services []registeredService
	logger   zerolog.Logger
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{logger: logger}
}

// Register appends a service to the start order.
func (sr *ServiceRegistry) Register(name string, service Service) {
	sr.services = append(sr.services, registeredService{name: name, service: service})
}

// RegisterServices constructs every enabled service from the config.
// The console is registered before the GPS service so the feed has a
// sink from its first line; the web API goes last since it only reads
// state the other services own.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deviceInfo identity.DeviceInfoInterface,
	mqttClient mqtt.MQTTClient, fileClient file.FileOperations, powerCtl power.Controller,
	verifier encryption.SignatureVerifier, recorder *storage.AsyncRecorder) error {

	var console *services.ConsoleService
	if config.Console.Enabled {
		console = services.NewConsoleService(
			config.Console.Listen,
			config.Console.MaxClients,
			config.Console.ClientQueue,
			powerCtl,
			sr.logger,
		)
		sr.Register("console", console)
	}

	tracker := gnss.NewTracker(time.Duration(config.GPS.StaleFixAfter) * time.Second)
	var sink services.LineSink
	if console != nil {
		sink = console
	}
	gpsService := services.NewGPSService(
		config.GPS.Device,
		config.GPS.BaudRate,
		config.GPS.MaxLineBytes,
		time.Duration(config.GPS.ReconnectDelay)*time.Second,
		nil,
		tracker,
		sink,
		sr.logger,
	)
	sr.Register("gps", gpsService)

	if config.Services.Position.Enabled {
		var fallback location.Provider
		if config.Services.Position.FallbackGeolocation {
			provider, err := location.NewGoogleGeolocationProvider(
				config.Services.Position.MapsAPIKey,
				config.Services.Position.ModemIndex,
			)
			if err != nil {
				return fmt.Errorf("failed to create geolocation provider: %w", err)
			}
			fallback = provider
		}
		sr.Register("position", services.NewPositionService(
			config.Services.Position.Topic,
			config.Services.Position.QOS,
			time.Duration(config.Services.Position.Interval)*time.Second,
			deviceInfo,
			mqttClient,
			gpsService,
			fallback,
			recorder,
			sr.logger,
		))
	}

	if config.Services.Heartbeat.Enabled {
		sr.Register("heartbeat", services.NewHeartbeatService(
			config.Services.Heartbeat.Topic,
			time.Duration(config.Services.Heartbeat.Interval)*time.Second,
			config.Services.Heartbeat.QOS,
			deviceInfo,
			mqttClient,
			powerCtl,
			gpsService,
			sr.logger,
		))
	}

	if config.Services.Metrics.Enabled {
		sr.Register("metrics", services.NewMetricsService(
			config.Services.Metrics.Topic,
			time.Duration(config.Services.Metrics.Interval)*time.Second,
			time.Duration(config.Services.Metrics.Timeout)*time.Second,
			config.Services.Metrics.QOS,
			config.Services.Metrics.ConfigFile,
			deviceInfo,
			mqttClient,
			fileClient,
			gpsService,
			sr.logger,
		))
	}

	if config.Services.Command.Enabled {
		sr.Register("command", services.NewCommandService(
			config.Services.Command.Topic,
			config.Services.Command.QOS,
			deviceInfo,
			mqttClient,
			powerCtl,
			sr.logger,
		))
	}

	if config.Services.Update.Enabled {
		sr.Register("update", services.NewUpdateService(
			config.Services.Update.Topic,
			config.Services.Update.QOS,
			config.Services.Update.StateFile,
			deviceInfo,
			mqttClient,
			verifier,
			fileClient,
			sr.logger,
		))
	}

	if config.Web.Enabled {
		deviceID := ""
		if deviceInfo != nil {
			deviceID = deviceInfo.GetDeviceID()
		}
		var consoleState web.ConsoleState
		if console != nil {
			consoleState = console
		}
		var storageState web.StorageState
		if recorder != nil {
			storageState = recorder
		}
		sr.Register("web", web.NewServer(
			config.Web.Listen,
			deviceID,
			gpsService,
			consoleState,
			storageState,
			powerCtl,
			sr.logger,
		))
	}

	return nil
}

// StartServices starts everything in order. When one service fails the
// already started ones are stopped in reverse before the error is
// returned.
func (sr *ServiceRegistry) StartServices() error {
	var started []registeredService
	for _, rs := range sr.services {
		sr.logger.Info().Str("service", rs.name).Msg("Starting service")
		if err := rs.service.Start(); err != nil {
			sr.logger.Error().Err(err).Str("service", rs.name).Msg("Failed to start service")
			for i := len(started) - 1; i >= 0; i-- {
				if stopErr := started[i].service.Stop(); stopErr != nil {
					sr.logger.Error().Err(stopErr).Str("service", started[i].name).Msg("Failed to stop service during rollback")
				}
			}
			return fmt.Errorf("failed to start %s: %w", rs.name, err)
		}
		started = append(started, rs)
	}
	return nil
}

// StopServices stops everything in reverse start order. Errors are
// logged, not propagated, so one stuck service does not keep the rest
// running.
func (sr *ServiceRegistry) StopServices() {
	for i := len(sr.services) - 1; i >= 0; i-- {
		rs := sr.services[i]
		sr.logger.Info().Str("service", rs.name).Msg("Stopping service")
		if err := rs.service.Stop(); err != nil {
			sr.logger.Error().Err(err).Str("service", rs.name).Msg("Failed to stop service")
		}
	}
}
