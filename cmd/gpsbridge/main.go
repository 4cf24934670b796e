package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"gpsbridge/internal/constants"
	"gpsbridge/internal/service_registry"
	"gpsbridge/internal/storage"
	"gpsbridge/internal/utils"
	"gpsbridge/pkg/encryption"
	"gpsbridge/pkg/file"
	"gpsbridge/pkg/identity"
	"gpsbridge/pkg/mqtt"
	"gpsbridge/pkg/power"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	// Optional .env for local development; ignored when absent.
	godotenv.Load()

	bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := buildLogger(config)
	logger.Info().Str("version", constants.AgentVersion).Msg("Starting gpsbridge")

	powerCtl, err := buildPowerController(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize power controller")
	}

	var deviceInfo identity.DeviceInfoInterface
	var mqttClient mqtt.MQTTClient
	if config.MQTTRequired() {
		di := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient, logger)
		if err := di.LoadDeviceInfo(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to load device identity")
		}
		deviceInfo = di

		clientID := config.MQTT.ClientID
		if clientID == "" {
			clientID = "gpsbridge-" + di.GetDeviceID()
		}
		// Random suffix keeps a replaced instance from being kicked off
		// the broker by its own stale session.
		clientID = clientID + "-" + uuid.New().String()[:8]

		mqttService := mqtt.NewMqttService(logger)
		err := mqttService.Initialize(mqtt.Config{
			Broker:        config.MQTT.Broker,
			ClientID:      clientID,
			Username:      config.MQTT.Username,
			Password:      config.MQTT.Password,
			CACertificate: config.MQTT.CACertificate,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
		}
		mqttClient = mqttService
	}

	var verifier encryption.SignatureVerifier
	if config.Security.SigningKeyFile != "" {
		manager := encryption.NewSignatureManager(fileClient)
		if err := manager.Initialize(config.Security.SigningKeyFile); err != nil {
			logger.Fatal().Err(err).Msg("Failed to load signing key")
		}
		verifier = manager
	}

	var recorder *storage.AsyncRecorder
	if config.Storage.Enabled {
		repo, err := storage.NewRepository(config.Storage.Encoding, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create track repository")
		}
		if err := repo.LoadSinks(config.Storage.Sinks); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize track sinks")
		}
		recorder = storage.NewAsyncRecorder(repo, config.Storage.Buffer, config.Storage.Workers, logger)
	}

	registry := service_registry.NewServiceRegistry(logger)
	if err := registry.RegisterServices(config, deviceInfo, mqttClient, fileClient, powerCtl, verifier, recorder); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}
	if err := registry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	registry.StopServices()
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close track recorder")
		}
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	if err := powerCtl.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to release power controller")
	}
	logger.Info().Msg("Shutdown complete")
}

// buildLogger assembles the root logger: console output, plus a rotated
// file when one is configured.
func buildLogger(config *utils.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	var writer io.Writer = console
	if config.Logging.File != "" {
		writer = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   config.Logging.File,
			MaxSize:    config.Logging.MaxSizeMB,
			MaxBackups: config.Logging.MaxBackups,
			MaxAge:     config.Logging.MaxAgeDays,
			Compress:   config.Logging.Compress,
		})
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func buildPowerController(config *utils.Config, logger zerolog.Logger) (power.Controller, error) {
	switch config.Power.Driver {
	case constants.PowerDriverGPIO:
		return power.NewGPIOController(power.GPIOConfig{
			Chip:      config.Power.Chip,
			Pin:       config.Power.Pin,
			ActiveLow: config.Power.ActiveLow,
			InitialOn: config.Power.InitialOn,
		}, logger)
	default:
		return power.NewNopController(config.Power.InitialOn, logger), nil
	}
}
