package utils

import (
	"errors"
	"fmt"
	"os"

	"gpsbridge/internal/constants"
	"gpsbridge/pkg/file"
)

// Config is the agent configuration loaded from YAML. Interval and delay
// fields are plain numbers of seconds; callers multiply by time.Second
// when wiring services.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`
		ClientID      string `yaml:"client_id"`
		Username      string `yaml:"username"`
		Password      string `yaml:"password"`
		CACertificate string `yaml:"ca_certificate"`
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file"`
	} `yaml:"identity"`

	GPS struct {
		Device         string `yaml:"device"`
		BaudRate       int    `yaml:"baud_rate"`
		ReconnectDelay int    `yaml:"reconnect_delay"` // in seconds
		StaleFixAfter  int    `yaml:"stale_fix_after"` // in seconds
		MaxLineBytes   int    `yaml:"max_line_bytes"`
	} `yaml:"gps"`

	Power struct {
		Driver    string `yaml:"driver"`
		Chip      string `yaml:"chip"`
		Pin       int    `yaml:"pin"`
		ActiveLow bool   `yaml:"active_low"`
		InitialOn bool   `yaml:"initial_on"`
	} `yaml:"power"`

	Console struct {
		Enabled     bool   `yaml:"enabled"`
		Listen      string `yaml:"listen"`
		MaxClients  int    `yaml:"max_clients"`
		ClientQueue int    `yaml:"client_queue"`
	} `yaml:"console"`

	Web struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"web"`

	Storage struct {
		Enabled  bool                         `yaml:"enabled"`
		Encoding string                       `yaml:"encoding"`
		Buffer   int                          `yaml:"buffer"`
		Workers  int                          `yaml:"workers"`
		Sinks    map[string]map[string]string `yaml:"sinks"`
	} `yaml:"storage"`

	Services struct {
		Position struct {
			Enabled             bool   `yaml:"enabled"`
			Topic               string `yaml:"topic"`
			Interval            int    `yaml:"interval"` // in seconds
			QOS                 int    `yaml:"qos"`
			FallbackGeolocation bool   `yaml:"fallback_geolocation"`
			MapsAPIKey          string `yaml:"maps_api_key"`
			ModemIndex          int    `yaml:"modem_index"`
		} `yaml:"position"`

		Heartbeat struct {
			Enabled  bool   `yaml:"enabled"`
			Topic    string `yaml:"topic"`
			Interval int    `yaml:"interval"` // in seconds
			QOS      int    `yaml:"qos"`
		} `yaml:"heartbeat"`

		Metrics struct {
			Enabled    bool   `yaml:"enabled"`
			Topic      string `yaml:"topic"`
			Interval   int    `yaml:"interval"` // in seconds
			Timeout    int    `yaml:"timeout"`  // in seconds, per collection cycle
			QOS        int    `yaml:"qos"`
			ConfigFile string `yaml:"config_file"`
		} `yaml:"metrics"`

		Command struct {
			Enabled bool   `yaml:"enabled"`
			Topic   string `yaml:"topic"`
			QOS     int    `yaml:"qos"`
		} `yaml:"command"`

		Update struct {
			Enabled   bool   `yaml:"enabled"`
			Topic     string `yaml:"topic"`
			QOS       int    `yaml:"qos"`
			StateFile string `yaml:"state_file"`
		} `yaml:"update"`
	} `yaml:"services"`

	Security struct {
		SigningKeyFile string `yaml:"signing_key_file"`
	} `yaml:"security"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// LoadConfig reads, expands and validates the configuration file.
func LoadConfig(configPath string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(configPath, &config); err != nil {
		return nil, err
	}
	config.expandEnv()
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", configPath, err)
	}
	return &config, nil
}

// expandEnv substitutes ${VAR} references in fields that commonly carry
// secrets, so credentials can stay out of the config file.
func (c *Config) expandEnv() {
	c.MQTT.Broker = os.ExpandEnv(c.MQTT.Broker)
	c.MQTT.Username = os.ExpandEnv(c.MQTT.Username)
	c.MQTT.Password = os.ExpandEnv(c.MQTT.Password)
	c.Services.Position.MapsAPIKey = os.ExpandEnv(c.Services.Position.MapsAPIKey)
	for _, params := range c.Storage.Sinks {
		for k, v := range params {
			params[k] = os.ExpandEnv(v)
		}
	}
}

func (c *Config) applyDefaults() {
	if c.GPS.BaudRate <= 0 {
		c.GPS.BaudRate = constants.DefaultBaudRate
	}
	if c.GPS.ReconnectDelay <= 0 {
		c.GPS.ReconnectDelay = constants.DefaultReconnectDelay
	}
	if c.GPS.StaleFixAfter <= 0 {
		c.GPS.StaleFixAfter = constants.DefaultStaleFixAfter
	}
	if c.GPS.MaxLineBytes <= 0 {
		c.GPS.MaxLineBytes = constants.DefaultMaxLineBytes
	}
	if c.Power.Driver == "" {
		c.Power.Driver = constants.PowerDriverNone
	}
	if c.Console.MaxClients <= 0 {
		c.Console.MaxClients = constants.DefaultConsoleClients
	}
	if c.Console.ClientQueue <= 0 {
		c.Console.ClientQueue = constants.DefaultConsoleQueue
	}
	if c.Storage.Encoding == "" {
		c.Storage.Encoding = "json"
	}
	if c.Storage.Buffer <= 0 {
		c.Storage.Buffer = constants.DefaultStorageBuffer
	}
	if c.Storage.Workers <= 0 {
		c.Storage.Workers = constants.DefaultStorageWorkers
	}
	if c.Services.Position.Interval <= 0 {
		c.Services.Position.Interval = constants.DefaultPositionInterval
	}
	if c.Services.Heartbeat.Interval <= 0 {
		c.Services.Heartbeat.Interval = constants.DefaultHeartbeatInterval
	}
	if c.Services.Metrics.Interval <= 0 {
		c.Services.Metrics.Interval = constants.DefaultMetricsInterval
	}
	if c.Services.Metrics.Timeout <= 0 {
		c.Services.Metrics.Timeout = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.GPS.Device == "" {
		return errors.New("gps.device must be set")
	}
	if c.Power.Driver != constants.PowerDriverNone && c.Power.Driver != constants.PowerDriverGPIO {
		return fmt.Errorf("unknown power driver %q", c.Power.Driver)
	}
	if c.Console.Enabled && c.Console.Listen == "" {
		return errors.New("console.listen must be set when the console is enabled")
	}
	if c.Web.Enabled && c.Web.Listen == "" {
		return errors.New("web.listen must be set when the web API is enabled")
	}
	if c.Storage.Enabled && len(c.Storage.Sinks) == 0 {
		return errors.New("storage.sinks must name at least one sink when storage is enabled")
	}

	if c.MQTTRequired() {
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.broker must be set when an MQTT service is enabled")
		}
		if c.Identity.DeviceFile == "" {
			return errors.New("identity.device_file must be set when an MQTT service is enabled")
		}
	}

	type topiced struct {
		name    string
		enabled bool
		topic   string
	}
	for _, s := range []topiced{
		{"position", c.Services.Position.Enabled, c.Services.Position.Topic},
		{"heartbeat", c.Services.Heartbeat.Enabled, c.Services.Heartbeat.Topic},
		{"metrics", c.Services.Metrics.Enabled, c.Services.Metrics.Topic},
		{"command", c.Services.Command.Enabled, c.Services.Command.Topic},
		{"update", c.Services.Update.Enabled, c.Services.Update.Topic},
	} {
		if s.enabled && s.topic == "" {
			return fmt.Errorf("services.%s.topic must be set when the service is enabled", s.name)
		}
	}

	if c.Services.Metrics.Enabled && c.Services.Metrics.ConfigFile == "" {
		return errors.New("services.metrics.config_file must be set when metrics are enabled")
	}
	if c.Services.Update.Enabled && c.Security.SigningKeyFile == "" {
		return errors.New("security.signing_key_file must be set when updates are enabled")
	}
	if c.Services.Position.Enabled && c.Services.Position.FallbackGeolocation && c.Services.Position.MapsAPIKey == "" {
		return errors.New("services.position.maps_api_key must be set when fallback geolocation is enabled")
	}
	return nil
}

// MQTTRequired reports whether any enabled service needs the broker
// connection.
func (c *Config) MQTTRequired() bool {
	return c.Services.Position.Enabled ||
		c.Services.Heartbeat.Enabled ||
		c.Services.Metrics.Enabled ||
		c.Services.Command.Enabled ||
		c.Services.Update.Enabled
}
