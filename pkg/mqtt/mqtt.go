// Package mqtt wraps the paho MQTT client behind a small interface so
// that services can publish and subscribe without knowing connection
// details, and tests can substitute a mock.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTClient abstracts the subset of the paho client used by services.
type MQTTClient interface {
	Connect() MQTT.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
	Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token
	Unsubscribe(topics ...string) MQTT.Token
}

// Config holds the broker connection settings.
type Config struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	CACertificate string
}

// MqttService implements MQTTClient on top of a real broker connection.
type MqttService struct {
	client MQTT.Client
	logger zerolog.Logger
}

// NewMqttService creates an uninitialized MqttService.
func NewMqttService(logger zerolog.Logger) *MqttService {
	return &MqttService{logger: logger}
}

// Initialize configures the client and connects to the broker. TLS is
// enabled when a CA certificate path is configured.
func (s *MqttService) Initialize(cfg Config) error {
	opts := MQTT.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetKeepAlive(30 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	if cfg.CACertificate != "" {
		tlsConfig, err := loadTLSConfig(cfg.CACertificate)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to load CA certificate")
			return err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	s.client = MQTT.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	s.logger.Info().Str("broker", cfg.Broker).Str("client_id", cfg.ClientID).Msg("Connected to MQTT broker")
	return nil
}

func (s *MqttService) Connect() MQTT.Token {
	return s.client.Connect()
}

func (s *MqttService) Disconnect(quiesce uint) {
	s.client.Disconnect(quiesce)
}

func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

func (s *MqttService) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token {
	return s.client.Subscribe(topic, qos, callback)
}

func (s *MqttService) Unsubscribe(topics ...string) MQTT.Token {
	return s.client.Unsubscribe(topics...)
}

// loadTLSConfig builds a TLS config that trusts the given CA certificate.
func loadTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate %s: %w", caCertPath, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate %s", caCertPath)
	}
	return &tls.Config{RootCAs: pool}, nil
}
