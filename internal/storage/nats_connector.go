package storage

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// NatsStore publishes encoded track points on a per-device subject.
type NatsStore struct {
	conn    *nats.Conn
	subject string
}

func NewNatsStore() *NatsStore {
	return &NatsStore{}
}

// Init connects using the sink parameters: url, subject, username and
// password.
func (s *NatsStore) Init(params map[string]string) error {
	s.subject = paramOr(params, "subject", "gpsbridge.track")

	opts := []nats.Option{nats.Name("gpsbridge")}
	if user := params["username"]; user != "" {
		opts = append(opts, nats.UserInfo(user, params["password"]))
	}

	conn, err := nats.Connect(paramOr(params, "url", nats.DefaultURL), opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *NatsStore) Save(rec Record) error {
	subject := fmt.Sprintf("%s.%s", s.subject, rec.Point.DeviceID)
	if err := s.conn.Publish(subject, rec.Payload); err != nil {
		return fmt.Errorf("nats publish failed: %w", err)
	}
	return nil
}

func (s *NatsStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
