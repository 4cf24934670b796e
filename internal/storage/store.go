// Package storage persists published track points into one or more
// configured sinks. Relational sinks store columns, broker and key-value
// sinks carry the encoded payload produced by the repository codec.
package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"gpsbridge/internal/models"
)

var (
	// ErrNoSinks is returned when storage is enabled without any sink.
	ErrNoSinks = errors.New("storage: no sinks configured")
	// ErrUnknownSink is returned for a sink type the agent does not know.
	ErrUnknownSink = errors.New("storage: unknown sink type")
)

// Record pairs a track point with its encoded payload so each sink can
// use whichever representation suits it.
type Record struct {
	Point   models.Position
	Payload []byte
}

// Saver persists one record.
type Saver interface {
	Save(rec Record) error
}

// Connector manages a sink's connection lifecycle.
type Connector interface {
	Init(params map[string]string) error
	Close() error
}

// Store is a fully functional sink.
type Store interface {
	Connector
	Saver
}

// Repository encodes track points once and fans them out to every
// configured sink.
type Repository struct {
	codec  Codec
	sinks  []Store
	names  []string
	logger zerolog.Logger
}

// NewRepository creates a repository using the named encoding.
func NewRepository(encoding string, logger zerolog.Logger) (*Repository, error) {
	codec, err := NewCodec(encoding)
	if err != nil {
		return nil, err
	}
	return &Repository{codec: codec, logger: logger}, nil
}

// LoadSinks instantiates and initializes each configured sink. Sinks are
// brought up in name order so startup logs are deterministic.
func (r *Repository) LoadSinks(sinks map[string]map[string]string) error {
	names := make([]string, 0, len(sinks))
	for name := range sinks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		store, err := r.newStore(name)
		if err != nil {
			return err
		}
		if err := store.Init(sinks[name]); err != nil {
			return fmt.Errorf("failed to init %s sink: %w", name, err)
		}
		r.sinks = append(r.sinks, store)
		r.names = append(r.names, name)
		r.logger.Info().Str("sink", name).Str("encoding", r.codec.Name()).Msg("Track sink initialized")
	}
	if len(r.sinks) == 0 {
		return ErrNoSinks
	}
	return nil
}

// AddSink registers an already initialized sink alongside the built-in
// ones. Embedders use it to plug custom backends.
func (r *Repository) AddSink(name string, sink Store) {
	r.sinks = append(r.sinks, sink)
	r.names = append(r.names, name)
}

func (r *Repository) newStore(name string) (Store, error) {
	switch name {
	case "postgresql":
		return NewPostgresStore(), nil
	case "mysql":
		return NewMysqlStore(), nil
	case "redis":
		return NewRedisStore(), nil
	case "nats":
		return NewNatsStore(), nil
	case "rabbitmq":
		return NewRabbitStore(r.codec.ContentType()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
	}
}

// Save encodes the point once and hands it to every sink. A failing sink
// is logged and does not stop the others; the first error is returned.
func (r *Repository) Save(p models.Position) error {
	payload, err := r.codec.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode track point: %w", err)
	}
	rec := Record{Point: p, Payload: payload}

	var firstErr error
	for i, sink := range r.sinks {
		if err := sink.Save(rec); err != nil {
			r.logger.Error().Err(err).Str("sink", r.names[i]).Msg("Failed to save track point")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SinkNames returns the names of the initialized sinks.
func (r *Repository) SinkNames() []string {
	return append([]string(nil), r.names...)
}

// Close closes every sink.
func (r *Repository) Close() error {
	var errs []error
	for i, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			r.logger.Error().Err(err).Str("sink", r.names[i]).Msg("Failed to close sink")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// paramOr reads a sink parameter with a fallback default.
func paramOr(params map[string]string, key, def string) string {
	if v, ok := params[key]; ok && v != "" {
		return v
	}
	return def
}
