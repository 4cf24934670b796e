package storage

import (
	"database/sql"
	"errors"
	"fmt"

	// PostgreSQL driver registration.
	_ "github.com/lib/pq"
)

// PostgresStore persists track points into a PostgreSQL table. The table
// is expected to exist with the columns device_id, recorded_at, latitude,
// longitude, speed_kt, course_deg, source and payload.
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

// Init connects using the sink parameters: host, port, user, password,
// database, table and sslmode.
func (s *PostgresStore) Init(params map[string]string) error {
	user := params["user"]
	database := params["database"]
	if user == "" || database == "" {
		return errors.New("postgresql sink requires user and database parameters")
	}
	s.table = paramOr(params, "table", "track_points")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		paramOr(params, "host", "127.0.0.1"),
		paramOr(params, "port", "5432"),
		user,
		params["password"],
		database,
		paramOr(params, "sslmode", "disable"))

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgresql connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to reach postgresql: %w", err)
	}
	s.db = db
	return nil
}

func (s *PostgresStore) Save(rec Record) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(device_id, recorded_at, latitude, longitude, speed_kt, course_deg, source, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)

	_, err := s.db.Exec(query,
		rec.Point.DeviceID,
		rec.Point.Timestamp,
		rec.Point.Latitude,
		rec.Point.Longitude,
		rec.Point.SpeedKt,
		rec.Point.CourseDeg,
		rec.Point.Source,
		rec.Payload)
	if err != nil {
		return fmt.Errorf("postgresql insert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
