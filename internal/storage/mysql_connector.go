package storage

import (
	"database/sql"
	"errors"
	"fmt"

	// MySQL driver registration.
	_ "github.com/go-sql-driver/mysql"
)

// MysqlStore persists track points into a MySQL table with the same
// column layout as the PostgreSQL sink.
type MysqlStore struct {
	db    *sql.DB
	table string
}

func NewMysqlStore() *MysqlStore {
	return &MysqlStore{}
}

// Init connects using the sink parameters: host, port, user, password,
// database and table.
func (s *MysqlStore) Init(params map[string]string) error {
	user := params["user"]
	database := params["database"]
	if user == "" || database == "" {
		return errors.New("mysql sink requires user and database parameters")
	}
	s.table = paramOr(params, "table", "track_points")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		user,
		params["password"],
		paramOr(params, "host", "127.0.0.1"),
		paramOr(params, "port", "3306"),
		database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to reach mysql: %w", err)
	}
	s.db = db
	return nil
}

func (s *MysqlStore) Save(rec Record) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(device_id, recorded_at, latitude, longitude, speed_kt, course_deg, source, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

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
		return fmt.Errorf("mysql insert failed: %w", err)
	}
	return nil
}

func (s *MysqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
