package models

import "time"

// Position is a single published position of the device. Fields that a
// receiver does not always report are pointers so that they are omitted
// from the payload instead of being published as zero values.
type Position struct {
	DeviceID   string    `json:"device_id" msgpack:"device_id"`
	Timestamp  time.Time `json:"timestamp" msgpack:"timestamp"`
	Latitude   float64   `json:"latitude" msgpack:"latitude"`
	Longitude  float64   `json:"longitude" msgpack:"longitude"`
	AltitudeM  *float64  `json:"altitude_m,omitempty" msgpack:"altitude_m,omitempty"`
	SpeedKt    *float64  `json:"speed_kt,omitempty" msgpack:"speed_kt,omitempty"`
	CourseDeg  *float64  `json:"course_deg,omitempty" msgpack:"course_deg,omitempty"`
	Satellites *int64    `json:"satellites,omitempty" msgpack:"satellites,omitempty"`
	HDOP       *float64  `json:"hdop,omitempty" msgpack:"hdop,omitempty"`
	// AccuracyM is only set for network-derived positions.
	AccuracyM *float64 `json:"accuracy_m,omitempty" msgpack:"accuracy_m,omitempty"`
	// Source is "gps" for receiver fixes and "geolocation" for the
	// network fallback.
	Source string `json:"source" msgpack:"source"`
}
