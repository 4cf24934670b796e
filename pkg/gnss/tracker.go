// Package gnss parses NMEA 0183 sentences from the receiver and keeps
// the most recent fix. The original bridge forwarded sentences without
// interpreting them; the tracker adds interpretation on top so that the
// agent can publish positions and report fix health.
package gnss

import (
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
)

// Stats counts how sentences were handled by the tracker.
type Stats struct {
	Sentences   uint64 `json:"sentences"`
	Applied     uint64 `json:"applied"`
	Skipped     uint64 `json:"skipped"`
	ParseErrors uint64 `json:"parse_errors"`
}

// Snapshot is an immutable copy of the tracker state. Valid is only true
// while the fix is fresh; Stale flips once no positioning sentence has
// arrived within the configured window.
type Snapshot struct {
	Valid      bool      `json:"valid"`
	Stale      bool      `json:"stale"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AltitudeM  *float64  `json:"altitude_m,omitempty"`
	SpeedKt    *float64  `json:"speed_kt,omitempty"`
	CourseDeg  *float64  `json:"course_deg,omitempty"`
	Satellites *int64    `json:"satellites,omitempty"`
	HDOP       *float64  `json:"hdop,omitempty"`
	PDOP       *float64  `json:"pdop,omitempty"`
	VDOP       *float64  `json:"vdop,omitempty"`
	FixQuality string    `json:"fix_quality,omitempty"`
	FixType    string    `json:"fix_type,omitempty"`
	LastFixAt  time.Time `json:"last_fix_at"`
	LastError  string    `json:"last_error,omitempty"`
	Stats      Stats     `json:"stats"`
}

// Tracker accumulates fix state from RMC, GGA, GSA and VTG sentences.
// All methods are safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	staleAfter time.Duration

	valid      bool
	lat        float64
	lon        float64
	altitude   *float64
	speedKt    *float64
	courseDeg  *float64
	satellites *int64
	hdop       *float64
	pdop       *float64
	vdop       *float64
	fixQuality string
	fixType    string
	lastFixAt  time.Time
	lastError  string
	stats      Stats
}

// NewTracker creates a Tracker whose fix goes stale after staleAfter
// without a positioning sentence. Values <= 0 fall back to 10 seconds.
func NewTracker(staleAfter time.Duration) *Tracker {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Second
	}
	return &Tracker{staleAfter: staleAfter}
}

// Update parses one sentence and folds it into the fix state. A parse
// failure is counted and returned but leaves the current fix untouched.
func (t *Tracker) Update(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	s, err := nmea.Parse(line)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Sentences++
	if err != nil {
		t.stats.ParseErrors++
		t.lastError = err.Error()
		return err
	}

	switch m := s.(type) {
	case nmea.RMC:
		t.applyRMC(m)
	case nmea.GGA:
		t.applyGGA(m)
	case nmea.GSA:
		t.applyGSA(m)
	case nmea.VTG:
		t.applyVTG(m)
	default:
		t.stats.Skipped++
		return nil
	}
	t.stats.Applied++
	return nil
}

func (t *Tracker) applyRMC(m nmea.RMC) {
	if m.Validity != nmea.ValidRMC {
		t.valid = false
		return
	}
	t.valid = true
	t.lat = m.Latitude
	t.lon = m.Longitude
	speed := m.Speed
	course := m.Course
	t.speedKt = &speed
	t.courseDeg = &course
	t.lastFixAt = time.Now()
}

func (t *Tracker) applyGGA(m nmea.GGA) {
	t.fixQuality = m.FixQuality
	sats := m.NumSatellites
	t.satellites = &sats
	hdop := m.HDOP
	t.hdop = &hdop
	if m.FixQuality == nmea.Invalid {
		t.valid = false
		return
	}
	t.valid = true
	t.lat = m.Latitude
	t.lon = m.Longitude
	alt := m.Altitude
	t.altitude = &alt
	t.lastFixAt = time.Now()
}

func (t *Tracker) applyGSA(m nmea.GSA) {
	t.fixType = m.FixType
	pdop := m.PDOP
	vdop := m.VDOP
	t.pdop = &pdop
	t.vdop = &vdop
	if m.FixType == nmea.FixNone {
		t.valid = false
	}
}

func (t *Tracker) applyVTG(m nmea.VTG) {
	speed := m.GroundSpeedKnots
	course := m.TrueTrack
	t.speedKt = &speed
	t.courseDeg = &course
}

// Snapshot returns a copy of the current fix state with staleness
// evaluated against the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	stale := t.lastFixAt.IsZero() || time.Since(t.lastFixAt) > t.staleAfter
	return Snapshot{
		Valid:      t.valid && !stale,
		Stale:      stale,
		Latitude:   t.lat,
		Longitude:  t.lon,
		AltitudeM:  t.altitude,
		SpeedKt:    t.speedKt,
		CourseDeg:  t.courseDeg,
		Satellites: t.satellites,
		HDOP:       t.hdop,
		PDOP:       t.pdop,
		VDOP:       t.vdop,
		FixQuality: t.fixQuality,
		FixType:    t.fixType,
		LastFixAt:  t.lastFixAt,
		LastError:  t.lastError,
		Stats:      t.stats,
	}
}
