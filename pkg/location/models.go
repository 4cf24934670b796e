package location

// Location is a geographic point with an accuracy radius in metres.
type Location struct {
	Latitude  float64
	Longitude float64
	AccuracyM float64
}
