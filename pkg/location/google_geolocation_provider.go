package location

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider resolves the device location through the
// Google Geolocation API, feeding it whatever radio environment data is
// available on the host.
type GoogleGeolocationProvider struct {
	client     *maps.Client
	modemIndex int
}

// NewGoogleGeolocationProvider creates a provider using the given API
// key. modemIndex selects the ModemManager modem used for cell tower
// lookups.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int) (*GoogleGeolocationProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeolocationProvider{client: client, modemIndex: modemIndex}, nil
}

// GetLocation queries the Geolocation API. WiFi and cell data are
// collected best effort; when neither is available the API falls back to
// IP-based positioning.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (Location, error) {
	req := &maps.GeolocationRequest{ConsiderIP: true}

	if aps, err := getWiFiAccessPoints(ctx); err == nil {
		req.WiFiAccessPoints = aps
	}
	if towers, err := getCellTowers(ctx, g.modemIndex); err == nil {
		req.CellTowers = towers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	return Location{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		AccuracyM: resp.Accuracy,
	}, nil
}

func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
