// Package location supplies device positions from sources other than the
// receiver, used as a fallback while the receiver has no fix.
package location

import "context"

// Provider resolves the device location from some source.
type Provider interface {
	GetLocation(ctx context.Context) (Location, error)
	Close() error
}
