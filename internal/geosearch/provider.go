package geosearch

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/UnknownOlympus/sightspotter/internal/models"
)

// Provider is an interface that defines a method for finding sights around a location.
// NearbySights takes a context and the user's position, and returns the points of
// interest the provider knows about nearby, or an error if the lookup fails.
type Provider interface {
	NearbySights(ctx context.Context, location models.GeoPoint) ([]models.SightRecord, error)
}

// ErrInvalidLocation is returned when the search origin is not a valid coordinate.
var ErrInvalidLocation = errors.New("invalid search location")

func validateLocation(location models.GeoPoint) error {
	const maxLat, maxLon = 90, 180

	if math.IsNaN(location.Latitude) || math.IsNaN(location.Longitude) ||
		location.Latitude < -maxLat || location.Latitude > maxLat ||
		location.Longitude < -maxLon || location.Longitude > maxLon {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidLocation, location.Latitude, location.Longitude)
	}

	return nil
}
