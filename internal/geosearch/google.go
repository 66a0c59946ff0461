package geosearch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/sightspotter/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for the Google Places API
// and a logger for logging purposes. It finds sights with a nearby search.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	radius int             // radius is the search radius in meters
	limit  int             // limit caps the number of returned sights
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
}

// NewGoogleProvider initializes a new GoogleProvider with the given client, search radius,
// result limit and logger. Non-positive radius or limit fall back to the package defaults.
func NewGoogleProvider(client GoogleAPIClient, radius, limit int, log *slog.Logger) *GoogleProvider {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &GoogleProvider{client: client, radius: radius, limit: limit, log: log}
}

// NearbySights runs a Places nearby search around location and maps every place to a sight.
// A search without results is not an error.
func (gp *GoogleProvider) NearbySights(ctx context.Context, location models.GeoPoint) ([]models.SightRecord, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}

	gp.log.DebugContext(ctx, "Searching sights using Google Places",
		"lat", location.Latitude, "lon", location.Longitude, "radius", gp.radius)

	req := maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: location.Latitude, Lng: location.Longitude},
		Radius:   uint(gp.radius),
	}
	resp, err := gp.client.NearbySearch(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby places: %w", err)
	}

	sights := make([]models.SightRecord, 0, len(resp.Results))
	for _, place := range resp.Results {
		if len(sights) == gp.limit {
			break
		}

		title := place.Name
		if title == "" {
			title = models.UnknownTitle
		}
		sights = append(sights, models.SightRecord{
			Title: title,
			Location: models.GeoPoint{
				Latitude:  place.Geometry.Location.Lat,
				Longitude: place.Geometry.Location.Lng,
			},
			Description: place.Vicinity,
		})
	}

	return sights, nil
}
