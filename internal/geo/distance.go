package geo

import (
	"github.com/UnknownOlympus/sightspotter/internal/models"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Distance returns the great-circle distance in meters between two points,
// using the WGS84 equatorial radius.
func Distance(from, to models.GeoPoint) float64 {
	return orbgeo.DistanceHaversine(toPoint(from), toPoint(to))
}

// toPoint converts a GeoPoint into orb's [lon, lat] ordering.
func toPoint(p models.GeoPoint) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}
