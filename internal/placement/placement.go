package placement

import (
	"github.com/UnknownOlympus/sightspotter/internal/geo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// depthScale maps meters on the ground to scene units along the viewing axis.
	depthScale = 50
	// tiltScale flattens the downward tilt as sights get farther away.
	tiltScale = 600
	// baseTilt is the downward tilt, in radians, of a sight at the user's position.
	baseTilt = -0.2
)

var (
	horizontalAxis = r3.Vec{X: 1}
	verticalAxis   = r3.Vec{Y: 1}
)

// VerticalTilt returns the vertical rotation in radians for a sight at distance meters.
// It is not bounded: the tilt keeps growing with distance.
func VerticalTilt(distance float32) float64 {
	return float64(baseTilt + distance/tiltScale)
}

// DepthTranslation returns the translation that pushes an anchor into the screen.
func DepthTranslation(distance float32) Transform {
	t := Identity()
	t[2*size+3] = float64(-(distance / depthScale))

	return t
}

// Compute returns the transform placing an anchor for a sight at the given distance
// (meters) and azimuth (degrees), as seen by a user facing userHeading (degrees) with
// the given camera pose. It is a pure function of its inputs.
func Compute(distance float32, azimuth, userHeading float64, camera Transform) Transform {
	angle := geo.DegToRad(azimuth - userHeading)

	horizontal := Rotation(angle, horizontalAxis)
	vertical := Rotation(VerticalTilt(distance), verticalAxis)
	rotation := horizontal.Mul(vertical)

	world := camera.Mul(rotation)

	return world.Mul(DepthTranslation(distance))
}
