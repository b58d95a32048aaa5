// Package lighting provides light directions for the terrain preview.
package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SunDirection converts an azimuth (degrees around +Y, 0 facing +Z) and an
// elevation (degrees above the horizon) to a unit vector pointing towards the
// sun. Elevation is clamped to [-90, 90].
func SunDirection(azimuth, elevation float32) mgl32.Vec3 {
	az := float64(mgl32.DegToRad(azimuth))
	el := float64(mgl32.DegToRad(mgl32.Clamp(elevation, -90, 90)))

	return mgl32.Vec3{
		float32(math.Cos(el) * math.Sin(az)),
		float32(math.Sin(el)),
		float32(math.Cos(el) * math.Cos(az)),
	}
}
