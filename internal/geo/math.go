// Package geo handles map projections and view derivation from content bounds.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// MaxLat is the latitude limit of the square Web Mercator world,
// atan(sinh(pi)) in degrees.
var MaxLat = math.Atan(math.Sinh(math.Pi)) * 180 / math.Pi

// DefaultMaxZoom caps zoom levels derived from bounds.
const DefaultMaxZoom = 18

// ErrUnknownProjection is returned for projection names that are not supported.
var ErrUnknownProjection = errors.New("unknown projection")

// Projection names the map projection stored with a document.
type Projection string

// Supported projections.
const (
	Mercator        Projection = "mercator"
	Equirectangular Projection = "equirectangular"
)

// ParseProjection resolves a projection by name, accepting a few common aliases.
func ParseProjection(s string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mercator", "web mercator", "epsg:3857", "epsg:900913":
		return Mercator, nil
	case "equirectangular", "plate carree", "platecarree", "epsg:4326", "wgs84":
		return Equirectangular, nil
	}
	return Mercator, fmt.Errorf("%w: %q", ErrUnknownProjection, s)
}

// Project maps lon/lat to normalized world coordinates in [0..1],
// x growing east and y growing south.
func (p Projection) Project(lon, lat float64) (x, y float64) {
	x = (lon + 180.0) / 360.0

	if p == Equirectangular {
		return x, (90.0 - lat) / 180.0
	}

	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}
	latRad := lat * math.Pi / 180.0
	mercatorY := math.Log(math.Tan(math.Pi/4 + latRad/2))
	y = (math.Pi - mercatorY) / (2.0 * math.Pi)

	// rounding at the clamped latitude can step just outside the world
	y = math.Max(0, math.Min(1, y))
	return x, y
}

// Unproject maps normalized world coordinates back to lon/lat.
func (p Projection) Unproject(x, y float64) (lon, lat float64) {
	lon = x*360.0 - 180.0

	if p == Equirectangular {
		return lon, 90.0 - y*180.0
	}

	// y: [0..1] -> mercatorY: [PI..-PI]
	mercatorY := math.Pi - y*2.0*math.Pi

	// Inverse Mercator projection
	latRad := (2.0 * math.Atan(math.Exp(mercatorY))) - (math.Pi * 0.5)
	lat = latRad * (180.0 / math.Pi)

	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	return lon, lat
}

// ZoomForBound returns the deepest zoom level at which the whole bound fits
// in a single tile, capped at maxZoom.
func ZoomForBound(p Projection, b orb.Bound, maxZoom int) int {
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}

	x0, y0 := p.Project(b.Min.Lon(), b.Max.Lat())
	x1, y1 := p.Project(b.Max.Lon(), b.Min.Lat())

	span := math.Max(math.Abs(x1-x0), math.Abs(y1-y0))
	if span <= 0 {
		return maxZoom
	}

	zoom := int(math.Floor(math.Log2(1.0 / span)))
	if zoom < 0 {
		return 0
	}
	if zoom > maxZoom {
		return maxZoom
	}
	return zoom
}
