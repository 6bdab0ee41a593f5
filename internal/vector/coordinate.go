// Package vector holds the in-memory vector data model: coordinates interned
// in a NodeMap, the closed set of geometry kinds built on top of it, and the
// layers and maps that group them.
package vector

import (
	"strconv"
	"strings"
)

// Coordinate is a 3-D point with an optional timestamp and a stable identity
// inside its NodeMap.
type Coordinate struct {
	Time   string  `json:"time,omitempty" yaml:"time,omitempty"`
	ID     int64   `json:"id" yaml:"id"`
	Lat    float64 `json:"lat" yaml:"lat"`
	Lon    float64 `json:"lon" yaml:"lon"`
	Alt    float64 `json:"alt,omitempty" yaml:"alt,omitempty"`
	Shared bool    `json:"shared,omitempty" yaml:"shared,omitempty"`
}

// NewCoordinate returns an unassigned coordinate.
func NewCoordinate(lat, lon, alt float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon, Alt: alt}
}

// SameLocation reports whether both coordinates sit on the same lat/lon.
func (c Coordinate) SameLocation(o Coordinate) bool {
	return c.Lat == o.Lat && c.Lon == o.Lon
}

// String formats the coordinate as a "lon,lat,alt" group.
func (c Coordinate) String() string {
	var sb strings.Builder
	sb.WriteString(FormatFloat(c.Lon))
	sb.WriteByte(',')
	sb.WriteString(FormatFloat(c.Lat))
	sb.WriteByte(',')
	sb.WriteString(FormatFloat(c.Alt))
	return sb.String()
}

// FormatFloat renders a float with the shortest exact representation.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type locationKey struct {
	lat, lon float64
}

func keyOf(lat, lon float64) locationKey {
	// -0 and +0 must intern to the same entry
	if lat == 0 {
		lat = 0
	}
	if lon == 0 {
		lon = 0
	}
	return locationKey{lat: lat, lon: lon}
}
