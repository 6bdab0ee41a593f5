// Package classes holds the internal object class taxonomy and the static
// lookup tables mapping it to the native vocabulary of each format.
// Unmapped values never fail: they fall back to the unspecified class of the
// geometry kind.
package classes

import (
	"github.com/woozymasta/geoxchange/internal/vector"
)

// Fallback classes.
const (
	UnspecifiedPoint   = "Unspecified Point"
	UnspecifiedLine    = "Unspecified Line"
	UnspecifiedPolygon = "Unspecified Polygon"
)

// Classes assigned by importers.
const (
	Coastline   = "Coastline"
	SmallIsland = "Small Island"
	Island      = "Island"
	Building    = "Building"
	Lake        = "Lake"
	River       = "River"
	Stream      = "Stream"
	Forest      = "Forest"
	Park        = "Park"
	Beach       = "Beach"
	Wetland     = "Wetland"
	Residential = "Residential Area"
	Commercial  = "Commercial Area"
	Industrial  = "Industrial Area"
	Farmland    = "Farmland"
	Cemetery    = "Cemetery"
	Grass       = "Grass"

	Motorway        = "Motorway"
	Trunk           = "Trunk Road"
	PrimaryRoad     = "Primary Road"
	SecondaryRoad   = "Secondary Road"
	TertiaryRoad    = "Tertiary Road"
	ResidentialRoad = "Residential Road"
	ServiceRoad     = "Service Road"
	UnclassRoad     = "Unclassified Road"
	Track           = "Track"
	Footpath        = "Footpath"
	Cycleway        = "Cycleway"
	Railway         = "Railway"
	Boundary        = "Political Boundary"
	PowerLine       = "Power Line"
	Fence           = "Fence"
	Route           = "Route"

	Restaurant  = "Restaurant"
	Cafe        = "Cafe"
	Bar         = "Bar"
	FastFood    = "Fast Food"
	Hotel       = "Hotel"
	Campground  = "Campground"
	Fuel        = "Gas Station"
	Parking     = "Parking"
	Hospital    = "Hospital"
	Pharmacy    = "Pharmacy"
	School      = "School"
	Bank        = "Bank"
	PostOffice  = "Post Office"
	Police      = "Police"
	Church      = "Place of Worship"
	Toilets     = "Toilets"
	Supermarket = "Supermarket"
	Shop        = "Shop"
	Museum      = "Museum"
	Viewpoint   = "Scenic Area"
	Peak        = "Summit"
	City        = "City"
	Town        = "Town"
	Village     = "Village"
	Waypoint    = "Waypoint"
	Trail       = "Trail"
	Airport     = "Airport"
	BusStop     = "Bus Stop"
)

// Unspecified returns the fallback class for a geometry kind.
func Unspecified(kind vector.Kind) string {
	switch kind {
	case vector.KindPoint:
		return UnspecifiedPoint
	case vector.KindLineString, vector.KindLinearRing:
		return UnspecifiedLine
	case vector.KindPolygon, vector.KindMultiGeometry:
		return UnspecifiedPolygon
	}
	return UnspecifiedPoint
}

// IsUnspecified reports whether class is empty or one of the fallbacks.
func IsUnspecified(class string) bool {
	switch class {
	case "", UnspecifiedPoint, UnspecifiedLine, UnspecifiedPolygon:
		return true
	}
	return false
}

// OrDefault returns class, or the fallback for kind when class is empty.
func OrDefault(class string, kind vector.Kind) string {
	if class == "" {
		return Unspecified(kind)
	}
	return class
}
