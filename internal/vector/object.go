package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGeometry is returned for geometries without coordinates.
	ErrEmptyGeometry = errors.New("geometry has no coordinates")

	// ErrNestedMulti is returned when a MultiGeometry is placed inside another.
	ErrNestedMulti = errors.New("multi geometry cannot contain multi geometry")
)

// Kind discriminates the closed set of geometry variants.
type Kind int

// Geometry kinds.
const (
	KindPoint Kind = iota
	KindLineString
	KindLinearRing
	KindPolygon
	KindMultiGeometry
)

var kindNames = [...]string{
	KindPoint:         "Point",
	KindLineString:    "LineString",
	KindLinearRing:    "LinearRing",
	KindPolygon:       "Polygon",
	KindMultiGeometry: "MultiGeometry",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a geometry kind by its name.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// AltitudeMode tells consumers how to interpret coordinate altitudes.
type AltitudeMode string

// Altitude modes, spelled as in KML.
const (
	ClampToGround    AltitudeMode = "clampToGround"
	RelativeToGround AltitudeMode = "relativeToGround"
	Absolute         AltitudeMode = "absolute"
)

// ParseAltitudeMode accepts the KML spellings, including the gx: variants.
func ParseAltitudeMode(s string) (AltitudeMode, bool) {
	switch s {
	case "clampToGround", "clampToSeaFloor":
		return ClampToGround, true
	case "relativeToGround", "relativeToSeaFloor":
		return RelativeToGround, true
	case "absolute":
		return Absolute, true
	}
	return ClampToGround, false
}

// ZoomRange is the visibility range of an object.
type ZoomRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether zoom lies within the range.
func (z ZoomRange) Contains(zoom int) bool {
	return zoom >= z.Min && zoom <= z.Max
}

// Meta holds the attributes common to every geometry kind.
type Meta struct {
	Visibility   *ZoomRange
	Name         string
	Description  string
	Class        string
	Time         string
	AltitudeMode AltitudeMode
	Fields       Fields
	Coords       []int64
	Ref          int64
}

// Object is implemented only by the geometry types of this package.
type Object interface {
	Kind() Kind
	Base() *Meta
	sealed()
}

// Point is a single coordinate.
type Point struct {
	Meta
}

// LineString is an open sequence of coordinates.
type LineString struct {
	Meta
}

// LinearRing is a closed line; the closing coordinate may be implicit.
type LinearRing struct {
	Meta
}

// InnerBoundary is a hole of a polygon.
type InnerBoundary struct {
	Coords []int64
}

// Polygon is an outer ring in Meta.Coords plus optional holes.
type Polygon struct {
	Inner []InnerBoundary
	Meta
}

// MultiGeometry groups non-multi geometries.
type MultiGeometry struct {
	Parts []Object
	Meta
}

func (*Point) Kind() Kind         { return KindPoint }
func (*LineString) Kind() Kind    { return KindLineString }
func (*LinearRing) Kind() Kind    { return KindLinearRing }
func (*Polygon) Kind() Kind       { return KindPolygon }
func (*MultiGeometry) Kind() Kind { return KindMultiGeometry }

func (o *Point) Base() *Meta         { return &o.Meta }
func (o *LineString) Base() *Meta    { return &o.Meta }
func (o *LinearRing) Base() *Meta    { return &o.Meta }
func (o *Polygon) Base() *Meta       { return &o.Meta }
func (o *MultiGeometry) Base() *Meta { return &o.Meta }

func (*Point) sealed()         {}
func (*LineString) sealed()    {}
func (*LinearRing) sealed()    {}
func (*Polygon) sealed()       {}
func (*MultiGeometry) sealed() {}

// NewPoint creates a point on node id.
func NewPoint(id int64) *Point {
	return &Point{Meta: Meta{Coords: []int64{id}}}
}

// NewLineString creates a line from node ids.
func NewLineString(coords []int64) (*LineString, error) {
	if len(coords) == 0 {
		return nil, ErrEmptyGeometry
	}
	return &LineString{Meta: Meta{Coords: coords}}, nil
}

// NewLinearRing creates a ring from node ids.
func NewLinearRing(coords []int64) (*LinearRing, error) {
	if len(coords) == 0 {
		return nil, ErrEmptyGeometry
	}
	return &LinearRing{Meta: Meta{Coords: coords}}, nil
}

// NewPolygon creates a polygon from an outer ring and optional holes.
// Empty holes are dropped.
func NewPolygon(outer []int64, inner ...[]int64) (*Polygon, error) {
	if len(outer) == 0 {
		return nil, ErrEmptyGeometry
	}
	p := &Polygon{Meta: Meta{Coords: outer}}
	for _, ring := range inner {
		if len(ring) > 0 {
			p.Inner = append(p.Inner, InnerBoundary{Coords: ring})
		}
	}
	return p, nil
}

// NewMultiGeometry creates a multi geometry from parts.
func NewMultiGeometry(parts ...Object) (*MultiGeometry, error) {
	m := &MultiGeometry{}
	for _, p := range parts {
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	if len(m.Parts) == 0 {
		return nil, ErrEmptyGeometry
	}
	return m, nil
}

// Add appends a part, refusing nested multi geometries.
func (m *MultiGeometry) Add(o Object) error {
	if o.Kind() == KindMultiGeometry {
		return ErrNestedMulti
	}
	m.Parts = append(m.Parts, o)
	return nil
}

// AsPolygon converts a line or ring into a polygon keeping its metadata.
// Polygons are returned as is.
func AsPolygon(o Object) (*Polygon, error) {
	switch g := o.(type) {
	case *Polygon:
		return g, nil
	case *LineString:
		return &Polygon{Meta: g.Meta}, nil
	case *LinearRing:
		return &Polygon{Meta: g.Meta}, nil
	case *Point, *MultiGeometry:
		return nil, fmt.Errorf("cannot convert %s to polygon", o.Kind())
	}
	return nil, fmt.Errorf("unknown geometry %T", o)
}

// Validate checks that every coordinate list is non-empty and resolvable.
func Validate(o Object, nodes *NodeMap) error {
	switch g := o.(type) {
	case *MultiGeometry:
		if len(g.Parts) == 0 {
			return ErrEmptyGeometry
		}
		for i, p := range g.Parts {
			if p.Kind() == KindMultiGeometry {
				return ErrNestedMulti
			}
			if err := Validate(p, nodes); err != nil {
				return fmt.Errorf("part %d: %w", i, err)
			}
		}
		return nil
	case *Polygon:
		if err := validateCoords(g.Coords, nodes); err != nil {
			return err
		}
		for i, ring := range g.Inner {
			if err := validateCoords(ring.Coords, nodes); err != nil {
				return fmt.Errorf("inner boundary %d: %w", i, err)
			}
		}
		return nil
	case *Point, *LineString, *LinearRing:
		return validateCoords(o.Base().Coords, nodes)
	}
	return fmt.Errorf("unknown geometry %T", o)
}

func validateCoords(ids []int64, nodes *NodeMap) error {
	if len(ids) == 0 {
		return ErrEmptyGeometry
	}
	if nodes == nil {
		return nil
	}
	for _, id := range ids {
		if !nodes.Has(id) {
			return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
		}
	}
	return nil
}

// IsClosed reports whether the sequence starts and ends on the same node.
func IsClosed(ids []int64) bool {
	return len(ids) > 1 && ids[0] == ids[len(ids)-1]
}

// Closed returns ids with the first node repeated at the end if missing.
func Closed(ids []int64) []int64 {
	if len(ids) == 0 || IsClosed(ids) {
		return ids
	}
	out := make([]int64, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, ids[0])
}

// EachCoord calls fn for every node id used by o, holes and parts included.
func EachCoord(o Object, fn func(id int64)) {
	switch g := o.(type) {
	case *MultiGeometry:
		for _, p := range g.Parts {
			EachCoord(p, fn)
		}
		return
	case *Polygon:
		for _, id := range g.Coords {
			fn(id)
		}
		for _, ring := range g.Inner {
			for _, id := range ring.Coords {
				fn(id)
			}
		}
		return
	case *Point, *LineString, *LinearRing:
		for _, id := range o.Base().Coords {
			fn(id)
		}
	}
}
