package osmio

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/paulmach/osm"
	"github.com/rs/zerolog/log"
)

// Generator is written to the root element.
const Generator = "geoxchange"

type encoder struct {
	nodes    map[int64]*osm.Node
	out      *osm.OSM
	usedWays map[int64]bool
	usedRels map[int64]bool
	nextID   int64
}

// Encode writes every node of the map's NodeMap under its original id,
// followed by one way per line, ring and polygon ring. Polygons with holes
// and multi geometries are written as relations. Objects without OSM tags in
// their fields get the tag their class maps to.
func Encode(w io.Writer, m *vector.Map) error {
	e := &encoder{
		nodes:    make(map[int64]*osm.Node),
		out:      &osm.OSM{Version: "0.6", Generator: Generator},
		usedWays: make(map[int64]bool),
		usedRels: make(map[int64]bool),
	}

	for _, id := range m.Nodes.IDs() {
		c, _ := m.Nodes.Get(id)
		n := &osm.Node{
			ID:      osm.NodeID(id),
			Lat:     c.Lat,
			Lon:     c.Lon,
			Visible: true,
			Version: 1,
		}
		if c.Time != "" {
			if ts, err := time.Parse(time.RFC3339, c.Time); err == nil {
				n.Timestamp = ts
			}
		}
		if c.Alt != 0 {
			n.Tags = append(n.Tags, osm.Tag{Key: "ele", Value: vector.FormatFloat(c.Alt)})
		}
		e.nodes[id] = n
		e.out.Nodes = append(e.out.Nodes, n)
	}

	// objects keeping their source ids claim them first
	for _, l := range m.Layers {
		for _, o := range l.Objects {
			e.reserve(o)
		}
	}
	for _, l := range m.Layers {
		for _, o := range l.Objects {
			e.object(o)
		}
	}

	data, err := xml.MarshalIndent(e.out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", Format, err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write %s: %w", Format, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", Format, err)
	}
	return nil
}

// reserve marks the ref ids of ways and relations so minted ids avoid them.
func (e *encoder) reserve(o vector.Object) {
	ref := o.Base().Ref
	if ref <= 0 {
		return
	}
	switch g := o.(type) {
	case *vector.LineString, *vector.LinearRing:
		e.usedWays[ref] = true
	case *vector.Polygon:
		if len(g.Inner) > 0 || g.Fields.Value("type") == "multipolygon" {
			e.usedRels[ref] = true
		} else {
			e.usedWays[ref] = true
		}
	case *vector.MultiGeometry:
		e.usedRels[ref] = true
	}
}

// mint returns a fresh negative id, the convention for unsaved objects.
func (e *encoder) mint() int64 {
	e.nextID--
	return e.nextID
}

func (e *encoder) wayID(ref int64) int64 {
	if ref > 0 && e.usedWays[ref] {
		// the reservation is consumed by its first user
		delete(e.usedWays, ref)
		return ref
	}
	return e.mint()
}

func (e *encoder) relationID(ref int64) int64 {
	if ref > 0 && e.usedRels[ref] {
		delete(e.usedRels, ref)
		return ref
	}
	return e.mint()
}

func (e *encoder) object(o vector.Object) {
	meta := o.Base()

	switch g := o.(type) {
	case *vector.Point:
		e.point(g)
	case *vector.LineString:
		e.way(meta.Ref, meta.Coords, tags(meta, vector.KindLineString))
	case *vector.LinearRing:
		e.way(meta.Ref, vector.Closed(meta.Coords), tags(meta, vector.KindLinearRing))
	case *vector.Polygon:
		if len(g.Inner) == 0 && meta.Fields.Value("type") != "multipolygon" {
			e.way(meta.Ref, vector.Closed(g.Coords), tags(meta, vector.KindPolygon))
			return
		}
		members := e.polygonMembers(g)
		e.relation(meta.Ref, members, withType(tags(meta, vector.KindMultiGeometry), "multipolygon"))
	case *vector.MultiGeometry:
		e.multi(g)
	}
}

func (e *encoder) point(p *vector.Point) {
	if len(p.Coords) == 0 {
		return
	}
	n, ok := e.nodes[p.Coords[0]]
	if !ok {
		log.Warn().Str("object", p.Name).Int64("node", p.Coords[0]).Msg("Point on unknown node not exported")
		return
	}
	for _, t := range tags(&p.Meta, vector.KindPoint) {
		if n.Tags.Find(t.Key) == "" {
			n.Tags = append(n.Tags, t)
		}
	}
}

func (e *encoder) way(ref int64, ids []int64, tags osm.Tags) int64 {
	w := &osm.Way{
		ID:      osm.WayID(e.wayID(ref)),
		Visible: true,
		Version: 1,
		Tags:    tags,
	}
	for _, id := range ids {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: osm.NodeID(id)})
	}
	e.out.Ways = append(e.out.Ways, w)
	return int64(w.ID)
}

func (e *encoder) polygonMembers(p *vector.Polygon) osm.Members {
	outer := e.way(0, vector.Closed(p.Coords), nil)
	members := osm.Members{{Type: osm.TypeWay, Ref: outer, Role: "outer"}}
	for _, ring := range p.Inner {
		inner := e.way(0, vector.Closed(ring.Coords), nil)
		members = append(members, osm.Member{Type: osm.TypeWay, Ref: inner, Role: "inner"})
	}
	return members
}

// multi writes a multipolygon when every part is a polygon, a route when
// every part is a line and a collection otherwise.
func (e *encoder) multi(m *vector.MultiGeometry) {
	var (
		members  osm.Members
		polygons int
		lines    int
	)

	for _, part := range m.Parts {
		meta := part.Base()
		switch g := part.(type) {
		case *vector.Point:
			if len(g.Coords) > 0 {
				members = append(members, osm.Member{Type: osm.TypeNode, Ref: g.Coords[0]})
			}
		case *vector.LineString:
			lines++
			id := e.way(meta.Ref, g.Coords, partTags(meta, vector.KindLineString))
			members = append(members, osm.Member{Type: osm.TypeWay, Ref: id})
		case *vector.LinearRing:
			lines++
			id := e.way(meta.Ref, vector.Closed(g.Coords), partTags(meta, vector.KindLinearRing))
			members = append(members, osm.Member{Type: osm.TypeWay, Ref: id})
		case *vector.Polygon:
			polygons++
			members = append(members, e.polygonMembers(g)...)
		}
	}

	typ := m.Fields.Value("type")
	if typ == "" {
		switch len(m.Parts) {
		case polygons:
			typ = "multipolygon"
		case lines:
			typ = "route"
		default:
			typ = "collection"
		}
	}
	e.relation(m.Ref, members, withType(tags(&m.Meta, vector.KindMultiGeometry), typ))
}

func (e *encoder) relation(ref int64, members osm.Members, tags osm.Tags) {
	e.out.Relations = append(e.out.Relations, &osm.Relation{
		ID:      osm.RelationID(e.relationID(ref)),
		Visible: true,
		Version: 1,
		Members: members,
		Tags:    tags,
	})
}

// tags builds the tag list of an object from its name and fields, adding
// the class tag when no field carries it. Polygons written as a single way
// are marked as areas.
func tags(meta *vector.Meta, kind vector.Kind) osm.Tags {
	var out osm.Tags
	if meta.Name != "" {
		out = append(out, osm.Tag{Key: "name", Value: meta.Name})
	}
	for _, f := range meta.Fields {
		if f.Key == "type" || out.Find(f.Key) != "" {
			continue
		}
		out = append(out, osm.Tag{Key: f.Key, Value: f.Value})
	}

	if !classes.IsUnspecified(meta.Class) {
		if c, ok := classes.OSMClass(out); !ok || c != meta.Class {
			if t, ok := classes.OSMTag(meta.Class); ok && out.Find(t.Key) == "" {
				out = append(out, t)
			}
		}
	}
	// a closed way without area tags reads back as a ring
	if kind == vector.KindPolygon && !isArea(out) && out.Find("area") == "" {
		out = append(out, osm.Tag{Key: "area", Value: "yes"})
	}
	return out
}

// partTags keeps member ways of a relation untagged unless they carry tags
// of their own.
func partTags(meta *vector.Meta, kind vector.Kind) osm.Tags {
	if len(meta.Fields) == 0 && meta.Name == "" {
		return nil
	}
	return tags(meta, kind)
}

func withType(tags osm.Tags, typ string) osm.Tags {
	return append(osm.Tags{{Key: "type", Value: typ}}, tags...)
}
