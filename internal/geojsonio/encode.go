package geojsonio

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// encoder resolves geometries and records the altitude of every emitted
// position in document order.
type encoder struct {
	nodes *vector.NodeMap
	alts  []float64
}

// Encode writes every layer of m into one FeatureCollection. With more than
// one layer each feature carries its layer name in the "layer" property.
// Geometries with any non-zero altitude are written with 3D positions.
func Encode(w io.Writer, m *vector.Map) error {
	fc := geojson.NewFeatureCollection()
	multiLayer := len(m.Layers) > 1
	var alts [][]float64

	for _, l := range m.Layers {
		for _, o := range l.Objects {
			e := &encoder{nodes: m.Nodes}
			g, ok := e.geometry(o)
			if !ok {
				log.Warn().
					Str("layer", l.Name).
					Str("object", o.Base().Name).
					Msg("Object without resolvable coordinates not exported")
				continue
			}

			f := geojson.NewFeature(g)
			meta := o.Base()
			if meta.Ref != 0 {
				f.ID = meta.Ref
			}
			properties(f.Properties, meta)
			if multiLayer {
				f.Properties[PropLayer] = l.Name
			}
			fc.Append(f)
			alts = append(alts, e.alts)
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode %s: %w", Format, err)
	}
	if data, err = patchAltitudes(data, alts); err != nil {
		return fmt.Errorf("encode %s: %w", Format, err)
	}
	if _, err := w.Write(pretty.Pretty(data)); err != nil {
		return fmt.Errorf("write %s: %w", Format, err)
	}
	return nil
}

func properties(p geojson.Properties, meta *vector.Meta) {
	for _, f := range meta.Fields {
		switch cur := p[f.Key].(type) {
		case nil:
			p[f.Key] = f.Value
		case string:
			p[f.Key] = []string{cur, f.Value}
		case []string:
			p[f.Key] = append(cur, f.Value)
		}
	}
	if meta.Name != "" {
		p[PropName] = meta.Name
	}
	if meta.Class != "" {
		p[PropClass] = meta.Class
	}
	if meta.Description != "" {
		p[PropDescription] = meta.Description
	}
	if meta.Time != "" {
		p[PropTime] = meta.Time
	}
}

func (e *encoder) geometry(o vector.Object) (orb.Geometry, bool) {
	switch g := o.(type) {
	case *vector.Point:
		if len(g.Coords) == 0 {
			return nil, false
		}
		pts := e.points(g.Coords[:1])
		if len(pts) == 0 {
			return nil, false
		}
		return pts[0], true
	case *vector.LineString:
		pts := e.points(g.Coords)
		return orb.LineString(pts), len(pts) > 0
	case *vector.LinearRing:
		pts := e.points(vector.Closed(g.Coords))
		return orb.LineString(pts), len(pts) > 0
	case *vector.Polygon:
		poly := e.polygon(g)
		return poly, poly != nil
	case *vector.MultiGeometry:
		return e.multi(g)
	}
	return nil, false
}

func (e *encoder) polygon(p *vector.Polygon) orb.Polygon {
	outer := e.points(vector.Closed(p.Coords))
	if len(outer) == 0 {
		return nil
	}
	poly := orb.Polygon{orb.Ring(outer)}
	for _, in := range p.Inner {
		if ring := e.points(vector.Closed(in.Coords)); len(ring) > 0 {
			poly = append(poly, orb.Ring(ring))
		}
	}
	return poly
}

// multi picks the homogeneous GeoJSON multi type when all parts share a
// kind and falls back to a GeometryCollection otherwise.
func (e *encoder) multi(m *vector.MultiGeometry) (orb.Geometry, bool) {
	var (
		mp   orb.MultiPoint
		mls  orb.MultiLineString
		mpo  orb.MultiPolygon
		coll orb.Collection
	)

	for _, part := range m.Parts {
		g, ok := e.geometry(part)
		if !ok {
			continue
		}
		coll = append(coll, g)
		switch v := g.(type) {
		case orb.Point:
			mp = append(mp, v)
		case orb.LineString:
			mls = append(mls, v)
		case orb.Polygon:
			mpo = append(mpo, v)
		}
	}

	switch len(coll) {
	case 0:
		return nil, false
	case len(mp):
		return mp, true
	case len(mls):
		return mls, true
	case len(mpo):
		return mpo, true
	}
	return coll, true
}

func (e *encoder) points(ids []int64) []orb.Point {
	coords, missing := e.nodes.Resolve(ids)
	if len(missing) > 0 {
		log.Warn().Int("missing", len(missing)).Msg("Unknown node ids skipped")
	}

	pts := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, orb.Point{c.Lon, c.Lat})
		e.alts = append(e.alts, c.Alt)
	}
	return pts
}

// patchAltitudes rewrites the geometry of every feature that has a non-zero
// altitude with 3D positions. alts holds one list per feature.
func patchAltitudes(data []byte, alts [][]float64) ([]byte, error) {
	for i := len(alts) - 1; i >= 0; i-- {
		if !hasAltitude(alts[i]) {
			continue
		}
		geom := gjson.GetBytes(data, "features."+strconv.Itoa(i)+".geometry")
		if !geom.Exists() || geom.Index == 0 {
			continue
		}

		patched, err := withAltitudes(geom.Raw, alts[i])
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(data)+len(patched)-len(geom.Raw))
		out = append(out, data[:geom.Index]...)
		out = append(out, patched...)
		out = append(out, data[geom.Index+len(geom.Raw):]...)
		data = out
	}
	return data, nil
}

func hasAltitude(alts []float64) bool {
	for _, a := range alts {
		if a != 0 {
			return true
		}
	}
	return false
}

// withAltitudes appends alts in order to the positions of a geometry.
func withAltitudes(raw string, alts []float64) ([]byte, error) {
	var geom any
	if err := json.Unmarshal([]byte(raw), &geom); err != nil {
		return nil, err
	}

	next := 0
	var walk func(v any) any
	walk = func(v any) any {
		switch t := v.(type) {
		case map[string]any:
			for _, key := range []string{"coordinates", "geometries"} {
				if c, ok := t[key]; ok {
					t[key] = walk(c)
				}
			}
		case []any:
			if len(t) >= 2 {
				if _, ok := t[0].(float64); ok {
					if next < len(alts) {
						t = append(t[:2], alts[next])
						next++
					}
					return t
				}
			}
			for i := range t {
				t[i] = walk(t[i])
			}
		}
		return v
	}

	return json.Marshal(walk(geom))
}
