// Package geojsonio reads and writes GeoJSON feature collections.
package geojsonio

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Format is the format name used in reports.
const Format = "geojson"

// DefaultLayer names the layer when the document carries no name.
const DefaultLayer = "GeoJSON"

// Properties with a dedicated meaning; everything else becomes a field.
const (
	PropName        = "name"
	PropClass       = "class"
	PropDescription = "description"
	PropTime        = "time"
	PropLayer       = "layer"
)

// ErrNoGeometry is returned for features whose geometry is null or missing.
var ErrNoGeometry = errors.New("feature has no geometry")

type decoder struct {
	nodes *vector.NodeMap
	rep   *report.Report
}

// Decode reads a FeatureCollection, a single Feature or a bare Geometry.
// Each feature is decoded on its own so one broken feature does not affect
// the others.
func Decode(r io.Reader, nodes *vector.NodeMap, rep *report.Report) (*vector.Layer, error) {
	l := vector.NewLayer(DefaultLayer)

	data, err := io.ReadAll(r)
	if err != nil {
		return l, rep.Fail(report.IO("read", "", err))
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return l, rep.Fail(report.Structure(Format, report.ErrMissingRoot))
	}
	if name := doc.Get(PropName).String(); name != "" {
		l.Name = name
	}

	d := &decoder{nodes: nodes, rep: rep}

	switch typ := doc.Get("type").String(); typ {
	case "FeatureCollection":
		features := doc.Get("features")
		if !features.IsArray() {
			return l, rep.Fail(report.Structure(Format, fmt.Errorf("features is not an array")))
		}

		tk := rep.Ticker("Reading features", int(features.Get("#").Int()), 0, 100)
		i := 0
		features.ForEach(func(_, f gjson.Result) bool {
			d.feature(l, f, i)
			i++
			tk.Tick()
			return true
		})
	case "Feature":
		d.feature(l, doc, 0)
	case "Point", "MultiPoint", "LineString", "MultiLineString",
		"Polygon", "MultiPolygon", "GeometryCollection":
		d.feature(l, gjson.Parse(`{"type":"Feature","geometry":`+doc.Raw+`}`), 0)
	default:
		return l, rep.Fail(report.Structure(Format, fmt.Errorf("unknown document type %q", typ)))
	}

	log.Debug().
		Str("layer", l.Name).
		Int("objects", l.Len()).
		Msg("GeoJSON document read")

	return l, nil
}

// feature decodes one feature; failures are recorded and the feature skipped.
func (d *decoder) feature(l *vector.Layer, raw gjson.Result, index int) {
	label := featureLabel(raw, index)

	f, err := geojson.UnmarshalFeature([]byte(raw.Raw))
	if err != nil {
		d.rep.Malformed(label, err)
		return
	}
	if f.Geometry == nil {
		d.rep.Malformed(label, ErrNoGeometry)
		return
	}

	b := &builder{nodes: d.nodes, alts: altitudes(raw.Get("geometry"))}
	o, err := b.object(f.Geometry)
	if err != nil {
		d.rep.Malformed(label, err)
		return
	}

	meta := o.Base()
	if id := raw.Get("id"); id.Exists() {
		meta.Name = id.String()
		if ref, err := strconv.ParseInt(id.Raw, 10, 64); err == nil {
			meta.Ref = ref
		}
	}

	raw.Get("properties").ForEach(func(key, val gjson.Result) bool {
		k := key.String()
		v := val.String()
		if val.IsObject() || val.IsArray() {
			v = val.Raw
		}

		switch k {
		case PropName:
			meta.Name = v
		case PropClass:
			meta.Class = v
		case PropDescription:
			meta.Description = v
		case PropTime:
			meta.Time = v
		case PropLayer:
		default:
			if val.IsArray() {
				val.ForEach(func(_, item gjson.Result) bool {
					meta.Fields.Add(k, item.String())
					return true
				})
				return true
			}
			meta.Fields.Add(k, v)
		}
		return true
	})
	meta.Class = classes.OrDefault(meta.Class, o.Kind())

	l.Add(o)
}

func featureLabel(raw gjson.Result, index int) string {
	if name := raw.Get("properties." + PropName).String(); name != "" {
		return "Feature " + name
	}
	if id := raw.Get("id"); id.Exists() {
		return "Feature " + id.String()
	}
	return "Feature #" + strconv.Itoa(index)
}

// altitudes collects the third ordinate of every position under a geometry,
// in document order. orb keeps only two dimensions.
func altitudes(geom gjson.Result) []float64 {
	var out []float64

	var walk func(gjson.Result)
	walk = func(v gjson.Result) {
		if !v.IsArray() {
			return
		}
		first := v.Get("0")
		if first.Type == gjson.Number {
			out = append(out, v.Get("2").Float())
			return
		}
		v.ForEach(func(_, item gjson.Result) bool {
			walk(item)
			return true
		})
	}

	if geom.Get("type").String() == "GeometryCollection" {
		geom.Get("geometries").ForEach(func(_, g gjson.Result) bool {
			walk(g.Get("coordinates"))
			return true
		})
		return out
	}
	walk(geom.Get("coordinates"))
	return out
}

// builder turns orb geometries into vector objects, consuming altitudes in
// the same order positions appear in the document.
type builder struct {
	nodes *vector.NodeMap
	alts  []float64
	next  int
}

func (b *builder) alt() float64 {
	if b.next >= len(b.alts) {
		return 0
	}
	a := b.alts[b.next]
	b.next++
	return a
}

func (b *builder) seq(pts []orb.Point) []int64 {
	s := b.nodes.NewSequence()
	for _, p := range pts {
		s.Add(vector.NewCoordinate(p.Lat(), p.Lon(), b.alt()))
	}
	return s.IDs()
}

func (b *builder) object(g orb.Geometry) (vector.Object, error) {
	switch g := g.(type) {
	case orb.Point:
		return vector.NewPoint(b.seq([]orb.Point{g})[0]), nil
	case orb.LineString:
		return vector.NewLineString(b.seq(g))
	case orb.Ring:
		return vector.NewLinearRing(b.seq(g))
	case orb.Polygon:
		return b.polygon(g)
	case orb.MultiPoint:
		multi := &vector.MultiGeometry{}
		for _, p := range g {
			_ = multi.Add(vector.NewPoint(b.seq([]orb.Point{p})[0]))
		}
		return nonEmpty(multi)
	case orb.MultiLineString:
		multi := &vector.MultiGeometry{}
		for _, ls := range g {
			line, err := vector.NewLineString(b.seq(ls))
			if err != nil {
				continue
			}
			_ = multi.Add(line)
		}
		return nonEmpty(multi)
	case orb.MultiPolygon:
		multi := &vector.MultiGeometry{}
		for _, p := range g {
			poly, err := b.polygon(p)
			if err != nil {
				continue
			}
			_ = multi.Add(poly)
		}
		return nonEmpty(multi)
	case orb.Collection:
		multi := &vector.MultiGeometry{}
		for _, part := range g {
			o, err := b.object(part)
			if err != nil {
				continue
			}
			if inner, ok := o.(*vector.MultiGeometry); ok {
				for _, p := range inner.Parts {
					_ = multi.Add(p)
				}
				continue
			}
			_ = multi.Add(o)
		}
		return nonEmpty(multi)
	case orb.Bound:
		return b.polygon(g.ToPolygon())
	}
	return nil, fmt.Errorf("unsupported geometry %T", g)
}

func (b *builder) polygon(p orb.Polygon) (*vector.Polygon, error) {
	if len(p) == 0 {
		return nil, vector.ErrEmptyGeometry
	}
	outer := b.seq(p[0])
	var holes [][]int64
	for _, ring := range p[1:] {
		holes = append(holes, b.seq(ring))
	}
	return vector.NewPolygon(outer, holes...)
}

func nonEmpty(m *vector.MultiGeometry) (vector.Object, error) {
	if len(m.Parts) == 0 {
		return nil, vector.ErrEmptyGeometry
	}
	return m, nil
}
