package gpxio

import (
	"fmt"
	"io"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
)

// Creator is written to the root element.
const Creator = "geoxchange"

type encoder struct {
	nodes *vector.NodeMap
	root  *etree.Element
}

// Encode writes the objects of every layer of m. Points become waypoints,
// lines and rings become tracks, polygons are exported as their outer ring.
// Lines imported from routes are written back as routes.
func Encode(w io.Writer, m *vector.Map) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("gpx")
	root.CreateAttr("version", "1.1")
	root.CreateAttr("creator", Creator)
	root.CreateAttr("xmlns", "http://www.topografix.com/GPX/1/1")

	if m.Name != "" {
		root.CreateElement("metadata").CreateElement("name").SetText(m.Name)
	}

	e := &encoder{nodes: m.Nodes, root: root}

	// GPX requires waypoints before routes and tracks
	var lines []vector.Object
	for _, l := range m.Layers {
		for _, o := range l.Objects {
			switch g := o.(type) {
			case *vector.Point:
				e.waypoint(g.Coords, &g.Meta)
			case *vector.MultiGeometry:
				for _, part := range g.Parts {
					if p, ok := part.(*vector.Point); ok {
						e.waypoint(p.Coords, &g.Meta)
					}
				}
				lines = append(lines, g)
			case *vector.LineString, *vector.LinearRing, *vector.Polygon:
				lines = append(lines, g)
			}
		}
	}

	for _, o := range lines {
		if o.Base().Fields.Value("gpx") == "rte" {
			e.route(o)
			continue
		}
		e.track(o)
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", Format, err)
	}
	return nil
}

func (e *encoder) waypoint(ids []int64, meta *vector.Meta) {
	coords, _ := e.nodes.Resolve(ids)
	if len(coords) == 0 {
		log.Warn().Str("object", meta.Name).Msg("Waypoint without resolvable coordinate not exported")
		return
	}

	wpt := e.root.CreateElement("wpt")
	point(wpt, coords[0])
	if meta.Name != "" {
		wpt.CreateElement("name").SetText(meta.Name)
	}
	if cmt := meta.Fields.Value("cmt"); cmt != "" {
		wpt.CreateElement("cmt").SetText(cmt)
	}
	if meta.Description != "" {
		wpt.CreateElement("desc").SetText(meta.Description)
	}

	sym := meta.Fields.Value("sym")
	if sym == "" && !classes.IsUnspecified(meta.Class) {
		sym = classes.GPXSymbol(meta.Class)
	}
	if sym != "" {
		wpt.CreateElement("sym").SetText(sym)
	}

	if typ := meta.Fields.Value("type"); typ != "" {
		wpt.CreateElement("type").SetText(typ)
	}
}

// segments returns the coordinate lists of o that can be written as lines.
func segments(o vector.Object) [][]int64 {
	switch g := o.(type) {
	case *vector.LineString:
		return [][]int64{g.Coords}
	case *vector.LinearRing:
		return [][]int64{vector.Closed(g.Coords)}
	case *vector.Polygon:
		return [][]int64{vector.Closed(g.Coords)}
	case *vector.MultiGeometry:
		var out [][]int64
		for _, p := range g.Parts {
			out = append(out, segments(p)...)
		}
		return out
	case *vector.Point:
		return nil
	}
	return nil
}

func (e *encoder) track(o vector.Object) {
	segs := segments(o)
	if len(segs) == 0 {
		return
	}

	meta := o.Base()
	trk := e.root.CreateElement("trk")
	if meta.Name != "" {
		trk.CreateElement("name").SetText(meta.Name)
	}
	if meta.Description != "" {
		trk.CreateElement("desc").SetText(meta.Description)
	}

	for _, ids := range segs {
		seg := trk.CreateElement("trkseg")
		coords, _ := e.nodes.Resolve(ids)
		for _, c := range coords {
			point(seg.CreateElement("trkpt"), c)
		}
	}
}

func (e *encoder) route(o vector.Object) {
	meta := o.Base()
	rte := e.root.CreateElement("rte")
	if meta.Name != "" {
		rte.CreateElement("name").SetText(meta.Name)
	}
	if meta.Description != "" {
		rte.CreateElement("desc").SetText(meta.Description)
	}

	for _, ids := range segments(o) {
		coords, _ := e.nodes.Resolve(ids)
		for _, c := range coords {
			point(rte.CreateElement("rtept"), c)
		}
	}
}

func point(el *etree.Element, c vector.Coordinate) {
	el.CreateAttr("lat", vector.FormatFloat(c.Lat))
	el.CreateAttr("lon", vector.FormatFloat(c.Lon))
	if c.Alt != 0 {
		el.CreateElement("ele").SetText(vector.FormatFloat(c.Alt))
	}
	if c.Time != "" {
		el.CreateElement("time").SetText(c.Time)
	}
}
