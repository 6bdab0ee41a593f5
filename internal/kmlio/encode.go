package kmlio

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-kml"
)

type encoder struct {
	nodes *vector.NodeMap
}

// Encode writes m as a KML document: one folder per layer, one shared style
// per theme entry and inline lon,lat,alt coordinates. Custom fields are
// written as ExtendedData.
func Encode(w io.Writer, m *vector.Map) error {
	e := &encoder{nodes: m.Nodes}

	doc := kml.Document()
	if m.Name != "" {
		doc.Add(kml.Name(m.Name))
	}
	if m.Theme != nil {
		for _, s := range m.Theme.Styles() {
			doc.Add(sharedStyle(s))
		}
	}

	for _, l := range m.Layers {
		folder := kml.Folder(kml.Name(l.Name))
		if !l.Visible {
			folder.Add(kml.Visibility(false))
		}
		for _, o := range l.Objects {
			pm, ok := e.placemark(o)
			if !ok {
				log.Warn().
					Str("layer", l.Name).
					Str("object", o.Base().Name).
					Msg("Object without resolvable coordinates not exported")
				continue
			}
			folder.Add(pm)
		}
		doc.Add(folder)
	}

	if err := kml.KML(doc).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write %s: %w", Format, err)
	}
	return nil
}

// EncodeKMZ writes m as a KMZ archive holding a single doc.kml.
func EncodeKMZ(w io.Writer, m *vector.Map) error {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	f, err := zw.Create(MainEntry)
	if err != nil {
		return fmt.Errorf("write %s: %w", KMZFormat, err)
	}
	if _, err := buf.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", KMZFormat, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("write %s: %w", KMZFormat, err)
	}
	return nil
}

func sharedStyle(s *vector.Style) kml.Element {
	line := kml.LineStyle(kml.Color(s.LineColor))
	if s.LineWidth > 0 {
		line.Add(kml.Width(s.LineWidth))
	}
	return kml.SharedStyle(s.ID,
		line,
		kml.PolyStyle(kml.Color(s.FillColor), kml.Outline(s.Outline)),
	)
}

func (e *encoder) placemark(o vector.Object) (kml.Element, bool) {
	geom, ok := e.geometry(o, "")
	if !ok {
		return nil, false
	}

	meta := o.Base()
	pm := kml.Placemark()
	if meta.Name != "" {
		pm.Add(kml.Name(meta.Name))
	}
	if meta.Description != "" {
		pm.Add(kml.Description(meta.Description))
	}
	if meta.Time != "" {
		if t, err := time.Parse(time.RFC3339, meta.Time); err == nil {
			pm.Add(kml.TimeStamp(kml.When(t)))
		}
	}
	if !classes.IsUnspecified(meta.Class) {
		pm.Add(kml.StyleURL("#" + meta.Class))
	}
	if len(meta.Fields) > 0 {
		ext := kml.ExtendedData()
		for _, f := range meta.Fields {
			ext.Add(data(f.Key, f.Value))
		}
		pm.Add(ext)
	}
	pm.Add(geom)

	return pm, true
}

// data builds <Data name="key"><value>value</value></Data>.
func data(key, value string) kml.Element {
	d := kml.Data(kml.Value(value))
	d.Attr = append(d.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: key})
	return d
}

// withMode prepends an altitudeMode element when mode is set.
func withMode(mode vector.AltitudeMode, children ...kml.Element) []kml.Element {
	if mode == "" {
		return children
	}
	return append([]kml.Element{kml.AltitudeMode(kml.AltitudeModeEnum(mode))}, children...)
}

// geometry converts o. Parts of a multi geometry without an altitude mode
// of their own take the one of their parent.
func (e *encoder) geometry(o vector.Object, inherited vector.AltitudeMode) (kml.Element, bool) {
	mode := o.Base().AltitudeMode
	if mode == "" {
		mode = inherited
	}

	switch g := o.(type) {
	case *vector.Point:
		coords := e.coords(g.Coords)
		if len(coords) == 0 {
			return nil, false
		}
		return kml.Point(withMode(mode, kml.Coordinates(coords[0]))...), true
	case *vector.LineString:
		coords := e.coords(g.Coords)
		if len(coords) == 0 {
			return nil, false
		}
		return kml.LineString(withMode(mode, kml.Coordinates(coords...))...), true
	case *vector.LinearRing:
		coords := e.coords(vector.Closed(g.Coords))
		if len(coords) == 0 {
			return nil, false
		}
		return kml.LinearRing(withMode(mode, kml.Coordinates(coords...))...), true
	case *vector.Polygon:
		outer := e.coords(vector.Closed(g.Coords))
		if len(outer) == 0 {
			return nil, false
		}
		bounds := []kml.Element{
			kml.OuterBoundaryIs(kml.LinearRing(kml.Coordinates(outer...))),
		}
		for _, ring := range g.Inner {
			inner := e.coords(vector.Closed(ring.Coords))
			if len(inner) == 0 {
				continue
			}
			bounds = append(bounds, kml.InnerBoundaryIs(kml.LinearRing(kml.Coordinates(inner...))))
		}
		return kml.Polygon(withMode(mode, bounds...)...), true
	case *vector.MultiGeometry:
		var parts []kml.Element
		for _, p := range g.Parts {
			if el, ok := e.geometry(p, mode); ok {
				parts = append(parts, el)
			}
		}
		if len(parts) == 0 {
			return nil, false
		}
		return kml.MultiGeometry(parts...), true
	}
	return nil, false
}

func (e *encoder) coords(ids []int64) []kml.Coordinate {
	resolved, missing := e.nodes.Resolve(ids)
	if len(missing) > 0 {
		log.Warn().Int("missing", len(missing)).Msg("Unknown node ids skipped")
	}

	out := make([]kml.Coordinate, 0, len(resolved))
	for _, c := range resolved {
		out = append(out, kml.Coordinate{Lon: c.Lon, Lat: c.Lat, Alt: c.Alt})
	}
	return out
}
