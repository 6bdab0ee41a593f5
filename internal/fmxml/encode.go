package fmxml

import (
	"fmt"
	"io"
	"strconv"

	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/beevik/etree"
)

// Version written to the root element.
const Version = "1.0"

// Encode writes m with one shared node table. Objects reference nodes by
// their NodeMap ids.
func Encode(w io.Writer, m *vector.Map) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(RootTag)
	root.CreateAttr("version", Version)
	root.CreateAttr("name", m.Name)
	root.CreateAttr("projection", string(m.Projection))

	m.EnsureView()
	view := root.CreateElement("view")
	view.CreateAttr("lat", vector.FormatFloat(m.View.Lat))
	view.CreateAttr("lon", vector.FormatFloat(m.View.Lon))
	view.CreateAttr("zoom", strconv.Itoa(m.View.Zoom))

	if m.Theme != nil && m.Theme.Len() > 0 {
		theme := root.CreateElement("theme")
		for _, s := range m.Theme.Styles() {
			writeStyle(theme, s)
		}
	}

	nodes := root.CreateElement("nodes")
	for _, id := range m.Nodes.IDs() {
		c, _ := m.Nodes.Get(id)
		el := nodes.CreateElement("node")
		el.CreateAttr("id", strconv.FormatInt(id, 10))
		if c.Time != "" {
			el.CreateAttr("time", c.Time)
		}
		el.SetText(c.String())
	}

	for _, l := range m.Layers {
		el := root.CreateElement("layer")
		el.CreateAttr("name", l.Name)
		el.CreateAttr("visible", strconv.FormatBool(l.Visible))
		for _, o := range l.Objects {
			writeObject(el, o)
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", Format, err)
	}
	return nil
}

func writeStyle(parent *etree.Element, s *vector.Style) {
	el := parent.CreateElement("style")
	el.CreateAttr("id", s.ID)
	el.CreateAttr("lineColor", vector.FormatKMLColor(s.LineColor))
	el.CreateAttr("fillColor", vector.FormatKMLColor(s.FillColor))
	if s.LineWidth > 0 {
		el.CreateAttr("lineWidth", vector.FormatFloat(s.LineWidth))
	}
	if s.Icon != "" {
		el.CreateAttr("icon", s.Icon)
	}
	if s.Outline {
		el.CreateAttr("outline", "true")
	}
}

func writeObject(parent *etree.Element, o vector.Object) {
	meta := o.Base()

	el := parent.CreateElement("object")
	el.CreateAttr("type", o.Kind().String())
	if meta.Name != "" {
		el.CreateAttr("name", meta.Name)
	}
	if meta.Class != "" {
		el.CreateAttr("class", meta.Class)
	}
	if meta.Ref != 0 {
		el.CreateAttr("ref", strconv.FormatInt(meta.Ref, 10))
	}
	if meta.AltitudeMode != "" {
		el.CreateAttr("altitudeMode", string(meta.AltitudeMode))
	}
	if meta.Visibility != nil {
		el.CreateAttr("minZoom", strconv.Itoa(meta.Visibility.Min))
		el.CreateAttr("maxZoom", strconv.Itoa(meta.Visibility.Max))
	}
	if meta.Time != "" {
		el.CreateAttr("time", meta.Time)
	}

	if meta.Description != "" {
		el.CreateElement("description").SetText(meta.Description)
	}
	for _, f := range meta.Fields {
		field := el.CreateElement("field")
		field.CreateAttr("key", f.Key)
		field.SetText(f.Value)
	}

	switch g := o.(type) {
	case *vector.Point, *vector.LineString, *vector.LinearRing:
		el.CreateElement("coordinates").SetText(vector.FormatSequence(meta.Coords))
	case *vector.Polygon:
		el.CreateElement("coordinates").SetText(vector.FormatSequence(g.Coords))
		for _, ring := range g.Inner {
			el.CreateElement("inner").SetText(vector.FormatSequence(ring.Coords))
		}
	case *vector.MultiGeometry:
		for _, part := range g.Parts {
			writeObject(el, part)
		}
	}
}
