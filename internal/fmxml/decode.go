// Package fmxml reads and writes the native map document format: a node
// table shared by every geometry, followed by layers of objects referencing
// nodes by id.
package fmxml

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/geo"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
)

// Format is the format name used in reports.
const Format = "fmxml"

// RootTag is the required document element.
const RootTag = "fmxml"

type decoder struct {
	nodes *vector.NodeMap
	ids   *vector.IDTable
	rep   *report.Report
}

// Decode reads a document into a map whose node table is nodes.
// On a read failure the part of the document parsed so far is still
// returned together with the error.
func Decode(r io.Reader, nodes *vector.NodeMap, rep *report.Report) (*vector.Map, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true

	_, readErr := doc.ReadFrom(r)
	if readErr != nil {
		readErr = rep.Fail(report.IO("read", "", readErr))
	}

	root := doc.Root()
	if root == nil || root.Tag != RootTag {
		m := vector.NewMap("", nodes)
		if readErr != nil {
			return m, readErr
		}
		return m, rep.Fail(report.Structure(Format, report.ErrMissingRoot))
	}

	d := &decoder{nodes: nodes, ids: nodes.NewIDTable(), rep: rep}
	m := d.header(root)

	rep.Step(5, "Reading nodes")
	d.nodeTable(root)

	layers := root.SelectElements("layer")
	tk := rep.Ticker("Reading layers", len(layers), 20, 75)
	for _, el := range layers {
		m.AddLayer(d.layer(el))
		tk.Tick()
	}

	m.EnsureView()
	rep.Step(100, "Done")

	log.Debug().
		Str("map", m.Name).
		Int("layers", len(m.Layers)).
		Int("nodes", nodes.Len()).
		Msg("Map document read")

	return m, readErr
}

// header reads document level settings, substituting defaults on failure.
func (d *decoder) header(root *etree.Element) *vector.Map {
	m := vector.NewMap(root.SelectAttrValue("name", ""), d.nodes)

	if p := root.SelectAttrValue("projection", ""); p != "" {
		proj, err := geo.ParseProjection(p)
		if err != nil {
			d.rep.Warn("projection", err)
		}
		m.Projection = proj
	}

	if el := root.SelectElement("view"); el != nil {
		view, err := parseView(el)
		if err != nil {
			d.rep.Warn("view", err)
		} else {
			m.View = view
		}
	}

	if el := root.SelectElement("theme"); el != nil {
		for _, s := range el.SelectElements("style") {
			style, err := parseStyle(s)
			if err != nil {
				d.rep.Warn("style "+s.SelectAttrValue("id", ""), err)
				continue
			}
			m.Theme.Set(style)
		}
	}

	return m
}

func parseView(el *etree.Element) (*vector.View, error) {
	lat, err := strconv.ParseFloat(el.SelectAttrValue("lat", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("view latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(el.SelectAttrValue("lon", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("view longitude: %w", err)
	}
	zoom, err := strconv.Atoi(el.SelectAttrValue("zoom", ""))
	if err != nil {
		return nil, fmt.Errorf("view zoom: %w", err)
	}
	return &vector.View{Lat: lat, Lon: lon, Zoom: zoom}, nil
}

func parseStyle(el *etree.Element) (*vector.Style, error) {
	s := &vector.Style{ID: el.SelectAttrValue("id", "")}
	if s.ID == "" {
		return nil, fmt.Errorf("style without id")
	}

	var err error
	if v := el.SelectAttrValue("lineColor", ""); v != "" {
		if s.LineColor, err = vector.ParseKMLColor(v); err != nil {
			return nil, err
		}
	}
	if v := el.SelectAttrValue("fillColor", ""); v != "" {
		if s.FillColor, err = vector.ParseKMLColor(v); err != nil {
			return nil, err
		}
	}
	if v := el.SelectAttrValue("lineWidth", ""); v != "" {
		if s.LineWidth, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("line width: %w", err)
		}
	}
	s.Icon = el.SelectAttrValue("icon", "")
	s.Outline = el.SelectAttrValue("outline", "") == "true"

	return s, nil
}

// nodeTable loads <nodes> with their explicit ids.
func (d *decoder) nodeTable(root *etree.Element) {
	table := root.SelectElement("nodes")
	if table == nil {
		return
	}

	for _, el := range table.SelectElements("node") {
		rawID := el.SelectAttrValue("id", "")
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			d.rep.Malformed("node "+rawID, fmt.Errorf("bad node id: %w", err))
			continue
		}

		c, err := vector.ParseGroup(strings.TrimSpace(el.Text()))
		if err != nil {
			d.rep.Malformed("node "+rawID, err)
			continue
		}
		if ts := el.SelectAttrValue("time", ""); ts != "" {
			c.Time = ts
		}

		if _, err := d.ids.Put(id, c); err != nil {
			d.rep.Malformed("node "+rawID, err)
		}
	}
}

func (d *decoder) layer(el *etree.Element) *vector.Layer {
	l := vector.NewLayer(el.SelectAttrValue("name", ""))
	l.Visible = el.SelectAttrValue("visible", "true") != "false"

	for _, objEl := range el.SelectElements("object") {
		o, err := d.object(objEl, true)
		if err != nil {
			d.rep.Malformed(label(objEl), err)
			continue
		}
		l.Add(o)
	}

	return l
}

func label(el *etree.Element) string {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		name = el.SelectAttrValue("ref", "")
	}
	return el.SelectAttrValue("type", "object") + " " + name
}

func (d *decoder) object(el *etree.Element, allowMulti bool) (vector.Object, error) {
	kind, ok := vector.ParseKind(el.SelectAttrValue("type", ""))
	if !ok {
		return nil, fmt.Errorf("unknown object type %q", el.SelectAttrValue("type", ""))
	}

	meta, err := d.meta(el, kind)
	if err != nil {
		return nil, err
	}

	var o vector.Object
	switch kind {
	case vector.KindPoint:
		if len(meta.Coords) == 0 {
			return nil, vector.ErrEmptyGeometry
		}
		meta.Coords = meta.Coords[:1]
		o = &vector.Point{Meta: meta}
	case vector.KindLineString:
		if len(meta.Coords) == 0 {
			return nil, vector.ErrEmptyGeometry
		}
		o = &vector.LineString{Meta: meta}
	case vector.KindLinearRing:
		if len(meta.Coords) == 0 {
			return nil, vector.ErrEmptyGeometry
		}
		o = &vector.LinearRing{Meta: meta}
	case vector.KindPolygon:
		var holes [][]int64
		for _, in := range el.SelectElements("inner") {
			holes = append(holes, d.coords(label(el), in.Text()))
		}
		poly, err := vector.NewPolygon(meta.Coords, holes...)
		if err != nil {
			return nil, err
		}
		poly.Meta = meta
		o = poly
	case vector.KindMultiGeometry:
		if !allowMulti {
			return nil, vector.ErrNestedMulti
		}
		multi := &vector.MultiGeometry{Meta: meta}
		for _, partEl := range el.SelectElements("object") {
			part, err := d.object(partEl, false)
			if err != nil {
				d.rep.Malformed(label(partEl), err)
				continue
			}
			if err := multi.Add(part); err != nil {
				d.rep.Malformed(label(partEl), err)
			}
		}
		if len(multi.Parts) == 0 {
			return nil, vector.ErrEmptyGeometry
		}
		o = multi
	}

	return o, nil
}

func (d *decoder) meta(el *etree.Element, kind vector.Kind) (vector.Meta, error) {
	meta := vector.Meta{
		Name:  el.SelectAttrValue("name", ""),
		Class: classes.OrDefault(el.SelectAttrValue("class", ""), kind),
		Time:  el.SelectAttrValue("time", ""),
	}

	if v := el.SelectAttrValue("ref", ""); v != "" {
		ref, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return meta, fmt.Errorf("bad ref: %w", err)
		}
		meta.Ref = ref
	}

	if v := el.SelectAttrValue("altitudeMode", ""); v != "" {
		mode, ok := vector.ParseAltitudeMode(v)
		if !ok {
			d.rep.Warn(label(el), fmt.Errorf("unknown altitude mode %q", v))
		}
		meta.AltitudeMode = mode
	}

	minZoom, hasMin := el.SelectAttrValue("minZoom", ""), el.SelectAttr("minZoom") != nil
	maxZoom, hasMax := el.SelectAttrValue("maxZoom", ""), el.SelectAttr("maxZoom") != nil
	if hasMin || hasMax {
		zr := vector.ZoomRange{Min: 0, Max: geo.DefaultMaxZoom}
		var err error
		if hasMin {
			if zr.Min, err = strconv.Atoi(minZoom); err != nil {
				return meta, fmt.Errorf("bad minZoom: %w", err)
			}
		}
		if hasMax {
			if zr.Max, err = strconv.Atoi(maxZoom); err != nil {
				return meta, fmt.Errorf("bad maxZoom: %w", err)
			}
		}
		meta.Visibility = &zr
	}

	if desc := el.SelectElement("description"); desc != nil {
		meta.Description = desc.Text()
	}
	for _, f := range el.SelectElements("field") {
		meta.Fields.Add(f.SelectAttrValue("key", ""), f.Text())
	}

	if c := el.SelectElement("coordinates"); c != nil {
		meta.Coords = d.coords(label(el), c.Text())
	}

	return meta, nil
}

// coords parses a coordinate sequence, reporting dropped points.
func (d *decoder) coords(object, text string) []int64 {
	ids, errs := d.ids.ParseSequence(text)
	if len(ids) == 0 {
		return nil
	}
	for _, err := range errs {
		d.rep.MissingRef(object, err)
	}
	return ids
}
