// Package kmlio reads and writes KML documents and KMZ archives.
package kmlio

import (
	"fmt"
	"io"
	"strings"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
)

// Format is the format name used in reports.
const Format = "kml"

type decoder struct {
	nodes *vector.NodeMap
	rep   *report.Report
	m     *vector.Map
}

// Decode reads a KML document. Folders become layers; placemarks outside
// any folder go to a layer named after the document.
func Decode(r io.Reader, nodes *vector.NodeMap, rep *report.Report) (*vector.Map, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true

	_, readErr := doc.ReadFrom(r)
	if readErr != nil {
		readErr = rep.Fail(report.IO("read", "", readErr))
	}

	root := doc.Root()
	if root == nil || (root.Tag != "kml" && root.Tag != "Document") {
		m := vector.NewMap("", nodes)
		if readErr != nil {
			return m, readErr
		}
		return m, rep.Fail(report.Structure(Format, report.ErrMissingRoot))
	}

	container := root
	if d := root.SelectElement("Document"); d != nil {
		container = d
	}

	name := text(container, "name")
	d := &decoder{nodes: nodes, rep: rep, m: vector.NewMap(name, nodes)}

	rep.Step(5, "Reading styles")
	d.styles(container)

	top := vector.NewLayer(name)
	if top.Name == "" {
		top.Name = "Document"
	}

	children := container.ChildElements()
	tk := rep.Ticker("Reading placemarks", len(children), 10, 85)
	for _, el := range children {
		switch el.Tag {
		case "Folder":
			d.folder(el, "")
		case "Placemark":
			d.placemark(top, el)
		}
		tk.Tick()
	}

	if top.Len() > 0 {
		d.m.Layers = append([]*vector.Layer{top}, d.m.Layers...)
	}

	d.m.EnsureView()
	rep.Step(100, "Done")

	log.Debug().
		Str("document", name).
		Int("layers", len(d.m.Layers)).
		Int("objects", d.m.ObjectCount()).
		Msg("KML document read")

	return d.m, readErr
}

// folder adds one layer per folder. Nested folders become their own layers
// named by path.
func (d *decoder) folder(el *etree.Element, parent string) {
	name := text(el, "name")
	if parent != "" {
		name = parent + "/" + name
	}

	l := vector.NewLayer(name)
	l.Visible = text(el, "visibility") != "0"
	d.m.AddLayer(l)

	d.styles(el)
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "Folder":
			d.folder(child, name)
		case "Placemark":
			d.placemark(l, child)
		}
	}
}

// placemark decodes one placemark into l. Any failure skips the placemark
// with exactly one error entry.
func (d *decoder) placemark(l *vector.Layer, el *etree.Element) {
	name := text(el, "name")
	label := "Placemark " + name

	o, err := d.placemarkObject(el, label)
	if err != nil {
		d.rep.Malformed(label, err)
		return
	}

	meta := o.Base()
	meta.Name = name
	meta.Description = text(el, "description")
	meta.Class = classes.OrDefault(styleKey(text(el, "styleUrl")), o.Kind())

	if ts := el.SelectElement("TimeStamp"); ts != nil {
		meta.Time = text(ts, "when")
	} else if span := el.SelectElement("TimeSpan"); span != nil {
		meta.Time = text(span, "begin")
	}

	if ext := el.SelectElement("ExtendedData"); ext != nil {
		extendedData(ext, &meta.Fields)
	}

	l.Add(o)
}

func (d *decoder) placemarkObject(el *etree.Element, label string) (vector.Object, error) {
	for _, child := range el.ChildElements() {
		if !isGeometry(child.Tag) {
			continue
		}
		return d.geometry(child, label)
	}
	return nil, fmt.Errorf("placemark has no geometry")
}

func isGeometry(tag string) bool {
	switch tag {
	case "Point", "LineString", "LinearRing", "Polygon", "MultiGeometry", "Track":
		return true
	}
	return false
}

func (d *decoder) geometry(el *etree.Element, label string) (vector.Object, error) {
	var (
		o   vector.Object
		err error
	)

	switch el.Tag {
	case "Point":
		var ids []int64
		if ids, err = d.coords(el, label); err == nil {
			o = vector.NewPoint(ids[0])
		}
	case "LineString":
		var ids []int64
		if ids, err = d.coords(el, label); err == nil {
			o, err = vector.NewLineString(ids)
		}
	case "LinearRing":
		var ids []int64
		if ids, err = d.coords(el, label); err == nil {
			o, err = vector.NewLinearRing(ids)
		}
	case "Polygon":
		o, err = d.polygon(el, label)
	case "Track":
		o, err = d.track(el)
	case "MultiGeometry":
		o, err = d.multi(el, label)
	default:
		return nil, fmt.Errorf("unsupported geometry %s", el.Tag)
	}
	if err != nil {
		return nil, err
	}

	if mode := text(el, "altitudeMode"); mode != "" {
		am, ok := vector.ParseAltitudeMode(mode)
		if !ok {
			d.rep.Warn(label, fmt.Errorf("unknown altitude mode %q", mode))
		}
		o.Base().AltitudeMode = am
	}

	return o, nil
}

func (d *decoder) polygon(el *etree.Element, label string) (vector.Object, error) {
	outer := el.FindElement("./outerBoundaryIs/LinearRing")
	if outer == nil {
		return nil, fmt.Errorf("polygon without outer boundary")
	}
	ids, err := d.coords(outer, label)
	if err != nil {
		return nil, fmt.Errorf("outer boundary: %w", err)
	}

	var holes [][]int64
	for _, in := range el.FindElements("./innerBoundaryIs/LinearRing") {
		hole, err := d.coords(in, label)
		if err != nil {
			d.rep.Warn(label, fmt.Errorf("inner boundary: %w", err))
			continue
		}
		holes = append(holes, hole)
	}

	return vector.NewPolygon(ids, holes...)
}

// multi flattens nested multi geometries into one level of parts.
func (d *decoder) multi(el *etree.Element, label string) (vector.Object, error) {
	out := &vector.MultiGeometry{}

	var walk func(*etree.Element)
	walk = func(parent *etree.Element) {
		for _, child := range parent.ChildElements() {
			if !isGeometry(child.Tag) {
				continue
			}
			if child.Tag == "MultiGeometry" {
				walk(child)
				continue
			}
			part, err := d.geometry(child, label)
			if err != nil {
				d.rep.Warn(label, fmt.Errorf("%s part: %w", child.Tag, err))
				continue
			}
			_ = out.Add(part)
		}
	}
	walk(el)

	if len(out.Parts) == 0 {
		return nil, vector.ErrEmptyGeometry
	}
	return out, nil
}

// track turns a gx:Track into a timestamped line, pairing when and gx:coord
// by position.
func (d *decoder) track(el *etree.Element) (vector.Object, error) {
	var whens []string
	for _, w := range el.SelectElements("when") {
		whens = append(whens, strings.TrimSpace(w.Text()))
	}

	seq := d.nodes.NewSequence()
	var bad int
	for i, c := range el.SelectElements("coord") {
		fields := strings.Fields(c.Text())
		if len(fields) < 2 {
			bad++
			continue
		}
		coord, err := vector.ParseGroup(strings.Join(fields, ","))
		if err != nil {
			bad++
			continue
		}
		if i < len(whens) {
			coord.Time = whens[i]
		}
		seq.Add(coord)
	}

	if seq.Len() == 0 {
		return nil, vector.ErrEmptyGeometry
	}
	if bad > 0 {
		log.Debug().Int("dropped", bad).Msg("Track coordinates skipped")
	}

	return vector.NewLineString(seq.IDs())
}

// coords parses the <coordinates> child of el. Dropped points are reported
// as warnings unless nothing is left.
func (d *decoder) coords(el *etree.Element, label string) ([]int64, error) {
	c := el.SelectElement("coordinates")
	if c == nil {
		return nil, vector.ErrEmptyGeometry
	}

	ids, errs := d.nodes.ParseSequence(c.Text())
	if len(ids) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", vector.ErrEmptyGeometry, errs[0])
		}
		return nil, vector.ErrEmptyGeometry
	}
	for _, err := range errs {
		d.rep.Warn(label, err)
	}
	return ids, nil
}

func extendedData(el *etree.Element, fields *vector.Fields) {
	for _, data := range el.SelectElements("Data") {
		key := data.SelectAttrValue("name", "")
		if key == "" {
			continue
		}
		fields.Add(key, text(data, "value"))
	}
	for _, schema := range el.SelectElements("SchemaData") {
		for _, sd := range schema.SelectElements("SimpleData") {
			key := sd.SelectAttrValue("name", "")
			if key == "" {
				continue
			}
			fields.Add(key, strings.TrimSpace(sd.Text()))
		}
	}
}

// styleKey strips the document part and '#' of a styleUrl.
func styleKey(url string) string {
	if i := strings.LastIndexByte(url, '#'); i >= 0 {
		return url[i+1:]
	}
	return url
}

func text(el *etree.Element, tag string) string {
	c := el.SelectElement(tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}
