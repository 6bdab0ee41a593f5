// Package gpxio reads and writes GPX waypoints, tracks and routes.
package gpxio

import (
	"fmt"
	"io"
	"strconv"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/tagscan"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/rs/zerolog/log"
)

// Format is the format name used in reports.
const Format = "gpx"

// DefaultLayer names the layer when metadata carries no name.
const DefaultLayer = "GPX"

type decoder struct {
	nodes *vector.NodeMap
	rep   *report.Report
}

// Decode scans a GPX document for <wpt>, <trk> and <rte> elements. Missing
// or unclosed tags elsewhere in the document do not stop extraction.
func Decode(r io.Reader, nodes *vector.NodeMap, rep *report.Report) (*vector.Layer, error) {
	l := vector.NewLayer(DefaultLayer)

	data, err := io.ReadAll(r)
	if err != nil {
		return l, rep.Fail(report.IO("read", "", err))
	}
	doc := string(data)

	root, ok := tagscan.New(doc).Next("gpx")
	if !ok {
		return l, rep.Fail(report.Structure(Format, report.ErrMissingRoot))
	}
	if meta, ok := root.Child("metadata"); ok {
		if name := meta.Text("name"); name != "" {
			l.Name = name
		}
	}

	d := &decoder{nodes: nodes, rep: rep}

	rep.Step(0, "Reading waypoints")
	for _, el := range root.Children("wpt") {
		d.waypoint(l, el)
	}

	rep.Step(30, "Reading tracks")
	for _, el := range root.Children("trk") {
		d.track(l, el)
	}

	rep.Step(70, "Reading routes")
	for _, el := range root.Children("rte") {
		d.route(l, el)
	}
	rep.Step(100, "Done")

	log.Debug().
		Str("layer", l.Name).
		Int("objects", l.Len()).
		Msg("GPX document read")

	return l, nil
}

func (d *decoder) waypoint(l *vector.Layer, el tagscan.Element) {
	name := el.Text("name")
	label := "wpt " + name

	c, err := coordinate(el)
	if err != nil {
		d.rep.Malformed(label, err)
		return
	}

	seq := d.nodes.NewSequence()
	p := vector.NewPoint(seq.Add(c))
	p.Name = name
	p.Time = c.Time
	p.Description = el.Text("desc")

	sym := el.Text("sym")
	p.Class = classes.GPXClass(sym)
	if sym != "" && classes.IsUnspecified(p.Class) {
		p.Fields.Add("sym", sym)
	}
	if cmt := el.Text("cmt"); cmt != "" {
		p.Fields.Add("cmt", cmt)
	}
	if typ := el.Text("type"); typ != "" {
		p.Fields.Add("type", typ)
	}

	l.Add(p)
}

// track adds one line per segment, each named after the track. Points
// directly under <trk> are treated as a single segment.
func (d *decoder) track(l *vector.Layer, el tagscan.Element) {
	name := el.Text("name")
	desc := el.Text("desc")

	segments := el.Children("trkseg")
	if len(segments) == 0 {
		segments = []tagscan.Element{el}
	}

	for i, seg := range segments {
		label := fmt.Sprintf("trk %s segment %d", name, i)
		line, err := d.line(label, seg.Children("trkpt"))
		if err != nil {
			d.rep.Malformed(label, err)
			continue
		}
		line.Name = name
		line.Description = desc
		l.Add(line)
	}
}

func (d *decoder) route(l *vector.Layer, el tagscan.Element) {
	name := el.Text("name")
	label := "rte " + name

	line, err := d.line(label, el.Children("rtept"))
	if err != nil {
		d.rep.Malformed(label, err)
		return
	}
	line.Name = name
	line.Description = el.Text("desc")
	line.Fields.Add("gpx", "rte")
	l.Add(line)
}

// line builds a line from track or route points, dropping the ones that do
// not parse.
func (d *decoder) line(label string, pts []tagscan.Element) (*vector.LineString, error) {
	seq := d.nodes.NewSequence()
	var firstErr error
	for _, pt := range pts {
		c, err := coordinate(pt)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		seq.Add(c)
	}

	if seq.Len() == 0 {
		if firstErr != nil {
			return nil, fmt.Errorf("%w: %w", vector.ErrEmptyGeometry, firstErr)
		}
		return nil, vector.ErrEmptyGeometry
	}
	if firstErr != nil {
		d.rep.Warn(label, firstErr)
	}

	line, err := vector.NewLineString(seq.IDs())
	if err != nil {
		return nil, err
	}
	line.Class = classes.UnspecifiedLine
	return line, nil
}

// coordinate reads lat/lon attributes plus optional ele and time children.
func coordinate(el tagscan.Element) (vector.Coordinate, error) {
	lat, err := floatAttr(el, "lat")
	if err != nil {
		return vector.Coordinate{}, err
	}
	lon, err := floatAttr(el, "lon")
	if err != nil {
		return vector.Coordinate{}, err
	}

	c := vector.NewCoordinate(lat, lon, 0)
	if ele := el.Text("ele"); ele != "" {
		if alt, err := strconv.ParseFloat(ele, 64); err == nil {
			c.Alt = alt
		}
	}
	c.Time = el.Text("time")
	return c, nil
}

func floatAttr(el tagscan.Element, name string) (float64, error) {
	v, ok := el.Attr(name)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", vector.ErrBadCoordinate, name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", vector.ErrBadCoordinate, name, v)
	}
	return f, nil
}
