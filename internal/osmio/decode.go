// Package osmio reads and writes OpenStreetMap XML. Ways are classified into
// lines, rings and polygons from their tags, multipolygon and route
// relations are reassembled, and coastline fragments are stitched into
// chains.
package osmio

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/beevik/etree"
	"github.com/paulmach/osm"
	"github.com/rs/zerolog/log"
)

// Format is the format name used in reports.
const Format = "osm"

// DefaultLayer names the decoded layer.
const DefaultLayer = "OSM"

// way is a decoded way kept for relation assembly.
type way struct {
	obj  vector.Object
	tags osm.Tags
	ids  []int64
	id   int64
}

type decoder struct {
	nodes *vector.NodeMap
	ids   *vector.IDTable
	rep   *report.Report
	layer *vector.Layer
	ways  map[int64]*way
	coast []*way
	// coastline ways consumed by a relation are not stitched again
	used map[int64]bool
}

// Decode reads an OSM XML document in two passes: every node is loaded into
// nodes first, then ways and relations resolve their references against it.
// Nodes keep their OSM id unless nodes already uses it for another location.
func Decode(r io.Reader, nodes *vector.NodeMap, rep *report.Report) (*vector.Layer, error) {
	l := vector.NewLayer(DefaultLayer)

	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true

	_, readErr := doc.ReadFrom(r)
	if readErr != nil {
		readErr = rep.Fail(report.IO("read", "", readErr))
	}

	root := doc.Root()
	if root == nil || root.Tag != "osm" {
		if readErr != nil {
			return l, readErr
		}
		return l, rep.Fail(report.Structure(Format, report.ErrMissingRoot))
	}

	d := &decoder{
		nodes: nodes,
		ids:   nodes.NewIDTable(),
		rep:   rep,
		layer: l,
		ways:  make(map[int64]*way),
		used:  make(map[int64]bool),
	}

	nodeEls := root.SelectElements("node")
	tk := rep.Ticker("Reading nodes", len(nodeEls), 0, 40)
	for _, el := range nodeEls {
		d.node(el)
		tk.Tick()
	}

	wayEls := root.SelectElements("way")
	tk = rep.Ticker("Reading ways", len(wayEls), 40, 40)
	for _, el := range wayEls {
		d.way(el)
		tk.Tick()
	}

	rep.Step(80, "Assembling relations")
	for _, el := range root.SelectElements("relation") {
		d.relation(el)
	}

	rep.Step(90, "Stitching coastline")
	var coast []*way
	for _, w := range d.coast {
		if !d.used[w.id] {
			coast = append(coast, w)
		}
	}
	l.Add(stitchCoastline(nodes, coast)...)
	rep.Step(100, "Done")

	log.Debug().
		Int("nodes", len(nodeEls)).
		Int("ways", len(wayEls)).
		Int("objects", l.Len()).
		Msg("OSM document read")

	return l, readErr
}

func (d *decoder) node(el *etree.Element) {
	rawID := el.SelectAttrValue("id", "")
	label := "node " + rawID

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		d.rep.Malformed(label, fmt.Errorf("bad id: %w", err))
		return
	}
	lat, err := strconv.ParseFloat(el.SelectAttrValue("lat", ""), 64)
	if err != nil {
		d.rep.Malformed(label, fmt.Errorf("%w: latitude", vector.ErrBadCoordinate))
		return
	}
	lon, err := strconv.ParseFloat(el.SelectAttrValue("lon", ""), 64)
	if err != nil {
		d.rep.Malformed(label, fmt.Errorf("%w: longitude", vector.ErrBadCoordinate))
		return
	}

	c := vector.NewCoordinate(lat, lon, 0)
	if ts := el.SelectAttrValue("timestamp", ""); ts != "" {
		// writers without history emit the zero time
		if t, err := time.Parse(time.RFC3339, ts); err != nil || !t.IsZero() {
			c.Time = ts
		}
	}
	if ele := tagValue(el, "ele"); ele != "" {
		if alt, err := strconv.ParseFloat(ele, 64); err == nil {
			c.Alt = alt
		}
	}

	mapID, err := d.ids.Put(id, c)
	if err != nil {
		d.rep.Malformed(label, err)
		return
	}

	tags := readTags(el)
	if !meaningful(tags) {
		return
	}

	if err := d.nodes.Reference(mapID); err != nil {
		d.rep.Malformed(label, err)
		return
	}
	p := vector.NewPoint(mapID)
	applyTags(&p.Meta, tags, vector.KindPoint)
	p.Ref = id
	d.layer.Add(p)
}

func (d *decoder) way(el *etree.Element) {
	rawID := el.SelectAttrValue("id", "")
	label := "way " + rawID

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		d.rep.Malformed(label, fmt.Errorf("bad id: %w", err))
		return
	}

	seq := d.nodes.NewSequence()
	for _, nd := range el.SelectElements("nd") {
		ref, err := strconv.ParseInt(nd.SelectAttrValue("ref", ""), 10, 64)
		if err != nil {
			d.rep.MissingRef(label, fmt.Errorf("bad node ref: %w", err))
			continue
		}
		mapID, err := d.ids.Lookup(ref)
		if err == nil {
			err = seq.AddID(mapID)
		}
		if err != nil {
			d.rep.MissingRef(label, err)
		}
	}
	if seq.Len() == 0 {
		d.rep.Malformed(label, vector.ErrEmptyGeometry)
		return
	}

	w := &way{id: id, ids: seq.IDs(), tags: readTags(el)}

	if w.tags.Find("natural") == "coastline" {
		d.coast = append(d.coast, w)
		d.ways[id] = w
		return
	}

	w.obj = classify(w)
	d.ways[id] = w
	d.layer.Add(w.obj)
}

// classify decides the geometry kind of a way: polygon tags on a closed way
// make a polygon, line tags make a line or ring, and the remaining closed
// ways defer to the OSM area rules.
func classify(w *way) vector.Object {
	closed := vector.IsClosed(w.ids)

	var o vector.Object
	switch {
	case closed && isArea(w.tags):
		o = &vector.Polygon{Meta: vector.Meta{Coords: w.ids}}
	case isLine(w.tags):
		if closed {
			o = &vector.LinearRing{Meta: vector.Meta{Coords: w.ids}}
		} else {
			o = &vector.LineString{Meta: vector.Meta{Coords: w.ids}}
		}
	case closed && osmWay(w).Polygon():
		o = &vector.Polygon{Meta: vector.Meta{Coords: w.ids}}
	case closed:
		o = &vector.LinearRing{Meta: vector.Meta{Coords: w.ids}}
	default:
		o = &vector.LineString{Meta: vector.Meta{Coords: w.ids}}
	}

	applyTags(o.Base(), w.tags, o.Kind())
	o.Base().Ref = w.id
	return o
}

func osmWay(w *way) *osm.Way {
	ow := &osm.Way{ID: osm.WayID(w.id), Tags: w.tags}
	for _, id := range w.ids {
		ow.Nodes = append(ow.Nodes, osm.WayNode{ID: osm.NodeID(id)})
	}
	return ow
}

// isArea reports tags that make a closed way an area.
func isArea(tags osm.Tags) bool {
	if area := tags.Find("area"); area != "" {
		return area == "yes"
	}
	if tags.Find("natural") == "water" {
		return true
	}
	for _, key := range []string{"building", "landuse", "leisure", "amenity", "shop", "tourism", "man_made"} {
		if tags.HasTag(key) {
			return true
		}
	}
	return false
}

// isLine reports tags that keep a way linear even when closed.
func isLine(tags osm.Tags) bool {
	switch {
	case tags.HasTag("highway"), tags.HasTag("railway"), tags.HasTag("waterway"),
		tags.HasTag("barrier"):
		return true
	case tags.Find("boundary") == "administrative",
		tags.Find("power") == "line",
		tags.Find("natural") == "coastline":
		return true
	}
	return false
}

// meaningful reports whether tags carry more than editing metadata.
func meaningful(tags osm.Tags) bool {
	for _, t := range tags {
		switch t.Key {
		case "created_by", "source", "note", "fixme", "FIXME", "ele":
		default:
			return true
		}
	}
	return false
}

func readTags(el *etree.Element) osm.Tags {
	var tags osm.Tags
	for _, t := range el.SelectElements("tag") {
		k := t.SelectAttrValue("k", "")
		if k == "" {
			continue
		}
		tags = append(tags, osm.Tag{Key: k, Value: t.SelectAttrValue("v", "")})
	}
	return tags
}

func tagValue(el *etree.Element, key string) string {
	for _, t := range el.SelectElements("tag") {
		if t.SelectAttrValue("k", "") == key {
			return t.SelectAttrValue("v", "")
		}
	}
	return ""
}

// applyTags copies tags into fields, takes the name and resolves the class.
func applyTags(meta *vector.Meta, tags osm.Tags, kind vector.Kind) {
	for _, t := range tags {
		if t.Key == "name" {
			meta.Name = t.Value
			continue
		}
		meta.Fields.Set(t.Key, t.Value)
	}
	if c, ok := classes.OSMClass(tags); ok {
		meta.Class = c
	}
	meta.Class = classes.OrDefault(meta.Class, kind)
}
