package osmio

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/beevik/etree"
	"github.com/paulmach/osm"
)

type member struct {
	role string
	ref  int64
}

func (d *decoder) relation(el *etree.Element) {
	rawID := el.SelectAttrValue("id", "")
	label := "relation " + rawID

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		d.rep.Malformed(label, fmt.Errorf("bad id: %w", err))
		return
	}

	tags := readTags(el)
	var members []member
	for _, m := range el.SelectElements("member") {
		if m.SelectAttrValue("type", "") != string(osm.TypeWay) {
			continue
		}
		ref, err := strconv.ParseInt(m.SelectAttrValue("ref", ""), 10, 64)
		if err != nil {
			d.rep.MissingRef(label, fmt.Errorf("bad member ref: %w", err))
			continue
		}
		members = append(members, member{ref: ref, role: m.SelectAttrValue("role", "")})
	}

	switch tags.Find("type") {
	case "multipolygon":
		d.multipolygon(id, label, tags, members)
	case "route":
		d.route(id, label, tags, members)
	}
}

// member resolves a member way, reporting missing ones.
func (d *decoder) member(label string, m member) (*way, bool) {
	w, ok := d.ways[m.ref]
	if !ok {
		d.rep.MissingRef(label, fmt.Errorf("%w: way %d", vector.ErrNodeNotFound, m.ref))
		return nil, false
	}
	return w, true
}

// multipolygon builds one polygon from the outer members and adds every inner
// member as a hole. With several outers their coordinates are concatenated
// in member order.
func (d *decoder) multipolygon(id int64, label string, tags osm.Tags, members []member) {
	var outers, inners []*way
	for _, m := range members {
		w, ok := d.member(label, m)
		if !ok {
			continue
		}
		switch m.role {
		case "inner":
			inners = append(inners, w)
		default:
			outers = append(outers, w)
		}
	}

	if len(outers) == 0 {
		d.rep.Malformed(label, fmt.Errorf("multipolygon without outer ways"))
		return
	}

	var poly *vector.Polygon
	if len(outers) == 1 && outers[0].obj != nil {
		p, err := vector.AsPolygon(outers[0].obj)
		if err != nil {
			d.rep.Malformed(label, err)
			return
		}
		// the way may be the outer of another relation too
		poly = &vector.Polygon{Meta: p.Meta}
		poly.Fields = slices.Clone(p.Fields)
	} else {
		var coords []int64
		for _, w := range outers {
			coords = append(coords, w.ids...)
		}
		poly = &vector.Polygon{Meta: vector.Meta{Coords: coords}}
		applyTags(&poly.Meta, outers[0].tags, vector.KindPolygon)
	}

	for _, w := range outers {
		d.consume(w)
	}
	for _, w := range inners {
		poly.Inner = append(poly.Inner, vector.InnerBoundary{Coords: w.ids})
		if !meaningful(w.tags) {
			d.consume(w)
		}
	}

	d.relationMeta(&poly.Meta, id, tags, vector.KindPolygon)
	d.layer.Add(poly)
}

// route collects member ways in order into one multi geometry.
func (d *decoder) route(id int64, label string, tags osm.Tags, members []member) {
	multi := &vector.MultiGeometry{}
	for _, m := range members {
		w, ok := d.member(label, m)
		if !ok {
			continue
		}
		part := w.obj
		if part == nil {
			// coastline ways have no object of their own yet
			part = &vector.LineString{Meta: vector.Meta{Coords: w.ids}}
			applyTags(part.Base(), w.tags, vector.KindLineString)
		}
		_ = multi.Add(part)
		d.consume(w)
	}

	if len(multi.Parts) == 0 {
		d.rep.Malformed(label, vector.ErrEmptyGeometry)
		return
	}

	d.relationMeta(&multi.Meta, id, tags, vector.KindMultiGeometry)
	d.layer.Add(multi)
}

// consume takes a way out of the flat listing.
func (d *decoder) consume(w *way) {
	if w.obj != nil {
		d.layer.Remove(w.obj)
	}
	d.used[w.id] = true
}

// relationMeta applies relation tags on top of what the members provided.
func (d *decoder) relationMeta(meta *vector.Meta, id int64, tags osm.Tags, kind vector.Kind) {
	var rest osm.Tags
	for _, t := range tags {
		if t.Key != "type" {
			rest = append(rest, t)
		}
	}

	memberClass := meta.Class
	meta.Class = ""
	applyTags(meta, rest, kind)
	if classes.IsUnspecified(meta.Class) && !classes.IsUnspecified(memberClass) {
		meta.Class = memberClass
	}
	meta.Fields.Set("type", tags.Find("type"))
	meta.Ref = id
}
