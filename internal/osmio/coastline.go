package osmio

import (
	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// closureFactor bounds the endpoint gap of a chain that is still treated as
// closed, relative to the chain's longest step.
const closureFactor = 2.0

type chain struct {
	first *way
	ids   []int64
}

// stitchCoastline merges coastline ways sharing endpoint nodes into chains.
// Chains that close, or whose endpoints lie within twice their longest step,
// become Small Island polygons; the rest stay Coastline lines.
func stitchCoastline(nodes *vector.NodeMap, ways []*way) []vector.Object {
	if len(ways) == 0 {
		return nil
	}

	chains := make([]*chain, 0, len(ways))
	for _, w := range ways {
		ids := make([]int64, len(w.ids))
		copy(ids, w.ids)
		chains = append(chains, &chain{first: w, ids: ids})
	}
	chains = stitch(chains)

	out := make([]vector.Object, 0, len(chains))
	for _, c := range chains {
		out = append(out, coastObject(nodes, c))
	}
	return out
}

// Stitch merges id sequences joined at their endpoints until no pair is left
// to merge. Closed sequences are not extended.
func Stitch(seqs [][]int64) [][]int64 {
	chains := make([]*chain, 0, len(seqs))
	for _, s := range seqs {
		chains = append(chains, &chain{ids: s})
	}
	chains = stitch(chains)

	out := make([][]int64, 0, len(chains))
	for _, c := range chains {
		out = append(out, c.ids)
	}
	return out
}

func stitch(chains []*chain) []*chain {
	for merged := true; merged; {
		merged = false

	search:
		for i := 0; i < len(chains); i++ {
			a := chains[i].ids
			if len(a) == 0 || vector.IsClosed(a) {
				continue
			}

			for j := 0; j < len(chains); j++ {
				b := chains[j].ids
				if i == j || len(b) == 0 || vector.IsClosed(b) {
					continue
				}

				joined := join(a, b)
				if joined == nil {
					continue
				}

				chains[i].ids = joined
				chains = append(chains[:j], chains[j+1:]...)
				merged = true
				break search
			}
		}
	}
	return chains
}

// join connects b to a in one of four orientations, dropping the shared
// endpoint. It returns nil when the sequences do not touch.
func join(a, b []int64) []int64 {
	aStart, aEnd := a[0], a[len(a)-1]
	bStart, bEnd := b[0], b[len(b)-1]

	out := make([]int64, 0, len(a)+len(b)-1)
	switch {
	case aEnd == bStart:
		out = append(out, a...)
		out = append(out, b[1:]...)
	case bEnd == aStart:
		out = append(out, b...)
		out = append(out, a[1:]...)
	case aStart == bStart:
		out = append(out, reversed(b)...)
		out = append(out, a[1:]...)
	case aEnd == bEnd:
		out = append(out, a...)
		out = append(out, reversed(b)[1:]...)
	default:
		return nil
	}
	return out
}

func reversed(s []int64) []int64 {
	out := make([]int64, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// coastObject turns a stitched chain into a polygon or a line.
func coastObject(nodes *vector.NodeMap, c *chain) vector.Object {
	ids := c.ids
	if ShouldClose(nodes, ids) {
		poly := &vector.Polygon{Meta: vector.Meta{Coords: vector.Closed(ids)}}
		coastMeta(&poly.Meta, c, classes.SmallIsland)
		return poly
	}

	line := &vector.LineString{Meta: vector.Meta{Coords: ids}}
	coastMeta(&line.Meta, c, classes.Coastline)
	return line
}

func coastMeta(meta *vector.Meta, c *chain, class string) {
	if c.first != nil {
		applyTags(meta, c.first.tags, vector.KindPolygon)
		meta.Ref = c.first.id
	}
	meta.Class = class
}

// ShouldClose reports whether a chain is closed or its endpoint gap is at
// most twice its longest consecutive step. Distances are haversine meters.
func ShouldClose(nodes *vector.NodeMap, ids []int64) bool {
	if vector.IsClosed(ids) {
		return len(ids) > 3
	}

	coords, missing := nodes.Resolve(ids)
	if len(missing) > 0 || len(coords) < 3 {
		return false
	}

	var maxStep float64
	for i := 1; i < len(coords); i++ {
		if d := distance(coords[i-1], coords[i]); d > maxStep {
			maxStep = d
		}
	}

	gap := distance(coords[0], coords[len(coords)-1])
	return gap <= closureFactor*maxStep
}

func distance(a, b vector.Coordinate) float64 {
	return geo.DistanceHaversine(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
}
