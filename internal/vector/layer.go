package vector

import (
	"github.com/woozymasta/geoxchange/internal/geo"

	"github.com/paulmach/orb"
)

// Layer is an ordered collection of objects sharing one NodeMap.
type Layer struct {
	Name    string
	Objects []Object
	Visible bool
}

// NewLayer creates a visible, empty layer.
func NewLayer(name string) *Layer {
	return &Layer{Name: name, Visible: true}
}

// Add appends objects to the layer.
func (l *Layer) Add(objs ...Object) {
	l.Objects = append(l.Objects, objs...)
}

// Remove drops o from the layer, comparing by identity.
func (l *Layer) Remove(o Object) bool {
	for i, cur := range l.Objects {
		if cur == o {
			l.Objects = append(l.Objects[:i], l.Objects[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of objects.
func (l *Layer) Len() int {
	return len(l.Objects)
}

// Counts tallies objects per geometry kind.
func (l *Layer) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, o := range l.Objects {
		counts[o.Kind()]++
	}
	return counts
}

// View is the initial map view.
type View struct {
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
	Zoom int     `json:"zoom" yaml:"zoom"`
}

// Map bundles layers, theme and node map of one open document.
type Map struct {
	View       *View
	Theme      *Theme
	Nodes      *NodeMap
	Name       string
	Projection geo.Projection
	Layers     []*Layer
}

// NewMap creates an empty Mercator map. A nil node map gets a fresh one.
func NewMap(name string, nodes *NodeMap) *Map {
	if nodes == nil {
		nodes = NewNodeMap()
	}
	return &Map{
		Name:       name,
		Projection: geo.Mercator,
		Theme:      NewTheme(),
		Nodes:      nodes,
	}
}

// AddLayer appends layers to the map.
func (m *Map) AddLayer(layers ...*Layer) {
	m.Layers = append(m.Layers, layers...)
}

// Layer returns the first layer named name.
func (m *Map) Layer(name string) (*Layer, bool) {
	for _, l := range m.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// ObjectCount returns the number of objects over all layers.
func (m *Map) ObjectCount() int {
	n := 0
	for _, l := range m.Layers {
		n += l.Len()
	}
	return n
}

// Bound returns the bounding box of every coordinate used by the map's objects.
func (m *Map) Bound() (orb.Bound, bool) {
	var (
		b     orb.Bound
		found bool
	)
	for _, l := range m.Layers {
		for _, o := range l.Objects {
			EachCoord(o, func(id int64) {
				c, ok := m.Nodes.Get(id)
				if !ok {
					return
				}
				p := orb.Point{c.Lon, c.Lat}
				if !found {
					b = p.Bound()
					found = true
					return
				}
				b = b.Extend(p)
			})
		}
	}
	return b, found
}

// EnsureView derives the view from content bounds when none is set.
func (m *Map) EnsureView() {
	if m.View != nil {
		return
	}
	b, ok := m.Bound()
	if !ok {
		m.View = &View{}
		return
	}
	center := b.Center()
	m.View = &View{
		Lat:  center.Lat(),
		Lon:  center.Lon(),
		Zoom: geo.ZoomForBound(m.Projection, b, geo.DefaultMaxZoom),
	}
}
