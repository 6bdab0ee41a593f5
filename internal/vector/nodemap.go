package vector

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrIDConflict is returned when an explicit id already holds another location.
	ErrIDConflict = errors.New("node id already assigned to another location")

	// ErrNodeNotFound is returned when a referenced node id is absent.
	ErrNodeNotFound = errors.New("node not found")
)

// NodeMap interns coordinates so coincident points share one identity.
// Writers must be serialized by the caller; reads are safe alongside a writer.
type NodeMap struct {
	index  map[int64]int
	refs   map[int64]int
	lookup map[locationKey]int64
	coords []Coordinate
	maxID  int64
	mu     sync.RWMutex
}

// NewNodeMap creates an empty node map.
func NewNodeMap() *NodeMap {
	return &NodeMap{
		index:  make(map[int64]int),
		refs:   make(map[int64]int),
		lookup: make(map[locationKey]int64),
	}
}

// Put stores c and returns its id. A coordinate on an already known lat/lon
// returns the existing id.
func (m *NodeMap) Put(c Coordinate) int64 {
	id, _ := m.Intern(c)
	return id
}

// Intern is Put that also reports whether an existing coordinate was reused.
func (m *NodeMap) Intern(c Coordinate) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.lookup[keyOf(c.Lat, c.Lon)]; ok {
		return id, true
	}

	m.maxID++
	c.ID = m.maxID
	m.insert(c)
	return c.ID, false
}

// PutID stores c under an explicit, format-provided id.
// Storing the same location twice under one id is a no-op.
func (m *NodeMap) PutID(id int64, c Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.index[id]; ok {
		if m.coords[i].SameLocation(c) {
			return nil
		}
		return fmt.Errorf("%w: %d", ErrIDConflict, id)
	}

	c.ID = id
	m.insert(c)
	if id > m.maxID {
		m.maxID = id
	}
	return nil
}

func (m *NodeMap) insert(c Coordinate) {
	m.index[c.ID] = len(m.coords)
	m.coords = append(m.coords, c)

	key := keyOf(c.Lat, c.Lon)
	if _, ok := m.lookup[key]; !ok {
		m.lookup[key] = c.ID
	}
}

// Get returns the coordinate stored under id.
func (m *NodeMap) Get(id int64) (Coordinate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return Coordinate{}, false
	}
	return m.coords[i], true
}

// Has reports whether id is present.
func (m *NodeMap) Has(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.index[id]
	return ok
}

// FindKey returns the id of a coordinate stored at lat/lon.
func (m *NodeMap) FindKey(lat, lon float64) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.lookup[keyOf(lat, lon)]
	return id, ok
}

// Len returns the number of stored coordinates.
func (m *NodeMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.coords)
}

// At returns the coordinate at insertion index i.
func (m *NodeMap) At(i int) Coordinate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coords[i]
}

// IDs returns every id in ascending order.
func (m *NodeMap) IDs() []int64 {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.coords))
	for _, c := range m.coords {
		ids = append(ids, c.ID)
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarkShared flags the coordinate as referenced by more than one geometry.
func (m *NodeMap) MarkShared(id int64) {
	m.update(id, func(c *Coordinate) { c.Shared = true })
}

// SetAltitude backfills the altitude of a stored coordinate.
func (m *NodeMap) SetAltitude(id int64, alt float64) {
	m.update(id, func(c *Coordinate) { c.Alt = alt })
}

// SetTime sets the timestamp of a stored coordinate.
func (m *NodeMap) SetTime(id int64, ts string) {
	m.update(id, func(c *Coordinate) { c.Time = ts })
}

func (m *NodeMap) update(id int64, fn func(c *Coordinate)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.index[id]; ok {
		fn(&m.coords[i])
	}
}

// Reference counts one more geometry using id outside of a Sequence.
func (m *NodeMap) Reference(id int64) error {
	if !m.reference(id) {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return nil
}

// reference counts one more geometry using id and flags the coordinate
// shared from the second one on.
func (m *NodeMap) reference(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok {
		return false
	}
	m.refs[id]++
	if m.refs[id] > 1 {
		m.coords[i].Shared = true
	}
	return true
}

// Resolve looks up ids in order, returning found coordinates and the ids
// that were missing.
func (m *NodeMap) Resolve(ids []int64) ([]Coordinate, []int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Coordinate, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		i, ok := m.index[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, m.coords[i])
	}
	return out, missing
}
