package vector

import "fmt"

// IDTable translates the node ids of one document into ids of the node map
// it is imported into. Documents merged into a shared map never resolve a
// reference against another document's coordinates.
type IDTable struct {
	nodes *NodeMap
	ids   map[int64]int64
}

// NewIDTable starts an empty translation for one document.
func (m *NodeMap) NewIDTable() *IDTable {
	return &IDTable{nodes: m, ids: make(map[int64]int64)}
}

// Put stores c read under the document id docID and returns its map id.
// The document id is kept when the map does not use it yet or already holds
// the same location there; otherwise c is interned under another id.
// Reading one document id twice with different locations is an error.
func (t *IDTable) Put(docID int64, c Coordinate) (int64, error) {
	if id, ok := t.ids[docID]; ok {
		if prev, _ := t.nodes.Get(id); prev.SameLocation(c) {
			return id, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrIDConflict, docID)
	}

	id := docID
	if err := t.nodes.PutID(docID, c); err != nil {
		id = t.nodes.Put(c)
	}
	t.ids[docID] = id
	return id, nil
}

// Lookup returns the map id stored for docID.
func (t *IDTable) Lookup(docID int64) (int64, error) {
	id, ok := t.ids[docID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNodeNotFound, docID)
	}
	return id, nil
}

// Len returns the number of document ids read.
func (t *IDTable) Len() int {
	return len(t.ids)
}

// ParseSequence is NodeMap.ParseSequence with bare integer groups read as
// document ids.
func (t *IDTable) ParseSequence(text string) (ids []int64, errs []error) {
	return parseSequence(t.nodes, text, t.Lookup)
}
