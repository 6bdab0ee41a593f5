package classes

import (
	"strings"
	"sync"
)

// Table is a bidirectional lookup between native format values and classes.
// The first native value listed for a class is used when exporting it.
type Table struct {
	forward map[string]string
	reverse map[string]string
	mu      sync.RWMutex
}

func newTable(pairs [][2]string) *Table {
	t := &Table{
		forward: make(map[string]string, len(pairs)),
		reverse: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		t.forward[normalize(p[0])] = p[1]
		if _, ok := t.reverse[p[1]]; !ok {
			t.reverse[p[1]] = p[0]
		}
	}
	return t
}

func normalize(native string) string {
	return strings.ToLower(strings.TrimSpace(native))
}

// Class returns the class mapped to a native value.
func (t *Table) Class(native string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.forward[normalize(native)]
	return c, ok
}

// Native returns the native value a class exports to.
func (t *Table) Native(class string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.reverse[class]
	return n, ok
}

// Set maps native to class in both directions, replacing earlier entries.
func (t *Table) Set(native, class string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.forward[normalize(native)] = class
	t.reverse[class] = native
}

// Len returns the number of native values.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.forward)
}
