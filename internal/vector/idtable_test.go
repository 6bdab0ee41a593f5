package vector

import (
	"errors"
	"testing"

	"github.com/cheekybits/is"
)

func TestIDTableKeepsFreeIDs(t *testing.T) {
	is := is.New(t)

	m := NewNodeMap()
	tbl := m.NewIDTable()

	id, err := tbl.Put(7, NewCoordinate(1, 2, 0))
	is.NoErr(err)
	is.Equal(id, int64(7))

	id, err = tbl.Lookup(7)
	is.NoErr(err)
	is.Equal(id, int64(7))

	_, err = tbl.Lookup(8)
	is.True(errors.Is(err, ErrNodeNotFound))
}

func TestIDTableRemapsTakenIDs(t *testing.T) {
	is := is.New(t)

	m := NewNodeMap()
	first := m.Put(NewCoordinate(5, 5, 0))
	is.Equal(first, int64(1))

	tbl := m.NewIDTable()
	id, err := tbl.Put(1, NewCoordinate(40, 10, 0))
	is.NoErr(err)
	is.True(id != first)

	c, ok := m.Get(id)
	is.True(ok)
	is.Equal(c.Lat, 40.0)

	// the earlier coordinate is untouched
	c, _ = m.Get(first)
	is.Equal(c.Lat, 5.0)

	ids, errs := tbl.ParseSequence("1 2")
	is.Equal(ids, []int64{id})
	is.Equal(len(errs), 1)
}

func TestIDTableDuplicateDocumentID(t *testing.T) {
	is := is.New(t)

	tbl := NewNodeMap().NewIDTable()
	_, err := tbl.Put(3, NewCoordinate(1, 1, 0))
	is.NoErr(err)
	_, err = tbl.Put(3, NewCoordinate(1, 1, 0))
	is.NoErr(err)

	_, err = tbl.Put(3, NewCoordinate(2, 2, 0))
	is.True(errors.Is(err, ErrIDConflict))
	is.Equal(tbl.Len(), 1)
}
