package vector

import (
	"errors"
	"testing"

	"github.com/cheekybits/is"
)

func TestConstructorsRejectEmpty(t *testing.T) {
	is := is.New(t)

	_, err := NewLineString(nil)
	is.True(errors.Is(err, ErrEmptyGeometry))
	_, err = NewLinearRing(nil)
	is.True(errors.Is(err, ErrEmptyGeometry))
	_, err = NewPolygon(nil)
	is.True(errors.Is(err, ErrEmptyGeometry))
	_, err = NewMultiGeometry()
	is.True(errors.Is(err, ErrEmptyGeometry))
}

func TestMultiGeometryRejectsNesting(t *testing.T) {
	is := is.New(t)

	inner, err := NewMultiGeometry(NewPoint(1))
	is.NoErr(err)

	_, err = NewMultiGeometry(NewPoint(2), inner)
	is.True(errors.Is(err, ErrNestedMulti))
}

func TestValidate(t *testing.T) {
	is := is.New(t)

	m := NewNodeMap()
	a := m.Put(NewCoordinate(0, 0, 0))
	b := m.Put(NewCoordinate(0, 1, 0))
	c := m.Put(NewCoordinate(1, 1, 0))

	poly, err := NewPolygon([]int64{a, b, c, a}, []int64{}, []int64{b, c, b})
	is.NoErr(err)
	is.Equal(len(poly.Inner), 1)
	is.NoErr(Validate(poly, m))

	poly.Inner[0].Coords = []int64{404}
	is.True(errors.Is(Validate(poly, m), ErrNodeNotFound))

	multi := &MultiGeometry{Parts: []Object{NewPoint(a), &MultiGeometry{}}}
	is.True(errors.Is(Validate(multi, m), ErrNestedMulti))
}

func TestAsPolygonKeepsMeta(t *testing.T) {
	is := is.New(t)

	ls, err := NewLineString([]int64{1, 2, 3, 1})
	is.NoErr(err)
	ls.Name = "Pond"
	ls.Fields.Add("natural", "water")

	p, err := AsPolygon(ls)
	is.NoErr(err)
	is.Equal(p.Name, "Pond")
	is.Equal(p.Fields.Value("natural"), "water")
	is.Equal(p.Kind(), KindPolygon)

	_, err = AsPolygon(NewPoint(1))
	is.Err(err)
}

func TestClosed(t *testing.T) {
	is := is.New(t)

	is.True(IsClosed([]int64{1, 2, 1}))
	is.False(IsClosed([]int64{1}))
	is.Equal(Closed([]int64{1, 2, 3}), []int64{1, 2, 3, 1})
	is.Equal(Closed([]int64{1, 2, 1}), []int64{1, 2, 1})
}

func TestKindNames(t *testing.T) {
	is := is.New(t)

	for k := KindPoint; k <= KindMultiGeometry; k++ {
		parsed, ok := ParseKind(k.String())
		is.True(ok)
		is.Equal(parsed, k)
	}
	_, ok := ParseKind("Circle")
	is.False(ok)
}

func TestFieldsMultimap(t *testing.T) {
	is := is.New(t)

	var f Fields
	f.Add("ref", "A1")
	f.Add("ref", "E50")
	f.Set("name", "Road")
	f.Set("name", "Main Road")

	is.Equal(f.All("ref"), []string{"A1", "E50"})
	is.Equal(f.Value("name"), "Main Road")
	is.Equal(len(f), 3)

	f.Delete("ref")
	is.Equal(len(f), 1)
}
