package vector

import (
	"image/color"
	"testing"

	"github.com/cheekybits/is"
)

func TestThemeResolveAlias(t *testing.T) {
	is := is.New(t)

	th := NewTheme()
	// alias before its target exists
	th.Alias("lakeMap", "lake")
	th.Set(&Style{ID: "lake", LineWidth: 2})
	th.Set(&Style{ID: "road"})

	s, ok := th.Resolve("lakeMap")
	is.True(ok)
	is.Equal(s.ID, "lake")

	_, ok = th.Resolve("missing")
	is.False(ok)

	styles := th.Styles()
	is.Equal(len(styles), 2)
	is.Equal(styles[0].ID, "lake")
	is.Equal(styles[1].ID, "road")
}

func TestKMLColor(t *testing.T) {
	is := is.New(t)

	c, err := ParseKMLColor("7f00ff00")
	is.NoErr(err)
	is.Equal(c, color.NRGBA{R: 0, G: 255, B: 0, A: 127})
	is.Equal(FormatKMLColor(c), "7f00ff00")

	_, err = ParseKMLColor("zz")
	is.Err(err)
}

func TestMapEnsureView(t *testing.T) {
	is := is.New(t)

	m := NewMap("test", nil)
	l := NewLayer("points")
	l.Add(NewPoint(m.Nodes.Put(NewCoordinate(10, 10, 0))))
	l.Add(NewPoint(m.Nodes.Put(NewCoordinate(20, 20, 0))))
	m.AddLayer(l)

	m.EnsureView()
	is.NotNil(m.View)
	is.Equal(m.View.Lat, 15.0)
	is.Equal(m.View.Lon, 15.0)
	is.True(m.View.Zoom > 0)
	is.Equal(m.ObjectCount(), 2)
}
