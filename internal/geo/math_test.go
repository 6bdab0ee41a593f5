package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/cheekybits/is"
	"github.com/paulmach/orb"
)

func TestProjectRoundTrip(t *testing.T) {
	is := is.New(t)

	for _, p := range []Projection{Mercator, Equirectangular} {
		x, y := p.Project(13.4, 52.5)
		lon, lat := p.Unproject(x, y)
		is.True(math.Abs(lon-13.4) < 1e-9)
		is.True(math.Abs(lat-52.5) < 1e-9)
	}
}

func TestMercatorClampsLatitude(t *testing.T) {
	is := is.New(t)

	_, y := Mercator.Project(0, 89.9)
	is.True(y >= 0)
	_, y = Mercator.Project(0, MaxLat)
	is.True(y >= 0 && y < 1e-9)
	_, y = Mercator.Project(0, -89.9)
	is.True(y <= 1)
	_, lat := Mercator.Unproject(0.5, -1)
	is.Equal(lat, MaxLat)
}

func TestParseProjection(t *testing.T) {
	is := is.New(t)

	p, err := ParseProjection("EPSG:4326")
	is.NoErr(err)
	is.Equal(p, Equirectangular)

	p, err = ParseProjection("lambert")
	is.True(errors.Is(err, ErrUnknownProjection))
	is.Equal(p, Mercator)
}

func TestZoomForBound(t *testing.T) {
	is := is.New(t)

	world := orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}}
	is.Equal(ZoomForBound(Mercator, world, 18), 0)

	small := orb.Bound{Min: orb.Point{13.40, 52.50}, Max: orb.Point{13.41, 52.51}}
	z := ZoomForBound(Mercator, small, 18)
	is.True(z > 10)
	is.True(z <= 18)

	point := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 1}}
	is.Equal(ZoomForBound(Mercator, point, 12), 12)
}
