package convert

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/cheekybits/is"
)

const sample = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Camp","class":"Campground"},"geometry":{"type":"Point","coordinates":[10.5,46.25]}},
 {"type":"Feature","properties":{"name":"Trail"},"geometry":{"type":"LineString","coordinates":[[10.5,46.25],[10.6,46.3],[10.7,46.31]]}}
]}`

const waypoints = `<?xml version="1.0"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <wpt lat="46.25" lon="10.5"><name>Spring</name></wpt>
</gpx>`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromExtension(t *testing.T) {
	is := is.New(t)

	for path, want := range map[string]Format{
		"a.fmxml":   FMXML,
		"a.XML":     FMXML,
		"a.kml":     KML,
		"b/a.kmz":   KMZ,
		"a.gpx":     GPX,
		"a.geojson": GeoJSON,
		"a.json":    GeoJSON,
		"a.osm":     OSM,
	} {
		f, err := FromExtension(path)
		is.NoErr(err)
		is.Equal(f, want)
	}

	_, err := FromExtension("a.shp")
	is.True(errors.Is(err, report.ErrUnsupportedFormat))
}

func TestParseFormat(t *testing.T) {
	is := is.New(t)

	f, err := ParseFormat("GeoJSON")
	is.NoErr(err)
	is.Equal(f, GeoJSON)

	f, err = ParseFormat(".kmz")
	is.NoErr(err)
	is.Equal(f, KMZ)

	_, err = ParseFormat("dxf")
	is.True(errors.Is(err, report.ErrUnsupportedFormat))
}

func TestImportUnsupported(t *testing.T) {
	is := is.New(t)

	_, rep, err := Import(write(t, "map.dxf", "0"), nil)
	is.True(errors.Is(err, report.ErrUnsupportedFormat))
	is.Equal(rep.Errors(), 1)
}

func TestImportMissingFile(t *testing.T) {
	is := is.New(t)

	_, _, err := Import(filepath.Join(t.TempDir(), "none.gpx"), nil)
	var ioErr *report.IOError
	is.True(errors.As(err, &ioErr))
}

func TestImportNamesMapAfterFile(t *testing.T) {
	is := is.New(t)

	m, rep, err := Import(write(t, "hike.geojson", sample), nil)
	is.NoErr(err)
	is.Equal(rep.Errors(), 0)
	is.Equal(m.Name, "hike")
	is.Equal(m.ObjectCount(), 2)
	is.True(m.View != nil)

	// the line starts on the point
	is.Equal(m.Nodes.Len(), 3)
}

func TestImportIntoSharesNodes(t *testing.T) {
	is := is.New(t)

	m, _, err := Import(write(t, "hike.geojson", sample), nil)
	is.NoErr(err)

	_, err = ImportInto(m, write(t, "water.gpx", waypoints), nil)
	is.NoErr(err)

	is.Equal(len(m.Layers), 2)
	is.Equal(m.ObjectCount(), 3)
	is.Equal(m.Nodes.Len(), 3)
}

// tour holds one object of each exported kind, with altitudes.
const tour = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Camp","class":"Campground"},"geometry":{"type":"Point","coordinates":[10.5,46.25,12]}},
 {"type":"Feature","properties":{"name":"Spot"},"geometry":{"type":"Point","coordinates":[10.55,46.27]}},
 {"type":"Feature","properties":{"name":"Trail"},"geometry":{"type":"LineString","coordinates":[[10.5,46.25,12],[10.6,46.3,40],[10.7,46.31,55]]}},
 {"type":"Feature","properties":{"name":"Field"},"geometry":{"type":"Polygon","coordinates":[[[11,47],[11.01,47],[11.01,47.01],[11,47]]]}}
]}`

func objects(m *vector.Map) []vector.Object {
	var out []vector.Object
	for _, l := range m.Layers {
		out = append(out, l.Objects...)
	}
	return out
}

func coords(m *vector.Map, o vector.Object) []vector.Coordinate {
	ids := o.Base().Coords
	switch o.(type) {
	case *vector.Polygon, *vector.LinearRing:
		ids = vector.Closed(ids)
	}
	out, _ := m.Nodes.Resolve(ids)
	return out
}

func TestRoundTripAllFormats(t *testing.T) {
	is := is.New(t)

	src, _, err := Import(write(t, "tour.geojson", tour), nil)
	is.NoErr(err)
	want := objects(src)
	is.Equal(len(want), 4)

	for _, f := range Formats {
		for _, minify := range []bool{false, true} {
			if f == KMZ && minify {
				continue
			}

			path := filepath.Join(t.TempDir(), "out"+f.Extension())
			is.NoErr(Export(src, path, ExportOptions{Minify: minify}))

			back, rep, err := Import(path, nil)
			is.NoErr(err)
			is.Equal(rep.Errors(), 0)

			got := objects(back)
			is.Equal(len(got), len(want))
			for i, o := range want {
				kind, class := o.Kind(), o.Base().Class
				if f == GPX && kind == vector.KindPolygon {
					// written as a track
					kind, class = vector.KindLineString, classes.UnspecifiedLine
				}
				is.Equal(got[i].Kind(), kind)
				is.Equal(got[i].Base().Name, o.Base().Name)
				is.Equal(got[i].Base().Class, class)

				a, b := coords(src, o), coords(back, got[i])
				is.Equal(len(b), len(a))
				for j := range a {
					is.True(a[j].SameLocation(b[j]))
					is.Equal(b[j].Alt, a[j].Alt)
				}
			}
		}
	}
}

func TestImportIntoKeepsOSMNodes(t *testing.T) {
	is := is.New(t)

	kml := `<kml><Document><Placemark><name>Fence</name>
<LineString><coordinates>5,5 6,6 7,7</coordinates></LineString></Placemark></Document></kml>`
	osm := `<osm version="0.6">
  <node id="1" lat="50" lon="10"/>
  <node id="2" lat="50" lon="11"/>
  <node id="3" lat="50" lon="12"/>
  <way id="9"><nd ref="1"/><nd ref="2"/><nd ref="3"/><tag k="highway" v="path"/></way>
</osm>`

	m, _, err := Import(write(t, "fence.kml", kml), nil)
	is.NoErr(err)
	rep, err := ImportInto(m, write(t, "paths.osm", osm), nil)
	is.NoErr(err)
	is.Equal(rep.Errors(), 0)
	is.Equal(m.Nodes.Len(), 6)

	path, ok := m.Layer("OSM")
	is.True(ok)
	is.Equal(path.Len(), 1)
	for i, c := range coords(m, path.Objects[0]) {
		is.Equal(c.Lat, 50.0)
		is.Equal(c.Lon, float64(10+i))
	}

	// fmxml node tables are translated the same way
	var buf bytes.Buffer
	is.NoErr(Encode(&buf, m, FMXML, ExportOptions{}))
	_, err = ImportInto(m, write(t, "again.fmxml", buf.String()), nil)
	is.NoErr(err)
	is.Equal(m.ObjectCount(), 4)
	is.Equal(m.Nodes.Len(), 6)
}

func TestMinify(t *testing.T) {
	is := is.New(t)

	src, _, err := Import(write(t, "hike.geojson", sample), nil)
	is.NoErr(err)

	var pretty, small bytes.Buffer
	is.NoErr(Encode(&pretty, src, FMXML, ExportOptions{}))
	is.NoErr(Encode(&small, src, FMXML, ExportOptions{Minify: true}))

	is.True(small.Len() < pretty.Len())
	is.True(!strings.Contains(small.String(), "\n  <"))
}

func TestDecodeStream(t *testing.T) {
	is := is.New(t)

	nodes := vector.NewNodeMap()
	m, err := Decode(strings.NewReader(waypoints), GPX, nodes, report.New(string(GPX)))
	is.NoErr(err)
	is.Equal(m.ObjectCount(), 1)
	is.Equal(m.Nodes, nodes)

	_, err = Decode(strings.NewReader(""), Format("dxf"), nodes, report.New("dxf"))
	is.True(errors.Is(err, report.ErrUnsupportedFormat))
}

func TestEncodeUnsupported(t *testing.T) {
	is := is.New(t)

	err := Encode(&bytes.Buffer{}, vector.NewMap("", nil), Format("dxf"), ExportOptions{})
	is.True(errors.Is(err, report.ErrUnsupportedFormat))
}
