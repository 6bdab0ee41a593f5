package gpxio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/cheekybits/is"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata><name>Weekend</name></metadata>
  <wpt lat="47.1" lon="8.5">
    <ele>420.5</ele>
    <name>Summit &amp; view</name>
    <sym>Summit</sym>
  </wpt>
  <wpt lat="47.2" lon="8.6">
    <name>Odd</name>
    <sym>Ufo</sym>
  </wpt>
  <trk>
    <name>Hike</name>
    <trkseg>
      <trkpt lat="47.1" lon="8.5"><ele>420.5</ele><time>2024-05-01T10:00:00Z</time></trkpt>
      <trkpt lat="47.15" lon="8.55"><time>2024-05-01T10:10:00Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="47.3" lon="8.7"/>
      <trkpt lat="bad" lon="8.8"/>
      <trkpt lat="47.4" lon="8.9"/>
    </trkseg>
  </trk>
  <rte>
    <name>Drive</name>
    <rtept lat="46" lon="7"/>
    <rtept lat="46.5" lon="7.5"/>
  </rte>
</gpx>`

func TestDecode(t *testing.T) {
	is := is.New(t)

	nodes := vector.NewNodeMap()
	rep := report.New(Format)
	l, err := Decode(strings.NewReader(sample), nodes, rep)
	is.NoErr(err)
	is.Equal(l.Name, "Weekend")
	is.Equal(l.Len(), 5)
	is.Equal(rep.Errors(), 0)
	is.Equal(rep.Warnings(), 1)

	summit := l.Objects[0].(*vector.Point)
	is.Equal(summit.Name, "Summit & view")
	is.Equal(summit.Class, "Summit")

	odd := l.Objects[1].(*vector.Point)
	is.Equal(odd.Class, "Unspecified Point")
	is.Equal(odd.Fields.Value("sym"), "Ufo")

	hike := l.Objects[2].(*vector.LineString)
	is.Equal(hike.Name, "Hike")
	is.Equal(len(hike.Coords), 2)
	// the first track point sits on the summit waypoint
	is.Equal(hike.Coords[0], summit.Coords[0])
	c, _ := nodes.Get(hike.Coords[1])
	is.Equal(c.Time, "2024-05-01T10:10:00Z")

	second := l.Objects[3].(*vector.LineString)
	is.Equal(second.Name, "Hike")
	is.Equal(len(second.Coords), 2)

	drive := l.Objects[4].(*vector.LineString)
	is.Equal(drive.Name, "Drive")
	is.Equal(drive.Fields.Value("gpx"), "rte")
}

func TestDecodeTruncated(t *testing.T) {
	is := is.New(t)

	doc := `<gpx><wpt lat="1" lon="2"><name>a</name></wpt><wpt lat="3" lon="4"><name>b</name>
<trk><name>t</name><trkseg><trkpt lat="5" lon="6"/><trkpt lat="7" lon="8"/>`

	l, err := Decode(strings.NewReader(doc), vector.NewNodeMap(), report.New(Format))
	is.NoErr(err)
	is.Equal(l.Len(), 3)
}

func TestDecodeMalformedWaypoint(t *testing.T) {
	is := is.New(t)

	doc := `<gpx><wpt lon="2"><name>nolat</name></wpt><wpt lat="1" lon="2"/></gpx>`

	rep := report.New(Format)
	l, err := Decode(strings.NewReader(doc), vector.NewNodeMap(), rep)
	is.NoErr(err)
	is.Equal(l.Len(), 1)
	is.Equal(rep.Errors(), 1)
	is.Equal(rep.Entries()[0].Object, "wpt nolat")
}

func TestDecodeMissingRoot(t *testing.T) {
	is := is.New(t)

	_, err := Decode(strings.NewReader(`{"type":"Feature"}`), vector.NewNodeMap(), report.New(Format))
	is.True(errors.Is(err, report.ErrMissingRoot))
}

func TestRoundTrip(t *testing.T) {
	is := is.New(t)

	nodes := vector.NewNodeMap()
	l, err := Decode(strings.NewReader(sample), nodes, report.New(Format))
	is.NoErr(err)

	m := vector.NewMap(l.Name, nodes)
	m.AddLayer(l)

	var buf bytes.Buffer
	is.NoErr(Encode(&buf, m))
	out := buf.String()
	is.True(strings.Contains(out, "<sym>Summit</sym>"))
	is.True(strings.Contains(out, "<sym>Ufo</sym>"))
	is.True(strings.Contains(out, "<rtept"))

	l2, err := Decode(&buf, vector.NewNodeMap(), report.New(Format))
	is.NoErr(err)
	is.Equal(l2.Name, "Weekend")
	is.Equal(l2.Len(), l.Len())
	for i, o := range l.Objects {
		is.Equal(l2.Objects[i].Kind(), o.Kind())
		is.Equal(l2.Objects[i].Base().Name, o.Base().Name)
		is.Equal(len(l2.Objects[i].Base().Coords), len(o.Base().Coords))
	}
}

func TestUnspecifiedPointKeepsClass(t *testing.T) {
	is := is.New(t)

	nodes := vector.NewNodeMap()
	p := vector.NewPoint(nodes.Put(vector.NewCoordinate(47, 8, 0)))
	p.Name = "Somewhere"
	p.Class = classes.UnspecifiedPoint
	l := vector.NewLayer(DefaultLayer)
	l.Add(p)
	m := vector.NewMap("", nodes)
	m.AddLayer(l)

	var buf bytes.Buffer
	is.NoErr(Encode(&buf, m))
	is.False(strings.Contains(buf.String(), "<sym>"))

	back, err := Decode(&buf, vector.NewNodeMap(), report.New(Format))
	is.NoErr(err)
	is.Equal(back.Len(), 1)
	is.Equal(back.Objects[0].Base().Class, classes.UnspecifiedPoint)
}
