package kmlio

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/cheekybits/is"
)

const styled = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:gx="http://www.google.com/kml/ext/2.2">
<Document>
  <name>Trip</name>
  <Style id="road-normal">
    <LineStyle><color>ff0000ff</color><width>3</width></LineStyle>
    <PolyStyle><color>7f00ff00</color><outline>0</outline></PolyStyle>
  </Style>
  <StyleMap id="road">
    <Pair><key>normal</key><styleUrl>#road-normal</styleUrl></Pair>
    <Pair><key>highlight</key><styleUrl>#road-hl</styleUrl></Pair>
  </StyleMap>
  <Placemark>
    <name>Loose</name>
    <Point><coordinates>5,6</coordinates></Point>
  </Placemark>
  <Folder>
    <name>Roads</name>
    <Placemark>
      <name>Main street</name>
      <description><![CDATA[<b>busy</b>]]></description>
      <styleUrl>#road</styleUrl>
      <ExtendedData>
        <Data name="lanes"><value>2</value></Data>
        <SchemaData schemaUrl="#s"><SimpleData name="surface">asphalt</SimpleData></SchemaData>
      </ExtendedData>
      <LineString><altitudeMode>absolute</altitudeMode><coordinates>1,1,0 2,2,0</coordinates></LineString>
    </Placemark>
    <Placemark>
      <name>Walk</name>
      <gx:Track>
        <when>2024-05-01T10:00:00Z</when>
        <when>2024-05-01T10:01:00Z</when>
        <gx:coord>7 8 100</gx:coord>
        <gx:coord>7.1 8.1 101</gx:coord>
      </gx:Track>
    </Placemark>
    <Folder>
      <name>Paths</name>
      <Placemark>
        <name>Yard</name>
        <Polygon>
          <outerBoundaryIs><LinearRing><coordinates>0,0 4,0 4,4 0,4 0,0</coordinates></LinearRing></outerBoundaryIs>
          <innerBoundaryIs><LinearRing><coordinates>1,1 2,1 2,2 1,1</coordinates></LinearRing></innerBoundaryIs>
        </Polygon>
      </Placemark>
    </Folder>
  </Folder>
</Document>
</kml>`

func TestDecodeDocument(t *testing.T) {
	is := is.New(t)

	nodes := vector.NewNodeMap()
	rep := report.New(Format)
	m, err := Decode(strings.NewReader(styled), nodes, rep)
	is.NoErr(err)
	is.Equal(rep.Errors(), 0)

	is.Equal(m.Name, "Trip")
	is.Equal(len(m.Layers), 3)
	is.Equal(m.Layers[0].Name, "Trip")
	is.Equal(m.Layers[1].Name, "Roads")
	is.Equal(m.Layers[2].Name, "Roads/Paths")

	line, ok := m.Layers[1].Objects[0].(*vector.LineString)
	is.True(ok)
	is.Equal(line.Class, "road")
	is.Equal(line.Description, "<b>busy</b>")
	is.Equal(line.Fields.Value("lanes"), "2")
	is.Equal(line.Fields.Value("surface"), "asphalt")
	is.Equal(line.AltitudeMode, vector.Absolute)

	s, ok := m.Theme.Resolve(line.Class)
	is.True(ok)
	is.Equal(s.ID, "road-normal")
	is.Equal(s.LineWidth, 3.0)
	is.Equal(s.Outline, false)

	track, ok := m.Layers[1].Objects[1].(*vector.LineString)
	is.True(ok)
	is.Equal(len(track.Coords), 2)
	c, _ := nodes.Get(track.Coords[1])
	is.Equal(c.Time, "2024-05-01T10:01:00Z")
	is.Equal(c.Alt, 101.0)

	poly, ok := m.Layers[2].Objects[0].(*vector.Polygon)
	is.True(ok)
	is.Equal(len(poly.Inner), 1)

	// the polygon's hole starts on the line's first coordinate
	first, _ := nodes.Get(line.Coords[0])
	is.True(first.Shared)
}

func TestSharedFirstCoordinate(t *testing.T) {
	is := is.New(t)

	doc := `<kml><Document>
  <Placemark><LineString><coordinates>1,1,0 2,2,0</coordinates></LineString></Placemark>
  <Placemark><LineString><coordinates>1,1,0 3,3,0</coordinates></LineString></Placemark>
</Document></kml>`

	nodes := vector.NewNodeMap()
	m, err := Decode(strings.NewReader(doc), nodes, report.New(Format))
	is.NoErr(err)

	objs := m.Layers[0].Objects
	is.Equal(len(objs), 2)
	is.Equal(objs[0].Base().Coords[0], objs[1].Base().Coords[0])
	is.Equal(nodes.Len(), 3)

	c, _ := nodes.Get(objs[0].Base().Coords[0])
	is.True(c.Shared)
	other, _ := nodes.Get(objs[0].Base().Coords[1])
	is.Equal(other.Shared, false)
}

func TestMalformedPlacemarkSkipped(t *testing.T) {
	is := is.New(t)

	var sb strings.Builder
	sb.WriteString("<kml><Document><name>pts</name>")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "<Placemark><name>p%d</name><Point><coordinates>%d,1</coordinates></Point></Placemark>", i, i)
	}
	sb.WriteString("<Placemark><name>broken</name><Point><coordinates>east,north</coordinates></Point></Placemark>")
	sb.WriteString("</Document></kml>")

	rep := report.New(Format)
	m, err := Decode(strings.NewReader(sb.String()), vector.NewNodeMap(), rep)
	is.NoErr(err)
	is.Equal(m.ObjectCount(), 10)
	is.Equal(rep.Errors(), 1)

	entries := rep.Entries()
	is.Equal(entries[0].Object, "Placemark broken")
	is.Equal(entries[0].Kind, report.KindMalformed)
}

func TestDecodeMissingRoot(t *testing.T) {
	is := is.New(t)

	_, err := Decode(strings.NewReader(`<gpx/>`), vector.NewNodeMap(), report.New(Format))
	is.True(errors.Is(err, report.ErrMissingRoot))
}

func TestRoundTrip(t *testing.T) {
	is := is.New(t)

	m, err := Decode(strings.NewReader(styled), vector.NewNodeMap(), report.New(Format))
	is.NoErr(err)

	var buf bytes.Buffer
	is.NoErr(Encode(&buf, m))
	out := buf.String()

	m2, err := Decode(&buf, vector.NewNodeMap(), report.New(Format))
	is.NoErr(err)
	is.Equal(m2.ObjectCount(), m.ObjectCount())
	is.Equal(len(m2.Layers), len(m.Layers))

	line := m2.Layers[1].Objects[0]
	is.Equal(line.Base().Name, "Main street")
	is.Equal(line.Base().Class, "road")
	is.Equal(line.Base().AltitudeMode, vector.Absolute)
	is.Equal(line.Base().Fields, vector.Fields{{Key: "lanes", Value: "2"}, {Key: "surface", Value: "asphalt"}})
	is.True(strings.Contains(out, "<altitudeMode>absolute</altitudeMode>"))

	_, ok := m2.Theme.Get("road-normal")
	is.True(ok)
}

func TestKMZ(t *testing.T) {
	is := is.New(t)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	f, err := zw.Create("files/readme.txt")
	is.NoErr(err)
	_, _ = f.Write([]byte("hello"))
	f, err = zw.Create("doc.kml")
	is.NoErr(err)
	_, _ = f.Write([]byte(styled))
	is.NoErr(zw.Close())

	rep := report.New(KMZFormat)
	m, err := DecodeKMZ(bytes.NewReader(archive.Bytes()), int64(archive.Len()), vector.NewNodeMap(), rep)
	is.NoErr(err)
	is.Equal(m.Name, "Trip")
	is.Equal(m.ObjectCount(), 4)
}

func TestKMZRoundTrip(t *testing.T) {
	is := is.New(t)

	m, err := Decode(strings.NewReader(styled), vector.NewNodeMap(), report.New(Format))
	is.NoErr(err)

	var buf bytes.Buffer
	is.NoErr(EncodeKMZ(&buf, m))

	m2, err := DecodeKMZ(bytes.NewReader(buf.Bytes()), int64(buf.Len()), vector.NewNodeMap(), report.New(KMZFormat))
	is.NoErr(err)
	is.Equal(m2.ObjectCount(), m.ObjectCount())
}

func TestKMZWithoutDocument(t *testing.T) {
	is := is.New(t)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	_, err := zw.Create("empty.txt")
	is.NoErr(err)
	is.NoErr(zw.Close())

	_, err = DecodeKMZ(bytes.NewReader(archive.Bytes()), int64(archive.Len()), vector.NewNodeMap(), report.New(KMZFormat))
	is.True(errors.Is(err, ErrNoDocument))
}

func TestKMZNotAnArchive(t *testing.T) {
	is := is.New(t)

	data := []byte("definitely not a zip")
	_, err := DecodeKMZ(bytes.NewReader(data), int64(len(data)), vector.NewNodeMap(), report.New(KMZFormat))
	var ioErr *report.IOError
	is.True(errors.As(err, &ioErr))
}
