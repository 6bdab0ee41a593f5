package tagscan

import (
	"testing"

	"github.com/cheekybits/is"
)

func TestNextWithAttributes(t *testing.T) {
	is := is.New(t)

	doc := `<gpx><wpt lat="52.5" lon='13.4'><name>Berlin &amp; Co</name><ele>34</ele></wpt></gpx>`
	el, ok := New(doc).Next("wpt")
	is.True(ok)
	is.True(el.Closed)

	lat, ok := el.Attr("lat")
	is.True(ok)
	is.Equal(lat, "52.5")
	lon, _ := el.Attr("lon")
	is.Equal(lon, "13.4")

	is.Equal(el.Text("name"), "Berlin & Co")
	is.Equal(el.Text("ele"), "34")
	is.Equal(el.Text("time"), "")

	_, ok = el.Attr("missing")
	is.False(ok)
}

func TestPrefixNamesDoNotMatch(t *testing.T) {
	is := is.New(t)

	doc := `<trkseg><trkpt lat="1" lon="2"/></trkseg>`
	_, ok := New(doc).Next("trk")
	is.False(ok)

	els := All(doc, "trkpt")
	is.Equal(len(els), 1)
	is.True(els[0].SelfClosing)
}

func TestMissingClosingTag(t *testing.T) {
	is := is.New(t)

	doc := `<trkpt lat="1" lon="1"><ele>10</ele>
<trkpt lat="2" lon="2"><ele>20</ele></trkpt>
<trkpt lat="3" lon="3"><ele>30</ele>`

	els := All(doc, "trkpt")
	is.Equal(len(els), 3)
	is.False(els[0].Closed)
	is.Equal(els[0].Text("ele"), "10")
	is.True(els[1].Closed)
	is.Equal(els[1].Text("ele"), "20")
	is.False(els[2].Closed)
	is.Equal(els[2].Text("ele"), "30")
}

func TestNestedSameName(t *testing.T) {
	is := is.New(t)

	doc := `<a id="outer"><a id="inner">x</a><b/></a><a id="next"/>`
	els := All(doc, "a")
	is.Equal(len(els), 2)

	id, _ := els[0].Attr("id")
	is.Equal(id, "outer")
	is.Equal(els[0].Inner, `<a id="inner">x</a><b/>`)

	inner, ok := els[0].Child("a")
	is.True(ok)
	is.Equal(inner.Value(), "x")

	id, _ = els[1].Attr("id")
	is.Equal(id, "next")
}

func TestCDATAValue(t *testing.T) {
	is := is.New(t)

	el, ok := New(`<desc><![CDATA[ <b>bold</b> ]]></desc>`).Next("desc")
	is.True(ok)
	is.Equal(el.Value(), "<b>bold</b>")
}

func TestTruncatedStartTag(t *testing.T) {
	is := is.New(t)

	s := New(`<wpt lat="1" lon="2"></wpt><wpt lat="3"`)
	_, ok := s.Next("wpt")
	is.True(ok)
	_, ok = s.Next("wpt")
	is.False(ok)
}
