package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/woozymasta/geoxchange/internal/osmio"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/cheekybits/is"
	"github.com/paulmach/orb"
)

const response = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="Overpass API">
  <node id="1" lat="50.0" lon="10.0"><tag k="amenity" v="cafe"/></node>
  <node id="2" lat="50.1" lon="10.1"/>
  <way id="10"><nd ref="1"/><nd ref="2"/><tag k="highway" v="track"/></way>
</osm>`

func TestQuery(t *testing.T) {
	is := is.New(t)

	q := Query(orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{11, 51}}, 30*time.Second)
	is.Equal(q, "[out:xml][timeout:30];(node(50,10,51,11);way(50,10,51,11);relation(50,10,51,11););(._;>;);out meta;")
}

func TestFetchBBox(t *testing.T) {
	is := is.New(t)

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Equal(r.Method, http.MethodPost)
		is.NoErr(r.ParseForm())
		got = r.PostForm.Get("data")
		_, _ = w.Write([]byte(response))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	nodes := vector.NewNodeMap()
	l, err := c.FetchBBox(context.Background(),
		orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{11, 51}}, nodes, report.New(osmio.Format))
	is.NoErr(err)

	is.True(strings.HasPrefix(got, "[out:xml]"))
	is.Equal(nodes.Len(), 2)
	is.Equal(l.Len(), 2)
	is.Equal(l.Name, "Overpass")
}

func TestFetchBBoxStatus(t *testing.T) {
	is := is.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).FetchBBox(context.Background(),
		orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{11, 51}}, vector.NewNodeMap(), report.New(osmio.Format))

	var ioErr *report.IOError
	is.True(errors.As(err, &ioErr))
	is.True(strings.Contains(err.Error(), "429"))
}

func TestFetchBBoxEmpty(t *testing.T) {
	is := is.New(t)

	_, err := New("", 0).FetchBBox(context.Background(),
		orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{10, 50}}, vector.NewNodeMap(), report.New(osmio.Format))
	is.Equal(err, ErrEmptyBound)
}

func TestFetchBBoxCanceled(t *testing.T) {
	is := is.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, time.Second).FetchBBox(ctx,
		orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{11, 51}}, vector.NewNodeMap(), report.New(osmio.Format))
	is.True(errors.Is(err, context.Canceled))
}
