package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/woozymasta/geoxchange/internal/config"
	"github.com/woozymasta/geoxchange/internal/convert"
	"github.com/woozymasta/geoxchange/internal/overpass"

	"github.com/cheekybits/is"
)

const points = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"A"},"geometry":{"type":"Point","coordinates":[10,50]}},
 {"type":"Feature","properties":{"name":"B"},"geometry":{"type":"Point","coordinates":[11,51]}}
]}`

const area = `<?xml version="1.0"?>
<osm version="0.6">
  <node id="1" lat="53.55" lon="10.05"><tag k="amenity" v="cafe"/></node>
</osm>`

func setup(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "points.geojson")
	if err := os.WriteFile(in, []byte(points), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		OutputDir:   filepath.Join(dir, "out"),
		Concurrency: 2,
		Jobs: []config.Job{
			{Name: "points", Title: "Points", Inputs: []string{in}, Outputs: []string{"gpx", "kml"}},
			{Name: "broken", Title: "Broken", Inputs: []string{filepath.Join(dir, "none.gpx")}, Outputs: []string{"osm"}},
		},
	}
	return cfg, dir
}

func TestRun(t *testing.T) {
	is := is.New(t)
	cfg, _ := setup(t)

	var (
		mu   sync.Mutex
		done []string
	)
	results, err := Run(context.Background(), cfg, Options{
		OnDone: func(r Result) {
			mu.Lock()
			done = append(done, r.Job)
			mu.Unlock()
		},
	})
	is.NoErr(err)
	is.Equal(len(results), 2)
	is.Equal(len(done), 2)

	ok := results[0]
	is.NoErr(ok.Err)
	is.Equal(ok.Objects, 2)
	is.Equal(len(ok.Outputs), 2)
	for _, f := range []convert.Format{convert.GPX, convert.KML} {
		_, err := os.Stat(cfg.OutputPath(&cfg.Jobs[0], f))
		is.NoErr(err)
	}

	broken := results[1]
	is.Err(broken.Err)
	is.Equal(len(broken.Outputs), 0)
}

func TestRunSkipsExisting(t *testing.T) {
	is := is.New(t)
	cfg, _ := setup(t)

	_, err := Run(context.Background(), cfg, Options{Limit: []string{"points"}})
	is.NoErr(err)

	results, err := Run(context.Background(), cfg, Options{Limit: []string{"points"}})
	is.NoErr(err)
	is.Equal(len(results), 1)
	is.Equal(len(results[0].Skipped), 2)
	is.Equal(len(results[0].Outputs), 0)

	results, err = Run(context.Background(), cfg, Options{Limit: []string{"points"}, Force: true})
	is.NoErr(err)
	is.Equal(len(results[0].Outputs), 2)
}

func TestRunLimitUnknown(t *testing.T) {
	is := is.New(t)
	cfg, _ := setup(t)

	results, err := Run(context.Background(), cfg, Options{Limit: []string{"missing", "points", "points"}})
	is.NoErr(err)
	is.Equal(len(results), 1)
	is.Equal(results[0].Job, "points")
}

func TestRunOverpass(t *testing.T) {
	is := is.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(area))
	}))
	defer srv.Close()

	cfg := &config.Config{
		OutputDir:   t.TempDir(),
		Concurrency: 1,
		Jobs: []config.Job{
			{Name: "harbour", Title: "Harbour", BBox: []float64{10, 53.5, 10.1, 53.6}, Outputs: []string{"geojson"}},
		},
	}

	results, err := Run(context.Background(), cfg, Options{Overpass: overpass.New(srv.URL, time.Second)})
	is.NoErr(err)
	is.NoErr(results[0].Err)
	is.Equal(results[0].Objects, 1)

	m, _, err := convert.Import(results[0].Outputs[0], nil)
	is.NoErr(err)
	is.Equal(m.ObjectCount(), 1)
}

func TestRunCanceled(t *testing.T) {
	is := is.New(t)
	cfg, _ := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, Options{})
	is.Equal(err, context.Canceled)
}
