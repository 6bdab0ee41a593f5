package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/convert"

	"github.com/cheekybits/is"
)

const sample = `
concurrency: 2
minify: true
overpass:
  endpoint: http://localhost:12345/api/interpreter
  timeout: 30s
classes:
  gpx:
    Hut: Hotel
  osm:
    tourism=alpine_hut: Hotel
jobs:
  - name: alps
    title: Alpine huts
    inputs: [huts.gpx, routes.kml]
    outputs: [geojson, kmz, osm]
    aliases: [mountains]
    minify: false
  - name: harbour
    bbox: [10.0, 53.5, 10.1, 53.6]
    outputs: [fmxml]
`

func load(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return Load(path)
}

func TestLoad(t *testing.T) {
	is := is.New(t)

	cfg, err := load(t, sample)
	is.NoErr(err)

	is.Equal(cfg.Concurrency, 2)
	is.Equal(cfg.OutputDir, DefaultOutputDir)
	is.Equal(cfg.Overpass.Timeout, 30*time.Second)
	is.Equal(len(cfg.Jobs), 2)

	alps, ok := cfg.Job("mountains")
	is.True(ok)
	is.Equal(alps.Title, "Alpine huts")
	is.False(cfg.MinifyJob(alps))

	formats, err := alps.Formats()
	is.NoErr(err)
	is.Equal(formats, []convert.Format{convert.GeoJSON, convert.KMZ, convert.OSM})
	is.Equal(cfg.OutputPath(alps, convert.KMZ), filepath.Join("maps", "alps", "alps.kmz"))

	harbour, ok := cfg.Job("harbour")
	is.True(ok)
	is.Equal(harbour.Title, "harbour")
	is.True(cfg.MinifyJob(harbour))

	b, err := harbour.Bound()
	is.NoErr(err)
	is.Equal(b.Min.Lat(), 53.5)
	is.Equal(b.Max.Lon(), 10.1)
}

func TestLoadDefaults(t *testing.T) {
	is := is.New(t)

	cfg, err := load(t, "jobs: []\n")
	is.NoErr(err)
	is.Equal(cfg.Concurrency, DefaultConcurrency)
	is.False(cfg.Minify)
}

func TestValidate(t *testing.T) {
	is := is.New(t)

	_, err := load(t, "jobs:\n  - name: a\n    outputs: [gpx]\n")
	is.True(errors.Is(err, ErrNoSource))

	_, err = load(t, "jobs:\n  - name: a\n    bbox: [1, 2, 0, 3]\n    outputs: [gpx]\n")
	is.True(errors.Is(err, ErrBadBBox))

	_, err = load(t, "jobs:\n  - name: a\n    inputs: [x.gpx]\n    outputs: [shp]\n")
	is.Err(err)

	_, err = load(t, "jobs:\n  - name: a\n    inputs: [x.gpx]\n    outputs: [gpx]\n  - name: a\n    inputs: [y.gpx]\n    outputs: [gpx]\n")
	is.Err(err)
}

func TestApplyClasses(t *testing.T) {
	is := is.New(t)

	cfg, err := load(t, sample)
	is.NoErr(err)
	cfg.ApplyClasses()

	c, ok := classes.GPX.Class("hut")
	is.True(ok)
	is.Equal(c, classes.Hotel)

	c, ok = classes.OSM.Class("tourism=alpine_hut")
	is.True(ok)
	is.Equal(c, classes.Hotel)
}
