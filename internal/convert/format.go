// Package convert dispatches imports and exports between files, streams and
// the format packages.
package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/woozymasta/geoxchange/internal/fmxml"
	"github.com/woozymasta/geoxchange/internal/geojsonio"
	"github.com/woozymasta/geoxchange/internal/gpxio"
	"github.com/woozymasta/geoxchange/internal/kmlio"
	"github.com/woozymasta/geoxchange/internal/osmio"
	"github.com/woozymasta/geoxchange/internal/report"
)

// Format names one supported document format.
type Format string

// Supported formats.
const (
	FMXML   Format = fmxml.Format
	KML     Format = kmlio.Format
	KMZ     Format = kmlio.KMZFormat
	GPX     Format = gpxio.Format
	GeoJSON Format = geojsonio.Format
	OSM     Format = osmio.Format
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FMXML, KML, KMZ, GPX, GeoJSON, OSM}

var extensions = map[string]Format{
	".fmxml":   FMXML,
	".xml":     FMXML,
	".kml":     KML,
	".kmz":     KMZ,
	".gpx":     GPX,
	".geojson": GeoJSON,
	".json":    GeoJSON,
	".osm":     OSM,
}

// MediaType returns the content type documents of f are served with.
func (f Format) MediaType() string {
	switch f {
	case KML:
		return "application/vnd.google-earth.kml+xml"
	case KMZ:
		return "application/vnd.google-earth.kmz"
	case GPX:
		return "application/gpx+xml"
	case GeoJSON:
		return "application/geo+json"
	case OSM:
		return "application/vnd.openstreetmap.data+xml"
	}
	return "application/xml"
}

// Extension returns the canonical file extension of f.
func (f Format) Extension() string {
	return "." + string(f)
}

// ParseFormat resolves a format name, accepting the extension aliases with
// or without a leading dot.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, ".") {
		s = "." + s
	}
	if f, ok := extensions[s]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", report.ErrUnsupportedFormat, strings.TrimPrefix(s, "."))
}

// FromExtension resolves the format of a file path by its extension.
func FromExtension(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", report.ErrUnsupportedFormat, path)
}
