package convert

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/geoxchange/internal/fmxml"
	"github.com/woozymasta/geoxchange/internal/geojsonio"
	"github.com/woozymasta/geoxchange/internal/gpxio"
	"github.com/woozymasta/geoxchange/internal/kmlio"
	"github.com/woozymasta/geoxchange/internal/osmio"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/xml"
)

// Import reads the file at path into a new map, named after the file unless
// the document carries a name. The report is returned even when the import
// fails so that callers can show what was skipped.
func Import(path string, progress report.Progress) (*vector.Map, *report.Report, error) {
	m := vector.NewMap("", nil)
	rep, err := ImportInto(m, path, progress)
	if m.Name == "" {
		m.Name = baseName(path)
	}
	return m, rep, err
}

// ImportInto reads the file at path and appends its layers and styles to m,
// sharing m's node map. Objects decoded before a failure stay in m.
func ImportInto(m *vector.Map, path string, progress report.Progress) (*report.Report, error) {
	f, err := FromExtension(path)
	if err != nil {
		rep := report.New("")
		return rep, rep.Fail(report.Structure("", err))
	}

	rep := report.New(string(f))
	rep.Progress = progress

	var doc *vector.Map
	if f == KMZ {
		doc, err = kmlio.OpenKMZ(path, m.Nodes, rep)
	} else {
		doc, err = importFile(path, f, m.Nodes, rep)
	}
	merge(m, doc)

	log.Debug().
		Str("path", path).
		Str("format", string(f)).
		Int("objects", m.ObjectCount()).
		Int("errors", rep.Errors()).
		Int("warnings", rep.Warnings()).
		Msg("Import finished")

	return rep, err
}

func importFile(path string, f Format, nodes *vector.NodeMap, rep *report.Report) (*vector.Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, rep.Fail(report.IO("open", path, err))
	}
	defer func() { _ = file.Close() }()

	return Decode(file, f, nodes, rep)
}

// Decode reads one document of format f from r into nodes. Layer formats
// are wrapped into a map with a single layer.
func Decode(r io.Reader, f Format, nodes *vector.NodeMap, rep *report.Report) (*vector.Map, error) {
	var (
		layer *vector.Layer
		err   error
	)

	switch f {
	case FMXML:
		return fmxml.Decode(r, nodes, rep)
	case KML:
		return kmlio.Decode(r, nodes, rep)
	case KMZ:
		// zip needs random access
		data, err := io.ReadAll(r)
		if err != nil {
			return vector.NewMap("", nodes), rep.Fail(report.IO("read", "", err))
		}
		return kmlio.DecodeKMZ(bytes.NewReader(data), int64(len(data)), nodes, rep)
	case GPX:
		layer, err = gpxio.Decode(r, nodes, rep)
	case GeoJSON:
		layer, err = geojsonio.Decode(r, nodes, rep)
	case OSM:
		layer, err = osmio.Decode(r, nodes, rep)
	default:
		return nil, rep.Fail(report.Structure(string(f), report.ErrUnsupportedFormat))
	}

	m := vector.NewMap("", nodes)
	if layer != nil {
		m.AddLayer(layer)
	}
	m.EnsureView()
	return m, err
}

// merge moves the content of doc into m. Document metadata of doc is only
// taken when m has none of its own.
func merge(m, doc *vector.Map) {
	if doc == nil {
		return
	}
	if m.Name == "" {
		m.Name = doc.Name
	}
	if len(m.Layers) == 0 {
		m.Projection = doc.Projection
		m.View = doc.View
	}
	m.AddLayer(doc.Layers...)
	m.Theme.Merge(doc.Theme)
}

// ExportOptions tunes the written document.
type ExportOptions struct {
	// Minify strips insignificant whitespace from XML and JSON output.
	Minify bool
}

// Export writes m to path in the format its extension names.
func Export(m *vector.Map, path string, opts ExportOptions) error {
	f, err := FromExtension(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return report.IO("create", path, err)
	}

	if err := Encode(file, m, f, opts); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return report.IO("close", path, err)
	}

	log.Debug().Str("path", path).Str("format", string(f)).Msg("Export finished")
	return nil
}

// Encode writes m to w in format f.
func Encode(w io.Writer, m *vector.Map, f Format, opts ExportOptions) error {
	if f == KMZ {
		// archives are already compressed
		return kmlio.EncodeKMZ(w, m)
	}

	var encode func(io.Writer, *vector.Map) error
	switch f {
	case FMXML:
		encode = fmxml.Encode
	case KML:
		encode = kmlio.Encode
	case GPX:
		encode = gpxio.Encode
	case GeoJSON:
		encode = geojsonio.Encode
	case OSM:
		encode = osmio.Encode
	default:
		return fmt.Errorf("%w: %s", report.ErrUnsupportedFormat, f)
	}

	if !opts.Minify {
		return encode(w, m)
	}

	var buf bytes.Buffer
	if err := encode(&buf, m); err != nil {
		return err
	}
	if err := minifier().Minify(mediaKind(f), w, &buf); err != nil {
		return fmt.Errorf("minify %s: %w", f, err)
	}
	return nil
}

func minifier() *minify.M {
	mn := minify.New()
	mn.AddFunc("text/xml", xml.Minify)
	mn.AddFunc("application/json", json.Minify)
	return mn
}

func mediaKind(f Format) string {
	if f == GeoJSON {
		return "application/json"
	}
	return "text/xml"
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
