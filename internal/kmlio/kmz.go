package kmlio

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/rs/zerolog/log"
)

// KMZFormat is the archive format name used in reports.
const KMZFormat = "kmz"

// MainEntry is the document name preferred inside a KMZ archive.
const MainEntry = "doc.kml"

// ErrNoDocument is returned for an archive without any .kml entry.
var ErrNoDocument = errors.New("archive contains no kml document")

// OpenKMZ reads a KMZ archive from disk.
func OpenKMZ(path string, nodes *vector.NodeMap, rep *report.Report) (*vector.Map, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return vector.NewMap("", nodes), rep.Fail(report.IO("open", path, err))
	}
	defer func() { _ = zr.Close() }()

	return decodeArchive(&zr.Reader, nodes, rep)
}

// DecodeKMZ reads a KMZ archive of size bytes from r.
func DecodeKMZ(r io.ReaderAt, size int64, nodes *vector.NodeMap, rep *report.Report) (*vector.Map, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return vector.NewMap("", nodes), rep.Fail(report.IO("open", "", err))
	}
	return decodeArchive(zr, nodes, rep)
}

// decodeArchive extracts every entry into a temporary directory and parses
// doc.kml, or the first .kml entry when there is none. Entries that fail to
// extract are recorded and skipped.
func decodeArchive(zr *zip.Reader, nodes *vector.NodeMap, rep *report.Report) (*vector.Map, error) {
	dir, err := os.MkdirTemp("", "geoxchange-kmz-")
	if err != nil {
		return vector.NewMap("", nodes), rep.Fail(report.IO("mkdir", "", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to remove temp directory")
		}
	}()

	rep.Step(0, "Extracting archive")

	var main, first string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		path, err := extract(dir, f)
		if err != nil {
			rep.Add(report.SeverityWarn, report.KindIO, f.Name, err)
			continue
		}

		if !strings.EqualFold(filepath.Ext(f.Name), ".kml") {
			continue
		}
		if strings.EqualFold(filepath.Base(f.Name), MainEntry) && main == "" {
			main = path
		}
		if first == "" {
			first = path
		}
	}

	if main == "" {
		main = first
	}
	if main == "" {
		return vector.NewMap("", nodes), rep.Fail(report.Structure(KMZFormat, ErrNoDocument))
	}

	f, err := os.Open(main)
	if err != nil {
		return vector.NewMap("", nodes), rep.Fail(report.IO("open", main, err))
	}
	defer func() { _ = f.Close() }()

	return Decode(f, nodes, rep)
}

func extract(dir string, f *zip.File) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(path, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes archive root", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", report.IO("mkdir", path, err)
	}

	src, err := f.Open()
	if err != nil {
		return "", report.IO("open", f.Name, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(path)
	if err != nil {
		return "", report.IO("create", path, err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return "", report.IO("extract", f.Name, err)
	}

	return path, nil
}
