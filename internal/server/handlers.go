// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/woozymasta/geoxchange/internal/convert"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/rs/zerolog/log"
)

const etagCap = 64

// Response headers carrying the import report counts.
const (
	HeaderErrors   = "X-Report-Errors"
	HeaderWarnings = "X-Report-Warnings"
)

type formatInfo struct {
	Name      convert.Format `json:"name"`
	Extension string         `json:"extension"`
	MediaType string         `json:"media_type"`
}

type failure struct {
	Error   string         `json:"error"`
	Entries []report.Entry `json:"entries,omitempty"`
}

// HandleMapsList serves the JSON listing of converted maps.
func (s *ServerContext) HandleMapsList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(s.Maps)
}

// HandleFormats serves the supported formats.
func (s *ServerContext) HandleFormats(w http.ResponseWriter, r *http.Request) {
	out := make([]formatInfo, 0, len(convert.Formats))
	for _, f := range convert.Formats {
		out = append(out, formatInfo{Name: f, Extension: f.Extension(), MediaType: f.MediaType()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_ = json.NewEncoder(w).Encode(out)
}

// HandleConvert converts the request body from one format to another:
// POST /api/convert?from=kml&to=geojson[&minify=true]. Objects that fail to
// parse are skipped and counted in the report headers.
func (s *ServerContext) HandleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeFailure(w, http.StatusMethodNotAllowed, errors.New("method not allowed"), nil)
		return
	}

	q := r.URL.Query()
	from, err := convert.ParseFormat(q.Get("from"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, fmt.Errorf("from: %w", err), nil)
		return
	}
	to, err := convert.ParseFormat(q.Get("to"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, fmt.Errorf("to: %w", err), nil)
		return
	}
	minify, _ := strconv.ParseBool(q.Get("minify"))

	body := http.MaxBytesReader(w, r.Body, s.MaxBody)
	rep := report.New(string(from))
	m, err := convert.Decode(body, from, vector.NewNodeMap(), rep)

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeFailure(w, http.StatusRequestEntityTooLarge, err, nil)
		return
	case err != nil && (m == nil || m.ObjectCount() == 0):
		writeFailure(w, http.StatusUnprocessableEntity, err, rep.Entries())
		return
	case err != nil:
		log.Warn().Err(err).Str("from", string(from)).Msg("Partial import served")
	}

	if name := q.Get("name"); name != "" {
		m.Name = name
	}

	var buf bytes.Buffer
	if err := convert.Encode(&buf, m, to, convert.ExportOptions{Minify: minify}); err != nil {
		writeFailure(w, http.StatusInternalServerError, err, nil)
		return
	}

	w.Header().Set("Content-Type", to.MediaType())
	w.Header().Set(HeaderErrors, strconv.Itoa(rep.Errors()))
	w.Header().Set(HeaderWarnings, strconv.Itoa(rep.Warnings()))
	_, _ = w.Write(buf.Bytes())
}

// HandleMap serves a converted map: /maps/{name}/{name}.{ext}. Formats the
// job did not write are converted on the fly from the first one it did.
func (s *ServerContext) HandleMap(w http.ResponseWriter, r *http.Request) {
	// Path: /maps/{mapName}/{file}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}

	info, ok := s.info(parts[1])
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := convert.FromExtension(parts[2])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	job, ok := s.Config.Job(info.Name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	for _, have := range info.Formats {
		if have == f {
			if !s.serveFile(w, r, s.Config.OutputPath(job, f), f.MediaType()) {
				http.NotFound(w, r)
			}
			return
		}
	}

	src := s.Config.OutputPath(job, info.Formats[0])
	m, rep, err := convert.Import(src, nil)
	if err != nil {
		log.Error().Err(err).Str("path", src).Msg("Failed to read converted map")
		writeFailure(w, http.StatusInternalServerError, err, rep.Entries())
		return
	}

	var buf bytes.Buffer
	if err := convert.Encode(&buf, m, f, convert.ExportOptions{Minify: s.Config.MinifyJob(job)}); err != nil {
		writeFailure(w, http.StatusInternalServerError, err, nil)
		return
	}

	w.Header().Set("Content-Type", f.MediaType())
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(buf.Bytes())
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

func writeFailure(w http.ResponseWriter, status int, err error, entries []report.Entry) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(failure{Error: err.Error(), Entries: entries})
}
