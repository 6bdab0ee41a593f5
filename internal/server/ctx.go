package server

import (
	"net/http"
	"os"
	"sort"

	"github.com/woozymasta/geoxchange/internal/config"
	"github.com/woozymasta/geoxchange/internal/convert"

	"github.com/rs/zerolog/log"
)

// DefaultMaxBody bounds the size of an uploaded document.
const DefaultMaxBody = 64 << 20

// MapInfo describes one converted job in the map listing.
type MapInfo struct {
	Index   *int             `json:"index,omitempty"`
	Name    string           `json:"name"`
	Title   string           `json:"title"`
	Formats []convert.Format `json:"formats"`
	BBox    []float64        `json:"bbox,omitempty"`
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config          *config.Config
	MapNameResolver map[string]string
	Maps            []MapInfo
	MaxBody         int64
}

// NewServerContext resolves which job outputs exist on disk. Jobs without
// any output are left out of the listing.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_jobs_count", len(cfg.Jobs)).Msg("Initializing server context")

	resolver := make(map[string]string)
	maps := make([]MapInfo, 0, len(cfg.Jobs))

	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]

		formats, err := job.Formats()
		if err != nil {
			log.Warn().Err(err).Str("job", job.Name).Msg("Skipping job: bad output formats")
			continue
		}

		var found []convert.Format
		for _, f := range formats {
			path := cfg.OutputPath(job, f)
			if _, err := os.Stat(path); err != nil {
				log.Trace().
					Str("job", job.Name).
					Str("path", path).
					Msg("Output skipped: file not found")
				continue
			}
			found = append(found, f)
		}

		if len(found) == 0 {
			log.Warn().
				Str("job", job.Name).
				Msg("Skipping job: no converted outputs found")
			continue
		}

		resolver[job.Name] = job.Name
		for _, alias := range job.Aliases {
			resolver[alias] = job.Name
		}

		log.Debug().
			Str("job", job.Name).
			Int("formats", len(found)).
			Msg("Job validated and added to context")

		maps = append(maps, MapInfo{
			Index:   job.Index,
			Name:    job.Name,
			Title:   job.Title,
			Formats: found,
			BBox:    job.BBox,
		})
	}

	sort.Slice(maps, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if maps[i].Index != nil {
			idxI = *maps[i].Index
		}
		if maps[j].Index != nil {
			idxJ = *maps[j].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return maps[i].Name < maps[j].Name
	})

	log.Info().
		Int("valid_maps_count", len(maps)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:          cfg,
		MapNameResolver: resolver,
		Maps:            maps,
		MaxBody:         DefaultMaxBody,
	}
}

func (s *ServerContext) info(name string) (*MapInfo, bool) {
	canonical, ok := s.MapNameResolver[name]
	if !ok {
		return nil, false
	}
	for i := range s.Maps {
		if s.Maps[i].Name == canonical {
			return &s.Maps[i], true
		}
	}
	return nil, false
}

// Handler returns the routes wrapped in the request logger.
func (s *ServerContext) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/maps", s.HandleMapsList)
	mux.HandleFunc("/api/formats", s.HandleFormats)
	mux.HandleFunc("/api/convert", s.HandleConvert)
	mux.HandleFunc("/maps/", s.HandleMap)

	return RequestLogger(mux)
}
