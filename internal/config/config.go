// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/woozymasta/geoxchange/internal/classes"
	"github.com/woozymasta/geoxchange/internal/convert"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// DefaultOutputDir is where job outputs are written when none is configured.
const DefaultOutputDir = "maps"

// DefaultConcurrency bounds the number of jobs converted at once.
const DefaultConcurrency = 4

var (
	// ErrNoSource is returned for a job with neither inputs nor a bounding box.
	ErrNoSource = errors.New("job has no inputs and no bbox")

	// ErrBadBBox is returned for a bbox that is not min_lon,min_lat,max_lon,max_lat.
	ErrBadBBox = errors.New("bbox must be [min_lon, min_lat, max_lon, max_lat] with min < max")
)

// Config represents the root configuration file structure.
type Config struct {
	Classes     Classes  `yaml:"classes,omitempty" json:"-"`
	Overpass    Overpass `yaml:"overpass,omitempty" json:"-"`
	OutputDir   string   `yaml:"output_dir,omitempty" json:"-"`
	Jobs        []Job    `yaml:"jobs" json:"jobs"`
	Concurrency int      `yaml:"concurrency,omitempty" json:"-"`
	Minify      bool     `yaml:"minify,omitempty" json:"-"`
}

// Job is one conversion: every input (and the Overpass bbox, if set) is
// merged into one map, which is written once per output format.
type Job struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	// overrides the global minify flag
	Minify *bool `yaml:"minify,omitempty" json:"-"`

	Name    string    `yaml:"name" json:"name"`
	Title   string    `yaml:"title,omitempty" json:"title,omitempty"`
	Inputs  []string  `yaml:"inputs,omitempty" json:"-"`
	BBox    []float64 `yaml:"bbox,omitempty" json:"bbox,omitempty"`
	Outputs []string  `yaml:"outputs" json:"outputs"`
	Aliases []string  `yaml:"aliases,omitempty" json:"-"`
}

// Overpass configures the Overpass API client.
type Overpass struct {
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// Classes extends the native value to class tables, keyed by native value
// ("Campground" for GPX symbols, "tourism=alpine_hut" for OSM tags).
type Classes struct {
	GPX map[string]string `yaml:"gpx,omitempty"`
	OSM map[string]string `yaml:"osm,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) defaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	for i := range c.Jobs {
		if c.Jobs[i].Title == "" {
			c.Jobs[i].Title = c.Jobs[i].Name
		}
	}
}

// Validate checks job names, sources and output formats.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Jobs))
	for _, j := range c.Jobs {
		if j.Name == "" {
			return errors.New("job without name")
		}
		if seen[j.Name] {
			return fmt.Errorf("duplicate job %q", j.Name)
		}
		seen[j.Name] = true

		if len(j.Inputs) == 0 && len(j.BBox) == 0 {
			return fmt.Errorf("job %q: %w", j.Name, ErrNoSource)
		}
		if len(j.BBox) > 0 {
			if _, err := j.Bound(); err != nil {
				return fmt.Errorf("job %q: %w", j.Name, err)
			}
		}
		if len(j.Outputs) == 0 {
			return fmt.Errorf("job %q has no outputs", j.Name)
		}
		if _, err := j.Formats(); err != nil {
			return fmt.Errorf("job %q: %w", j.Name, err)
		}
	}
	return nil
}

// ApplyClasses registers the configured class overrides.
func (c *Config) ApplyClasses() {
	for native, class := range c.Classes.GPX {
		classes.GPX.Set(native, class)
	}
	for native, class := range c.Classes.OSM {
		classes.OSM.Set(native, class)
	}
}

// Job returns the job named name or carrying name as an alias.
func (c *Config) Job(name string) (*Job, bool) {
	for i := range c.Jobs {
		j := &c.Jobs[i]
		if j.Name == name {
			return j, true
		}
		for _, alias := range j.Aliases {
			if alias == name {
				return j, true
			}
		}
	}
	return nil, false
}

// Bound returns the job's bbox.
func (j *Job) Bound() (orb.Bound, error) {
	if len(j.BBox) != 4 {
		return orb.Bound{}, ErrBadBBox
	}
	b := orb.Bound{
		Min: orb.Point{j.BBox[0], j.BBox[1]},
		Max: orb.Point{j.BBox[2], j.BBox[3]},
	}
	if b.Min.Lon() >= b.Max.Lon() || b.Min.Lat() >= b.Max.Lat() {
		return orb.Bound{}, ErrBadBBox
	}
	return b, nil
}

// Formats resolves the output formats.
func (j *Job) Formats() ([]convert.Format, error) {
	out := make([]convert.Format, 0, len(j.Outputs))
	for _, o := range j.Outputs {
		f, err := convert.ParseFormat(o)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// OutputPath returns where the job's document of format f is written.
func (c *Config) OutputPath(j *Job, f convert.Format) string {
	return filepath.Join(c.OutputDir, j.Name, j.Name+f.Extension())
}

// MinifyJob reports whether outputs of j are minified.
func (c *Config) MinifyJob(j *Job) bool {
	if j.Minify != nil {
		return *j.Minify
	}
	return c.Minify
}
