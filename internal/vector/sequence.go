package vector

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadCoordinate is returned for a coordinate group that does not parse.
var ErrBadCoordinate = errors.New("bad coordinate")

// commas with surrounding whitespace, as in "1.5, 2.5, 0"
var commaSpace = regexp.MustCompile(`\s*,\s*`)

// Sequence builds one geometry's ordered coordinate id list. Each coordinate
// is counted once per sequence, so a closed ring does not flag its first
// point as shared.
type Sequence struct {
	nodes *NodeMap
	seen  map[int64]struct{}
	ids   []int64
}

// NewSequence starts an empty coordinate sequence backed by m.
func (m *NodeMap) NewSequence() *Sequence {
	return &Sequence{nodes: m, seen: make(map[int64]struct{})}
}

// Add interns c and appends its id. An existing coordinate on the same
// lat/lon is reused; missing altitude and time are backfilled on it.
func (s *Sequence) Add(c Coordinate) int64 {
	id, reused := s.nodes.Intern(c)
	if reused {
		if existing, ok := s.nodes.Get(id); ok {
			if existing.Alt == 0 && c.Alt != 0 {
				s.nodes.SetAltitude(id, c.Alt)
			}
			if existing.Time == "" && c.Time != "" {
				s.nodes.SetTime(id, c.Time)
			}
		}
	}
	s.appendID(id)
	return id
}

// AddID appends a reference to an existing node id.
func (s *Sequence) AddID(id int64) error {
	if !s.nodes.Has(id) {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	s.appendID(id)
	return nil
}

func (s *Sequence) appendID(id int64) {
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = struct{}{}
		s.nodes.reference(id)
	}
	s.ids = append(s.ids, id)
}

// IDs returns the collected ids.
func (s *Sequence) IDs() []int64 {
	return s.ids
}

// Len returns the number of collected ids.
func (s *Sequence) Len() int {
	return len(s.ids)
}

// ParseSequence parses whitespace separated coordinate groups. A group is
// either a bare integer referencing an existing node id or "lon,lat[,alt[,time]]".
// Unparseable groups and unknown ids are dropped and reported in errs.
func (m *NodeMap) ParseSequence(text string) (ids []int64, errs []error) {
	return parseSequence(m, text, func(id int64) (int64, error) { return id, nil })
}

func parseSequence(m *NodeMap, text string, translate func(int64) (int64, error)) (ids []int64, errs []error) {
	seq := m.NewSequence()
	normalized := commaSpace.ReplaceAllString(strings.TrimSpace(text), ",")

	for _, group := range strings.Fields(normalized) {
		if !strings.Contains(group, ",") {
			id, err := strconv.ParseInt(group, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %q", ErrBadCoordinate, group))
				continue
			}
			if id, err = translate(id); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := seq.AddID(id); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		c, err := ParseGroup(group)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seq.Add(c)
	}

	return seq.IDs(), errs
}

// ParseGroup parses one "lon,lat[,alt[,time]]" group.
func ParseGroup(group string) (Coordinate, error) {
	parts := strings.Split(group, ",")
	if len(parts) < 2 || len(parts) > 4 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrBadCoordinate, group)
	}

	lon, err := parseFinite(parts[0])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrBadCoordinate, parts[0])
	}
	lat, err := parseFinite(parts[1])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrBadCoordinate, parts[1])
	}

	c := NewCoordinate(lat, lon, 0)
	if len(parts) > 2 && parts[2] != "" {
		alt, err := parseFinite(parts[2])
		if err != nil {
			return Coordinate{}, fmt.Errorf("%w: altitude %q", ErrBadCoordinate, parts[2])
		}
		c.Alt = alt
	}
	if len(parts) > 3 {
		c.Time = parts[3]
	}

	return c, nil
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrBadCoordinate
	}
	return f, nil
}

// FormatSequence writes ids as whitespace separated node references.
func FormatSequence(ids []int64) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatInt(id, 10))
	}
	return sb.String()
}
