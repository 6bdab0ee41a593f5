package vector

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Style is a visual style definition referenced by object classes.
type Style struct {
	ID        string
	Icon      string
	LineColor color.NRGBA
	FillColor color.NRGBA
	LineWidth float64
	Outline   bool
}

// Theme is an insertion-ordered registry of styles keyed by id.
// Class keys resolve against it by string, so forward references are legal.
type Theme struct {
	styles  *orderedmap.OrderedMap[string, *Style]
	aliases map[string]string
}

// NewTheme creates an empty theme.
func NewTheme() *Theme {
	return &Theme{
		styles:  orderedmap.New[string, *Style](),
		aliases: make(map[string]string),
	}
}

// Set adds or replaces a style.
func (t *Theme) Set(s *Style) {
	t.styles.Set(s.ID, s)
}

// Alias makes id resolve to the style named target.
func (t *Theme) Alias(id, target string) {
	t.aliases[id] = target
}

// Get returns the style stored under id without following aliases.
func (t *Theme) Get(id string) (*Style, bool) {
	return t.styles.Get(id)
}

// Resolve returns the style for a class key, following aliases.
func (t *Theme) Resolve(id string) (*Style, bool) {
	for i := 0; i < 8; i++ {
		if s, ok := t.styles.Get(id); ok {
			return s, true
		}
		target, ok := t.aliases[id]
		if !ok {
			return nil, false
		}
		id = target
	}
	return nil, false
}

// Len returns the number of styles.
func (t *Theme) Len() int {
	return t.styles.Len()
}

// Styles returns styles in insertion order.
func (t *Theme) Styles() []*Style {
	out := make([]*Style, 0, t.styles.Len())
	for pair := t.styles.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Merge copies styles and aliases of o that t does not define yet.
func (t *Theme) Merge(o *Theme) {
	if o == nil {
		return
	}
	for pair := o.styles.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := t.styles.Get(pair.Key); !ok {
			t.styles.Set(pair.Key, pair.Value)
		}
	}
	for k, v := range o.aliases {
		if _, ok := t.aliases[k]; !ok {
			t.aliases[k] = v
		}
	}
}

// ParseKMLColor decodes an "aabbggrr" hex color. A leading '#' is ignored
// and six digit values are treated as opaque.
func ParseKMLColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 6 {
		s = "ff" + s
	}
	if len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}

	return color.NRGBA{
		A: uint8(v >> 24),
		B: uint8(v >> 16),
		G: uint8(v >> 8),
		R: uint8(v),
	}, nil
}

// FormatKMLColor encodes c as "aabbggrr".
func FormatKMLColor(c color.NRGBA) string {
	return fmt.Sprintf("%02x%02x%02x%02x", c.A, c.B, c.G, c.R)
}
