package kmlio

import (
	"fmt"
	"strconv"

	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/beevik/etree"
)

// styles loads the Style and StyleMap children of el into the map theme.
func (d *decoder) styles(el *etree.Element) {
	for _, s := range el.SelectElements("Style") {
		style, err := parseStyle(s, s.SelectAttrValue("id", ""))
		if err != nil {
			d.rep.Warn("Style "+s.SelectAttrValue("id", ""), err)
			continue
		}
		d.m.Theme.Set(style)
	}

	for _, sm := range el.SelectElements("StyleMap") {
		id := sm.SelectAttrValue("id", "")
		if id == "" {
			continue
		}
		d.styleMap(id, sm)
	}
}

// styleMap resolves a StyleMap to its "normal" pair, which is either a
// styleUrl reference or an inline style.
func (d *decoder) styleMap(id string, sm *etree.Element) {
	for _, pair := range sm.SelectElements("Pair") {
		if text(pair, "key") != "normal" {
			continue
		}
		if url := text(pair, "styleUrl"); url != "" {
			d.m.Theme.Alias(id, styleKey(url))
			return
		}
		if inline := pair.SelectElement("Style"); inline != nil {
			style, err := parseStyle(inline, id)
			if err != nil {
				d.rep.Warn("StyleMap "+id, err)
				return
			}
			d.m.Theme.Set(style)
			return
		}
	}
	d.rep.Warn("StyleMap "+id, fmt.Errorf("no normal style"))
}

func parseStyle(el *etree.Element, id string) (*vector.Style, error) {
	if id == "" {
		return nil, fmt.Errorf("style without id")
	}
	s := &vector.Style{ID: id, Outline: true}

	var err error
	if ls := el.SelectElement("LineStyle"); ls != nil {
		if v := text(ls, "color"); v != "" {
			if s.LineColor, err = vector.ParseKMLColor(v); err != nil {
				return nil, fmt.Errorf("line color: %w", err)
			}
		}
		if v := text(ls, "width"); v != "" {
			if s.LineWidth, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("line width: %w", err)
			}
		}
	}

	if ps := el.SelectElement("PolyStyle"); ps != nil {
		if v := text(ps, "color"); v != "" {
			if s.FillColor, err = vector.ParseKMLColor(v); err != nil {
				return nil, fmt.Errorf("fill color: %w", err)
			}
		}
		if v := text(ps, "outline"); v != "" {
			s.Outline = v != "0" && v != "false"
		}
	}

	if icon := el.FindElement("./IconStyle/Icon/href"); icon != nil {
		s.Icon = icon.Text()
	}

	return s, nil
}
