// Package tagscan is a tolerant substring scanner for XML-like documents.
// It locates elements by start and end tag offsets instead of building a
// tree, so truncated documents, unclosed tags and unknown markup around the
// wanted elements do not stop extraction.
package tagscan

import (
	"html"
	"regexp"
	"strings"
)

var attrPattern = regexp.MustCompile(`([A-Za-z_][\w:.-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// Element is one located element.
type Element struct {
	Name  string
	attrs string
	Inner string
	Start int
	End   int

	// SelfClosing is set for <name ... /> elements.
	SelfClosing bool
	// Closed is false when no end tag was found; Inner then runs up to the
	// next sibling start tag or the end of the document.
	Closed bool
}

// Attr returns the unescaped value of an attribute.
func (e Element) Attr(name string) (string, bool) {
	for _, m := range attrPattern.FindAllStringSubmatch(e.attrs, -1) {
		if m[1] != name {
			continue
		}
		v := m[2]
		if v == "" {
			v = m[3]
		}
		return html.UnescapeString(v), true
	}
	return "", false
}

// Child returns the first direct or nested element named name inside e.
func (e Element) Child(name string) (Element, bool) {
	return New(e.Inner).Next(name)
}

// Children returns every element named name inside e.
func (e Element) Children(name string) []Element {
	return All(e.Inner, name)
}

// Text returns the trimmed text of the first child named name, or "" when
// the child is missing.
func (e Element) Text(name string) string {
	c, ok := e.Child(name)
	if !ok {
		return ""
	}
	return c.Value()
}

// Value returns the element's own text with CDATA markers removed and
// entities unescaped.
func (e Element) Value() string {
	s := strings.TrimSpace(e.Inner)
	if strings.HasPrefix(s, "<![CDATA[") {
		s = strings.TrimPrefix(s, "<![CDATA[")
		if i := strings.Index(s, "]]>"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(s))
}

// Scanner walks a document forward, returning elements by name.
type Scanner struct {
	doc string
	pos int
}

// New creates a scanner over doc.
func New(doc string) *Scanner {
	return &Scanner{doc: doc}
}

// Pos returns the current offset.
func (s *Scanner) Pos() int {
	return s.pos
}

// Next returns the next element named name after the current offset.
func (s *Scanner) Next(name string) (Element, bool) {
	start := findOpen(s.doc, name, s.pos)
	if start < 0 {
		s.pos = len(s.doc)
		return Element{}, false
	}

	tagEnd := strings.IndexByte(s.doc[start:], '>')
	if tagEnd < 0 {
		// truncated start tag
		s.pos = len(s.doc)
		return Element{}, false
	}
	tagEnd += start

	el := Element{
		Name:  name,
		Start: start,
		attrs: s.doc[start+1+len(name) : tagEnd],
	}

	if strings.HasSuffix(el.attrs, "/") {
		el.attrs = strings.TrimSuffix(el.attrs, "/")
		el.SelfClosing = true
		el.Closed = true
		el.End = tagEnd + 1
		s.pos = el.End
		return el, true
	}

	innerStart := tagEnd + 1
	closeAt, closeLen := findClose(s.doc, name, innerStart)
	if closeAt < 0 {
		// no end tag: stop at the next sibling or the end of the document
		next := findOpen(s.doc, name, innerStart)
		if next < 0 {
			next = len(s.doc)
		}
		el.Inner = s.doc[innerStart:next]
		el.End = next
		s.pos = next
		return el, true
	}

	el.Inner = s.doc[innerStart:closeAt]
	el.End = closeAt + closeLen
	el.Closed = true
	s.pos = el.End
	return el, true
}

// All returns every top-level element named name in doc. Elements of the
// same name nested inside a match are part of that match's Inner.
func All(doc, name string) []Element {
	s := New(doc)
	var out []Element
	for {
		el, ok := s.Next(name)
		if !ok {
			return out
		}
		out = append(out, el)
	}
}

// findOpen returns the offset of the next "<name" start tag at or after from.
func findOpen(doc, name string, from int) int {
	needle := "<" + name
	for from < len(doc) {
		i := strings.Index(doc[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		after := i + len(needle)
		if after >= len(doc) {
			return -1
		}
		if isNameEnd(doc[after]) {
			return i
		}
		from = after
	}
	return -1
}

// findClose finds the end tag matching an already opened element, skipping
// nested elements of the same name.
func findClose(doc, name string, from int) (int, int) {
	closer := "</" + name
	depth := 0
	for from < len(doc) {
		nextClose := indexTag(doc, closer, from)
		if nextClose < 0 {
			return -1, 0
		}
		nextOpen := findOpen(doc, name, from)
		if nextOpen >= 0 && nextOpen < nextClose {
			// nested same-name element, unless self-closing
			tagEnd := strings.IndexByte(doc[nextOpen:], '>')
			if tagEnd < 0 {
				return -1, 0
			}
			if doc[nextOpen+tagEnd-1] != '/' {
				depth++
			}
			from = nextOpen + tagEnd + 1
			continue
		}

		end := strings.IndexByte(doc[nextClose:], '>')
		if end < 0 {
			return -1, 0
		}
		if depth == 0 {
			return nextClose, end + 1
		}
		depth--
		from = nextClose + end + 1
	}
	return -1, 0
}

func indexTag(doc, tag string, from int) int {
	for from < len(doc) {
		i := strings.Index(doc[from:], tag)
		if i < 0 {
			return -1
		}
		i += from
		after := i + len(tag)
		if after >= len(doc) {
			return -1
		}
		if isNameEnd(doc[after]) {
			return i
		}
		from = after
	}
	return -1
}

func isNameEnd(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '/', '>':
		return true
	}
	return false
}
