// Package pptx holds the in-memory presentation document and the append-only
// slide mutation applied to it. Everything here is a pure data transform:
// the package performs no I/O, which is what lets the store persist results
// atomically.
package pptx

import (
	"errors"
	"strings"
)

var (
	// ErrEmptySlideText indicates an append with an empty title or content.
	ErrEmptySlideText = errors.New("pptx: slide title and content must be non-empty")

	// ErrInvalidContainer indicates bytes that do not parse as a presentation.
	ErrInvalidContainer = errors.New("pptx: invalid presentation container")
)

// DefaultLayout is the only layout the renderer honors. Unrecognized layout
// names normalize to it rather than failing; that matches the permissive
// behavior of every deployed variant of this service.
const DefaultLayout = "Title and Content"

// layoutNames is the fixed layout set of the stock presentation template.
// Kept as a recognition list only; selection beyond DefaultLayout is out of
// scope.
var layoutNames = []string{
	"Title Slide",
	DefaultLayout,
	"Section Header",
	"Two Content",
	"Comparison",
	"Title Only",
	"Blank",
	"Content with Caption",
	"Picture with Caption",
}

// Slide is one entry in a presentation: a title region and a body region.
type Slide struct {
	Title   string
	Content string
	Layout  string
}

// Document is an ordered sequence of slides. The zero-slide document is
// valid and is what the store persists on first contact with an identifier.
type Document struct {
	slides []Slide
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// AppendSlide adds exactly one slide at the end of the document. Layout
// falls back to DefaultLayout when the name is unknown. No existing slide is
// touched. Code points XML cannot carry (control characters other than tab,
// newline and carriage return) are stripped from the text: they can arrive
// in a JSON body, but written out they would make the stored container
// unreadable on the next open.
func (d *Document) AppendSlide(title, content, layout string) error {
	title = sanitizeText(title)
	content = sanitizeText(content)
	if title == "" || content == "" {
		return ErrEmptySlideText
	}
	d.slides = append(d.slides, Slide{
		Title:   title,
		Content: content,
		Layout:  normalizeLayout(layout),
	})
	return nil
}

// SlideCount returns the number of slides.
func (d *Document) SlideCount() int { return len(d.slides) }

// Slides returns a copy of the slide sequence in append order.
func (d *Document) Slides() []Slide {
	out := make([]Slide, len(d.slides))
	copy(out, d.slides)
	return out
}

// Layouts returns the recognized layout names.
func Layouts() []string {
	out := make([]string, len(layoutNames))
	copy(out, layoutNames)
	return out
}

func normalizeLayout(name string) string {
	for _, known := range layoutNames {
		if name == known {
			return known
		}
	}
	return DefaultLayout
}

// sanitizeText drops runes outside the XML 1.0 character range.
func sanitizeText(s string) string {
	if !strings.ContainsFunc(s, isIllegalXML) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isIllegalXML(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isIllegalXML(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	case r >= 0xD800 && r <= 0xDFFF:
		return true
	case r == 0xFFFE || r == 0xFFFF:
		return true
	default:
		return r > 0x10FFFF
	}
}
