// Package spip converts parsed EPUB content documents into SPIP markup.
package spip

import (
	"maps"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"e2s/css"
)

// DefaultFootnoteMarker is class name fragment marking footnote calls and
// footnote bodies in the source documents.
const DefaultFootnoteMarker = "note-de-bas-de-page"

// Style is effective style of a text run. Styles are never modified after
// creation, children share parent style when they do not change anything.
type Style struct {
	props    css.Declarations
	footnote bool
}

// NewStyle creates style from property map, used mostly for tests.
func NewStyle(props map[string]string, footnote bool) *Style {
	return &Style{props: maps.Clone(props), footnote: footnote}
}

// Get returns property value or empty string.
func (s *Style) Get(name string) string {
	if s == nil {
		return ""
	}
	return s.props[name]
}

// Footnote reports whether run belongs to footnote call or footnote body.
func (s *Style) Footnote() bool {
	return s != nil && s.footnote
}

// Resolver computes effective styles from the selector table.
type Resolver struct {
	table  *css.Table
	marker string
}

func NewResolver(table *css.Table, footnoteMarker string) *Resolver {
	return &Resolver{table: table, marker: footnoteMarker}
}

// Root returns style of the document body before any class applies.
func (r *Resolver) Root() *Style {
	return &Style{props: css.Declarations{}}
}

// Resolve returns style of the element with given tag and class tokens nested
// in the element with parent style. For every class token ".class" and then
// "tag.class" rules apply in order, later declarations override earlier ones
// property by property. Unset properties are inherited from the parent.
func (r *Resolver) Resolve(parent *Style, tag string, classes []string) *Style {
	if len(classes) == 0 {
		return parent
	}

	s := &Style{props: make(css.Declarations, len(parent.props)), footnote: parent.footnote}
	maps.Copy(s.props, parent.props)

	for _, class := range classes {
		for _, sel := range [...]string{"." + class, tag + "." + class} {
			if decl, ok := r.table.Lookup(sel); ok {
				maps.Copy(s.props, decl)
			}
		}
		if r.isFootnoteClass(class) {
			s.footnote = true
		}
	}
	return s
}

// IsFootnote reports whether element own classes mark it as footnote.
func (r *Resolver) IsFootnote(classes []string) bool {
	for _, class := range classes {
		if r.isFootnoteClass(class) {
			return true
		}
	}
	return false
}

func (r *Resolver) isFootnoteClass(class string) bool {
	return r.marker != "" && strings.Contains(class, r.marker)
}

// Font size thresholds in em.
const (
	sizeSmall  = 0.9
	sizeLarge  = 1.0
	sizeLarger = 1.5
	sizeHuge   = 2.0
)

// Formatter applies effective style to text runs producing inline SPIP
// markup. Same style and text always produce the same result.
type Formatter struct {
	upper cases.Caser
}

func NewFormatter(lang language.Tag) *Formatter {
	return &Formatter{upper: cases.Upper(lang)}
}

// Apply wraps text into markers required by style. Checks are applied in
// order, each one wrapping result of the previous.
func (f *Formatter) Apply(s *Style, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	if s.Get("text-transform") == "uppercase" {
		text = f.upper.String(text)
	}
	if strings.Contains(s.Get("text-decoration"), "line-through") {
		text = wrap("<del>", "</del>", text)
	}

	italic, bold := isItalic(s.Get("font-style")), isBold(s.Get("font-weight"))

	if s.Footnote() {
		if italic {
			text = emphasis(1, text)
		}
		if bold {
			text = emphasis(2, text)
		}
		return wrap("[[", "]]", text)
	}

	if scale, ok := fontScale(s.Get("font-size")); ok {
		switch {
		case scale > sizeHuge:
			text = emphasis(3, text)
			italic, bold = false, false
		case scale > sizeLarger:
			text = emphasis(2, emphasis(1, text))
			italic, bold = false, false
		case scale > sizeLarge:
			text = emphasis(2, text)
			bold = false
		case scale < sizeSmall:
			text = wrap("<small>", "</small>", text)
		}
	}

	if italic {
		text = emphasis(1, text)
	}
	if bold {
		text = emphasis(2, text)
	}

	switch s.Get("text-align") {
	case "right":
		text = wrap("[/", "/]", text)
	case "center":
		text = wrap("[|", "|]", text)
	}
	return text
}

func isItalic(v string) bool {
	return v == "italic" || v == "oblique"
}

func isBold(v string) bool {
	switch v {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

// fontScale converts font-size value to em.
func fontScale(raw string) (float64, bool) {
	v, unit, ok := css.ParseLength(raw)
	if !ok {
		return 0, false
	}
	switch unit {
	case "em", "rem":
		return v, true
	case "px":
		return v / 16, true
	case "pt":
		return v / 12, true
	case "%":
		return v / 100, true
	}
	return 0, false
}

// wrap puts markers around text keeping leading and trailing whitespace
// outside.
func wrap(open, close, text string) string {
	core := strings.TrimLeftFunc(text, unicode.IsSpace)
	lead := text[:len(text)-len(core)]
	core = strings.TrimRightFunc(core, unicode.IsSpace)
	if core == "" {
		return text
	}
	trail := text[len(lead)+len(core):]
	return lead + open + core + close + trail
}

// emphasis wraps text into depth curly braces separating them from braces
// already present at the edges.
func emphasis(depth int, text string) string {
	open, close := strings.Repeat("{", depth), strings.Repeat("}", depth)
	core := strings.TrimSpace(text)
	if strings.HasPrefix(core, "{") {
		open += " "
	}
	if strings.HasSuffix(core, "}") {
		close = " " + close
	}
	return wrap(open, close, text)
}
