package spip

import (
	"regexp"
	"strings"

	"e2s/xhtml"
)

// Break markers written by the walker and consumed by NormalizeSpaces. Both
// are private use runes, so they never clash with the document text.
const (
	lineBreak  = "\uE000"
	blockBreak = "\uE001"
)

var sourceWhitespace = regexp.MustCompile(`[ \t\r\n\f]+`)

// Walker flattens document tree into raw inline markup.
type Walker struct {
	resolver  *Resolver
	formatter *Formatter
	out       strings.Builder
}

func NewWalker(resolver *Resolver, formatter *Formatter) *Walker {
	return &Walker{resolver: resolver, formatter: formatter}
}

// Walk returns raw markup for the subtree rooted at body. Result still
// contains break markers and unnormalized spacing.
func (w *Walker) Walk(body *xhtml.Node) string {
	w.out.Reset()
	if body != nil {
		w.walk(body, w.resolver.Root())
	}
	return w.out.String()
}

func (w *Walker) walk(n *xhtml.Node, parent *Style) {
	style := w.resolver.Resolve(parent, n.Tag, n.Classes)
	w.text(style, n.Text)

	for _, c := range n.Children {
		switch c.Kind {
		case xhtml.KindLink:
			if w.resolver.IsFootnote(c.Classes) {
				// footnote call written as a link, keep number only
				w.walk(c, style)
			} else {
				w.link(c, style)
			}
		case xhtml.KindBreak:
			w.out.WriteString(lineBreak)
		case xhtml.KindSkipped:
		default:
			w.walk(c, style)
			switch c.Kind {
			case xhtml.KindParagraph:
				w.out.WriteString(lineBreak)
			case xhtml.KindBlock:
				w.out.WriteString(blockBreak)
			}
		}

		if c.IsContainer() && strings.TrimSpace(c.Tail) == "" {
			continue
		}
		w.text(style, c.Tail)
	}
}

func (w *Walker) text(style *Style, text string) {
	if text == "" {
		return
	}
	w.out.WriteString(w.formatter.Apply(style, sourceWhitespace.ReplaceAllString(text, " ")))
}

func (w *Walker) link(n *xhtml.Node, style *Style) {
	text := strings.TrimSpace(sourceWhitespace.ReplaceAllString(n.TextContent(), " "))
	link := "[" + text + "->" + strings.TrimSpace(n.Href) + "]"
	if style.Footnote() {
		// links in footnote bodies stay inside the footnote
		link = "[[" + link + "]]"
	}
	w.out.WriteString(link)
}
