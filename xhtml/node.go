// Package xhtml turns EPUB content documents into small read-only trees the
// converter walks.
package xhtml

import (
	"strings"

	"e2s/utils/debug"
)

// Kind of the document node.
type Kind int

const (
	KindGeneric   Kind = iota // inline element: span, em, sup...
	KindParagraph             // p, h1-h6, li...
	KindBlock                 // div, section, blockquote...
	KindLink                  // a with href attribute
	KindBreak                 // br
	KindSkipped               // element content never reaches output
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindBlock:
		return "block"
	case KindLink:
		return "link"
	case KindBreak:
		return "break"
	case KindSkipped:
		return "skipped"
	default:
		return "generic"
	}
}

var paragraphTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "dt": true, "dd": true, "caption": true, "figcaption": true,
}

var blockTags = map[string]bool{
	"div": true, "section": true, "article": true, "aside": true, "header": true, "footer": true,
	"blockquote": true, "ul": true, "ol": true, "dl": true, "table": true, "thead": true,
	"tbody": true, "tr": true, "td": true, "th": true, "figure": true, "nav": true, "body": true,
}

var skippedTags = map[string]bool{
	"head": true, "script": true, "style": true, "img": true, "image": true, "svg": true,
	"object": true, "video": true, "audio": true, "hr": true,
}

func kindOf(tag string, hasHref bool) Kind {
	switch {
	case paragraphTags[tag]:
		return KindParagraph
	case blockTags[tag]:
		return KindBlock
	case skippedTags[tag]:
		return KindSkipped
	case tag == "br":
		return KindBreak
	case tag == "a" && hasHref:
		return KindLink
	}
	return KindGeneric
}

// Node is a single element of the document. Text is character data before
// the first child element, Tail is character data after the element closing
// tag and before its next sibling.
type Node struct {
	Kind     Kind
	Tag      string
	Classes  []string
	Href     string
	Text     string
	Tail     string
	Children []*Node
}

// IsContainer reports structural nodes: paragraphs and blocks.
func (n *Node) IsContainer() bool {
	return n.Kind == KindParagraph || n.Kind == KindBlock
}

// TextContent returns concatenated text of the node and all its descendants
// in document order, markup ignored. Node own tail is not included.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.textContent(&sb)
	return sb.String()
}

func (n *Node) textContent(sb *strings.Builder) {
	sb.WriteString(n.Text)
	for _, c := range n.Children {
		c.textContent(sb)
		sb.WriteString(c.Tail)
	}
}

// String returns readable dump of the subtree, for debugging only.
func (n *Node) String() string {
	tw := debug.NewTreeWriter()
	n.dump(tw, 0)
	return tw.String()
}

func (n *Node) dump(tw *debug.TreeWriter, depth int) {
	switch {
	case n.Href != "":
		tw.Line(depth, "<%s> %s class%q href=%q", n.Tag, n.Kind, n.Classes, n.Href)
	case len(n.Classes) > 0:
		tw.Line(depth, "<%s> %s class%q", n.Tag, n.Kind, n.Classes)
	default:
		tw.Line(depth, "<%s> %s", n.Tag, n.Kind)
	}
	if n.Text != "" {
		tw.TextBlock(depth+1, "text", n.Text)
	}
	for _, c := range n.Children {
		c.dump(tw, depth+1)
	}
	if n.Tail != "" {
		tw.TextBlock(depth, "tail", n.Tail)
	}
}

// splitClasses splits class attribute value on whitespace and slashes.
func splitClasses(attr string) []string {
	return strings.FieldsFunc(attr, func(r rune) bool {
		return r == '/' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
	})
}
