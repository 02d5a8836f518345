package content

import (
	"sort"

	"github.com/maruel/natural"

	"e2s/utils/debug"
)

// String returns a readable tree of prepared book. It exists solely for
// manual inspection during debugging.
func (c *Content) String() string {
	if c == nil {
		return "<nil Content>"
	}

	tw := debug.NewTreeWriter()
	tw.Line(0, "Book %q", c.SrcName)
	tw.TextBlock(1, "ID", c.BookID)
	tw.TextBlock(1, "Title", c.Title)
	tw.TextBlock(1, "Language", c.Language)

	if c.Package != nil {
		tw.Line(1, "Package %q (spine %d)", c.Package.Path, len(c.Package.Spine))
		for i, name := range c.Package.Spine {
			tw.Line(2, "Spine[%d] %q", i, name)
		}
	}

	tw.Line(1, "Stylesheet %q (%d selectors)", c.Stylesheet, c.Table.Len())
	selectors := c.Table.Selectors()
	sort.Sort(natural.StringSlice(selectors))
	for _, sel := range selectors {
		decl, _ := c.Table.Lookup(sel)
		tw.Line(2, "Selector[%q] properties[%d]", sel, len(decl))
	}
	for _, d := range c.Diagnostics.Items() {
		tw.Line(2, "%s", d)
	}

	tw.Line(1, "Articles: %d", len(c.Articles))
	for _, a := range c.Articles {
		tw.Line(2, "Article[%d] %q base[%q]", a.Index, a.Name, a.Base)
	}
	return tw.String()
}
