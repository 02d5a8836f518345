package spip

import (
	"testing"

	"e2s/diag"
)

func TestFootnoteTable(t *testing.T) {
	var table FootnoteTable
	table.Add(Footnote{Number: 1, Text: "a"})
	table.Add(Footnote{Number: 2, Text: "b"})
	table.Add(Footnote{Number: 1, Text: "c"})

	if f, ok := table.Take(1); !ok || f.Text != "a" {
		t.Errorf("Take(1) = %+v, %v, want first definition", f, ok)
	}
	if f, ok := table.Take(1); !ok || f.Text != "c" {
		t.Errorf("Take(1) = %+v, %v, want second definition", f, ok)
	}
	if _, ok := table.Take(1); ok {
		t.Error("Take(1) must fail once consumed")
	}
	if _, ok := table.Take(3); ok {
		t.Error("Take(3) must fail for unknown number")
	}
	pending := table.Pending()
	if len(pending) != 1 || pending[0].Number != 2 {
		t.Errorf("Pending() = %+v", pending)
	}
}

func TestLinkFootnotes(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		unused int
	}{
		{
			"round trip",
			"Texte[[7]] suite.\n\n[[7 hello]]",
			"Texte[[hello]] suite.",
			0,
		},
		{
			"definition before call",
			"[[1 avant]]\n\nTexte[[1]].",
			"Texte[[avant]].",
			0,
		},
		{
			"first call only",
			"a[[1]] b[[1]]\n\n[[1 x]]",
			"a[[x]] b[[1]]",
			0,
		},
		{
			"repeated numbers in order",
			"a[[1]] b[[1]]\n\n[[1 first]]\n\n[[1 second]]",
			"a[[first]] b[[second]]",
			0,
		},
		{
			"call without definition",
			"a[[4]]",
			"a[[4]]",
			0,
		},
		{
			"definition without call",
			"a\n\n[[3 orpheline]]\n\nb",
			"a\n\nb",
			1,
		},
		{
			"nbsp after number",
			"a[[2]]\n\n[[2~note]]",
			"a[[note]]",
			0,
		},
		{
			"definition with link",
			"a[[2]]\n\n[[2 Voir [ici->http://x.org/].]]",
			"a[[Voir [ici->http://x.org/].]]",
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := &diag.Collector{}
			if got := LinkFootnotes(tt.in, diags); got != tt.want {
				t.Errorf("LinkFootnotes() = %q, want %q", got, tt.want)
			}
			if got := diags.Count(diag.UnusedFootnote); got != tt.unused {
				t.Errorf("unused footnotes = %d, want %d", got, tt.unused)
			}
		})
	}
}
