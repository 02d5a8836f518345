package spip

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"e2s/xhtml"
)

func walk(t *testing.T, body string) string {
	t.Helper()
	doc, err := xhtml.ParseString("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	w := NewWalker(NewResolver(testTable(), DefaultFootnoteMarker), NewFormatter(language.French))
	return w.Walk(doc.Body)
}

// visible makes break markers readable in failure messages.
var visible = strings.NewReplacer(lineBreak, "⏎", blockBreak, "¶")

func TestWalker(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"paragraphs",
			`<p>Un <span class="gras">mot</span> ici.</p><p>Deux</p>`,
			"Un {{mot}} ici.⏎Deux⏎",
		},
		{
			"container leading text styled",
			`<p class="gras">Tout en gras</p>`,
			"{{ {Tout en gras} }}⏎",
		},
		{
			"source whitespace collapsed",
			"<p>Un\n   deux\ttrois</p>",
			"Un deux trois⏎",
		},
		{
			"blocks and blank container tails",
			"<div><p>a</p>\n<p>b</p>\n</div>",
			"a⏎b⏎¶",
		},
		{
			"link",
			`<p>Voir <a href="http://x.org/"> le <em>site</em></a> ici</p>`,
			"Voir [le site->http://x.org/] ici⏎",
		},
		{
			"link tail uses parent style",
			`<p><span class="gras">a <a href="#x">b</a> c</span></p>`,
			"{{a}} [b->#x] {{c}}⏎",
		},
		{
			"footnote call as link",
			`<p>Texte<a class="appel-note-de-bas-de-page" href="#n1">1</a> suite</p>`,
			"Texte[[1]] suite⏎",
		},
		{
			"link inside footnote body",
			`<p class="note-de-bas-de-page">2 Voir <a href="http://x.org/">ici</a>.</p>`,
			"[[2 Voir]] [[[ici->http://x.org/]]][[.]]⏎",
		},
		{
			"break",
			`<p>a<br/>b</p>`,
			"a⏎b⏎",
		},
		{
			"skipped elements keep tail",
			`<p>a<img src="x.png"/>b<script>var x;</script></p>`,
			"ab⏎",
		},
		{
			"non blank container tail",
			`<div><p>a</p>reste</div>`,
			"a⏎reste¶",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visible.Replace(walk(t, tt.body)); got != tt.want {
				t.Errorf("Walk() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWalker_NilBody(t *testing.T) {
	w := NewWalker(NewResolver(nil, DefaultFootnoteMarker), NewFormatter(language.French))
	if got := w.Walk(nil); got != "" {
		t.Errorf("Walk(nil) = %q", got)
	}
}
