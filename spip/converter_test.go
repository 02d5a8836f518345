package spip

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"e2s/css"
	"e2s/diag"
	"e2s/xhtml"
)

const stylesheet = `
h1.titre { font-size: 2.5em; }
.ital { font-style: italic; }
p.note-de-bas-de-page { font-size: 0.8em; }
`

const article = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="fr">
<head><title>Article</title></head>
<body>
<h1 class="titre">Un titre</h1>
<p class="texte">Le n° 12 dit&nbsp;: « bonjour » <span class="ital">vraiment</span>,[1] voir<span class="appel-note-de-bas-de-page">1</span>.</p>
<p class="note-de-bas-de-page">1 Une note.</p>
<p class="texte">Références</p>
<p class="texte">[1] Dupont, 2001.</p>
<p>Science et pseudo-sciences n° 312</p>
</body>
</html>`

func newConverter(t *testing.T) *Converter {
	t.Helper()
	diags := &diag.Collector{}
	table := css.NewBuilder(zap.NewNop()).Build([]byte(stylesheet), diags)
	if diags.Len() != 0 {
		t.Fatalf("unexpected stylesheet diagnostics: %s", diags)
	}
	c, err := NewConverter(table, DefaultOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	return c
}

func TestConverter_Convert(t *testing.T) {
	res, err := newConverter(t).ConvertString(article)
	if err != nil {
		t.Fatalf("ConvertString() error = %v", err)
	}

	want := `{{{Un titre}}}

Le n°~12 dit~: «~bonjour~» {vraiment},<a href="#ref1" name="cite1">[1]</a> voir[[Une note.]].

<div class="references">

{{{Références}}}

<a href="#cite1" name="ref1">[1]</a> Dupont, 2001.

</div>`
	if res.Text != want {
		t.Errorf("Text =\n%s\nwant\n%s", res.Text, want)
	}
	if res.Diagnostics.Len() != 0 {
		t.Errorf("unexpected diagnostics: %s", res.Diagnostics)
	}
	if !strings.Contains(res.Raw, lineBreak) {
		t.Error("raw output must keep break markers")
	}
}

func TestConverter_NBSPSurvives(t *testing.T) {
	res, err := newConverter(t).ConvertString("<html><body><p>un&nbsp;deux trois\u00a0quatre</p></body></html>")
	if err != nil {
		t.Fatalf("ConvertString() error = %v", err)
	}
	if res.Text != "un~deux trois~quatre" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestConverter_UnusedFootnote(t *testing.T) {
	res, err := newConverter(t).ConvertString(`<html><body>
<p>Texte sans appel.</p>
<p class="note-de-bas-de-page">3 Orpheline.</p>
</body></html>`)
	if err != nil {
		t.Fatalf("ConvertString() error = %v", err)
	}
	if res.Text != "Texte sans appel." {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Diagnostics.Count(diag.UnusedFootnote) != 1 {
		t.Errorf("expected unused footnote diagnostic, got %s", res.Diagnostics)
	}
}

func TestConverter_Errors(t *testing.T) {
	if _, err := NewConverter(nil, Options{Interstitials: []string{"(["}}, zap.NewNop()); err == nil {
		t.Error("expected error for bad interstitial pattern")
	}
	if _, err := newConverter(t).ConvertString("<html></html>"); err == nil {
		t.Error("expected error for document without body")
	}
}

func TestConverter_Language(t *testing.T) {
	c, err := NewConverter(css.NewTable(map[string]css.Declarations{
		".maj": {"text-transform": "uppercase"},
	}), Options{Language: "tr"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	doc, err := xhtml.ParseString(`<html><body><p class="maj">istanbul</p></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := c.Convert(doc).Text; got != "İSTANBUL" {
		t.Errorf("Text = %q, want Turkish upper case", got)
	}

	doc.Lang = "en"
	if got := c.Convert(doc).Text; got != "ISTANBUL" {
		t.Errorf("Text = %q, document language must win", got)
	}
}
