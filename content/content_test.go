package content

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"e2s/archive"
	"e2s/config"
	"e2s/diag"
	"e2s/state"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const packageOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="isbn">978-2-00000-000-0</dc:identifier>
    <dc:identifier id="bookid">urn:uuid:0b6c1a8e-7d0a-4b5f-9d0e-000000000001</dc:identifier>
    <dc:title>Science et pseudo-sciences n° 312</dc:title>
    <dc:language>fr</dc:language>
  </metadata>
  <manifest>
    <item id="a10" href="Text/art10.xhtml" media-type="application/xhtml+xml"/>
    <item id="a2" href="Text/art2.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="Styles/style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="a10"/>
    <itemref idref="missing"/>
    <itemref idref="a2"/>
  </spine>
</package>`

const article = `<html xmlns="http://www.w3.org/1999/xhtml"><body><p class="texte">Un texte.</p></body></html>`

type member struct {
	name    string
	content string
}

func openBook(t *testing.T, members ...member) *archive.Reader {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, m := range members {
		fw, err := w.Create(m.name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", m.name, err)
		}
		if _, err := fw.Write([]byte(m.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", m.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	r, err := archive.NewBytesReader(buf.Bytes(), "book.epub")
	if err != nil {
		t.Fatalf("NewBytesReader() error = %v", err)
	}
	return r
}

func setupContext(t *testing.T) context.Context {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Cfg = cfg
	return ctx
}

func fullBook() []member {
	return []member{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", packageOPF},
		{"OEBPS/Styles/style.css", "p.texte { font-style: italic; }\n.a, .b:hover { color: red; }"},
		{"OEBPS/Text/art2.xhtml", article},
		{"OEBPS/Text/art10.xhtml", article},
		{"OEBPS/Text/art1.xhtml", article},
		{"OEBPS/Text/notes.html", article},
	}
}

func TestPrepare_SpineOrder(t *testing.T) {
	ctx := setupContext(t)
	c, err := Prepare(ctx, openBook(t, fullBook()...), zap.NewNop())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	var got []string
	for i, a := range c.Articles {
		if a.Index != i+1 {
			t.Errorf("Article %s index = %d, want %d", a.Name, a.Index, i+1)
		}
		got = append(got, a.Base)
	}
	// spine first, then the rest in natural order
	want := []string{"art10", "art2", "art1", "notes"}
	if !slices.Equal(got, want) {
		t.Errorf("Articles = %v, want %v", got, want)
	}

	if c.BookID != "urn:uuid:0b6c1a8e-7d0a-4b5f-9d0e-000000000001" {
		t.Errorf("BookID = %q, unique identifier must win", c.BookID)
	}
	if c.Title != "Science et pseudo-sciences n° 312" || c.Language != "fr" {
		t.Errorf("metadata = %q %q", c.Title, c.Language)
	}
	if c.Stylesheet != "OEBPS/Styles/style.css" {
		t.Errorf("Stylesheet = %q", c.Stylesheet)
	}
	if _, ok := c.Table.Lookup("p.texte"); !ok {
		t.Error("style table must have p.texte")
	}
	if c.Diagnostics.Count(diag.UnsupportedSelector) != 1 {
		t.Errorf("expected unsupported selector diagnostic, got %s", c.Diagnostics)
	}
	if !strings.Contains(c.String(), `Article[1] "OEBPS/Text/art10.xhtml"`) {
		t.Errorf("unexpected debug dump:\n%s", c.String())
	}
}

func TestPrepare_NaturalOrder(t *testing.T) {
	ctx := setupContext(t)
	state.EnvFromContext(ctx).Cfg.Document.UseSpineOrder = false

	c, err := Prepare(ctx, openBook(t, fullBook()...), zap.NewNop())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	var got []string
	for _, a := range c.Articles {
		got = append(got, a.Base)
	}
	want := []string{"art1", "art2", "art10", "notes"}
	if !slices.Equal(got, want) {
		t.Errorf("Articles = %v, want %v", got, want)
	}
}

func TestPrepare_NoPackage(t *testing.T) {
	ctx := setupContext(t)
	c, err := Prepare(ctx, openBook(t,
		member{"OEBPS/style.css", ""},
		member{"OEBPS/b.xhtml", article},
		member{"OEBPS/a.xhtml", article},
	), zap.NewNop())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if c.Package != nil {
		t.Error("Package must be nil")
	}
	if _, err := uuid.Parse(c.BookID); err != nil {
		t.Errorf("generated BookID %q is not UUID: %v", c.BookID, err)
	}
	if c.Title != "book" {
		t.Errorf("Title = %q, want source base name", c.Title)
	}
	if len(c.Articles) != 2 || c.Articles[0].Base != "a" {
		t.Errorf("Articles = %+v", c.Articles)
	}
}

func TestPrepare_Stylesheets(t *testing.T) {
	tests := []struct {
		name    string
		members []member
	}{
		{"none", []member{{"OEBPS/a.xhtml", article}}},
		{"two", []member{{"OEBPS/a.css", ""}, {"OEBPS/b.CSS", ""}, {"OEBPS/a.xhtml", article}}},
		{"outside prefix", []member{{"styles/a.css", ""}, {"OEBPS/a.xhtml", article}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(setupContext(t), openBook(t, tt.members...), zap.NewNop())
			if !errors.Is(err, ErrStylesheet) {
				t.Errorf("Prepare() error = %v, want %v", err, ErrStylesheet)
			}
		})
	}
}

func TestPrepare_BrokenPackageIsNotFatal(t *testing.T) {
	c, err := Prepare(setupContext(t), openBook(t,
		member{"META-INF/container.xml", containerXML},
		member{"OEBPS/content.opf", "garbage"},
		member{"OEBPS/style.css", ""},
		member{"OEBPS/a.xhtml", article},
	), zap.NewNop())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if c.Package != nil || len(c.Articles) != 1 {
		t.Errorf("unexpected content: %+v", c)
	}
}

func TestPrepare_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(setupContext(t))
	cancel()
	if _, err := Prepare(ctx, openBook(t, fullBook()...), zap.NewNop()); !errors.Is(err, context.Canceled) {
		t.Errorf("Prepare() error = %v, want context.Canceled", err)
	}
}

func TestContent_Document(t *testing.T) {
	members := append(fullBook(), member{"OEBPS/Text/bad.xhtml", "<html><p>no body</p></html>"})
	c, err := Prepare(setupContext(t), openBook(t, members...), zap.NewNop())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	doc, err := c.Document(c.Articles[0])
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if doc.Lang != "fr" {
		t.Errorf("Lang = %q, book language must be used", doc.Lang)
	}
	if doc.Body == nil || !strings.Contains(doc.Body.TextContent(), "Un texte.") {
		t.Error("unexpected document body")
	}

	if _, err := c.Document(Article{Name: "OEBPS/Text/bad.xhtml"}); err == nil {
		t.Error("expected error for document without body")
	}
	if _, err := c.Document(Article{Name: "missing.xhtml"}); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestResolveHref(t *testing.T) {
	tests := []struct {
		opf, href, want string
	}{
		{"OEBPS/content.opf", "Text/a.xhtml", "OEBPS/Text/a.xhtml"},
		{"OEBPS/content.opf", "Text/a%20b.xhtml#frag", "OEBPS/Text/a b.xhtml"},
		{"content.opf", "a.xhtml", "a.xhtml"},
		{"OEBPS/content.opf", "../a.xhtml", "a.xhtml"},
		{"OEBPS/content.opf", "../../a.xhtml", ""},
		{"OEBPS/content.opf", "/abs.xhtml", ""},
		{"OEBPS/content.opf", "#only", ""},
	}
	for _, tt := range tests {
		if got := resolveHref(tt.opf, tt.href); got != tt.want {
			t.Errorf("resolveHref(%q, %q) = %q, want %q", tt.opf, tt.href, got, tt.want)
		}
	}
}

func TestLocatePackage_Fallback(t *testing.T) {
	r := openBook(t, member{"x/book.opf", packageOPF})
	got, err := locatePackage(r)
	if err != nil || got != "x/book.opf" {
		t.Errorf("locatePackage() = %q, %v", got, err)
	}
}

func TestContent_ReportDir(t *testing.T) {
	for src, want := range map[string]string{
		"book.epub":           "book",
		"2024/book.epub":      "2024/book",
		`2025\book.epub`:      "2025/book",
		"/inner/two.epub":     "inner/two",
		"no-extension":        "no-extension",
		"dir.v2/book.v1.epub": "dir.v2/book.v1",
	} {
		c := &Content{SrcName: src}
		if got := c.ReportDir(); got != want {
			t.Errorf("ReportDir(%q) = %q, want %q", src, got, want)
		}
	}
}
