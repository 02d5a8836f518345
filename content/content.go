// Package content prepares EPUB container for conversion: locates the
// stylesheet, enumerates and orders articles and collects book metadata.
package content

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"e2s/archive"
	"e2s/css"
	"e2s/diag"
	"e2s/state"
	"e2s/xhtml"
)

// ErrStylesheet is returned when book does not have exactly one stylesheet.
var ErrStylesheet = errors.New("book must have exactly one stylesheet")

// Article is a single content document of the book.
type Article struct {
	// Name is archive member path.
	Name string
	// Base is member file name without extension.
	Base string
	// Index is 1-based position in reading order.
	Index int
}

// Content is prepared EPUB book.
type Content struct {
	SrcName    string
	BookID     string
	Title      string
	Language   string
	Stylesheet string
	Table      *css.Table
	// Diagnostics are produced while building style table.
	Diagnostics *diag.Collector
	Articles    []Article
	Package     *Package

	reader *archive.Reader
}

// Prepare reads book structure from opened container. Content keeps using
// the reader for Document calls, caller owns it.
func Prepare(ctx context.Context, r *archive.Reader, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)
	cfg := &env.Cfg.Document

	c := &Content{
		SrcName:     r.Name(),
		Diagnostics: &diag.Collector{},
		reader:      r,
	}

	sheets, err := r.List(cfg.ContentPrefix, cfg.StylesheetSuffix)
	if err != nil {
		return nil, fmt.Errorf("unable to list stylesheets: %w", err)
	}
	if len(sheets) != 1 {
		return nil, fmt.Errorf("%w: found %d under %q (%s)", ErrStylesheet, len(sheets), cfg.ContentPrefix, strings.Join(sheets, ", "))
	}
	c.Stylesheet = sheets[0]

	style, err := r.ReadText(c.Stylesheet, "text/css")
	if err != nil {
		return nil, fmt.Errorf("unable to read stylesheet: %w", err)
	}
	c.Table = css.NewBuilder(log).Build([]byte(style), c.Diagnostics)
	log.Debug("Style table built", zap.String("stylesheet", c.Stylesheet), zap.Int("selectors", c.Table.Len()), zap.Int("diagnostics", c.Diagnostics.Len()))

	var names []string
	for _, suffix := range cfg.ArticleSuffixes {
		found, err := r.List(cfg.ContentPrefix, suffix)
		if err != nil {
			return nil, fmt.Errorf("unable to list articles: %w", err)
		}
		for _, name := range found {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}

	if c.Package, err = readPackage(r); err != nil {
		// Package document is optional for us, broken one is not fatal
		log.Warn("Unable to read package document, using natural order", zap.Error(err))
	}

	var spine []string
	if c.Package != nil {
		c.BookID = c.Package.Identifier
		c.Title = c.Package.Title
		c.Language = c.Package.Language
		if cfg.UseSpineOrder {
			spine = c.Package.Spine
		}
	}
	for i, name := range orderArticles(names, spine) {
		c.Articles = append(c.Articles, Article{Name: name, Base: baseName(name), Index: i + 1})
	}

	// Make sure book ID is not empty
	if len(c.BookID) == 0 {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("unable to generate new book UUID: %w", err)
		}
		c.BookID = id.String()
		log.Warn("Book has no identifier, generated", zap.String("id", c.BookID))
	}
	if len(c.Title) == 0 {
		c.Title = baseName(c.SrcName)
	}

	env.Rpt.StoreData(path.Join(c.ReportDir(), "content.txt"), []byte(c.String()))
	return c, nil
}

// Document reads and parses an article.
func (c *Content) Document(a Article) (*xhtml.Document, error) {
	data, err := c.reader.ReadBytes(a.Name)
	if err != nil {
		return nil, err
	}
	doc, err := xhtml.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", a.Name, err)
	}
	if len(doc.Lang) == 0 {
		doc.Lang = c.Language
	}
	return doc, nil
}

// orderArticles puts articles listed in spine first, in spine order,
// followed by the rest in natural order of names.
func orderArticles(names, spine []string) []string {
	rest := slices.Clone(names)
	sort.Sort(natural.StringSlice(rest))
	if len(spine) == 0 {
		return rest
	}

	ordered := make([]string, 0, len(names))
	for _, name := range spine {
		if i := slices.Index(rest, name); i >= 0 {
			ordered = append(ordered, name)
			rest = slices.Delete(rest, i, i+1)
		}
	}
	return append(ordered, rest...)
}

// ReportDir is directory in debug report for dumps of this book: source
// name as slash path without extension.
func (c *Content) ReportDir() string {
	name := strings.TrimLeft(strings.ReplaceAll(c.SrcName, `\`, "/"), "/")
	return strings.TrimSuffix(name, path.Ext(name))
}

func baseName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
