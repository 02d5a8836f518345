package spip

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"e2s/css"
	"e2s/diag"
	"e2s/xhtml"
)

// Options controls conversion.
type Options struct {
	// Language used for case transformations when document does not
	// declare its own.
	Language          string
	FootnoteMarker    string
	ReferencesHeading string
	MaxReferenceLine  int
	// Interstitials are regular expressions of whole lines to remove.
	Interstitials []string
}

// DefaultOptions returns options matching the source publication.
func DefaultOptions() Options {
	return Options{
		Language:          "fr",
		FootnoteMarker:    DefaultFootnoteMarker,
		ReferencesHeading: DefaultReferencesHeading,
		MaxReferenceLine:  DefaultMaxReferenceLine,
		Interstitials:     DefaultInterstitials,
	}
}

// Result of a single document conversion.
type Result struct {
	// Raw is walker output before normalization, kept for debugging.
	Raw         string
	Text        string
	Diagnostics *diag.Collector
}

// Converter turns content documents sharing one stylesheet into SPIP text.
// It is not safe for concurrent use.
type Converter struct {
	log      *zap.Logger
	opts     Options
	resolver *Resolver
	chain    *Chain
}

func NewConverter(table *css.Table, opts Options, log *zap.Logger) (*Converter, error) {
	inter, err := NewInterstitials(opts.Interstitials)
	if err != nil {
		return nil, err
	}
	return &Converter{
		log:      log.Named("spip"),
		opts:     opts,
		resolver: NewResolver(table, opts.FootnoteMarker),
		chain:    NewChain(inter),
	}, nil
}

// Convert runs the whole pipeline: walk, normalization chain, footnotes and
// references.
func (c *Converter) Convert(doc *xhtml.Document) *Result {
	res := &Result{Diagnostics: &diag.Collector{}}

	walker := NewWalker(c.resolver, NewFormatter(c.language(doc.Lang)))
	res.Raw = walker.Walk(doc.Body)

	text := c.chain.Apply(res.Raw)
	text = LinkFootnotes(text, res.Diagnostics)
	text = NewReferenceFormatter(c.opts.ReferencesHeading, c.opts.MaxReferenceLine, res.Diagnostics).Format(text)
	res.Text = text

	c.log.Debug("Document converted",
		zap.String("title", doc.Title),
		zap.Int("raw", len(res.Raw)),
		zap.Int("text", len(res.Text)),
		zap.Int("diagnostics", res.Diagnostics.Len()))
	return res
}

// ConvertString parses XHTML text and converts it.
func (c *Converter) ConvertString(s string) (*Result, error) {
	doc, err := xhtml.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("unable to parse document: %w", err)
	}
	return c.Convert(doc), nil
}

func (c *Converter) language(docLang string) language.Tag {
	for _, l := range []string{docLang, c.opts.Language} {
		if l == "" {
			continue
		}
		if tag, err := language.Parse(l); err == nil {
			return tag
		}
		c.log.Debug("Ignoring unknown language", zap.String("lang", l))
	}
	return language.Und
}
