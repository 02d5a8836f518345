package convert

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	rtdebug "runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"e2s/archive"
	"e2s/config"
	"e2s/content"
	"e2s/spip"
	"e2s/state"
	"e2s/utils/debug"
)

// converterOptions maps document configuration to conversion options.
func converterOptions(cfg *config.DocumentConfig) spip.Options {
	return spip.Options{
		Language:          cfg.Language,
		FootnoteMarker:    cfg.Footnotes.ClassMarker,
		ReferencesHeading: cfg.References.Heading,
		MaxReferenceLine:  cfg.References.MaxLineLength,
		Interstitials:     cfg.Interstitials,
	}
}

// processBook converts all articles of a single EPUB book. "src" is part of
// the source path (always including file name) relative to the original
// path. When actual file was specified it will be just base file name
// without a path. When looking inside archive or directory it will be
// relative path inside archive or directory (including base file name).
// "dst" is the destination directory. Failed articles do not stop
// processing, their errors are combined in the result.
func processBook(ctx context.Context, r *archive.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)
	log = log.With(zap.String("book", src))

	var written int

	log.Info("Conversion starting")
	defer func(start time.Time) {
		log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.Int("outputs", written))
	}(time.Now())

	c, err := content.Prepare(ctx, r, log)
	if err != nil {
		return fmt.Errorf("unable to prepare epub source (%s): %w", src, err)
	}
	c.Diagnostics.Log(log.With(zap.String("stylesheet", c.Stylesheet)))

	conv, err := spip.NewConverter(c.Table, converterOptions(&env.Cfg.Document), log)
	if err != nil {
		return fmt.Errorf("unable to prepare converter: %w", err)
	}

	texts := make([]string, 0, len(c.Articles))
	for i := range c.Articles {
		if err := ctx.Err(); err != nil {
			return multierr.Append(rerr, err)
		}
		a := &c.Articles[i]

		text, err := processArticle(c, a, conv, env, log)
		if err != nil {
			rerr = multierr.Append(rerr, fmt.Errorf("article %s: %w", a.Name, err))
			continue
		}
		if env.Single {
			texts = append(texts, text)
			continue
		}
		if err := writeOutput(buildOutputPath(c, a, src, dst, env), text, a.Name, env, log); err != nil {
			rerr = multierr.Append(rerr, fmt.Errorf("article %s: %w", a.Name, err))
			continue
		}
		written++
	}

	if env.Single && len(texts) > 0 {
		if err := writeOutput(buildOutputPath(c, nil, src, dst, env), strings.Join(texts, "\n\n"), src, env, log); err != nil {
			return multierr.Append(rerr, err)
		}
		written++
	}
	return rerr
}

// processArticle converts a single article. Panics are recovered, so one
// broken document does not stop the rest of the book.
func processArticle(c *content.Content, a *content.Article, conv *spip.Converter, env *state.LocalEnv, log *zap.Logger) (text string, rerr error) {
	log = log.With(zap.String("article", a.Name))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic", zap.Any("panic", r), zap.ByteString("stack", rtdebug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		}
	}()

	doc, err := c.Document(*a)
	if err != nil {
		return "", err
	}
	res := conv.Convert(doc)
	res.Diagnostics.Log(log)

	if env.Rpt != nil {
		prefix := path.Join(c.ReportDir(), fmt.Sprintf("%03d-%s", a.Index, a.Base))
		env.Rpt.StoreData(prefix+".tree.txt", []byte(doc.Body.String()))
		raw := debug.NewTreeWriter()
		raw.Line(0, "Article %q", a.Name)
		raw.Lines(1, "Raw", res.Raw)
		env.Rpt.StoreData(prefix+".raw.txt", []byte(raw.String()))
		env.Rpt.StoreData(prefix+".txt", []byte(res.Text))
		if res.Diagnostics.Len() > 0 {
			env.Rpt.StoreData(prefix+".diag.txt", []byte(res.Diagnostics.String()))
		}
	}
	return res.Text, nil
}

// writeOutput writes converted text, refusing to overwrite existing files
// unless requested and to write the same file twice during a run.
func writeOutput(outputName, text, from string, env *state.LocalEnv, log *zap.Logger) error {
	if prev, exists := env.Outputs[outputName]; exists {
		return fmt.Errorf("output file %s has already been produced from %s", outputName, prev)
	}

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if len(text) > 0 && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.WriteFile(outputName, []byte(text), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	env.Outputs[outputName] = from

	log.Info("Output written", zap.String("to", outputName), zap.String("size", humanize.Bytes(uint64(len(text)))))
	return nil
}
