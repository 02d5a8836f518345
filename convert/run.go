// Package convert implements "convert" command: finds EPUB books in the
// source, converts their articles to SPIP markup and writes results.
package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"e2s/archive"
	"e2s/state"
)

// MaxBookSize limits size of a book read from an outer archive into memory.
const MaxBookSize int64 = 512 * 1024 * 1024

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = defaultDestination(src); err != nil {
			return err
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}

	env.Single, env.Overwrite = cmd.Bool("single"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Bool("single", env.Single))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)), zap.Int("outputs", len(env.Outputs)))
	}(time.Now())

	if err := process(ctx, src, dst, log); err != nil {
		return err
	}
	if len(env.Outputs) == 0 {
		return fmt.Errorf("nothing has been converted from %s", src)
	}
	return nil
}

// defaultDestination is the directory of the source, or the source itself
// when it is a directory. Path inside archive resolves to archive's
// directory.
func defaultDestination(src string) (string, error) {
	for head := src; len(head) != 0; head = filepath.Dir(head) {
		fi, err := os.Stat(head)
		if err != nil {
			if parent := filepath.Dir(head); parent != head {
				continue
			}
			break
		}
		if fi.IsDir() {
			return head, nil
		}
		return filepath.Dir(head), nil
	}
	return "", fmt.Errorf("input source was not found (%s)", src)
}

// process handles the core conversion logic independently of CLI framework. It
// determines the input type (directory, archive, or single book) and processes
// accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		book, err := isEpubFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if book && head == src {
			// we have book, it cannot have tail
			if err := processBookFile(ctx, head, filepath.Base(head), dst, log); err != nil {
				log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			}
			break
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := processArchive(ctx, head, tail, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}
		return fmt.Errorf("input was not recognized as EPUB book or archive (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks directory tree finding books and archives and processes
// them.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if isOwnOutput(ctx, path) {
			return nil
		}

		book, err := isEpubFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if book {
			count++
			src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
			if err := processBookFile(ctx, path, src, dst, log); err != nil {
				log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		arc, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !arc {
			log.Debug("Skipping file, not recognized as book or archive", zap.String("file", path))
			return nil
		}
		count++
		if err := processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst, log); err != nil {
			log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
}

// isOwnOutput is true for files written by this run, destination may be
// inside the source directory.
func isOwnOutput(ctx context.Context, path string) bool {
	_, ok := state.EnvFromContext(ctx).Outputs[path]
	return ok
}

// processArchive walks all files inside archive, finds books under "pathIn"
// and processes them. Processing of archives inside archives is not
// supported.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	return archive.Walk(path, pathIn, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		book, err := isEpubInArchive(f)
		if err != nil {
			log.Warn("Skipping file in archive",
				zap.String("archive", arc), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !book {
			log.Debug("Skipping file, not recognized as book", zap.String("archive", arc), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		data, err := archive.ReadFile(f, MaxBookSize)
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}

		cp := state.EnvFromContext(ctx).CodePage

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}

		src := filepath.Join(pathOut, filepath.FromSlash(pathInArchive))
		r, err := archive.NewBytesReader(data, src)
		if err != nil {
			log.Error("Unable to open book in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if err := processBook(ctx, r, src, dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
}

// processBookFile opens book on disk, the book is known by its name relative
// to the source.
func processBookFile(ctx context.Context, path, src, dst string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open book: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("unable to open book: %w", err)
	}
	r, err := archive.NewReader(f, fi.Size(), src)
	if err != nil {
		return fmt.Errorf("unable to open book: %w", err)
	}
	return processBook(ctx, r, src, dst, log)
}
