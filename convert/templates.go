package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"e2s/config"
	"e2s/content"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Book       string
	Article    string
	Title      string
	BookID     string
	Language   string
	SourceFile string
	Index      int
}

// expandTemplate expands template field for the article of the book. When
// all articles go into single output a is nil.
func expandTemplate(c *content.Content, a *content.Article, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Book:       bookName(c.SrcName),
		Title:      c.Title,
		BookID:     c.BookID,
		Language:   c.Language,
		SourceFile: filepath.Base(c.SrcName),
	}
	if a != nil {
		values.Article = a.Base
		values.Index = a.Index
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// bookName is source file name without extension.
func bookName(src string) string {
	base := filepath.Base(filepath.FromSlash(src))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
