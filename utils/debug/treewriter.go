// Package debug renders indented dumps of internal structures for debug
// reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indent = "  "

type TreeWriter struct {
	b *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{b: &strings.Builder{}}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

func (tw *TreeWriter) pad(depth int) {
	tw.b.WriteString(strings.Repeat(indent, depth))
}

// Line writes formatted line at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.b, format, args...)
	tw.b.WriteByte('\n')
}

// TextBlock writes labeled value quoted, so invisible characters (NBSP,
// tabs, line breaks) are seen in the dump.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.b.WriteString(label)
	tw.b.WriteString(": ")
	tw.b.WriteString(encodeText(value))
	tw.b.WriteByte('\n')
}

// Lines writes multi-line text under label, one quoted numbered line each.
func (tw *TreeWriter) Lines(depth int, label, text string) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}
	tw.Line(depth, "%s: %d lines", label, len(lines))
	width := len(strconv.Itoa(len(lines)))
	for i, l := range lines {
		tw.Line(depth+1, "%*d| %s", width, i+1, encodeText(l))
	}
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
