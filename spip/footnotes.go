package spip

import (
	"regexp"
	"strconv"
	"strings"

	"e2s/diag"
)

// Footnote is footnote body waiting for its call.
type Footnote struct {
	Number int
	Text   string
}

// FootnoteTable keeps footnote bodies in document order until they are
// spliced at the call site.
type FootnoteTable struct {
	pending []Footnote
}

func (t *FootnoteTable) Add(f Footnote) {
	t.pending = append(t.pending, f)
}

// Take removes and returns the first pending footnote with given number.
func (t *FootnoteTable) Take(number int) (Footnote, bool) {
	for i, f := range t.pending {
		if f.Number == number {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return f, true
		}
	}
	return Footnote{}, false
}

// Pending returns footnotes never taken.
func (t *FootnoteTable) Pending() []Footnote {
	return append([]Footnote(nil), t.pending...)
}

var (
	footnoteBody = regexp.MustCompile(`^\[\[(\d+)[ ~]+(.+)\]\]$`)
	footnoteCall = regexp.MustCompile(`\[\[(\d+)\]\]`)
)

// LinkFootnotes moves footnote bodies to their calls. Lines "[[n text]]" are
// removed and the first call "[[n]]" is replaced with "[[text]]". Calls
// without body stay as they are, bodies without call are dropped.
func LinkFootnotes(s string, diags *diag.Collector) string {
	var (
		table FootnoteTable
		kept  []string
	)
	for line := range strings.Lines(s) {
		line = strings.TrimSuffix(line, "\n")
		if m := footnoteBody.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				table.Add(Footnote{Number: n, Text: strings.TrimSpace(m[2])})
				continue
			}
		}
		kept = append(kept, line)
	}

	s = footnoteCall.ReplaceAllStringFunc(strings.Join(kept, "\n"), func(call string) string {
		n, err := strconv.Atoi(call[2 : len(call)-2])
		if err != nil {
			return call
		}
		if f, ok := table.Take(n); ok {
			return "[[" + f.Text + "]]"
		}
		return call
	})

	for _, f := range table.Pending() {
		diags.Info(diag.UnusedFootnote, strconv.Itoa(f.Number), "footnote %d has no call and is dropped", f.Number)
	}
	return strings.Trim(collapseBlankLines(s), "\n")
}
