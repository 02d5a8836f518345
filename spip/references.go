package spip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"e2s/diag"
)

const (
	// DefaultReferencesHeading starts bibliography section.
	DefaultReferencesHeading = "Références"
	// DefaultMaxReferenceLine is the length (in runes) of a line which cannot
	// be a bibliography entry and therefore closes the section.
	DefaultMaxReferenceLine = 600

	// maxCitationSpan limits range expansion.
	maxCitationSpan = 100
)

// ReferenceTable maps source entry numbers to display identifiers assigned
// in order of the first citation.
type ReferenceTable struct {
	ids   map[int]int
	order []int
}

// Assign returns display id for the entry number, allocating the next one
// on first use.
func (t *ReferenceTable) Assign(number int) (id int, first bool) {
	if id, ok := t.ids[number]; ok {
		return id, false
	}
	if t.ids == nil {
		t.ids = make(map[int]int)
	}
	t.order = append(t.order, number)
	id = len(t.order)
	t.ids[number] = id
	return id, true
}

// Lookup returns display id previously assigned to the entry number.
func (t *ReferenceTable) Lookup(number int) (int, bool) {
	id, ok := t.ids[number]
	return id, ok
}

// Numbers returns cited entry numbers in order of display ids.
func (t *ReferenceTable) Numbers() []int {
	return append([]int(nil), t.order...)
}

func (t *ReferenceTable) Len() int {
	return len(t.order)
}

var (
	citation      = regexp.MustCompile(`([^\[\]])\[(\d+(?:[ ~]*[-–][ ~]*\d+)?(?:[ ~]*,[ ~]*\d+(?:[ ~]*[-–][ ~]*\d+)?)*)\]`)
	citationRange = regexp.MustCompile(`^(\d+)[ ~]*[-–][ ~]*(\d+)$`)
	entry         = regexp.MustCompile(`^\[(\d+)\][ ~]*(.*)$`)
	headingTrim   = "{}[]|/ ~:"
)

// ReferenceFormatter links citations in the text to the bibliography
// entries and renumbers both in citation order.
type ReferenceFormatter struct {
	heading string
	maxLine int

	table  ReferenceTable
	linked map[int]bool
	diags  *diag.Collector
}

func NewReferenceFormatter(heading string, maxLine int, diags *diag.Collector) *ReferenceFormatter {
	if heading == "" {
		heading = DefaultReferencesHeading
	}
	if maxLine <= 0 {
		maxLine = DefaultMaxReferenceLine
	}
	return &ReferenceFormatter{heading: heading, maxLine: maxLine, linked: make(map[int]bool), diags: diags}
}

// Table returns identifiers assigned so far.
func (f *ReferenceFormatter) Table() *ReferenceTable {
	return &f.table
}

// Format processes text line by line.
func (f *ReferenceFormatter) Format(s string) string {
	var (
		out    []string
		inside bool
		blanks int
	)

	closeSection := func() {
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, "</div>")
		inside = false
	}

	for _, line := range strings.Split(s, "\n") {
		if !inside {
			if f.isHeading(line) {
				out = append(out, `<div class="references">`, "", "{{{"+f.heading+"}}}")
				inside, blanks = true, 0
				continue
			}
			out = append(out, f.citations(line))
			continue
		}

		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				closeSection()
			}
			out = append(out, line)
			continue
		}
		blanks = 0

		if utf8.RuneCountInString(line) > f.maxLine {
			closeSection()
			out = append(out, "", f.citations(line))
			continue
		}
		out = append(out, f.entry(line))
	}
	if inside {
		closeSection()
	}

	for _, n := range f.table.Numbers() {
		if !f.linked[n] {
			id, _ := f.table.Lookup(n)
			f.diags.Warn(diag.UnresolvedCitation, strconv.Itoa(n), "citation [%d] (id %d) has no bibliography entry", n, id)
		}
	}
	return collapseBlankLines(strings.Join(out, "\n"))
}

func (f *ReferenceFormatter) isHeading(line string) bool {
	return strings.Trim(line, headingTrim) == f.heading
}

func (f *ReferenceFormatter) entry(line string) string {
	m := entry.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return line
	}
	id, ok := f.table.Lookup(n)
	if !ok {
		f.diags.Warn(diag.UnlinkedEntry, m[1], "bibliography entry [%d] is never cited", n)
		return line
	}
	name := ""
	if !f.linked[n] {
		name = fmt.Sprintf(` name="ref%d"`, id)
		f.linked[n] = true
	}
	return fmt.Sprintf(`<a href="#cite%d"%s>[%d]</a> %s`, id, name, n, m[2])
}

// citations links every citation on the line.
func (f *ReferenceFormatter) citations(line string) string {
	return citation.ReplaceAllStringFunc(line, func(m string) string {
		sub := citation.FindStringSubmatch(m)
		numbers, ok := expandCitation(sub[2])
		if !ok {
			f.diags.Info(diag.MalformedCitation, sub[2], "citation [%s] is left as is", sub[2])
			return m
		}

		if len(numbers) == 1 {
			return sub[1] + f.citeLink(numbers[0], "["+strconv.Itoa(numbers[0])+"]")
		}
		links := make([]string, 0, len(numbers))
		for _, n := range numbers {
			links = append(links, f.citeLink(n, strconv.Itoa(n)))
		}
		return sub[1] + "[" + strings.Join(links, ", ") + "]"
	})
}

// citeLink returns anchor pointing to the entry, only the first citation of
// an entry carries the name attribute.
func (f *ReferenceFormatter) citeLink(number int, label string) string {
	id, first := f.table.Assign(number)
	if first {
		return fmt.Sprintf(`<a href="#ref%d" name="cite%d">%s</a>`, id, id, label)
	}
	return fmt.Sprintf(`<a href="#ref%d">%s</a>`, id, label)
}

// expandCitation turns "1, 3-5" into 1, 3, 4, 5.
func expandCitation(list string) ([]int, bool) {
	var numbers []int
	for part := range strings.SplitSeq(list, ",") {
		part = strings.Trim(part, " ~")
		if m := citationRange.FindStringSubmatch(part); m != nil {
			from, err1 := strconv.Atoi(m[1])
			to, err2 := strconv.Atoi(m[2])
			if err1 != nil || err2 != nil || to < from || to-from >= maxCitationSpan {
				return nil, false
			}
			for n := from; n <= to; n++ {
				numbers = append(numbers, n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 || len(numbers) > maxCitationSpan {
		return nil, false
	}
	return numbers, true
}
