package css

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Declarations maps property name to its raw value text.
type Declarations map[string]string

// Get returns property value or empty string.
func (d Declarations) Get(name string) string {
	return d[name]
}

// Table maps selector name (as written in stylesheet, e.g. "p.note",
// ".note", "span") to its declarations. Built once and never modified
// afterwards.
type Table struct {
	rules map[string]Declarations
	order []string
}

// NewTable creates table from already prepared rules, mostly useful in tests.
// Selectors are kept in sorted order.
func NewTable(rules map[string]Declarations) *Table {
	t := &Table{rules: make(map[string]Declarations, len(rules))}
	for name, decl := range rules {
		t.rules[name] = decl
		t.order = append(t.order, name)
	}
	slices.Sort(t.order)
	return t
}

// Lookup returns declarations for exact selector name.
func (t *Table) Lookup(selector string) (Declarations, bool) {
	if t == nil {
		return nil, false
	}
	d, ok := t.rules[selector]
	return d, ok
}

// Len returns number of selectors in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Selectors returns selector names in order of first appearance.
func (t *Table) Selectors() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.order)
}

// WriteTo writes the table as CSS text, implementing io.WriterTo. Property
// order within a rule is sorted for deterministic output.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, name := range t.Selectors() {
		n, err := writeRule(w, name, t.rules[name])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (t *Table) String() string {
	var sb strings.Builder
	t.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(w io.Writer, selector string, props Declarations) (int, error) {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	slices.Sort(names)

	var total int
	n, err := fmt.Fprintf(w, "%s {\n", selector)
	total += n
	if err != nil {
		return total, err
	}
	for _, name := range names {
		n, err = fmt.Fprintf(w, "  %s: %s;\n", name, props[name])
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}

// ParseLength extracts numeric value and unit from raw length value like
// "1.2em", "14px" or "80%". Unit is lower-cased, ok is false when raw does
// not start with a number.
func ParseLength(raw string) (value float64, unit string, ok bool) {
	raw = strings.TrimSpace(raw)
	numEnd := 0
	for i, r := range raw {
		if unicode.IsDigit(r) || r == '.' || (i == 0 && (r == '-' || r == '+')) {
			numEnd = i + 1
		} else {
			break
		}
	}
	if numEnd == 0 {
		return 0, "", false
	}
	num, err := strconv.ParseFloat(raw[:numEnd], 64)
	if err != nil {
		return 0, "", false
	}
	return num, strings.ToLower(strings.TrimSpace(raw[numEnd:])), true
}
