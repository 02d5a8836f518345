// Package diag collects non-fatal conversion problems so callers can inspect,
// log or suppress them instead of scraping console output.
package diag

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Severity of the diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "info"
}

// Kind classifies diagnostics.
type Kind string

const (
	RuleConflict        Kind = "rule-conflict"
	UnsupportedSelector Kind = "unsupported-selector"
	UnresolvedCitation  Kind = "unresolved-citation"
	UnlinkedEntry       Kind = "unlinked-entry"
	UnusedFootnote      Kind = "unused-footnote"
	MalformedCitation   Kind = "malformed-citation"
)

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Subject  string // selector, reference number, footnote number...
	Message  string
}

func (d Diagnostic) String() string {
	if d.Subject == "" {
		return fmt.Sprintf("%s: %s: %s", d.Severity, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s [%s]: %s", d.Severity, d.Kind, d.Subject, d.Message)
}

// Collector accumulates diagnostics in the order they were reported. Zero
// value is ready to use, nil collector silently drops everything.
type Collector struct {
	items []Diagnostic
}

func (c *Collector) Warn(kind Kind, subject, format string, args ...any) {
	c.add(Warning, kind, subject, format, args...)
}

func (c *Collector) Info(kind Kind, subject, format string, args ...any) {
	c.add(Info, kind, subject, format, args...)
}

func (c *Collector) add(sev Severity, kind Kind, subject, format string, args ...any) {
	if c == nil {
		return
	}
	c.items = append(c.items, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Subject:  subject,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends everything reported to other.
func (c *Collector) Merge(other *Collector) {
	if c == nil || other == nil {
		return
	}
	c.items = append(c.items, other.items...)
}

// Items returns copy of collected diagnostics.
func (c *Collector) Items() []Diagnostic {
	if c == nil {
		return nil
	}
	return append([]Diagnostic(nil), c.items...)
}

// Count returns number of diagnostics of requested kind.
func (c *Collector) Count(kind Kind) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, d := range c.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Log writes diagnostics to the logger: warnings as warnings, the rest at
// debug level.
func (c *Collector) Log(log *zap.Logger) {
	if c == nil || log == nil {
		return
	}
	for _, d := range c.items {
		fields := []zap.Field{zap.String("kind", string(d.Kind))}
		if d.Subject != "" {
			fields = append(fields, zap.String("subject", d.Subject))
		}
		if d.Severity == Warning {
			log.Warn(d.Message, fields...)
		} else {
			log.Debug(d.Message, fields...)
		}
	}
}

func (c *Collector) String() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, d := range c.items {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
