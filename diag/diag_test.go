package diag

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCollector(t *testing.T) {
	var c Collector

	c.Warn(RuleConflict, "p.note", "duplicate selector %q", "p.note")
	c.Info(UnusedFootnote, "7", "footnote definition was never referenced")

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.Count(RuleConflict) != 1 {
		t.Errorf("Count(RuleConflict) = %d, want 1", c.Count(RuleConflict))
	}

	items := c.Items()
	if items[0].Severity != Warning || items[0].Message != `duplicate selector "p.note"` {
		t.Errorf("unexpected first item %+v", items[0])
	}
	items[0].Message = "changed"
	if c.Items()[0].Message == "changed" {
		t.Error("Items() must return a copy")
	}

	if s := c.String(); !strings.Contains(s, "warning: rule-conflict [p.note]") {
		t.Errorf("String() = %q", s)
	}
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	c.Warn(RuleConflict, "", "ignored")
	if c.Len() != 0 || c.Items() != nil || c.String() != "" {
		t.Error("nil collector must be inert")
	}
}

func TestCollector_Merge(t *testing.T) {
	var a, b Collector
	a.Info(UnsupportedSelector, "a:hover", "skipped")
	b.Warn(UnlinkedEntry, "4", "no citation")
	a.Merge(&b)
	if a.Len() != 2 || a.Items()[1].Kind != UnlinkedEntry {
		t.Errorf("Merge() produced %v", a.Items())
	}
}

func TestCollector_Log(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	var c Collector
	c.Warn(UnresolvedCitation, "12", "citation without bibliography entry")
	c.Info(UnusedFootnote, "3", "dropped")
	c.Log(zap.New(core))

	if logs.Len() != 2 {
		t.Fatalf("logged %d entries, want 2", logs.Len())
	}
	entries := logs.All()
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("first entry level = %v, want warn", entries[0].Level)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Errorf("second entry level = %v, want debug", entries[1].Level)
	}
	if entries[0].ContextMap()["subject"] != "12" {
		t.Errorf("subject field = %v", entries[0].ContextMap()["subject"])
	}
}
