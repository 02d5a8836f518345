package spip

import (
	"slices"
	"strings"
	"testing"

	"e2s/diag"
)

func format(in string) (string, *diag.Collector) {
	diags := &diag.Collector{}
	return NewReferenceFormatter("", 0, diags).Format(in), diags
}

func TestReferenceFormatter_Renumbering(t *testing.T) {
	in := "Voir,[3] et [3-4].\n\nRéférences\n\n[3] Dupont.\n\n[4] Durand."
	want := `Voir,<a href="#ref1" name="cite1">[3]</a> et [<a href="#ref1">3</a>, <a href="#ref2" name="cite2">4</a>].

<div class="references">

{{{Références}}}

<a href="#cite1" name="ref1">[3]</a> Dupont.

<a href="#cite2" name="ref2">[4]</a> Durand.

</div>`

	got, diags := format(in)
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
	if diags.Len() != 0 {
		t.Errorf("unexpected diagnostics: %s", diags)
	}
}

func TestReferenceFormatter_FirstSeenOrder(t *testing.T) {
	f := NewReferenceFormatter("", 0, nil)
	f.Format("a [7] b [2, 7] c [5–6]")

	want := []int{7, 2, 5, 6}
	got := f.Table().Numbers()
	if len(got) != len(want) {
		t.Fatalf("Numbers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Numbers() = %v, want %v", got, want)
		}
		if id, ok := f.Table().Lookup(want[i]); !ok || id != i+1 {
			t.Errorf("Lookup(%d) = %d, %v, want %d", want[i], id, ok, i+1)
		}
	}
}

func TestReferenceFormatter_NotCitations(t *testing.T) {
	for _, in := range []string{
		"[1] en début de ligne",
		"note[[3]] non liée",
		"[texte->http://x.org/]",
		"tableau[a]",
	} {
		got, _ := format(in)
		if got != in {
			t.Errorf("Format(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestReferenceFormatter_Malformed(t *testing.T) {
	in := "a,[5-200] b,[9-2]"
	got, diags := format(in)
	if got != in {
		t.Errorf("Format() = %q, want unchanged", got)
	}
	if diags.Count(diag.MalformedCitation) != 2 {
		t.Errorf("expected 2 malformed citations, got %s", diags)
	}
}

func TestReferenceFormatter_Diagnostics(t *testing.T) {
	_, diags := format("a,[5] et,[6]\n\nRéférences\n\n[6] Six.\n\n[9] Neuf.")
	if diags.Count(diag.UnresolvedCitation) != 1 {
		t.Errorf("expected 1 unresolved citation, got %s", diags)
	}
	if diags.Count(diag.UnlinkedEntry) != 1 {
		t.Errorf("expected 1 unlinked entry, got %s", diags)
	}
	for _, d := range diags.Items() {
		if d.Severity != diag.Warning {
			t.Errorf("unexpected severity %+v", d)
		}
	}
}

func TestReferenceFormatter_ClosesOnce(t *testing.T) {
	long := strings.Repeat("a", DefaultMaxReferenceLine+1) + ",[1]"
	tests := []struct {
		name  string
		in    string
		after string
	}{
		{"end of input", "x,[1]\n\n{{{Références}}}\n\n[1] Un.", ""},
		{"long line", "x,[1]\n\nRéférences\n\n[1] Un.\n\n" + long, long[:20]},
		{"two blank lines", "x,[1]\nRéférences\n[1] Un.\n\n\nAprès", "Après"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := format(tt.in)
			if n := strings.Count(got, "</div>"); n != 1 {
				t.Fatalf("</div> appears %d times in\n%s", n, got)
			}
			if n := strings.Count(got, `<div class="references">`); n != 1 {
				t.Fatalf("section opened %d times in\n%s", n, got)
			}
			if tt.after != "" && strings.Index(got, tt.after) < strings.Index(got, "</div>") {
				t.Errorf("%q must follow the closed section:\n%s", tt.after, got)
			}
		})
	}
}

func TestReferenceFormatter_LongLineIsOutsideText(t *testing.T) {
	long := strings.Repeat("a", DefaultMaxReferenceLine+1) + ",[1]"
	got, _ := format("x,[1]\n\nRéférences\n\n[1] Un.\n\n" + long)
	if !strings.HasSuffix(got, `,<a href="#ref1">[1]</a>`) {
		t.Errorf("closing line must be processed as text, got suffix %q", got[len(got)-40:])
	}
}

func TestExpandCitation(t *testing.T) {
	tests := []struct {
		in   string
		want []int
		ok   bool
	}{
		{"3", []int{3}, true},
		{"3-5", []int{3, 4, 5}, true},
		{"1, 3–4", []int{1, 3, 4}, true},
		{"1~,~2", []int{1, 2}, true},
		{"5-5", []int{5}, true},
		{"1-100", nil, true},
		{"1-101", nil, false},
		{"4-2", nil, false},
	}
	for _, tt := range tests {
		got, ok := expandCitation(tt.in)
		if ok != tt.ok {
			t.Errorf("expandCitation(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if tt.want != nil && !slices.Equal(got, tt.want) {
			t.Errorf("expandCitation(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
