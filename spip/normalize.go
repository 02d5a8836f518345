package spip

import (
	"fmt"
	"regexp"
	"strings"
)

// Stage is a single normalization step. Stages never fail, whatever they
// do not recognize passes through unchanged.
type Stage func(string) string

// Chain runs normalization stages in fixed order.
type Chain struct {
	stages []Stage
}

// NewChain returns chain of spaces, punctuation, URLs and interstitials
// stages. Nil interstitials skip the last stage.
func NewChain(inter *Interstitials) *Chain {
	c := &Chain{stages: []Stage{NormalizeSpaces, NormalizePunctuation, NormalizeURLs}}
	if inter != nil {
		c.stages = append(c.stages, inter.Remove)
	}
	return c
}

// Apply runs all stages.
func (c *Chain) Apply(s string) string {
	for _, stage := range c.stages {
		s = stage(s)
	}
	return s
}

// replaceStable repeats replacement until text stops changing. Patterns
// consuming a character of context on both sides need it to catch adjacent
// matches.
func replaceStable(re *regexp.Regexp, s, repl string) string {
	for {
		r := re.ReplaceAllString(s, repl)
		if r == s {
			return r
		}
		s = r
	}
}

var (
	horizontalSpaces = regexp.MustCompile(`[ \t\f\v]+`)
	spacesAroundNBSP = regexp.MustCompile(` *~[ ~]*`)
	breakRuns        = regexp.MustCompile(`[ ~]*(?:[\n\x{E000}\x{E001}][ ~]*)+`)

	// closing marker immediately reopened, deepest first, with text on
	// both sides
	emphasisJoins = []*regexp.Regexp{
		regexp.MustCompile(`([^}])\}\}\}( ?)\{\{\{([^{])`),
		regexp.MustCompile(`([^}])\}\}( ?)\{\{([^{])`),
		regexp.MustCompile(`([^}])\}( ?)\{([^{])`),
	}
	markerJoins = []*regexp.Regexp{
		regexp.MustCompile(`\|\]( ?)\[\|`),
		regexp.MustCompile(`/\]( ?)\[/`),
		regexp.MustCompile(`</del>( ?)<del>`),
		regexp.MustCompile(`</small>( ?)<small>`),
	}
	footnoteJoin = regexp.MustCompile(`\]\]([ ~]?)\[\[`)
	bareCall     = regexp.MustCompile(`^\d+\]\]`)
)

// NormalizeSpaces collapses spacing, merges adjacent identical markers and
// turns break markers into paragraph separators.
func NormalizeSpaces(s string) string {
	s = horizontalSpaces.ReplaceAllString(s, " ")

	for _, re := range emphasisJoins {
		s = horizontalSpaces.ReplaceAllString(replaceStable(re, s, "$1$2$3"), " ")
	}
	for _, re := range markerJoins {
		s = re.ReplaceAllString(s, "$1")
	}
	s = joinFootnotes(s)

	s = spacesAroundNBSP.ReplaceAllString(s, "~")
	s = breakRuns.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, " \n~")
}

// joinFootnotes merges footnote markers split by styling into one, so
// "[[12]] [[Text]]" becomes "[[12 Text]]". Two calls in a row are left alone.
func joinFootnotes(s string) string {
	var sb strings.Builder
	last := 0
	for _, m := range footnoteJoin.FindAllStringSubmatchIndex(s, -1) {
		if bareCall.MatchString(s[m[1]:]) {
			continue
		}
		sb.WriteString(s[last:m[0]])
		sb.WriteString(s[m[2]:m[3]])
		last = m[1]
	}
	if last == 0 {
		return s
	}
	sb.WriteString(s[last:])
	return sb.String()
}

var (
	numero         = regexp.MustCompile(`([nN]°)[ ~]*([^\s~])`)
	page           = regexp.MustCompile(`(^|[\s(])p\.[ ~]*(\d)`)
	afterOpening   = regexp.MustCompile(`\( +`)
	afterElision   = regexp.MustCompile(`(?i)(^|[^\p{L}])([cdjlmnst]|qu|jusqu|lorsqu|puisqu)(['’]) +`)
	beforeClosing  = regexp.MustCompile(` +([).,])`)
	beforeUnits    = regexp.MustCompile(`([^\s~])[ ~]*([€%])`)
	afterGuillemet = regexp.MustCompile(`«[ ~]*`)
	beforeDouble   = regexp.MustCompile(`([^\s~?!;:»])[ ~]*([?!;:»]+)`)
	dashes         = regexp.MustCompile(` -([ ,])`)
	clockTime      = regexp.MustCompile(`(\d)~:(\d)`)

	ordinals = regexp.MustCompile(`(^|[^\p{L}\d])(\d+)(er|re|ère|e|ème|nd|nde)($|[^\p{L}\d])`)
	romans   = regexp.MustCompile(`(^|[^\p{L}\d])([IVX]+)(es|e|ème)($|[^\p{L}\d])`)
	titles   = regexp.MustCompile(`(^|[^\p{L}])(M)(mes|me|lles|lle|gr)($|[^\p{L}])|(^|[^\p{L}])([DP])(r)($|[^\p{L}])`)

	superscripts = regexp.MustCompile(`(\d)<small>(\p{L}+)</small>`)
	subscripts   = regexp.MustCompile(`([A-Z][a-z]?)<small>(\d+)</small>`)
	smallMarkers = regexp.MustCompile(`</?small>`)
)

// NormalizePunctuation applies French typography rules. Link targets and
// bare addresses are left untouched.
func NormalizePunctuation(s string) string {
	var sh shield
	s = sh.hide(s)

	s = numero.ReplaceAllString(s, "$1~$2")
	s = page.ReplaceAllString(s, "${1}p.~$2")
	s = afterOpening.ReplaceAllString(s, "(")
	s = afterElision.ReplaceAllString(s, "$1$2$3")
	s = beforeClosing.ReplaceAllString(s, "$1")
	s = beforeUnits.ReplaceAllString(s, "$1~$2")
	s = afterGuillemet.ReplaceAllString(s, "«~")
	s = beforeDouble.ReplaceAllString(s, "$1~$2")
	s = spacesAroundNBSP.ReplaceAllString(s, "~")
	s = dashes.ReplaceAllString(s, " –$1")

	s = replaceStable(ordinals, s, "$1$2<sup>$3</sup>$4")
	s = replaceStable(romans, s, "$1$2<sup>$3</sup>$4")
	s = replaceStable(titles, s, "$1$5$2$6<sup>$3$7</sup>$4$8")

	s = superscripts.ReplaceAllString(s, "$1<sup>$2</sup>")
	s = subscripts.ReplaceAllString(s, "$1<sub>$2</sub>")
	s = smallMarkers.ReplaceAllString(s, "")

	s = clockTime.ReplaceAllString(s, "$1:$2")
	return sh.restore(s)
}

const (
	shieldFirst = '\uE100'
	shieldLast  = '\uF8FF'
)

var bareAddress = regexp.MustCompile(`\b(?:(?:https?|ftp)://|mailto:|www\.)[^\s\[\]<>{}|~"«»]*[^\s\[\]<>{}|~"«».,;:!?)]`)

// shield swaps addresses for single private use runes, which typography
// rules see as neutral non-space characters.
type shield []string

func isShieldRune(r rune) bool {
	return r >= shieldFirst && r <= shieldLast
}

func (sh *shield) hold(addr string) string {
	if len(*sh) > int(shieldLast-shieldFirst) {
		return addr
	}
	*sh = append(*sh, addr)
	return string(shieldFirst + rune(len(*sh)-1))
}

func (sh *shield) hide(s string) string {
	// text already using these runes is processed as is
	if strings.ContainsFunc(s, isShieldRune) {
		return s
	}
	s = linkTarget.ReplaceAllStringFunc(s, func(m string) string {
		return "->" + sh.hold(m[2:len(m)-1]) + "]"
	})
	return bareAddress.ReplaceAllStringFunc(s, sh.hold)
}

func (sh *shield) restore(s string) string {
	if len(*sh) == 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if i := int(r - shieldFirst); isShieldRune(r) && i < len(*sh) {
			sb.WriteString((*sh)[i])
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

type fix struct {
	re   *regexp.Regexp
	repl string
}

var (
	urlFixes = []fix{
		{regexp.MustCompile(`\b(https?|ftp|mailto)~:`), "$1:"},
		{regexp.MustCompile(`\.(php3?|aspx?|cgi|ns|search|jhtml|cfm|do)~\?`), ".$1?"},
	}
	linkTarget    = regexp.MustCompile(`->[^\]\s]*\]`)
	targetSpacing = regexp.MustCompile(`~([?!;:])`)
)

// NormalizeURLs undoes punctuation spacing inside addresses.
func NormalizeURLs(s string) string {
	for _, f := range urlFixes {
		s = f.re.ReplaceAllString(s, f.repl)
	}
	return linkTarget.ReplaceAllStringFunc(s, func(m string) string {
		return targetSpacing.ReplaceAllString(m, "$1")
	})
}

// DefaultInterstitials are patterns of print edition artifacts: running
// issue footers, page numbers and boxed page headers.
var DefaultInterstitials = []string{
	`(?i)^(?:\{+ ?)?science[ ~]+(?:et|&)[ ~]+pseudo-sciences[ ~]+n°~?\d+.*$`,
	`^\d{1,4}$`,
	`^\[/[ ~{}]*(?:n°~?)?\d{1,4}[ ~{}]*/\]$`,
}

var blankRuns = regexp.MustCompile(`\n(?:[ ~]*\n)+`)

// Interstitials removes whole lines matching any of the patterns.
type Interstitials struct {
	patterns []*regexp.Regexp
}

func NewInterstitials(patterns []string) (*Interstitials, error) {
	inter := &Interstitials{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad interstitial pattern %q: %w", p, err)
		}
		inter.patterns = append(inter.patterns, re)
	}
	return inter, nil
}

// Remove drops matching lines and collapses resulting blank lines.
func (i *Interstitials) Remove(s string) string {
	if len(i.patterns) == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !i.matches(strings.TrimSpace(line)) {
			kept = append(kept, line)
		}
	}
	return strings.Trim(collapseBlankLines(strings.Join(kept, "\n")), "\n")
}

func (i *Interstitials) matches(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range i.patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func collapseBlankLines(s string) string {
	return blankRuns.ReplaceAllString(s, "\n\n")
}
