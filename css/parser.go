// Package css builds selector lookup table out of EPUB stylesheet.
package css

import (
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"e2s/diag"
)

// Builder parses stylesheets into selector tables.
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a new table builder.
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log.Named("css")}
}

// Build parses CSS text into a Table. Only simple selectors (element, .class
// and element.class) become table entries, everything else is reported to
// diags and skipped. When selector is defined more than once the last
// definition replaces earlier one completely.
func (b *Builder) Build(data []byte, diags *diag.Collector) *Table {
	t := &Table{rules: make(map[string]Declarations)}

	parser := css.NewParser(parse.NewInputBytes(data), false)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				b.log.Debug("CSS parse error", zap.Error(err))
			}
			return t

		case css.BeginAtRuleGrammar:
			b.log.Debug("Skipping @-rule block", zap.ByteString("rule", data))
			skipAtRuleBlock(parser)

		case css.AtRuleGrammar:
			b.log.Debug("Skipping @-rule", zap.ByteString("rule", data))

		case css.BeginRulesetGrammar:
			selectors := parseSelectors(data, parser.Values())
			props := parseDeclarations(parser)
			for _, sel := range selectors {
				if !isSimpleSelector(sel) {
					diags.Info(diag.UnsupportedSelector, sel, "selector is not supported, rule skipped")
					continue
				}
				b.add(t, sel, props, diags)
			}
		}
	}
}

func (b *Builder) add(t *Table, sel string, props Declarations, diags *diag.Collector) {
	if _, exists := t.rules[sel]; exists {
		diags.Warn(diag.RuleConflict, sel, "css rule conflict on name %s, later definition wins", sel)
		b.log.Debug("Replacing CSS rule", zap.String("selector", sel))
	} else {
		t.order = append(t.order, sel)
	}
	// every selector gets its own copy
	decl := make(Declarations, len(props))
	for k, v := range props {
		decl[k] = v
	}
	t.rules[sel] = decl
}

// parseSelectors extracts selector strings from token data, splitting
// grouped selectors.
func parseSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	var selectors []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// parseDeclarations collects property declarations until EndRulesetGrammar.
func parseDeclarations(parser *css.Parser) Declarations {
	props := make(Declarations)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return props

		case css.DeclarationGrammar:
			if values := parser.Values(); len(values) > 0 {
				props[strings.ToLower(string(data))] = rawValue(values)
			}
		}
	}
}

// rawValue joins value tokens verbatim, whitespace tokens between them are
// collapsed to single space.
func rawValue(tokens []css.Token) string {
	var sb strings.Builder
	pending := false
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			pending = sb.Len() > 0
			continue
		}
		if pending {
			sb.WriteByte(' ')
			pending = false
		}
		sb.Write(t.Data)
	}
	return sb.String()
}

// isSimpleSelector accepts names made of letters, digits, '.', '_' and '-'
// with at most one class part.
func isSimpleSelector(sel string) bool {
	if sel == "" || strings.Count(sel, ".") > 1 || strings.HasSuffix(sel, ".") {
		return false
	}
	for _, r := range sel {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}
