package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"

	"github.com/m3047/trualiasd/internal/aliasing"
)

// foldWidth normalizes fullwidth/halfwidth digit and punctuation forms
// down to their ASCII equivalents before tokenizing, so a configuration
// file pasted from a fullwidth-aware editor or terminal still parses
// (e.g. a fullwidth "４２５５" PORT value reads as ASCII "4255").
func foldWidth(src string) string {
	return width.Narrow.String(src)
}

// token is one lexical unit of the DSL: a bare word, or one of the
// punctuation characters "(),:;" split off as its own token.
type token struct {
	text string
	line int
}

func isPunct(b byte) bool {
	switch b {
	case '(', ')', ',', ':', ';':
		return true
	}
	return false
}

// splitWord breaks a whitespace-delimited word into a run of bare-text
// and punctuation tokens, e.g. "ANY()," -> "ANY" "(" ")" ",". Commas
// inside an identifier list or a calc argument list are never
// surrounded by spaces in practice, so this is where they actually get
// separated out.
func splitWord(word string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(word); i++ {
		b := word[i]
		if isPunct(b) {
			flush()
			toks = append(toks, string(b))
		} else {
			cur.WriteByte(b)
		}
	}
	flush()
	return toks
}

// tokenize lexes an entire configuration file, stripping '#' comments
// and blank lines but retaining each token's source line number, which
// is how the parser knows where a scalar setting's value ends (at the
// next token on a different line) without needing newlines as tokens
// of their own.
func tokenize(src string) []token {
	var toks []token
	for i, line := range strings.Split(src, "\n") {
		lineNo := i + 1
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		for _, word := range strings.Fields(line) {
			for _, t := range splitWord(word) {
				toks = append(toks, token{text: t, line: lineNo})
			}
		}
	}
	return toks
}

// Raw is the unprocessed result of parsing a configuration file: scalar
// settings keyed by their canonical uppercase name, and alias specs in
// file order.
type Raw struct {
	Settings map[string]string
	Specs    []*aliasing.AliasSpec
}

// twoWordKeys are setting keys whose first word alone isn't enough to
// recognize the whole key ("DEBUG ACCOUNT", "SMTP HOST", "SMTP PORT",
// "LOCAL HOST", "LOCAL DOMAINS").
var twoWordKeys = map[string]bool{
	"DEBUG": true,
	"SMTP":  true,
	"LOCAL": true,
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// Parse compiles the text of a configuration file into its raw
// settings and alias specs. Semantic validation (matchex/calc
// compilation, uniqueness enforcement, setting value conversion)
// happens afterwards in Load.
func Parse(src string) (*Raw, error) {
	p := &parser{toks: tokenize(foldWidth(src))}
	raw := &Raw{Settings: map[string]string{}}

	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		if strings.EqualFold(t.text, "ACCOUNT") {
			spec, err := p.parseAliasSpec()
			if err != nil {
				return nil, err
			}
			raw.Specs = append(raw.Specs, spec)
			continue
		}
		if err := p.parseSetting(raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func (p *parser) parseSetting(raw *Raw) error {
	keyTok, ok := p.next()
	if !ok {
		return fmt.Errorf("unexpected end of input")
	}
	key := strings.ToUpper(keyTok.text)
	if twoWordKeys[key] {
		second, ok := p.next()
		if !ok {
			return &ParseError{Line: keyTok.line, Reason: fmt.Sprintf("truncated setting key %q", key)}
		}
		key = key + " " + strings.ToUpper(second.text)
	}

	colon, ok := p.next()
	if !ok || colon.text != ":" {
		return &ParseError{Line: keyTok.line, Reason: fmt.Sprintf("expected ':' after %q", key)}
	}

	var valueToks []string
	for {
		t, ok := p.peek()
		if !ok || t.line != colon.line {
			break
		}
		valueToks = append(valueToks, t.text)
		p.pos++
	}
	if len(valueToks) == 0 {
		return &ParseError{Line: keyTok.line, Reason: fmt.Sprintf("missing value for %q", key)}
	}
	raw.Settings[key] = strings.Join(valueToks, " ")
	return nil
}

func (p *parser) parseIdentList() ([]string, error) {
	var out []string
	for {
		t, ok := p.next()
		if !ok {
			return nil, &ParseError{Reason: "unexpected end of input in identifier list"}
		}
		out = append(out, t.text)
		next, ok := p.peek()
		if ok && next.text == "," {
			p.pos++
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseCalcList() ([]aliasing.CalcCall, error) {
	var calls []aliasing.CalcCall
	for {
		nameTok, ok := p.next()
		if !ok {
			return nil, &ParseError{Reason: "truncated calc list"}
		}
		name := strings.ToUpper(nameTok.text)
		open, ok := p.next()
		if !ok || open.text != "(" {
			return nil, &ParseError{Line: nameTok.line, Reason: fmt.Sprintf("expected '(' after %s", name)}
		}
		var args []string
		for {
			t, ok := p.peek()
			if !ok {
				return nil, &ParseError{Line: nameTok.line, Reason: "unterminated calc argument list"}
			}
			if t.text == ")" {
				p.pos++
				break
			}
			if t.text == "," {
				p.pos++
				continue
			}
			args = append(args, t.text)
			p.pos++
		}
		calls = append(calls, aliasing.CalcCall{Func: name, Args: args})

		t, ok := p.peek()
		if ok && t.text == "," {
			p.pos++
			continue
		}
		break
	}
	return calls, nil
}

// parseAliasSpec consumes one `ACCOUNT ... MATCHES ... WITH ...;`
// statement. Clauses may appear in any order after ACCOUNT's identifier
// list, same as the grammar allows, terminating at ';'.
func (p *parser) parseAliasSpec() (*aliasing.AliasSpec, error) {
	startTok, _ := p.next() // "ACCOUNT"
	spec := aliasing.NewAliasSpec()

	accounts, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	spec.Accounts = accounts

	haveMatches := false
	haveWith := false
	for {
		t, ok := p.peek()
		if !ok {
			return nil, &ParseError{Line: startTok.line, Reason: "alias spec truncated before ';'"}
		}
		switch strings.ToUpper(t.text) {
		case "USING":
			p.pos++
			kindTok, ok := p.next()
			if !ok {
				return nil, &ParseError{Line: t.line, Reason: "USING requires an identifier kind"}
			}
			if err := spec.MatchExpr.SetAccountMatcher(strings.ToLower(kindTok.text)); err != nil {
				return nil, &ParseError{Line: kindTok.line, Reason: err.Error()}
			}
		case "ALIASED":
			p.pos++
			aliases, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			spec.Aliases = aliases
		case "MATCHES":
			p.pos++
			exprTok, ok := p.next()
			if !ok {
				return nil, &ParseError{Line: t.line, Reason: "MATCHES requires a match expression"}
			}
			if err := spec.MatchExpr.SetExpression(exprTok.text, exprTok.line); err != nil {
				return nil, err
			}
			haveMatches = true
		case "WITH":
			p.pos++
			calls, err := p.parseCalcList()
			if err != nil {
				return nil, err
			}
			spec.Calc.Calls = calls
			spec.Calc.LineNumber = t.line
			haveWith = true
		case ";":
			p.pos++
			if !haveMatches {
				return nil, &ParseError{Line: startTok.line, Reason: "alias spec is missing a MATCHES clause"}
			}
			if !haveWith {
				return nil, &ParseError{Line: startTok.line, Reason: "alias spec is missing a WITH clause"}
			}
			return spec, nil
		default:
			return nil, &ParseError{Line: t.line, Reason: fmt.Sprintf("unexpected token %q in alias spec", t.text)}
		}
	}
}
