package aliasing

import "fmt"

// tokenKind names one field of a match expression, or marks a literal
// text segment between fields.
type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokAlnum
	tokAlpha
	tokNumber
	tokIdent
	tokFQDN
	tokAccount
	tokAlias
	tokCode
)

func (k tokenKind) String() string {
	switch k {
	case tokLiteral:
		return "literal"
	case tokAlnum:
		return "alnum"
	case tokAlpha:
		return "alpha"
	case tokNumber:
		return "number"
	case tokIdent:
		return "ident"
	case tokFQDN:
		return "fqdn"
	case tokAccount:
		return "account"
	case tokAlias:
		return "alias"
	case tokCode:
		return "code"
	}
	return "?"
}

// rawToken is one element of a compiled match expression: either a
// literal run of text, or a field reference.
type rawToken struct {
	kind tokenKind
	text string // only meaningful when kind == tokLiteral
}

func matcherKindByName(name string) (tokenKind, bool) {
	switch name {
	case "alnum":
		return tokAlnum, true
	case "alpha":
		return tokAlpha, true
	case "number":
		return tokNumber, true
	case "ident":
		return tokIdent, true
	case "fqdn":
		return tokFQDN, true
	case "account":
		return tokAccount, true
	case "alias":
		return tokAlias, true
	case "code":
		return tokCode, true
	}
	return 0, false
}

// isIdentMatcherKind reports whether the field is one of the plain
// identifier-class matchers (as opposed to account/alias/code, which
// are handled specially both at match time and when calc functions
// number their subscript arguments).
func isIdentMatcherKind(k tokenKind) bool {
	switch k {
	case tokAlnum, tokAlpha, tokNumber, tokIdent, tokFQDN:
		return true
	}
	return false
}

// isFriendly reports whether a field kind may sit directly adjacent to
// another friendly field with no literal separator -- alpha and number
// only, and never next to an identical neighbor.
func isFriendly(k tokenKind) bool {
	return k == tokAlpha || k == tokNumber
}

func friendlyName(k tokenKind) string {
	switch k {
	case tokAlpha:
		return "alpha"
	case tokNumber:
		return "number"
	}
	return ""
}

func isFriendlyState(s string) bool {
	return s == "alpha" || s == "number"
}

// charsetMatcherForKind returns the shared matcher instance for one of
// the plain character-class fields. account/alias/code are handled by
// their callers since their matcher depends on spec-level context.
func charsetMatcherForKind(k tokenKind) *charsetMatcher {
	switch k {
	case tokAlnum:
		return alnumMatcher
	case tokAlpha:
		return alphaMatcher
	case tokNumber:
		return numberMatcher
	case tokIdent:
		return identMatcher
	case tokFQDN:
		return fqdnMatcher
	}
	return nil
}

var (
	alnumMatcher  = newCharsetMatcher("alnum", alnumClass)
	alphaMatcher  = newCharsetMatcher("alpha", alphaClass)
	numberMatcher = newCharsetMatcher("number", numberClass)
	identMatcher  = newCharsetMatcher("ident", identClass, identClass.with("-"), identClass)
	fqdnMatcher   = newCharsetMatcher("fqdn", identClass, fqdnClass, identClass)
)

// tokenizeExpression compiles the text of a MATCHES clause into an
// alternating literal/field token list, checking the adjacency rule
// along the way: alpha and number may sit next to each other (but not
// next to themselves) with no separating text, while every other
// field must be separated from any neighboring field by at least one
// literal character.
//
// "%%" denotes a literal percent sign.
func tokenizeExpression(value string) ([]rawToken, int, map[int]bool, error) {
	parts := splitPercent(value)
	if len(parts)%2 == 0 {
		return nil, 0, nil, fmt.Errorf("match expression has an unterminated %% field: %q", value)
	}

	var toks []rawToken
	state := ""
	numIdentifiers := 0
	fqdns := map[int]bool{}

	toks = append(toks, rawToken{kind: tokLiteral, text: parts[0]})
	if parts[0] != "" {
		state = ""
	}

	for idx := 1; idx < len(parts); idx += 2 {
		name := parts[idx]
		lit := parts[idx+1]

		if name == "" {
			prev := &toks[len(toks)-1]
			prev.text += "%" + lit
			if lit != "" {
				state = ""
			}
			continue
		}

		kind, ok := matcherKindByName(name)
		if !ok {
			return nil, 0, nil, fmt.Errorf("unrecognized matchvalue %q", name)
		}
		if state == "poison" {
			return nil, 0, nil, fmt.Errorf("%q cannot occur next to any other matcher", name)
		}
		if isFriendly(kind) {
			fn := friendlyName(kind)
			if fn == state {
				return nil, 0, nil, fmt.Errorf("%q cannot occur next to itself", name)
			}
			state = fn
		} else {
			if isFriendlyState(state) {
				return nil, 0, nil, fmt.Errorf("%q cannot occur next to any other matcher", name)
			}
			state = "poison"
		}

		if isIdentMatcherKind(kind) {
			numIdentifiers++
			if kind == tokFQDN {
				fqdns[numIdentifiers] = true
			}
		}

		toks = append(toks, rawToken{kind: kind})
		toks = append(toks, rawToken{kind: tokLiteral, text: lit})
		if lit != "" {
			state = ""
		}
	}

	return toks, numIdentifiers, fqdns, nil
}

// splitPercent splits on '%', same as strings.Split, kept as its own
// helper so the odd/even pairing logic above reads as pairs of
// (field-name, following-literal) rather than a raw index dance.
func splitPercent(value string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(value); i++ {
		if value[i] == '%' {
			parts = append(parts, value[start:i])
			start = i + 1
		}
	}
	parts = append(parts, value[start:])
	return parts
}
