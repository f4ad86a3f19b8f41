package aliasing

import "fmt"

// MatchExpression is a compiled MATCHES clause: the literal/field
// token list, plus the shape of the verification code field once the
// calc list is known.
type MatchExpression struct {
	Expression     string
	LineNumber     int
	AccountMatcher tokenKind // default tokIdent; set by a USING clause
	NumIdentifiers int
	FQDNIndices    map[int]bool

	tokens      []rawToken
	codeMatcher *codeMatcher
	sketch      []sketchElem // generic precheck sketch
}

// NewMatchExpression returns an expression with the default account
// matcher class (ident), matching the engine's default when no USING
// clause is given.
func NewMatchExpression() *MatchExpression {
	return &MatchExpression{AccountMatcher: tokIdent}
}

// SetAccountMatcher applies a USING clause, restricting the character
// class used to recognize %account%/%alias% fields.
func (m *MatchExpression) SetAccountMatcher(name string) error {
	kind, ok := matcherKindByName(name)
	if !ok || !isIdentMatcherKind(kind) {
		return fmt.Errorf("unrecognized identifier matcher: %q", name)
	}
	m.AccountMatcher = kind
	return nil
}

// SetExpression compiles the text of a MATCHES clause.
func (m *MatchExpression) SetExpression(value string, lineNumber int) error {
	tokens, n, fqdns, err := tokenizeExpression(value)
	if err != nil {
		return &SemanticError{Reason: err.Error(), LineNumber: lineNumber}
	}
	m.tokens = tokens
	m.Expression = value
	m.LineNumber = lineNumber
	m.NumIdentifiers = n
	m.FQDNIndices = fqdns
	return nil
}

// HasField reports whether the given field name (a matcher name, or
// "account"/"alias") appears anywhere in the compiled expression. Used
// by uniqueness enforcement, which relaxes its rules when the
// expression itself already mentions "account" or "alias".
func (m *MatchExpression) HasField(name string) bool {
	kind, ok := matcherKindByName(name)
	if !ok {
		return false
	}
	for _, t := range m.tokens {
		if t.kind == kind {
			return true
		}
	}
	return false
}

// BuildSketch finalizes the expression against its calc list: builds
// the code field's matcher from the calc shapes, then the generic
// precheck sketch used to quickly reject addresses with the wrong
// overall shape before trying every account/alias combination.
func (m *MatchExpression) BuildSketch(calc *CalcExpression) {
	m.codeMatcher = calc.buildCodeMatcher()
	m.sketch = buildSketch(m.tokens, m.AccountMatcher, m.codeMatcher, false, "", "")
}

func (m *MatchExpression) semanticErrorf(format string, args ...interface{}) error {
	return &SemanticError{Reason: fmt.Sprintf(format, args...), LineNumber: m.LineNumber}
}

// MatchInfo is one verified way an address resolves against a single
// account candidate.
type MatchInfo struct {
	DeliveryAccount string
	Identifiers     []Identifier
	Ambiguous       bool
}

// Match tries every (account, alias) combination declared for this
// spec against address, verifying the code field's calc list for each
// one that structurally fits. A generic precheck sketch (built once,
// account/alias-agnostic) short-circuits addresses that could never
// match any combination.
func (m *MatchExpression) Match(calc *CalcExpression, accounts, aliases []string, address string) []MatchInfo {
	if !matchSketch(m.sketch, address, 0, 0).ok() {
		return nil
	}

	accountsIter := accounts
	if len(accountsIter) == 0 {
		accountsIter = []string{""}
	}
	aliasesIter := aliases
	if len(aliasesIter) == 0 {
		aliasesIter = []string{""}
	}

	var matches []MatchInfo
	for _, account := range accountsIter {
		for _, alias := range aliasesIter {
			sketch := buildSketch(m.tokens, m.AccountMatcher, m.codeMatcher, true, account, alias)
			result := matchSketch(sketch, address, 0, 0)
			if !result.ok() {
				continue
			}

			var verified [][]Identifier
			for _, um := range result.unpack() {
				if um.code == nil {
					continue
				}
				if ok := calc.Calculate(um.code.Value, um.idents, account, alias); ok {
					verified = append(verified, um.idents)
				}
			}
			if len(verified) > 0 {
				matches = append(matches, MatchInfo{
					DeliveryAccount: account,
					Identifiers:     verified[0],
					Ambiguous:       len(verified) > 1,
				})
			}
		}
	}
	return matches
}
