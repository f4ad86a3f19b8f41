package aliasing

import (
	"strconv"
	"strings"
)

// CalcCall is one function call in a WITH clause: DIGITS(1),
// CHAR(2,3,'x'), and so on. Args are kept as raw tokens; numeric
// arguments are parsed on demand by the function itself, since a few
// of them (CHAR's label and character offsets) support negative,
// from-the-end indexing that only makes sense once the target
// identifier's length is known.
type CalcCall struct {
	Func string
	Args []string
}

// CalcExpression is a compiled WITH clause: the ordered list of calc
// function calls that together reconstruct and verify the
// verification code field.
type CalcExpression struct {
	Calls      []CalcCall
	LineNumber int
}

// calcFunc computes the next fragment of the verification code from
// the identifiers matched so far. ok is false if the function cannot
// produce a fragment at all (e.g. a subscript out of range).
type calcFunc func(code string, args []string, idents *subscriptable) (fragment string, ok bool)

var calcFuncs = map[string]calcFunc{
	"DIGITS": funcDigits,
	"ALPHAS": funcAlphas,
	"LABELS": funcLabels,
	"CHARS":  funcChars,
	"VOWELS": funcVowels,
	"ANY":    funcAny,
	"NONE":   funcNone,
	"CHAR":   funcChar,
}

// isAnyCharFunc reports whether a calc function's result is an
// arbitrary character drawn from an identifier (shapeAny), as opposed
// to a decimal count (shapeNumber) -- this is what the code field's
// matcher needs to know to bound where each calc's contribution can
// start and end.
func isAnyCharFunc(name string) bool {
	switch name {
	case "ANY", "NONE", "CHAR":
		return true
	}
	return false
}

func (c *CalcExpression) buildCodeMatcher() *codeMatcher {
	cm := newCodeMatcher("code")
	for _, call := range c.Calls {
		if isAnyCharFunc(call.Func) {
			cm.append(shapeAny)
		} else {
			cm.append(shapeNumber)
		}
	}
	return cm
}

// subscriptable resolves a calc argument ("account", "alias", or a
// 1-based identifier index) to the Identifier it refers to.
type subscriptable struct {
	identifiers    []Identifier
	account, alias string
}

func (s *subscriptable) nIdentifiers() int {
	return len(s.identifiers)
}

func (s *subscriptable) get(subscript string) (Identifier, bool) {
	switch strings.ToLower(subscript) {
	case "account":
		return Identifier{Kind: tokAccount, Value: s.account}, true
	case "alias":
		return Identifier{Kind: tokAlias, Value: s.alias}, true
	}
	i, err := strconv.Atoi(subscript)
	if err != nil {
		return Identifier{}, false
	}
	idx := i - 1
	if idx < 0 || idx >= len(s.identifiers) {
		return Identifier{}, false
	}
	return s.identifiers[idx], true
}

func isNonIntegerParam(s string) bool {
	ls := strings.ToLower(s)
	return ls == "account" || ls == "alias"
}

func firstArgOr(args []string, def string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return def
}

func funcDigits(code string, args []string, ids *subscriptable) (string, bool) {
	ident, ok := ids.get(firstArgOr(args, "1"))
	if !ok {
		return "", false
	}
	n := 0
	for i := 0; i < len(ident.Value); i++ {
		if numberClass.has(ident.Value[i]) {
			n++
		}
	}
	return strconv.Itoa(n), true
}

func funcAlphas(code string, args []string, ids *subscriptable) (string, bool) {
	ident, ok := ids.get(firstArgOr(args, "1"))
	if !ok {
		return "", false
	}
	n := 0
	for i := 0; i < len(ident.Value); i++ {
		if alphaClass.has(ident.Value[i]) {
			n++
		}
	}
	return strconv.Itoa(n), true
}

func funcLabels(code string, args []string, ids *subscriptable) (string, bool) {
	ident, ok := ids.get(firstArgOr(args, "1"))
	if !ok || ident.Kind != tokFQDN {
		return "", false
	}
	return strconv.Itoa(len(strings.Split(ident.Value, "."))), true
}

func funcChars(code string, args []string, ids *subscriptable) (string, bool) {
	ident, ok := ids.get(firstArgOr(args, "1"))
	if !ok {
		return "", false
	}
	return strconv.Itoa(len(ident.Value)), true
}

func funcVowels(code string, args []string, ids *subscriptable) (string, bool) {
	ident, ok := ids.get(firstArgOr(args, "1"))
	if !ok {
		return "", false
	}
	n := 0
	for i := 0; i < len(ident.Value); i++ {
		switch ident.Value[i] {
		case 'a', 'e', 'i', 'o', 'u':
			n++
		}
	}
	return strconv.Itoa(n), true
}

func funcAny(code string, args []string, ids *subscriptable) (string, bool) {
	if code == "" {
		return "", false
	}
	ident, ok := ids.get(firstArgOr(args, "1"))
	if !ok {
		return "", false
	}
	if strings.IndexByte(ident.Value, code[0]) < 0 {
		return "", false
	}
	return code[:1], true
}

func funcNone(code string, args []string, ids *subscriptable) (string, bool) {
	if code == "" {
		return "", false
	}
	ident, ok := ids.get(firstArgOr(args, "1"))
	if !ok {
		return "", false
	}
	if strings.IndexByte(ident.Value, code[0]) >= 0 {
		return "", false
	}
	return code[:1], true
}

// funcChar resolves the most argument-heavy calc function: an
// optional identifier subscript, an optional fqdn label index, a
// character offset and a default value to use when the offset falls
// outside the identifier. Both the label and character offsets are
// 1-based, with negative values counting from the end.
func funcChar(code string, args []string, ids *subscriptable) (string, bool) {
	pos := 0
	next := func() string {
		v := args[pos]
		pos++
		return v
	}

	single, singleOK := ids.get("1")
	singleIsFQDN := singleOK && ids.nIdentifiers() == 1 && single.Kind == tokFQDN

	var i string
	if len(args) == 4 || (len(args) == 3 && !singleIsFQDN) {
		i = next()
	} else {
		i = "1"
	}

	ident, ok := ids.get(i)
	if !ok {
		return "", false
	}

	var label int
	if ident.Kind == tokFQDN {
		l, err := strconv.Atoi(next())
		if err != nil {
			return "", false
		}
		label = l
	}

	char, err := strconv.Atoi(next())
	if err != nil {
		return "", false
	}
	defaultVal := next()

	identifier := ident.Value
	if ident.Kind == tokFQDN {
		labels := strings.Split(identifier, ".")
		al := label
		if al < 0 {
			al = -al
		}
		if al > len(labels) {
			return defaultVal, true
		}
		idx := label
		if idx > 0 {
			idx--
		} else if idx < 0 {
			idx += len(labels)
		}
		if idx < 0 || idx >= len(labels) {
			return defaultVal, true
		}
		identifier = labels[idx]
	}

	ac := char
	if ac < 0 {
		ac = -ac
	}
	if ac > len(identifier) {
		return defaultVal, true
	}
	cidx := char
	if cidx > 0 {
		cidx--
	} else if cidx < 0 {
		cidx += len(identifier)
	}
	if cidx < 0 || cidx >= len(identifier) {
		return defaultVal, true
	}
	return string(identifier[cidx]), true
}

// SemanticCheck validates a calc list against its match expression:
// argument counts, identifier subscript bounds, and fqdn/label
// consistency for CHAR. hasAliases reports whether the owning spec
// declared any aliases, since "alias" can only be referenced when it
// does.
func (c *CalcExpression) SemanticCheck(m *MatchExpression, hasAliases bool) error {
	nIdent := m.NumIdentifiers
	needsSubscript := nIdent > 1

	checkSubscript := func(fn, arg string) error {
		if isNonIntegerParam(arg) {
			if strings.EqualFold(arg, "alias") && !hasAliases {
				return m.semanticErrorf("%q referenced in %s but no aliases present", "alias", fn)
			}
			return nil
		}
		iIdent, err := strconv.Atoi(arg)
		if err != nil {
			iIdent = -1
		}
		if iIdent < 1 || iIdent > nIdent {
			return m.semanticErrorf("%s index must be between 1 and %d with %s", fn, nIdent, m.Expression)
		}
		return nil
	}

	for _, call := range c.Calls {
		args := call.Args
		if call.Func != "CHAR" {
			if len(args) > 1 {
				return m.semanticErrorf("%s requires at most 1 argument with %s", call.Func, m.Expression)
			}
			if needsSubscript && len(args) < 1 {
				return m.semanticErrorf("%s requires an identifier subscript with %s", call.Func, m.Expression)
			}
			if len(args) > 0 {
				if err := checkSubscript(call.Func, args[0]); err != nil {
					return err
				}
			}
			continue
		}

		if len(args) > 4 {
			return m.semanticErrorf("CHAR requires at most 4 arguments with %s", m.Expression)
		}
		if needsSubscript {
			if len(args) < 3 {
				return m.semanticErrorf("CHAR requires an identifier subscript with %s", m.Expression)
			}
			if len(args) == 4 {
				iIdent, err := strconv.Atoi(args[0])
				if err != nil {
					iIdent = -1
				}
				if !m.FQDNIndices[iIdent] {
					return m.semanticErrorf("CHAR index %d does not reference an fqdn in %s", iIdent, m.Expression)
				}
			} else {
				if !isNonIntegerParam(args[0]) {
					iIdent, err := strconv.Atoi(args[0])
					if err != nil {
						iIdent = -1
					}
					if m.FQDNIndices[iIdent] {
						return m.semanticErrorf("CHAR index %d references an fqdn and needs a label index with %s", iIdent, m.Expression)
					}
				}
				if err := checkSubscript("CHAR", args[0]); err != nil {
					return err
				}
			}
			continue
		}

		if len(args) < 2 {
			return m.semanticErrorf("CHAR requires at least 2 arguments with %s", m.Expression)
		}
		if m.FQDNIndices[1] {
			if len(args) == 4 {
				iIdent, err := strconv.Atoi(args[0])
				if err != nil {
					iIdent = -1
				}
				if iIdent != 1 {
					return m.semanticErrorf("CHAR requires index of 1 with %s", m.Expression)
				}
				if _, err := strconv.Atoi(args[1]); err != nil {
					return m.semanticErrorf("CHAR requires a numeric label index with %s", m.Expression)
				}
			} else if _, err := strconv.Atoi(args[0]); err != nil {
				return m.semanticErrorf("CHAR requires a numeric label index with %s", m.Expression)
			}
		} else {
			if len(args) == 4 {
				return m.semanticErrorf("CHAR must not have a label argument with %s", m.Expression)
			}
			if len(args) == 3 {
				if err := checkSubscript("CHAR", args[0]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Calculate verifies a candidate code against the calc list,
// consuming it left to right: each function must produce a fragment
// that is a literal prefix of what remains, and the whole code must be
// consumed exactly.
func (c *CalcExpression) Calculate(code string, idents []Identifier, account, alias string) bool {
	sub := &subscriptable{identifiers: idents, account: account, alias: alias}
	remaining := code
	for _, call := range c.Calls {
		fn, ok := calcFuncs[call.Func]
		if !ok {
			return false
		}
		fv, ok := fn(remaining, call.Args, sub)
		if !ok || fv == "" || !strings.HasPrefix(remaining, fv) {
			return false
		}
		remaining = remaining[len(fv):]
	}
	return remaining == ""
}
