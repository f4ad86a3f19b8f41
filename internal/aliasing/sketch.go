package aliasing

import "strings"

// sketchElem is one element of a compiled match sketch: either a
// literal run of text, or a field matcher. Elements strictly
// alternate literal/matcher/literal/.../literal, same as the token
// list it's built from -- except that in a specialized sketch,
// account/alias fields have already been substituted with their
// candidate value and folded into the surrounding literal.
type sketchElem struct {
	literal string
	matcher Matcher
	kind    tokenKind
}

// buildSketch compiles a token list into a sketch. With specialize
// false, account/alias fields become ordinary matchers (using the
// spec's configured account matcher class) -- good enough to ask "can
// this address possibly match at all" without committing to one
// account. With specialize true, account/alias fields are replaced by
// their literal value and merged into the surrounding text, since
// their value is now fixed for this candidate.
func buildSketch(tokens []rawToken, accountMatcherKind tokenKind, code *codeMatcher, specialize bool, account, alias string) []sketchElem {
	if !specialize {
		sketch := make([]sketchElem, len(tokens))
		for idx, t := range tokens {
			if idx%2 == 0 {
				sketch[idx] = sketchElem{literal: t.text}
				continue
			}
			switch t.kind {
			case tokAccount, tokAlias:
				sketch[idx] = sketchElem{matcher: charsetMatcherForKind(accountMatcherKind), kind: t.kind}
			case tokCode:
				sketch[idx] = sketchElem{matcher: code, kind: tokCode}
			default:
				sketch[idx] = sketchElem{matcher: charsetMatcherForKind(t.kind), kind: t.kind}
			}
		}
		return sketch
	}

	var out []sketchElem
	var litBuf strings.Builder
	flush := func() {
		out = append(out, sketchElem{literal: litBuf.String()})
		litBuf.Reset()
	}

	litBuf.WriteString(tokens[0].text)
	for idx := 1; idx < len(tokens); idx += 2 {
		field := tokens[idx]
		lit := tokens[idx+1].text
		switch field.kind {
		case tokAccount:
			litBuf.WriteString(account)
			litBuf.WriteString(lit)
		case tokAlias:
			litBuf.WriteString(alias)
			litBuf.WriteString(lit)
		default:
			flush()
			var matcher Matcher
			if field.kind == tokCode {
				matcher = code
			} else {
				matcher = charsetMatcherForKind(field.kind)
			}
			out = append(out, sketchElem{matcher: matcher, kind: field.kind})
			litBuf.WriteString(lit)
		}
	}
	flush()
	return out
}

// matchSketch walks the sketch against the address, recursively
// trying every valid split point for each field matcher and
// collecting every combination of field assignments that consumes the
// whole sketch and the whole address simultaneously.
//
// i indexes into sketch and is always at a literal position (even).
// On the outermost call startPos is 0 and the literal at i is checked
// as a prefix of address; on recursive calls that literal has already
// been consumed and startPos is the position just past it.
func matchSketch(sketch []sketchElem, address string, i, startPos int) *identifierList {
	atEnd := 0
	if i+1 >= len(sketch) {
		atEnd++
	}
	if startPos >= len(address) {
		atEnd++
	}
	if atEnd > 0 {
		return newIdentifierList(atEnd == 2)
	}

	if startPos == 0 {
		lit := sketch[i].literal
		if !strings.HasPrefix(address, lit) {
			return newIdentifierList(false)
		}
		startPos = len(lit)
	}
	if i >= len(sketch)-1 {
		return newIdentifierList(true)
	}

	// An empty trailing literal is treated the same as no trailing
	// literal at all (it can't anchor an end position), falling back
	// to the plain one-character-at-a-time scan below.
	var endLit string
	hasEndLit := false
	if i+2 < len(sketch) {
		endLit = sketch[i+2].literal
		hasEndLit = endLit != ""
	}

	matches := newIdentifierList(false)
	matcher := sketch[i+1].matcher
	kind := sketch[i+1].kind

	endOffset := startPos
	for endOffset < len(address) {
		if hasEndLit {
			if !strings.HasPrefix(address[endOffset:], endLit) {
				endOffset++
				continue
			}
			if _, _, ok := matcher.Match(address, startPos, endOffset-1, false); !ok {
				endOffset++
				continue
			}
			identValue := address[startPos:endOffset]
			endOffset += len(endLit)
			sub := matchSketch(sketch, address, i+2, endOffset)
			if sub.ok() {
				matches.appendMatch(kind, identValue, sub)
			}
			continue
		}

		endOffset++
		if _, _, ok := matcher.Match(address, startPos, endOffset-1, false); !ok {
			continue
		}
		identValue := address[startPos:endOffset]
		sub := matchSketch(sketch, address, i+2, endOffset)
		if sub.ok() {
			matches.appendMatch(kind, identValue, sub)
		}
	}
	return matches
}
