package aliasing

// Matcher recognizes a run of characters in an address. Every matcher in
// this package shares the same contract, satisfied by three concrete
// variants (charsetMatcher, anyMatcher, codeMatcher) instead of a class
// hierarchy: the variant only changes what "a valid run" means.
//
// Positions are zero-based indices into the address, and a match end is
// always the index of the last character included in the match (not one
// past it) — so an empty match is never representable, matching the
// invariant that every field consumes at least one character.
//
// end < 0 means "no end position given". When end >= 0 and minimal is
// false, Match validates the fixed run [start,end]. When end >= 0 and
// minimal is true, Match looks for the shortest valid run ending at or
// after end. When end < 0, Match performs a greedy (minimal=false) or
// minimal (minimal=true) search from start.
type Matcher interface {
	Match(address string, start, end int, minimal bool) (matchStart, matchEnd int, ok bool)

	// Extend reports whether the known-valid match [start,end] can be
	// lengthened by one character to [start,end+1]. The special case
	// end == start-1 tests whether address[start] alone is a valid
	// start of a match.
	Extend(address string, start, end int) bool
}

// charsetMatcher matches a run of characters using up to three
// characters classes: the first character, interior characters, and
// the last character.
type charsetMatcher struct {
	name                          string
	startSet, interiorSet, endSet charClass
}

func newCharsetMatcher(name string, sets ...charClass) *charsetMatcher {
	switch len(sets) {
	case 1:
		return &charsetMatcher{name: name, startSet: sets[0], interiorSet: sets[0], endSet: sets[0]}
	case 3:
		return &charsetMatcher{name: name, startSet: sets[0], interiorSet: sets[1], endSet: sets[2]}
	default:
		panic("charsetMatcher: need 1 or 3 character classes")
	}
}

func (m *charsetMatcher) Match(address string, start, end int, minimal bool) (int, int, bool) {
	if start >= len(address) {
		return 0, 0, false
	}

	if end >= 0 && !minimal {
		if end >= len(address) || end < start {
			return 0, 0, false
		}
		if !m.startSet.has(address[start]) || !m.endSet.has(address[end]) {
			return 0, 0, false
		}
		for i := start + 1; i < end; i++ {
			if !m.interiorSet.has(address[i]) {
				return 0, 0, false
			}
		}
		return start, end, true
	}

	if !m.startSet.has(address[start]) {
		return 0, 0, false
	}

	validEnd := -1
	pos := start
	for pos < len(address) {
		c := address[pos]
		if m.endSet.has(c) {
			validEnd = pos
			if minimal && (end < 0 || pos >= end) {
				break
			}
		}
		if pos > start && !m.interiorSet.has(c) {
			break
		}
		pos++
	}
	if validEnd < 0 {
		return 0, 0, false
	}
	return start, validEnd, true
}

func (m *charsetMatcher) Extend(address string, start, end int) bool {
	if start >= len(address) {
		return false
	}
	if end+1 >= len(address) {
		return false
	}
	if end < start && !m.startSet.has(address[start]) {
		return false
	}
	if !m.endSet.has(address[end+1]) {
		return false
	}
	if end > start && !m.interiorSet.has(address[end]) {
		return false
	}
	return true
}

// anyMatcher matches any non-empty run of characters, with no
// restrictions at all.
type anyMatcher struct {
	name string
}

func newAnyMatcher(name string) *anyMatcher {
	return &anyMatcher{name: name}
}

func (m *anyMatcher) Match(address string, start, end int, minimal bool) (int, int, bool) {
	if start >= len(address) {
		return 0, 0, false
	}
	if end >= 0 && end >= len(address) {
		return 0, 0, false
	}
	if end >= 0 {
		if end < start {
			end = start
		}
		return start, end, true
	}
	if minimal {
		return start, start, true
	}
	return start, len(address) - 1, true
}

func (m *anyMatcher) Extend(address string, start, end int) bool {
	if start >= len(address) {
		return false
	}
	if end+1 >= len(address) {
		return false
	}
	return true
}

// shapeKind is the elementary constraint one calc function call
// imposes on the verification code field.
type shapeKind int

const (
	shapeAny shapeKind = iota
	shapeNumber
)

// codeMatcher matches the verification code field. It is built
// incrementally, one shape per calc function call, because the
// matching constraints it imposes depend on the whole calc list.
type codeMatcher struct {
	name   string
	shapes []shapeKind

	anchors      []int
	endGroupSize int
	minChars     int
}

func newCodeMatcher(name string) *codeMatcher {
	return &codeMatcher{name: name}
}

// append records one more calc function's shape. Appending invalidates
// the cached anchors, matching build_anchors' lazy-rebuild-on-append
// behavior in the original engine.
func (m *codeMatcher) append(shape shapeKind) {
	m.shapes = append(m.shapes, shape)
	m.anchors = nil
}

func (m *codeMatcher) buildAnchors() {
	if m.anchors != nil {
		return
	}
	anchors := []int{0}
	for _, s := range m.shapes {
		if s == shapeAny {
			anchors[len(anchors)-1]++
		} else {
			anchors = append(anchors, 0)
		}
	}
	m.anchors = anchors

	endGroupSize := 0
	for endGroupSize+1 < len(anchors) && anchors[len(anchors)-1-endGroupSize] == 0 {
		endGroupSize++
	}
	m.endGroupSize = endGroupSize

	minChars := 0
	for _, a := range anchors {
		minChars += a
	}
	minChars += len(anchors) - 1
	m.minChars = minChars
}

func allDigits(address string, lo, hi int) bool {
	if lo < 0 || hi >= len(address) {
		return false
	}
	for i := lo; i <= hi; i++ {
		if !numberClass.has(address[i]) {
			return false
		}
	}
	return true
}

func (m *codeMatcher) Match(address string, start, end int, minimal bool) (int, int, bool) {
	m.buildAnchors()
	if start >= len(address) {
		return 0, 0, false
	}
	if end >= 0 && end >= len(address) {
		return 0, 0, false
	}

	nAtStart := m.anchors[0] == 0
	nAtEnd := m.anchors[len(m.anchors)-1] == 0

	if nAtStart && !numberClass.has(address[start]) {
		return 0, 0, false
	}
	if nAtEnd && end >= 0 && !numberClass.has(address[end]) {
		return 0, 0, false
	}

	minimalEnd := start
	for i := 0; i < len(m.anchors); i++ {
		if i > 0 {
			for {
				if minimalEnd >= len(address) {
					return 0, 0, false
				}
				if numberClass.has(address[minimalEnd]) {
					break
				}
				minimalEnd++
			}
			minimalEnd++
		}
		minimalEnd += m.anchors[i]
		if minimalEnd >= len(address) && i+1 < len(m.anchors) {
			return 0, 0, false
		}
	}
	minimalEnd--

	if minimal {
		return start, minimalEnd, true
	}
	if end >= 0 {
		if end == minimalEnd {
			return start, minimalEnd, true
		}
		if end < minimalEnd {
			return 0, 0, false
		}
		// end > minimalEnd: fall through to the n_at_end checks below.
	}

	if nAtEnd {
		if end >= 0 {
			lo := end - m.endGroupSize + 1
			if !allDigits(address, lo, end) {
				return 0, 0, false
			}
		} else {
			end = minimalEnd
			currPos := minimalEnd + 1
			for {
				lo := currPos - m.endGroupSize + 1
				if allDigits(address, lo, currPos) {
					end = currPos
				}
				currPos++
				if currPos >= len(address) {
					break
				}
			}
		}
	}

	if end < 0 {
		end = len(address) - 1
	}
	return start, end, true
}

func (m *codeMatcher) Extend(address string, start, end int) bool {
	m.buildAnchors()
	if start >= len(address) {
		return false
	}
	if end+1 >= len(address) {
		return false
	}
	if (end-start)+1 < m.minChars {
		return false
	}
	lo := end - m.endGroupSize + 2
	hi := end + 1
	return allDigits(address, lo, hi)
}
