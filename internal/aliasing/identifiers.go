package aliasing

// Identifier is one matched field of an address, tagged with the kind
// of field it came from so calc functions can refuse to treat a plain
// field as an fqdn (label-based calcs) or vice versa.
type Identifier struct {
	Kind  tokenKind
	Value string
}

// identifierList is the accumulator match_sketch builds up as it
// backtracks: every element is one complete, ordered set of field
// assignments that makes the whole sketch match the address. An empty
// identifierList (no combos at all) means "no match found here";
// identifierList{combos: [][]Identifier{{}}} means "matched, and there
// was nothing left to assign" -- the base case at the end of a
// successful walk.
type identifierList struct {
	combos [][]Identifier
}

func newIdentifierList(success bool) *identifierList {
	if success {
		return &identifierList{combos: [][]Identifier{{}}}
	}
	return &identifierList{}
}

func (il *identifierList) ok() bool {
	return len(il.combos) > 0
}

// appendMatch records one more field assignment (kind, value) in front
// of every combo carried by a (successful) recursive sub-match,
// producing one new combo per sub-combo.
func (il *identifierList) appendMatch(kind tokenKind, value string, sub *identifierList) {
	for _, combo := range sub.combos {
		newCombo := make([]Identifier, 0, len(combo)+1)
		newCombo = append(newCombo, Identifier{Kind: kind, Value: value})
		newCombo = append(newCombo, combo...)
		il.combos = append(il.combos, newCombo)
	}
}

// unpackedMatch splits one combo into its verification code and the
// plain identifier-class fields that calc functions can subscript.
// account/alias fields are deliberately excluded: calc functions
// reference them through the separate "account"/"alias" keywords, not
// by ordinal position.
type unpackedMatch struct {
	code   *Identifier
	idents []Identifier
}

func (il *identifierList) unpack() []unpackedMatch {
	out := make([]unpackedMatch, 0, len(il.combos))
	for _, combo := range il.combos {
		var um unpackedMatch
		for i := range combo {
			id := combo[i]
			switch {
			case id.Kind == tokCode:
				c := id
				um.code = &c
			case isIdentMatcherKind(id.Kind):
				um.idents = append(um.idents, id)
			}
		}
		out = append(out, um)
	}
	return out
}
