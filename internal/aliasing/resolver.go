package aliasing

// Resolver resolves candidate mail addresses against a set of alias
// specifications, applying the same ambiguity policy throughout: if
// every spec that matched agrees on one delivery account, use it --
// even if one of those specs was itself internally ambiguous about
// how it got there -- and only fall back to the debug account when
// specs actively disagree.
type Resolver struct {
	Specs []*AliasSpec

	// DebugAccount is delivered to when an address matches but the
	// matching specs disagree on the account, or when nothing matches
	// is handled by the caller instead (an empty Resolve result). An
	// empty DebugAccount means "no delivery" for an ambiguous match,
	// same as leaving it unset in the original engine.
	DebugAccount string

	// OnAmbiguous, if set, is called whenever Resolve falls back to
	// DebugAccount, and when it resolves an account from a match that
	// was ambiguous (several accounts or several field assignments);
	// wasAmbiguous is always true. Lets the server log the decision the
	// way the original engine logs it.
	OnAmbiguous func(address, resolved string, wasAmbiguous bool)
}

// Resolve returns the account address should be delivered to, or ""
// if nothing matched at all.
func (r *Resolver) Resolve(address string) string {
	var matches []*SpecMatch
	for _, spec := range r.Specs {
		if sm := spec.Match(address); sm != nil {
			matches = append(matches, sm)
		}
	}
	if len(matches) == 0 {
		return ""
	}

	ambiguous := false
	deliveryAccount := ""
	conflict := false
	for _, sm := range matches {
		if sm.Ambiguous() {
			ambiguous = true
		}
		account := sm.DeliveryAccount()
		if account == "" || conflict {
			conflict = true
			continue
		}
		if deliveryAccount == "" {
			deliveryAccount = account
		} else if deliveryAccount != account {
			conflict = true
			deliveryAccount = ""
		}
	}

	if !conflict && deliveryAccount != "" {
		if r.OnAmbiguous != nil && ambiguous {
			r.OnAmbiguous(address, deliveryAccount, true)
		}
		return deliveryAccount
	}

	if r.OnAmbiguous != nil {
		r.OnAmbiguous(address, r.DebugAccount, true)
	}
	return r.DebugAccount
}
