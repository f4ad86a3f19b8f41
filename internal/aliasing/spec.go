package aliasing

// AliasSpec is one compiled `ACCOUNT ... MATCHES ... WITH ...;`
// statement: the accounts and aliases it declares, its match
// expression, and its calc list.
type AliasSpec struct {
	Accounts []string
	Aliases  []string

	MatchExpr *MatchExpression
	Calc      *CalcExpression

	// Unique records whether this spec's raw expression text is the
	// only one among all loaded specs to use it -- set by the config
	// layer's uniqueness pass; neither the resolver nor any other code
	// reads it.
	Unique bool
}

// NewAliasSpec returns an empty spec ready to be populated by the
// config parser.
func NewAliasSpec() *AliasSpec {
	return &AliasSpec{
		MatchExpr: NewMatchExpression(),
		Calc:      &CalcExpression{},
	}
}

// SemanticCheck validates the calc list against the match expression
// and builds the sketch used for matching. Must be called once, after
// every field has been populated, before Match is ever used.
func (a *AliasSpec) SemanticCheck() error {
	if err := a.Calc.SemanticCheck(a.MatchExpr, len(a.Aliases) > 0); err != nil {
		return err
	}
	a.MatchExpr.BuildSketch(a.Calc)
	return nil
}

// SpecMatch aggregates every MatchInfo this one spec produced for a
// single address -- a spec with several comma-separated accounts can
// legitimately match more than one of them at once.
type SpecMatch struct {
	Infos []MatchInfo
}

// Ambiguous reports whether this spec matched more than one way,
// either because several accounts matched or because a single
// account's calc list verified under more than one field assignment.
func (sm *SpecMatch) Ambiguous() bool {
	if len(sm.Infos) > 1 {
		return true
	}
	for _, mi := range sm.Infos {
		if mi.Ambiguous {
			return true
		}
	}
	return false
}

// DeliveryAccount returns the account to deliver to if every MatchInfo
// this spec produced agrees, or "" if they don't.
func (sm *SpecMatch) DeliveryAccount() string {
	account := ""
	set := false
	for _, mi := range sm.Infos {
		if !set {
			account = mi.DeliveryAccount
			set = true
			continue
		}
		if account != mi.DeliveryAccount {
			return ""
		}
	}
	return account
}

// Match tests address against this spec, returning nil if it doesn't
// match at all.
func (a *AliasSpec) Match(address string) *SpecMatch {
	infos := a.MatchExpr.Match(a.Calc, a.Accounts, a.Aliases, address)
	if len(infos) == 0 {
		return nil
	}
	return &SpecMatch{Infos: infos}
}
