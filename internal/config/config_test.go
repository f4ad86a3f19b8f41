package config

import "testing"

func TestEmptyConfig(t *testing.T) {
	c, err := LoadFromString("", "<test>")
	if err != nil {
		t.Fatalf("error loading empty config: %v", err)
	}
	if c.Host != "0.0.0.0" || c.Port != 4255 {
		t.Errorf("unexpected default host/port: %s:%d", c.Host, c.Port)
	}
	if !c.StatisticsEnabled {
		t.Errorf("statistics should default to enabled")
	}
	if len(c.Specs) != 0 {
		t.Errorf("expected no specs, got %d", len(c.Specs))
	}
}

func TestSettingsAndOneSpec(t *testing.T) {
	src := `
		HOST: 127.0.0.1
		PORT: 4321
		LOGGING: debug
		DEBUG ACCOUNT: postmaster
		STATISTICS: none
		SMTP HOST: mail.example.com
		SMTP PORT: 25
		LOCAL DOMAINS: example.com, example.net

		ACCOUNT foo MATCHES %account%.%ident%.%code% WITH ANY(), VOWELS(), ANY();
	`
	c, err := LoadFromString(src, "<test>")
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}
	if c.Host != "127.0.0.1" || c.Port != 4321 {
		t.Errorf("host/port = %s:%d", c.Host, c.Port)
	}
	if c.Logging != "debug" {
		t.Errorf("logging = %q, want debug", c.Logging)
	}
	if c.DebugAccount != "postmaster" {
		t.Errorf("debug account = %q", c.DebugAccount)
	}
	if c.StatisticsEnabled {
		t.Errorf("statistics should be disabled")
	}
	if !c.LocalDomains["example.com"] || !c.LocalDomains["example.net"] {
		t.Errorf("local domains = %v", c.LocalDomains)
	}
	if len(c.Specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(c.Specs))
	}
	if c.Resolver.Resolve("foo.green.g2r") != "foo" {
		t.Errorf("resolve via loaded configuration failed")
	}
}

func TestMultipleAccountsAndAliases(t *testing.T) {
	src := `
		ACCOUNT alice, bob ALIASED team MATCHES %account%-%alias%-%ident%-%code% WITH ANY(), VOWELS(), ANY();
	`
	c, err := LoadFromString(src, "<test>")
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}
	if len(c.AccountSpecs["alice"]) != 1 || len(c.AccountSpecs["bob"]) != 1 {
		t.Errorf("AccountSpecs = %v", c.AccountSpecs)
	}
	if len(c.AliasAccounts["team"]) != 2 {
		t.Errorf("AliasAccounts[team] = %v, want 2 owners", c.AliasAccounts["team"])
	}
}

func TestUniquenessRejectsAmbiguousSharedAlias(t *testing.T) {
	src := `
		ACCOUNT alice ALIASED team MATCHES %ident%.%code% WITH ANY(), VOWELS(), ANY();
		ACCOUNT bob ALIASED team MATCHES %ident%.%code% WITH ANY(), VOWELS(), ANY();
	`
	if _, err := LoadFromString(src, "<test>"); err == nil {
		t.Fatalf("expected a uniqueness error for a shared alias with neither 'account' nor 'alias' referenced")
	}
}

func TestUniquenessAllowsDistinctExpressions(t *testing.T) {
	src := `
		ACCOUNT alice MATCHES alice-%ident%-%code% WITH ANY(), VOWELS(), ANY();
		ACCOUNT bob MATCHES bob-%ident%-%code% WITH ANY(), VOWELS(), ANY();
	`
	if _, err := LoadFromString(src, "<test>"); err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}
}

func TestBadPortRejected(t *testing.T) {
	if _, err := LoadFromString("PORT: 99999\n", "<test>"); err == nil {
		t.Fatalf("expected an error for an out-of-range port")
	}
}

func TestHolder(t *testing.T) {
	var h Holder
	if h.Load() != nil {
		t.Fatalf("zero Holder should start empty")
	}
	c, err := LoadFromString("", "<test>")
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}
	h.Store(c)
	if h.Load() != c {
		t.Fatalf("Holder did not return the stored configuration")
	}
}
