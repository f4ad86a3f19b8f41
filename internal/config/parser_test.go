package config

import "testing"

func TestTokenizeSplitsPunctuationFromWords(t *testing.T) {
	toks := tokenize("ACCOUNT foo,bar WITH ANY(),VOWELS();")
	want := []string{"ACCOUNT", "foo", ",", "bar", "WITH", "ANY", "(", ")", ",", "VOWELS", "(", ")", ";"}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].text != w {
			t.Errorf("token %d = %q, want %q", i, toks[i].text, w)
		}
	}
}

func TestTokenizeStripsComments(t *testing.T) {
	toks := tokenize("HOST: 0.0.0.0 # bind everywhere\nPORT: 25")
	if len(toks) != 6 {
		t.Fatalf("got %d tokens, want 6: %v", len(toks), toks)
	}
	if toks[0].line != 1 || toks[3].line != 2 {
		t.Errorf("unexpected line numbers: %+v", toks)
	}
}

func TestParseSettingSpanningSingleLine(t *testing.T) {
	raw, err := Parse("LOCAL HOST: mail.example.com\nLOCAL DOMAINS: example.com\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if raw.Settings["LOCAL HOST"] != "mail.example.com" {
		t.Errorf("LOCAL HOST = %q", raw.Settings["LOCAL HOST"])
	}
	if raw.Settings["LOCAL DOMAINS"] != "example.com" {
		t.Errorf("LOCAL DOMAINS = %q", raw.Settings["LOCAL DOMAINS"])
	}
}

func TestParseAliasSpecWithUsingAndAliased(t *testing.T) {
	raw, err := Parse(`ACCOUNT foo USING fqdn ALIASED bar MATCHES %account%.%alias%.%code% WITH ANY(), VOWELS(), ANY();`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(raw.Specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(raw.Specs))
	}
	spec := raw.Specs[0]
	if len(spec.Accounts) != 1 || spec.Accounts[0] != "foo" {
		t.Errorf("Accounts = %v", spec.Accounts)
	}
	if len(spec.Aliases) != 1 || spec.Aliases[0] != "bar" {
		t.Errorf("Aliases = %v", spec.Aliases)
	}
	if len(spec.Calc.Calls) != 3 {
		t.Errorf("Calc.Calls = %v", spec.Calc.Calls)
	}
}

func TestParseRejectsMissingSemicolon(t *testing.T) {
	_, err := Parse(`ACCOUNT foo MATCHES %ident%.%code% WITH ANY()`)
	if err == nil {
		t.Fatalf("expected a parse error for a spec missing its terminating ';'")
	}
}

func TestParseRejectsUnrecognizedSetting(t *testing.T) {
	_, err := Parse("NOT A REAL SETTING: value\n")
	if err == nil {
		t.Fatalf("expected an error for an unrecognized top-level token")
	}
}
