// Package config implements the trualiasd configuration: the line DSL
// of alias specs and scalar settings described in parser.go,
// bundled into an immutable Configuration snapshot that the resolver
// and the network services read without locking.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"blitiri.com.ar/go/log"

	"github.com/m3047/trualiasd/internal/aliasing"
)

// Configuration is one fully loaded, semantically checked snapshot:
// every alias spec plus the scalar settings, and the derived lookup
// maps the resolver and the line services need. It never changes once
// built -- a reload builds an entirely new one and publishes it, the
// same rebuild-don't-mutate model chasquid's own config reload uses.
type Configuration struct {
	Host string
	Port int

	Logging string

	DebugAccount string

	StatisticsEnabled bool
	StatisticsWindow  int // 0 if unspecified; parsed from an integer STATISTICS value

	Processor string

	SMTPHost string
	SMTPPort int

	LocalHost    string
	LocalDomains map[string]bool

	Specs []*aliasing.AliasSpec

	// AccountSpecs/AliasSpecs/AliasAccounts are the reverse indices the
	// Configuration component of the spec calls for.
	AccountSpecs  map[string][]*aliasing.AliasSpec
	AliasSpecs    map[string][]*aliasing.AliasSpec
	AliasAccounts map[string]map[string]bool

	Resolver *aliasing.Resolver

	// SourcePath and fingerprint track what this Configuration was
	// loaded from: LogConfig prints SourcePath, and the watchdog
	// compares fingerprints to skip a reload whose text is unchanged
	// even if the file's mtime ticked forward.
	SourcePath  string
	fingerprint string
}

// defaultConfiguration mirrors the original engine's defaults: bind to
// all interfaces on the conventional table-server port, info-level
// logging, statistics on.
func defaultConfiguration() *Configuration {
	return &Configuration{
		Host:              "0.0.0.0",
		Port:              4255,
		Logging:           "info",
		StatisticsEnabled: true,
		LocalDomains:      map[string]bool{},
	}
}

// Load reads and parses a configuration file at path, applies any
// scalar overrides (the same "KEY: value" syntax, appended as if it
// were one more line of the file) on top of it, then validates
// everything and builds the derived maps.
func Load(path, overrides string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration %q: %v", path, err)
	}
	return LoadFromString(string(data)+"\n"+overrides, path)
}

// LoadFromString is Load's testable core: parse, validate, build.
func LoadFromString(src, sourcePath string) (*Configuration, error) {
	raw, err := Parse(src)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfiguration()
	cfg.SourcePath = sourcePath
	cfg.fingerprint = fingerprint(src)
	if err := cfg.applySettings(raw.Settings); err != nil {
		return nil, err
	}
	cfg.Specs = raw.Specs

	for _, spec := range cfg.Specs {
		if err := spec.SemanticCheck(); err != nil {
			return nil, err
		}
	}
	if err := cfg.enforceUniqueness(); err != nil {
		return nil, err
	}
	cfg.buildMaps()
	cfg.Resolver = &aliasing.Resolver{
		Specs:        cfg.Specs,
		DebugAccount: cfg.DebugAccount,
		OnAmbiguous: func(address, resolved string, wasAmbiguous bool) {
			log.Debugf("resolve %q: ambiguous match, using %q", address, resolved)
		},
	}
	return cfg, nil
}

func (c *Configuration) applySettings(settings map[string]string) error {
	for key, value := range settings {
		value = strings.TrimSpace(value)
		var err error
		switch key {
		case "HOST":
			c.Host = value
		case "PORT":
			c.Port, err = parsePort(value)
		case "LOGGING":
			c.Logging, err = parseLogLevel(value)
		case "DEBUG ACCOUNT":
			c.DebugAccount, err = parseAccountName(value)
		case "STATISTICS":
			c.StatisticsEnabled, c.StatisticsWindow, err = parseStatistics(value)
		case "PROCESSOR":
			c.Processor = value
		case "SMTP HOST":
			c.SMTPHost = value
		case "SMTP PORT":
			c.SMTPPort, err = parsePort(value)
		case "LOCAL HOST":
			c.LocalHost = value
		case "LOCAL DOMAINS":
			c.LocalDomains = parseDomainSet(value)
		default:
			err = fmt.Errorf("unrecognized setting %q", key)
		}
		if err != nil {
			return &ParseError{Reason: err.Error()}
		}
	}
	return nil
}

func parsePort(value string) (int, error) {
	p, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", value)
	}
	if p < 0 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range [0, 65535]", p)
	}
	return p, nil
}

func parseLogLevel(value string) (string, error) {
	switch strings.ToLower(value) {
	case "fatal", "error", "info", "debug":
		return strings.ToLower(value), nil
	}
	return "", fmt.Errorf("unrecognized log level %q", value)
}

func parseAccountName(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if strings.ContainsAny(value, " @") {
		return "", fmt.Errorf("account name %q must not contain space or '@'", value)
	}
	return value, nil
}

// parseStatistics accepts "none"/"no" (disabled) or a non-negative
// integer window count, per STATISTICS's documented grammar -- the
// window count itself is a no-op against our fixed 1/10/60-second
// windows, but the value is still validated the way the original
// engine's to_statistics does.
func parseStatistics(value string) (enabled bool, window int, err error) {
	switch strings.ToLower(value) {
	case "none", "no":
		return false, 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return false, 0, fmt.Errorf("invalid STATISTICS value %q", value)
	}
	return true, n, nil
}

func parseDomainSet(value string) map[string]bool {
	out := map[string]bool{}
	for _, field := range strings.Fields(strings.ReplaceAll(value, ",", " ")) {
		out[strings.ToLower(field)] = true
	}
	return out
}

func specError(spec *aliasing.AliasSpec, reason string) *aliasing.SemanticError {
	return &aliasing.SemanticError{Reason: reason, LineNumber: spec.MatchExpr.LineNumber}
}

// enforceUniqueness implements the three-tier disambiguation rule
// (spec §4.6): a spec's match expression must be able to tell which
// account -- and, when an alias is shared, which alias -- it matched,
// purely from the fields it references, unless its raw expression text
// happens to be the only spec in the whole configuration using that
// exact text.
func (c *Configuration) enforceUniqueness() error {
	exprCount := map[string]int{}
	for _, spec := range c.Specs {
		exprCount[spec.MatchExpr.Expression]++
	}

	aliasOwners := map[string]map[string]bool{}
	for _, spec := range c.Specs {
		for _, alias := range spec.Aliases {
			if aliasOwners[alias] == nil {
				aliasOwners[alias] = map[string]bool{}
			}
			for _, account := range spec.Accounts {
				aliasOwners[alias][account] = true
			}
		}
	}

	for _, spec := range c.Specs {
		unique := exprCount[spec.MatchExpr.Expression] == 1
		spec.Unique = unique

		hasAccount := spec.MatchExpr.HasField("account")
		hasAlias := spec.MatchExpr.HasField("alias")

		switch {
		case len(spec.Aliases) == 0:
			if !hasAccount && !unique {
				return specError(spec, "spec has no aliases: must reference 'account' or be uniquely expressed")
			}
		case len(spec.Aliases) == 1 && len(aliasOwners[spec.Aliases[0]]) <= 1:
			if !hasAccount && !hasAlias && !unique {
				return specError(spec, "spec's single alias belongs only to this account: must reference 'account' or 'alias', or be uniquely expressed")
			}
		default:
			if !hasAccount || !hasAlias {
				return specError(spec, "spec's alias is shared by multiple accounts: must reference both 'account' and 'alias'")
			}
		}
	}
	return nil
}

func (c *Configuration) buildMaps() {
	c.AccountSpecs = map[string][]*aliasing.AliasSpec{}
	c.AliasSpecs = map[string][]*aliasing.AliasSpec{}
	c.AliasAccounts = map[string]map[string]bool{}
	for _, spec := range c.Specs {
		for _, account := range spec.Accounts {
			c.AccountSpecs[account] = append(c.AccountSpecs[account], spec)
		}
		for _, alias := range spec.Aliases {
			c.AliasSpecs[alias] = append(c.AliasSpecs[alias], spec)
			if c.AliasAccounts[alias] == nil {
				c.AliasAccounts[alias] = map[string]bool{}
			}
			for _, account := range spec.Accounts {
				c.AliasAccounts[alias][account] = true
			}
		}
	}
}

// LogConfig logs the loaded configuration, in a human-friendly way,
// same spirit as chasquid's own LogConfig dump at startup.
func LogConfig(c *Configuration) {
	log.Infof("Configuration (%s):", c.SourcePath)
	log.Infof("  Host/Port: %s:%d", c.Host, c.Port)
	log.Infof("  Logging: %s", c.Logging)
	log.Infof("  Debug account: %q", c.DebugAccount)
	log.Infof("  Statistics: %v (window=%d)", c.StatisticsEnabled, c.StatisticsWindow)
	log.Infof("  Processor: %q", c.Processor)
	log.Infof("  SMTP verifier: %s:%d", c.SMTPHost, c.SMTPPort)
	log.Infof("  Local host: %q, local domains: %d", c.LocalHost, len(c.LocalDomains))
	log.Infof("  Alias specs: %d", len(c.Specs))
}

// Fingerprint returns the stable identifier of the text this
// Configuration was parsed from, used by the watchdog to recognize
// an mtime bump that didn't actually change the content.
func (c *Configuration) Fingerprint() string {
	return c.fingerprint
}

// Holder is an atomically hot-swappable Configuration reference: the
// resolver and line services read through it with no locking, and the
// watchdog publishes a freshly loaded Configuration with Store. The
// zero Holder is usable; Load returns nil until the first Store.
type Holder struct {
	p atomic.Pointer[Configuration]
}

func (h *Holder) Load() *Configuration {
	return h.p.Load()
}

func (h *Holder) Store(c *Configuration) {
	h.p.Store(c)
}
