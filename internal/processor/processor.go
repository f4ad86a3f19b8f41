// Package processor implements the pre/post-processing hook that runs
// before an alias match is attempted and after an account is resolved.
package processor

import "fmt"

// Processor transforms the localpart and domain of an address before
// matching (Preprocess) and after a match has resolved to an account
// (Postprocess). Both methods return the (possibly unchanged) localpart
// and domain to use from that point on.
type Processor interface {
	Preprocess(alias, domain string) (string, string)
	Postprocess(account, domain string) (string, string)
	Reload() error
}

// Registry holds named Processor implementations, selected by the
// configuration's PROCESSOR key.
type Registry struct {
	processors map[string]Processor
}

func NewRegistry() *Registry {
	return &Registry{processors: map[string]Processor{}}
}

// Register adds or replaces the Processor known by name.
func (r *Registry) Register(name string, p Processor) {
	r.processors[name] = p
}

// Lookup returns the Processor known by name, or an error if none is
// registered under that name.
func (r *Registry) Lookup(name string) (Processor, error) {
	if name == "" {
		return noopProcessor{}, nil
	}
	p, ok := r.processors[name]
	if !ok {
		return nil, fmt.Errorf("processor: no processor registered as %q", name)
	}
	return p, nil
}

// Reload reloads every registered processor, collecting all errors
// rather than stopping at the first.
func (r *Registry) Reload() error {
	var failed []string
	for name, p := range r.processors {
		if err := p.Reload(); err != nil {
			failed = append(failed, fmt.Sprintf("%q: %v", name, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("processor reload failed for: %v", failed)
	}
	return nil
}

// noopProcessor is the default Processor: it passes everything through
// unchanged and never fails to reload.
type noopProcessor struct{}

func (noopProcessor) Preprocess(alias, domain string) (string, string)      { return alias, domain }
func (noopProcessor) Postprocess(account, domain string) (string, string)  { return account, domain }
func (noopProcessor) Reload() error                                        { return nil }
