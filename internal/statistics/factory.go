package statistics

import "sync"

// provider is satisfied by both Collector and UndeterminedCollector,
// letting Factory aggregate across either kind without knowing which.
type provider interface {
	Stats() []Snapshot
}

// Factory allocates and tracks every Collector/UndeterminedCollector in
// the process, so a single Stats call can report on all of them
// together (the `stats`/`jstats` table-server commands).
type Factory struct {
	mu         sync.Mutex
	collectors []provider
}

func NewFactory() *Factory {
	return &Factory{}
}

// NewCollector allocates a name-keyed Collector and registers it.
func (f *Factory) NewCollector(name string) *Collector {
	c := newCollector(name)
	f.mu.Lock()
	f.collectors = append(f.collectors, c)
	f.mu.Unlock()
	return c
}

// NewUndeterminedCollector allocates an UndeterminedCollector covering
// the given classification names and registers it.
func (f *Factory) NewUndeterminedCollector(names []string) *UndeterminedCollector {
	c := newUndeterminedCollector(names)
	f.mu.Lock()
	f.collectors = append(f.collectors, c)
	f.mu.Unlock()
	return c
}

// Stats flattens every registered collector's snapshot into one slice,
// in registration order (matching the `jstats` JSON array's shape).
func (f *Factory) Stats() []Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Snapshot
	for _, c := range f.collectors {
		out = append(out, c.Stats()...)
	}
	return out
}
