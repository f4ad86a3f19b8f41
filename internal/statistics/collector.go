package statistics

import (
	"sort"
	"sync"
	"time"
)

// Snapshot is one collector's point-in-time report: elapsed-time,
// in-flight depth (omitted for collectors that can't track it), and
// throughput windows. This is the per-collector object that appears in
// both the `stats` line protocol and the `jstats` JSON array.
type Snapshot struct {
	Name    string  `json:"name"`
	Elapsed Window  `json:"elapsed"`
	Depth   *Window `json:"depth,omitempty"`
	NPerSec Window  `json:"n_per_sec"`
}

// Collector tracks elapsed time, in-flight depth, and throughput for a
// single named activity (e.g. one table-server command).
type Collector struct {
	name string

	mu      sync.Mutex
	elapsed *ringBuffer
	depth   *ringBuffer
	nPerSec *ringBuffer
}

func newCollector(name string) *Collector {
	return &Collector{
		name:    name,
		elapsed: newRingBuffer(kindAveraging, 0),
		depth:   newRingBuffer(kindLeveling, 0),
		nPerSec: newRingBuffer(kindCounting, 0),
	}
}

// Timer times one in-flight event started by Collector.StartTimer.
type Timer struct {
	collector *Collector
	start     time.Time
}

// StartTimer records the start of one event: it bumps depth and
// throughput immediately, and returns a Timer whose Stop folds the
// elapsed duration in once the event finishes.
func (c *Collector) StartTimer() *Timer {
	c.mu.Lock()
	c.depth.add(1)
	c.nPerSec.add(1)
	c.mu.Unlock()
	return &Timer{collector: c, start: time.Now()}
}

// Stop records the event as finished.
func (t *Timer) Stop() {
	t.collector.stopTimer(time.Since(t.start).Seconds())
}

func (c *Collector) stopTimer(elapsedSeconds float64) {
	c.mu.Lock()
	c.elapsed.add(elapsedSeconds)
	c.depth.add(-1)
	c.mu.Unlock()
}

// Stats returns this collector's current snapshot, wrapped in a
// one-element slice so Collector satisfies the same provider shape the
// Factory aggregates over as UndeterminedCollector.
func (c *Collector) Stats() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	depth := c.depth.stats()
	return []Snapshot{{
		Name:    c.name,
		Elapsed: c.elapsed.stats(),
		Depth:   &depth,
		NPerSec: c.nPerSec.stats(),
	}}
}

type undeterminedEntry struct {
	elapsed *ringBuffer
	nPerSec *ringBuffer
}

// UndeterminedCollector collects statistics for a connection whose
// eventual classification (one of a fixed set of names) isn't known
// until the event has been processed; depth can't be tracked per-name
// since the connection isn't "in" any one queue until classified.
type UndeterminedCollector struct {
	mu         sync.Mutex
	collectors map[string]*undeterminedEntry
}

func newUndeterminedCollector(names []string) *UndeterminedCollector {
	c := &UndeterminedCollector{collectors: map[string]*undeterminedEntry{}}
	for _, name := range names {
		c.collectors[name] = &undeterminedEntry{
			elapsed: newRingBuffer(kindAveraging, 0),
			nPerSec: newRingBuffer(kindCounting, 0),
		}
	}
	return c
}

// UndeterminedTimer times an event whose classification is supplied at
// Stop time.
type UndeterminedTimer struct {
	collector *UndeterminedCollector
	start     time.Time
}

func (c *UndeterminedCollector) StartTimer() *UndeterminedTimer {
	return &UndeterminedTimer{collector: c, start: time.Now()}
}

// Stop records the event as finished under the given classification.
// An unrecognized name is silently dropped, matching a misconfigured
// name set never having had a bucket allocated for it.
func (t *UndeterminedTimer) Stop(name string) {
	t.collector.stopTimer(time.Since(t.start).Seconds(), name)
}

func (c *UndeterminedCollector) stopTimer(elapsed float64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.collectors[name]
	if !ok {
		return
	}
	entry.elapsed.add(elapsed)
	entry.nPerSec.add(1)
}

// Stats returns one Snapshot per configured name, sorted for stable
// output; Depth is left nil since it can't be tracked per-name.
func (c *UndeterminedCollector) Stats() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.collectors))
	for name := range c.collectors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		entry := c.collectors[name]
		out = append(out, Snapshot{
			Name:    name,
			Elapsed: entry.elapsed.stats(),
			NPerSec: entry.nPerSec.stats(),
		})
	}
	return out
}
