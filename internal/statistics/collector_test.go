package statistics

import "testing"

func TestCollectorStartStopTimerUpdatesDepthAndElapsed(t *testing.T) {
	c := newCollector("resolve")
	timer := c.StartTimer()
	timer.Stop()

	snaps := c.Stats()
	if len(snaps) != 1 {
		t.Fatalf("Stats() returned %d snapshots, want 1", len(snaps))
	}
	snap := snaps[0]
	if snap.Name != "resolve" {
		t.Fatalf("Name = %q, want resolve", snap.Name)
	}
	if snap.Depth == nil {
		t.Fatalf("Depth is nil, want a tracked depth window")
	}
}

func TestUndeterminedCollectorClassifiesOnStop(t *testing.T) {
	c := newUndeterminedCollector([]string{"local", "relay"})

	timer := c.StartTimer()
	timer.Stop("local")

	snaps := c.Stats()
	if len(snaps) != 2 {
		t.Fatalf("Stats() returned %d snapshots, want 2", len(snaps))
	}
	// Sorted by name: "local" before "relay".
	if snaps[0].Name != "local" || snaps[1].Name != "relay" {
		t.Fatalf("snapshot names = %q, %q, want local, relay", snaps[0].Name, snaps[1].Name)
	}
	if snaps[0].Depth != nil {
		t.Fatalf("undetermined collector snapshot has a Depth window, want nil")
	}
}

func TestUndeterminedCollectorDropsUnknownName(t *testing.T) {
	c := newUndeterminedCollector([]string{"local"})
	timer := c.StartTimer()
	timer.Stop("unregistered")

	// Should not panic, and the known collector stays untouched.
	snaps := c.Stats()
	if len(snaps) != 1 {
		t.Fatalf("Stats() returned %d snapshots, want 1", len(snaps))
	}
}
