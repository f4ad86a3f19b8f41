package server

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/m3047/trualiasd/internal/statistics"
)

func TestTableGetRespondsWithAccount(t *testing.T) {
	s := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer l.Close()
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		s.handleTableConn(context.Background(), conn)
	}()

	line := dialAndRead(t, l, "get alice.green.g2r")
	if !strings.HasPrefix(line, "200 alice") {
		t.Fatalf("response = %q, want 200 alice", line)
	}
}

func TestTableGetNotFound(t *testing.T) {
	s := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer l.Close()
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		s.handleTableConn(context.Background(), conn)
	}()

	line := dialAndRead(t, l, "get nobody")
	if !strings.HasPrefix(line, "500 ") {
		t.Fatalf("response = %q, want 500 ...", line)
	}
}

func TestTableStatsDisabledWithoutFactory(t *testing.T) {
	s := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer l.Close()
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		s.handleTableConn(context.Background(), conn)
	}()

	line := dialAndRead(t, l, "stats")
	if !strings.HasPrefix(line, "400 ") {
		t.Fatalf("response = %q, want 400 statistics disabled", line)
	}
}

func TestTableJStatsRendersJSON(t *testing.T) {
	s := newTestServer(t)
	s.Stats = statistics.NewFactory()
	s.Stats.NewCollector("resolve")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer l.Close()
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		s.handleTableConn(context.Background(), conn)
	}()

	line := dialAndRead(t, l, "jstats")
	if !strings.HasPrefix(line, "210 ") {
		t.Fatalf("response = %q, want 210 <json>", line)
	}
	if !strings.Contains(line, `"resolve"`) {
		t.Fatalf("response = %q, want it to mention the resolve collector", line)
	}
}

func TestFormatStatsLineIncludesAllWindows(t *testing.T) {
	snap := statistics.Snapshot{
		Name:    "resolve",
		Elapsed: statistics.Window{Minimum: 1, Maximum: 2, One: 3, Ten: 4, Sixty: 5},
		NPerSec: statistics.Window{Minimum: 6, Maximum: 7, One: 8, Ten: 9, Sixty: 10},
	}
	line := formatStatsLine(snap)
	for _, want := range []string{"emin=1", "emax=2", "e1=3", "e10=4", "e60=5", "nmin=6", "n60=10"} {
		if !strings.Contains(line, want) {
			t.Errorf("formatStatsLine = %q, missing %q", line, want)
		}
	}
}
