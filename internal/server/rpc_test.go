package server

import (
	"net/url"
	"testing"

	"github.com/m3047/trualiasd/internal/trace"
)

func TestResolveRPCReturnsAccount(t *testing.T) {
	s := newTestServer(t)

	req := url.Values{}
	req.Set("Address", "alice.green.g2r")
	req.Set("Domain", "example.com")

	v, err := s.resolveRPC(trace.New("test", "resolve"), req)
	if err != nil {
		t.Fatalf("resolveRPC: %v", err)
	}
	if v.Get("Account") != "alice" {
		t.Fatalf("Account = %q, want alice", v.Get("Account"))
	}
}

func TestResolveRPCOmitsAccountWhenNotFound(t *testing.T) {
	s := newTestServer(t)

	req := url.Values{}
	req.Set("Address", "nobody")

	v, err := s.resolveRPC(trace.New("test", "resolve"), req)
	if err != nil {
		t.Fatalf("resolveRPC: %v", err)
	}
	if v.Get("Account") != "" {
		t.Fatalf("Account = %q, want empty", v.Get("Account"))
	}
}
