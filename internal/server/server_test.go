package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/m3047/trualiasd/internal/config"
	"github.com/m3047/trualiasd/internal/processor"
	"github.com/m3047/trualiasd/internal/verifier"
)

const testConfigSrc = `
	LOCAL DOMAINS: example.com

	ACCOUNT alice MATCHES %account%.%ident%.%code% WITH ANY(), VOWELS(), ANY();
`

func newTestConfig(t *testing.T) *config.Holder {
	t.Helper()
	cfg, err := config.LoadFromString(testConfigSrc, "<test>")
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}
	h := &config.Holder{}
	h.Store(cfg)
	return h
}

func newTestServer(t *testing.T) *Server {
	return &Server{
		Config:     newTestConfig(t),
		Processors: processor.NewRegistry(),
		NewVerifier: func(*config.Configuration) verifier.Verifier {
			return acceptAllVerifier{}
		},
	}
}

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(ctx context.Context, address string) (verifier.Result, error) {
	return verifier.Accept, nil
}

func dialAndRead(t *testing.T, l net.Listener, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(request + "\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	return line
}

func TestListenAndServeShutsDownOnContextCancel(t *testing.T) {
	s := newTestServer(t)

	tl, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	s.TableListeners = []net.Listener{tl}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	// Give the accept loop a moment to start, then ask it to stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after context cancellation")
	}
}

func TestAcceptLoopStopsCleanlyWhenListenerClosedByCancellation(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- acceptLoop(ctx, l, func(context.Context, net.Conn) {}) }()

	cancel()
	l.Close()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("acceptLoop = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acceptLoop did not return")
	}
}

func TestAcceptLoopReportsUnexpectedAcceptError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	l.Close() // Accept will fail immediately, with no cancellation in play.

	err = acceptLoop(context.Background(), l, func(context.Context, net.Conn) {})
	if err == nil {
		t.Fatalf("acceptLoop = nil, want an error")
	}
}
