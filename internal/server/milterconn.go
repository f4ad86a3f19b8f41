package server

import (
	"context"
	"net"

	"blitiri.com.ar/go/log"

	"github.com/m3047/trualiasd/internal/milter"
)

// handleMilterConn wraps internal/milter's state machine over an
// accepted connection, binding it to the configuration and verifier in
// effect when the connection started.
func (s *Server) handleMilterConn(ctx context.Context, conn net.Conn) {
	cfg := s.Config.Load()
	proc := s.lookupProcessor(cfg)

	m := &milter.Server{
		LocalDomains: cfg.LocalDomains,
		Resolve: func(localpart string) string {
			return resolveWithProcessor(cfg, proc, localpart, "")
		},
		Verifier: s.NewVerifier(cfg),
	}

	if err := m.ServeConn(ctx, conn); err != nil {
		log.Debugf("server: milter connection from %s ended: %v", conn.RemoteAddr(), err)
	}
}
