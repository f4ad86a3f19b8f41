package server

import (
	"bufio"
	"context"
	"net"
	"strings"

	"github.com/m3047/trualiasd/internal/envelope"
)

// handleVirtualConn runs the virtual-server line protocol (spec §6.2):
// `get local@domain`, resolving against the alias-domain set (the same
// configured local-delivery domain set the milter adapter uses).
func (s *Server) handleVirtualConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		line, err := readLine(r)
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			writeResponse(w, 400, 400, "empty request")
			continue
		}
		if strings.ToLower(fields[0]) != "get" || len(fields) != 2 {
			writeResponse(w, 400, 400, "usage: get <local@domain>")
			continue
		}
		s.virtualGet(w, fields[1])
	}
}

func (s *Server) virtualGet(w *bufio.Writer, address string) {
	localpart, domain := envelope.Split(address)
	if domain == "" {
		writeResponse(w, 400, 400, "usage: get <local@domain>")
		return
	}

	cfg := s.Config.Load()
	if !cfg.LocalDomains[strings.ToLower(domain)] {
		writeResponse(w, 500, 500, "not found")
		return
	}

	account := resolveWithProcessor(cfg, s.lookupProcessor(cfg), localpart, domain)
	if account == "" {
		writeResponse(w, 500, 500, "not found")
		return
	}
	writeResponse(w, 200, 200, account+"@"+domain)
}
