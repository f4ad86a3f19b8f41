package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"

	"blitiri.com.ar/go/log"

	"github.com/m3047/trualiasd/internal/statistics"
)

// handleTableConn runs the table-server line protocol (spec §6.1):
// `get <alias>`, `stats`, `jstats`, one request per line until the
// client disconnects.
func (s *Server) handleTableConn(ctx context.Context, conn net.Conn) {
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

		switch strings.ToLower(fields[0]) {
		case "get":
			s.tableGet(w, fields)
		case "stats":
			s.writeStatsText(w)
		case "jstats":
			s.writeStatsJSON(w)
		default:
			writeResponse(w, 400, 400, "unknown command")
		}
	}
}

func (s *Server) tableGet(w *bufio.Writer, fields []string) {
	if len(fields) != 2 {
		writeResponse(w, 400, 400, "usage: get <alias>")
		return
	}

	cfg := s.Config.Load()
	account := resolveWithProcessor(cfg, s.lookupProcessor(cfg), fields[1], "")
	if account == "" {
		writeResponse(w, 500, 500, "not found")
		return
	}
	writeResponse(w, 200, 200, account)
}

func (s *Server) writeStatsText(w *bufio.Writer) {
	if s.Stats == nil {
		writeResponse(w, 400, 400, "statistics disabled")
		return
	}

	snaps := s.Stats.Stats()
	if len(snaps) == 0 {
		writeResponse(w, 400, 400, "statistics disabled")
		return
	}

	lines := make([]string, len(snaps))
	for i, snap := range snaps {
		lines[i] = formatStatsLine(snap)
	}
	writeResponse(w, 210, 212, strings.Join(lines, "\n"))
}

func (s *Server) writeStatsJSON(w *bufio.Writer) {
	if s.Stats == nil {
		writeResponse(w, 400, 400, "statistics disabled")
		return
	}

	snaps := s.Stats.Stats()
	if len(snaps) == 0 {
		writeResponse(w, 400, 400, "statistics disabled")
		return
	}

	body, err := json.Marshal(snaps)
	if err != nil {
		log.Errorf("server: marshalling jstats: %v", err)
		writeResponse(w, 400, 400, "internal error")
		return
	}
	writeResponse(w, 210, 210, string(body))
}

// formatStatsLine renders one collector's snapshot as
// "<name>: emin=… emax=… e1=… e10=… e60=… [dmin=… dmax=… d1=… d10=…
// d60=…] nmin=… nmax=… n1=… n10=… n60=…" (spec §6.1).
func formatStatsLine(snap statistics.Snapshot) string {
	var b strings.Builder
	b.WriteString(snap.Name)
	b.WriteString(": ")
	writeWindow(&b, "e", snap.Elapsed)
	if snap.Depth != nil {
		b.WriteString(" ")
		writeWindow(&b, "d", *snap.Depth)
	}
	b.WriteString(" ")
	writeWindow(&b, "n", snap.NPerSec)
	return b.String()
}

func writeWindow(b *strings.Builder, prefix string, w statistics.Window) {
	b.WriteString(prefix)
	b.WriteString("min=")
	b.WriteString(formatFloat(w.Minimum))
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString("max=")
	b.WriteString(formatFloat(w.Maximum))
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString("1=")
	b.WriteString(formatFloat(w.One))
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString("10=")
	b.WriteString(formatFloat(w.Ten))
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString("60=")
	b.WriteString(formatFloat(w.Sixty))
}
