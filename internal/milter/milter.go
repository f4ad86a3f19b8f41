package milter

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"blitiri.com.ar/go/log"

	"github.com/m3047/trualiasd/internal/verifier"
)

// VerifierTimeout bounds each RCPT's external verifier call (spec: the
// milter's verifier call carries a 10-second timeout).
const VerifierTimeout = 10 * time.Second

// recipient is the target of one RCPT command, tracked across the
// connection until EOB so the rewrite can be emitted.
type recipient struct {
	rcpt  string // original "<local@domain>"
	local string
	domain string
	alias string // final "<local@domain>" to use, == rcpt if unchanged
}

func parseRecipient(rcpt string) (r recipient, ok bool) {
	r.rcpt = rcpt
	inner := rcpt
	if i := strings.IndexByte(inner, '<'); i >= 0 {
		inner = inner[i+1:]
	}
	if i := strings.LastIndexByte(inner, '>'); i >= 0 {
		inner = inner[:i]
	}
	at := strings.LastIndexByte(inner, '@')
	if at < 0 {
		return r, false
	}
	r.local = strings.TrimSpace(inner[:at])
	r.domain = strings.TrimSpace(inner[at+1:])
	if r.local == "" || r.domain == "" {
		return r, false
	}
	r.alias = rcpt
	return r, true
}

// Server is one milter adapter instance: the local-delivery domain set
// and resolver are shared across connections, the per-connection state
// (negotiated extensions, pending recipients) lives in conn.
type Server struct {
	// LocalDomains is the set of domains (lowercase) for which alias
	// expansion is attempted; anything else passes through unchanged.
	LocalDomains map[string]bool

	// Resolve maps a localpart to its delivery account, or "" if it
	// doesn't resolve to anything.
	Resolve func(address string) string

	// Verifier is consulted with the (possibly aliased) full address
	// before a recipient is accepted.
	Verifier verifier.Verifier
}

type conn struct {
	srv                *Server
	negotiatedProtoExt uint32
	recipients         []recipient
}

// ServeConn runs the milter protocol loop on c until it closes or ctx
// is cancelled. It never returns a non-nil error for a clean peer
// close (io.EOF reading the next command).
func (s *Server) ServeConn(ctx context.Context, c net.Conn) error {
	defer c.Close()
	go func() {
		<-ctx.Done()
		c.Close()
	}()

	st := &conn{srv: s}
	for {
		cmd, err := ReadCommand(c)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("milter: read command: %w", err)
		}
		if err := st.dispatch(ctx, c, cmd); err != nil {
			return err
		}
	}
}

// handled is the set of commands that emit their own, command-specific
// reply (or sequence of replies) rather than a plain ActionContinue.
var handled = map[byte]bool{OptNeg: true, Rcpt: true, EOB: true}

func (st *conn) dispatch(ctx context.Context, w io.Writer, cmd Command) error {
	switch cmd.Code {
	case OptNeg:
		if err := st.handleOptNeg(w, cmd.Payload); err != nil {
			return err
		}
	case Rcpt:
		if err := st.handleRcpt(ctx, w, cmd.Payload); err != nil {
			return err
		}
	case EOB:
		if err := st.handleEOB(w); err != nil {
			return err
		}
	}

	if contextReset[cmd.Code] {
		st.recipients = nil
	}
	if handled[cmd.Code] {
		return nil
	}
	if mask, ok := noReplyMask[cmd.Code]; ok && st.negotiatedProtoExt&mask != 0 {
		return nil
	}
	return WriteCommand(w, ActionContinue, nil, nil)
}

func (st *conn) handleOptNeg(w io.Writer, payload []byte) error {
	if len(payload) < 12 {
		return fmt.Errorf("milter: OPTNEG payload too short")
	}
	version := binary.BigEndian.Uint32(payload[0:4])
	if version != Version {
		return fmt.Errorf("milter: need protocol version %d, offered %d", Version, version)
	}
	actionsOffered := binary.BigEndian.Uint32(payload[4:8])
	if actionsOffered&RequiredActions != RequiredActions {
		return fmt.Errorf("milter: need actions %#x, offered %#x", RequiredActions, actionsOffered&RequiredActions)
	}
	protoExtsOffered := binary.BigEndian.Uint32(payload[8:12])
	st.negotiatedProtoExt = protoExtsOffered & OfferedProtoExts

	data := make([]byte, 12)
	binary.BigEndian.PutUint32(data[0:4], Version)
	binary.BigEndian.PutUint32(data[4:8], RequiredActions)
	binary.BigEndian.PutUint32(data[8:12], st.negotiatedProtoExt)
	return WriteCommand(w, OptNeg, nil, data)
}

func (st *conn) handleRcpt(ctx context.Context, w io.Writer, payload []byte) error {
	for _, s := range UnpackStrings(payload) {
		if s == "" {
			continue
		}
		r, ok := parseRecipient(s)
		if !ok {
			// Parse errors on a recipient string pass it through
			// unchanged rather than fail the connection.
			st.recipients = append(st.recipients, recipient{rcpt: s, alias: s})
			continue
		}

		if !st.srv.LocalDomains[strings.ToLower(r.domain)] {
			r.alias = r.rcpt
		} else if account := st.srv.Resolve(r.local); account != "" {
			r.alias = "<" + account + "@" + r.domain + ">"
		} else {
			r.alias = r.rcpt
		}

		vctx, cancel := context.WithTimeout(ctx, VerifierTimeout)
		result, err := st.srv.Verifier.Verify(vctx, strings.Trim(r.alias, "<>"))
		cancel()
		if err != nil {
			log.Errorf("milter: verifier error for %s: %v", r.alias, err)
			return fmt.Errorf("milter: verifier error: %w", err)
		}

		st.recipients = append(st.recipients, r)
		if result == verifier.Accept {
			if err := WriteCommand(w, ActionContinue, nil, nil); err != nil {
				return err
			}
		} else {
			if err := WriteCommand(w, ActionReject, nil, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (st *conn) handleEOB(w io.Writer) error {
	for _, r := range st.recipients {
		if r.alias == r.rcpt {
			continue
		}
		if err := WriteCommand(w, ActionDelRcpt, []string{r.rcpt}, nil); err != nil {
			return err
		}
		if err := WriteCommand(w, ActionAddRcpt, []string{r.alias}, nil); err != nil {
			return err
		}
	}
	return WriteCommand(w, ActionContinue, nil, nil)
}
