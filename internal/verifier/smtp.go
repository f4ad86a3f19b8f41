package verifier

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/m3047/trualiasd/internal/smtp"
)

// dialTimeout bounds the connect phase; the overall Verify call is
// additionally bounded by ctx, per spec's 10-second milter verifier
// timeout.
const dialTimeout = 10 * time.Second

// SMTP verifies addresses against a fixed upstream MTA by priming a
// persistent connection with EHLO and then issuing VRFY -- grounded on
// the teacher's internal/courier/smtp.go dial/greet pattern, but built
// for a single long-lived diagnostic connection instead of one-shot
// mail delivery.
type SMTP struct {
	Addr        string // "host:port"
	HelloDomain string

	conn net.Conn
	c    *smtp.Client
}

// Dial establishes and greets the upstream connection. Call once per
// milter connection; Close releases it.
func (s *SMTP) Dial(ctx context.Context) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("verifier: dial %s: %w", s.Addr, err)
	}
	host, _, _ := net.SplitHostPort(s.Addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("verifier: smtp handshake with %s: %w", s.Addr, err)
	}
	if err := c.Hello(s.HelloDomain); err != nil {
		conn.Close()
		return fmt.Errorf("verifier: EHLO to %s: %w", s.Addr, err)
	}
	s.conn = conn
	s.c = c
	return nil
}

// Close tears down the upstream connection.
func (s *SMTP) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// Verify issues VRFY for address, classifying 2xx as Accept, 550 as
// Reject, and anything else as a fatal Error -- per spec §6.5.
func (s *SMTP) Verify(ctx context.Context, address string) (Result, error) {
	if s.c == nil {
		if err := s.Dial(ctx); err != nil {
			return Reject, err
		}
	}
	if dl, ok := ctx.Deadline(); ok {
		s.conn.SetDeadline(dl)
		defer s.conn.SetDeadline(time.Time{})
	}

	code, msg, err := s.c.Vrfy(address)
	if err != nil {
		return Reject, fmt.Errorf("verifier: VRFY %s: %w", address, err)
	}
	switch {
	case code >= 200 && code < 300:
		return Accept, nil
	case code == 550:
		return Reject, nil
	default:
		return Reject, &Error{Address: address, Detail: fmt.Sprintf("%d %s", code, msg)}
	}
}
