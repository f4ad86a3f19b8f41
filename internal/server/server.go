// Package server runs the table-server, virtual-server, and milter
// listeners against a shared, hot-swappable Configuration.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"blitiri.com.ar/go/log"
	"golang.org/x/sync/errgroup"

	"github.com/m3047/trualiasd/internal/config"
	"github.com/m3047/trualiasd/internal/processor"
	"github.com/m3047/trualiasd/internal/statistics"
	"github.com/m3047/trualiasd/internal/verifier"
)

// Server holds everything needed to run the three listeners: the
// shared config Holder they all read from, the addresses/listeners to
// serve, and the collaborators (statistics, processor registry,
// verifier factory) each connection handler needs.
type Server struct {
	Config *config.Holder

	TableAddrs   []string
	VirtualAddrs []string
	MilterAddrs  []string

	// Listeners populated by ListenAndServe; exposed so systemd-provided
	// listeners can be appended before calling it.
	TableListeners   []net.Listener
	VirtualListeners []net.Listener
	MilterListeners  []net.Listener

	Stats      *statistics.Factory
	Processors *processor.Registry

	// NewVerifier builds a fresh Verifier for one milter connection
	// from the current Configuration (e.g. dialing the configured SMTP
	// HOST:PORT and priming it with EHLO).
	NewVerifier func(*config.Configuration) verifier.Verifier

	// WatchdogInterval is how often the config file's mtime is polled
	// for changes; zero disables the watchdog.
	WatchdogInterval time.Duration
	ConfigPath       string
	ConfigOverrides  string
}

// resolveWithProcessor runs the configured pre/post-processor around a
// plain resolver lookup: Preprocess transforms the candidate localpart/
// domain before matching, Postprocess transforms the resolved account
// before it's handed back to the caller (the domain Postprocess returns
// is not used).
func resolveWithProcessor(cfg *config.Configuration, proc processor.Processor, localpart, domain string) string {
	if proc != nil {
		localpart, domain = proc.Preprocess(localpart, domain)
	}
	account := cfg.Resolver.Resolve(localpart)
	if account == "" {
		return ""
	}
	if proc != nil {
		account, _ = proc.Postprocess(account, domain)
	}
	return account
}

func (s *Server) lookupProcessor(cfg *config.Configuration) processor.Processor {
	proc, err := s.Processors.Lookup(cfg.Processor)
	if err != nil {
		log.Errorf("server: processor %q: %v", cfg.Processor, err)
		return nil
	}
	return proc
}

// ListenAndServe opens every configured address, then runs the table,
// virtual, and milter accept loops (plus the config watchdog, if
// enabled) until ctx is cancelled or one of them fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.listen(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, l := range s.TableListeners {
		l := l
		g.Go(func() error {
			return acceptLoop(ctx, l, s.handleTableConn)
		})
	}
	for _, l := range s.VirtualListeners {
		l := l
		g.Go(func() error {
			return acceptLoop(ctx, l, s.handleVirtualConn)
		})
	}
	for _, l := range s.MilterListeners {
		l := l
		g.Go(func() error {
			return acceptLoop(ctx, l, s.handleMilterConn)
		})
	}
	if s.WatchdogInterval > 0 {
		g.Go(func() error {
			return s.watchdog(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.closeListeners()
		return nil
	})

	return g.Wait()
}

func (s *Server) listen() error {
	for _, addr := range s.TableAddrs {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("server: listen table %s: %w", addr, err)
		}
		log.Infof("server: table listening on %s", addr)
		s.TableListeners = append(s.TableListeners, l)
	}
	for _, addr := range s.VirtualAddrs {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("server: listen virtual %s: %w", addr, err)
		}
		log.Infof("server: virtual listening on %s", addr)
		s.VirtualListeners = append(s.VirtualListeners, l)
	}
	for _, addr := range s.MilterAddrs {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("server: listen milter %s: %w", addr, err)
		}
		log.Infof("server: milter listening on %s", addr)
		s.MilterListeners = append(s.MilterListeners, l)
	}
	return nil
}

func (s *Server) closeListeners() {
	for _, l := range s.TableListeners {
		l.Close()
	}
	for _, l := range s.VirtualListeners {
		l.Close()
	}
	for _, l := range s.MilterListeners {
		l.Close()
	}
}

// acceptLoop accepts connections from l and runs handle for each in its
// own goroutine, until ctx is cancelled (in which case Accept's error
// is swallowed, since it's just the listener being closed underneath
// us) or Accept fails for some other reason.
func acceptLoop(ctx context.Context, l net.Listener, handle func(context.Context, net.Conn)) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("server: accept on %s: %w", l.Addr(), err)
		}
		go handle(ctx, conn)
	}
}
