package server

import (
	"context"
	"os"
	"time"

	"blitiri.com.ar/go/log"

	"github.com/m3047/trualiasd/internal/config"
)

// watchdog polls ConfigPath's mtime every WatchdogInterval and reloads
// when it moves forward, the same poll-and-reload shape as the
// teacher's periodicallyReload, but reloading only when the single
// configuration file's timestamp advances rather than on every tick.
func (s *Server) watchdog(ctx context.Context) error {
	ticker := time.NewTicker(s.WatchdogInterval)
	defer ticker.Stop()

	var lastMod time.Time
	if fi, err := os.Stat(s.ConfigPath); err == nil {
		lastMod = fi.ModTime()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fi, err := os.Stat(s.ConfigPath)
			if err != nil {
				log.Errorf("server: watchdog: stat %s: %v", s.ConfigPath, err)
				continue
			}
			if !fi.ModTime().After(lastMod) {
				continue
			}
			lastMod = fi.ModTime()
			s.Reload()
		}
	}
}

// Reload loads the configuration file afresh and, on success, publishes
// it for every connection handler to pick up. A bad edit is logged and
// the previously running configuration stays in effect -- an operator
// editing the table file shouldn't be able to take the daemon down.
func (s *Server) Reload() {
	newCfg, err := config.Load(s.ConfigPath, s.ConfigOverrides)
	if err != nil {
		log.Errorf("server: reload %s: %v; keeping previous configuration", s.ConfigPath, err)
		return
	}

	if cfg := s.Config.Load(); cfg != nil && cfg.Fingerprint() == newCfg.Fingerprint() {
		return
	}

	config.LogConfig(newCfg)
	s.Config.Store(newCfg)
	log.Infof("server: reloaded configuration from %s", s.ConfigPath)
}
