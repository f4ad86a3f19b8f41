// trualiasd resolves mail aliases against a small matching DSL and
// serves the result over three protocols: a table-server line
// protocol, a virtual-server line protocol, and a Sendmail milter
// adapter.
//
// See SPEC_FULL.md for the protocols and the configuration DSL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"blitiri.com.ar/go/log"
	"blitiri.com.ar/go/systemd"

	"github.com/m3047/trualiasd/internal/config"
	"github.com/m3047/trualiasd/internal/localrpc"
	"github.com/m3047/trualiasd/internal/processor"
	"github.com/m3047/trualiasd/internal/server"
	"github.com/m3047/trualiasd/internal/statistics"
	"github.com/m3047/trualiasd/internal/verifier"
)

// Command-line flags.
var (
	configDir = flag.String("config_dir", "/etc/trualiasd",
		"configuration directory")
	configOverrides = flag.String("config_overrides", "",
		"override configuration values (in the configuration file's own syntax)")
	localrpcPath = flag.String("localrpc_path", "",
		"path of the local RPC unix socket; empty disables it")
	watchdogInterval = flag.Duration("watchdog_interval", 30*time.Second,
		"how often to check the configuration file for changes; 0 disables it")
	virtualAddr = flag.String("virtual_address", "",
		"address to listen on for the virtual-domain protocol; empty disables it unless provided by systemd")
	milterAddr = flag.String("milter_address", "",
		"address to listen on for the milter protocol; empty disables it unless provided by systemd")
	showVer = flag.Bool("version", false, "show version and exit")
)

// Build information, overridden at build time using
// -ldflags="-X main.version=blah".
var version = "undefined"

func main() {
	flag.Parse()
	log.Init()

	if *showVer {
		fmt.Printf("trualiasd %s\n", version)
		return
	}

	log.Infof("trualiasd starting (version %s)", version)

	configPath := path.Join(*configDir, "trualiasd.conf")
	cfg, err := config.Load(configPath, *configOverrides)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	config.LogConfig(cfg)

	holder := &config.Holder{}
	holder.Store(cfg)

	procs := processor.NewRegistry()
	procs.Register("shell", &processor.ShellHook{
		PreprocessHook:  path.Join(*configDir, "hooks", "alias-preprocess"),
		PostprocessHook: path.Join(*configDir, "hooks", "alias-postprocess"),
	})

	var stats *statistics.Factory
	if cfg.StatisticsEnabled {
		stats = statistics.NewFactory()
		stats.NewCollector("resolve")
	}

	systemdLs, err := systemd.Listeners()
	if err != nil {
		log.Fatalf("Error getting systemd listeners: %v", err)
	}

	srv := &server.Server{
		Config:     holder,
		Processors: procs,
		Stats:      stats,

		TableListeners:   systemdLs["trualiasd-table"],
		VirtualListeners: systemdLs["trualiasd-virtual"],
		MilterListeners:  systemdLs["trualiasd-milter"],

		NewVerifier: func(cfg *config.Configuration) verifier.Verifier {
			return &verifier.SMTP{
				Addr:        fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
				HelloDomain: cfg.LocalHost,
			}
		},

		WatchdogInterval: *watchdogInterval,
		ConfigPath:       configPath,
		ConfigOverrides:  *configOverrides,
	}

	if cfg.Port != 0 {
		srv.TableAddrs = append(srv.TableAddrs, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	}
	if *virtualAddr != "" {
		srv.VirtualAddrs = append(srv.VirtualAddrs, *virtualAddr)
	}
	if *milterAddr != "" {
		srv.MilterAddrs = append(srv.MilterAddrs, *milterAddr)
	}

	if *localrpcPath != "" {
		rpc := localrpc.NewServer()
		srv.RegisterRPC(rpc)
		go func() {
			if err := rpc.ListenAndServe(*localrpcPath); err != nil {
				log.Errorf("local RPC server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go signalHandler(cancel)

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func signalHandler(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for sig := range signals {
		switch sig {
		case syscall.SIGHUP:
			log.Infof("SIGHUP received, reopening log files")
			if err := log.Default.Reopen(); err != nil {
				log.Errorf("Error reopening log: %v", err)
			}
		case syscall.SIGINT, syscall.SIGTERM:
			log.Infof("%v received, shutting down", sig)
			cancel()
			return
		}
	}
}
