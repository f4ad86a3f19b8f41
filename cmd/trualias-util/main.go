// trualias-util is a command-line utility for operating on a trualiasd
// configuration and talking to a running daemon.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/docopt/docopt-go"

	"github.com/m3047/trualiasd/internal/config"
	"github.com/m3047/trualiasd/internal/localrpc"
)

const usage = `trualias-util.

Usage:
  trualias-util resolve <localpart> [--domain=<domain>] [--rpc=<path>]
  trualias-util check <config>
  trualias-util stats [--json] <addr>
  trualias-util -h | --help

Options:
  -h --help          Show this help.
  --domain=<domain>  Domain to resolve the localpart against, when the
                      configured processor is domain-sensitive.
  --rpc=<path>        Local RPC socket path [default: /var/run/trualiasd/localrpc-v1].
  --json              Request the jstats form instead of the text stats form.
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], "trualias-util")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch {
	case truthy(opts, "resolve"):
		resolve(opts)
	case truthy(opts, "check"):
		check(opts)
	case truthy(opts, "stats"):
		stats(opts)
	}
}

func truthy(opts docopt.Opts, key string) bool {
	v, err := opts.Bool(key)
	return err == nil && v
}

// trualias-util resolve <localpart> [--domain=<domain>] [--rpc=<path>]
func resolve(opts docopt.Opts) {
	localpart, _ := opts.String("<localpart>")
	rpcPath, _ := opts.String("--rpc")

	req := []string{"Address", localpart}
	if domain, err := opts.String("--domain"); err == nil && domain != "" {
		req = append(req, "Domain", domain)
	}

	c := localrpc.NewClient(rpcPath)
	vs, err := c.Call("Resolve", req...)
	if err != nil {
		fatalf("resolving %q: %v", localpart, err)
	}

	if account := vs.Get("Account"); account != "" {
		fmt.Println(account)
		return
	}
	fmt.Fprintln(os.Stderr, "not found")
	os.Exit(1)
}

// trualias-util check <config>
func check(opts docopt.Opts) {
	path, _ := opts.String("<config>")

	cfg, err := config.Load(path, "")
	if err != nil {
		fatalf("%v", err)
	}
	config.LogConfig(cfg)

	names := make([]string, 0, len(cfg.AccountSpecs))
	for name := range cfg.AccountSpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("%d alias specification(s), %d account(s): %s\n",
		len(cfg.Specs), len(names), strings.Join(names, ", "))
}

// trualias-util stats [--json] <addr>
func stats(opts docopt.Opts) {
	addr, _ := opts.String("<addr>")

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fatalf("dialing %s: %v", addr, err)
	}
	defer conn.Close()

	cmd := "stats"
	if truthy(opts, "--json") {
		cmd = "jstats"
	}
	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		fatalf("writing request: %v", err)
	}

	r := bufio.NewReader(conn)
	var lines []string
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			break
		}
		if len(line) >= 4 && line[3] == ' ' {
			break // the terminal, non-continuation response line
		}
	}

	if truthy(opts, "--json") && len(lines) == 1 {
		var pretty []json.RawMessage
		if err := json.Unmarshal([]byte(lines[0][4:]), &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
			return
		}
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
