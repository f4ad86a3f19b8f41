package processor

import (
	"context"
	"expvar"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/m3047/trualiasd/internal/trace"
)

var hookResults = expvar.NewMap("trualiasd/processor/hookResults")

// hookTimeout bounds each shelled-out pre/post hook call.
const hookTimeout = 5 * time.Second

// ShellHook is a Processor that shells out to two configured
// executables, one for preprocessing and one for postprocessing. Each
// is invoked as `hook alias domain`, and is expected to print
// "localpart domain" (space separated) on stdout; if it prints nothing,
// or fails, or isn't set, the input passes through unchanged.
type ShellHook struct {
	PreprocessHook  string
	PostprocessHook string
}

func (s *ShellHook) Preprocess(alias, domain string) (string, string) {
	return runHook("preprocess", s.PreprocessHook, alias, domain)
}

func (s *ShellHook) Postprocess(account, domain string) (string, string) {
	return runHook("postprocess", s.PostprocessHook, account, domain)
}

// Reload is a no-op: shell hooks are re-stat'd and re-exec'd on every
// call, so there's no cached state to refresh.
func (s *ShellHook) Reload() error {
	return nil
}

func runHook(kind, hook, localpart, domain string) (string, string) {
	if hook == "" {
		hookResults.Add(kind+":notset", 1)
		return localpart, domain
	}
	if _, err := os.Stat(hook); os.IsNotExist(err) {
		hookResults.Add(kind+":skip", 1)
		return localpart, domain
	}

	tr := trace.New("Hook.Processor-"+kind, localpart+"@"+domain)
	defer tr.Finish()

	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, hook, localpart, domain)

	outb, err := cmd.Output()
	out := strings.TrimSpace(string(outb))
	tr.Debugf("stdout: %q", out)
	if err != nil {
		hookResults.Add(kind+":fail", 1)
		tr.Error(err)
		return localpart, domain
	}
	if out == "" {
		hookResults.Add(kind+":empty", 1)
		return localpart, domain
	}

	fields := strings.Fields(out)
	switch len(fields) {
	case 1:
		hookResults.Add(kind+":success", 1)
		return fields[0], domain
	case 2:
		hookResults.Add(kind+":success", 1)
		return fields[0], fields[1]
	default:
		hookResults.Add(kind+":malformed", 1)
		return localpart, domain
	}
}
