package processor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeHookScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell hooks are not supported on windows")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestShellHookPreprocessRewritesBoth(t *testing.T) {
	dir := t.TempDir()
	hook := writeHookScript(t, dir, "pre.sh", `echo "rewritten other.example"`)

	s := &ShellHook{PreprocessHook: hook}
	alias, domain := s.Preprocess("foo", "example.com")
	if alias != "rewritten" || domain != "other.example" {
		t.Fatalf("Preprocess = (%q, %q), want (rewritten, other.example)", alias, domain)
	}
}

func TestShellHookPostprocessRewritesLocalpartOnly(t *testing.T) {
	dir := t.TempDir()
	hook := writeHookScript(t, dir, "post.sh", `echo "account42"`)

	s := &ShellHook{PostprocessHook: hook}
	account, domain := s.Postprocess("foo", "example.com")
	if account != "account42" || domain != "example.com" {
		t.Fatalf("Postprocess = (%q, %q), want (account42, example.com)", account, domain)
	}
}

func TestShellHookUnsetPassesThrough(t *testing.T) {
	s := &ShellHook{}
	alias, domain := s.Preprocess("foo", "example.com")
	if alias != "foo" || domain != "example.com" {
		t.Fatalf("Preprocess = (%q, %q), want unchanged", alias, domain)
	}
}

func TestShellHookFailurePassesThrough(t *testing.T) {
	dir := t.TempDir()
	hook := writeHookScript(t, dir, "fail.sh", `exit 1`)

	s := &ShellHook{PreprocessHook: hook}
	alias, domain := s.Preprocess("foo", "example.com")
	if alias != "foo" || domain != "example.com" {
		t.Fatalf("Preprocess = (%q, %q), want unchanged on hook failure", alias, domain)
	}
}

func TestShellHookMissingFilePassesThrough(t *testing.T) {
	s := &ShellHook{PreprocessHook: filepath.Join(t.TempDir(), "does-not-exist.sh")}
	alias, domain := s.Preprocess("foo", "example.com")
	if alias != "foo" || domain != "example.com" {
		t.Fatalf("Preprocess = (%q, %q), want unchanged for a missing hook", alias, domain)
	}
}
