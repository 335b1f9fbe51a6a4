package exec

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows: relies on /bin/sh")
	}
}

func TestExecuteCapturesStreamsAndExitCode(t *testing.T) {
	skipOnWindows(t)
	runner := Runner{}
	result := runner.Execute(context.Background(), "printf out; printf err >&2; exit 3", time.Second*5)
	if result.Stdout != "out" {
		t.Fatalf("expected stdout %q, got %q", "out", result.Stdout)
	}
	if result.Stderr != "err" {
		t.Fatalf("expected stderr %q, got %q", "err", result.Stderr)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if result.Success() {
		t.Fatalf("expected non-success result")
	}
}

func TestExecuteSuccessVerbatim(t *testing.T) {
	skipOnWindows(t)
	runner := Runner{}
	result := runner.Execute(context.Background(), "echo hello", 0)
	if result.Stdout != "hello\n" {
		t.Fatalf("expected verbatim stdout, got %q", result.Stdout)
	}
	if result.ExitCode != 0 || result.Stderr != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestExecuteTimeout(t *testing.T) {
	skipOnWindows(t)
	runner := Runner{}
	timeout := 300 * time.Millisecond
	started := time.Now()
	result := runner.Execute(context.Background(), "sleep 5", timeout)
	elapsed := time.Since(started)

	if result.ExitCode != -1 {
		t.Fatalf("expected exit code -1, got %d", result.ExitCode)
	}
	if result.Stdout != "" {
		t.Fatalf("expected empty stdout, got %q", result.Stdout)
	}
	if !strings.Contains(result.Stderr, timeout.String()) {
		t.Fatalf("expected timeout value in stderr, got %q", result.Stderr)
	}
	if elapsed > timeout+waitDelay+time.Second {
		t.Fatalf("runner exceeded its deadline: %s", elapsed)
	}
}

func TestExecuteTimeoutKillsChildren(t *testing.T) {
	skipOnWindows(t)
	runner := Runner{}
	started := time.Now()
	// The background sleep keeps stdout open; the group kill must still return promptly.
	result := runner.Execute(context.Background(), "sleep 5 & sleep 5", 200*time.Millisecond)
	if result.ExitCode != -1 {
		t.Fatalf("expected exit code -1, got %d", result.ExitCode)
	}
	if time.Since(started) > 4*time.Second {
		t.Fatalf("runner blocked on orphaned children")
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := Runner{}
	result := runner.Execute(ctx, "echo never", time.Second)
	if result.ExitCode != -1 {
		t.Fatalf("expected exit code -1, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "canceled") {
		t.Fatalf("expected cancellation message, got %q", result.Stderr)
	}
}

func TestExecuteWritesLog(t *testing.T) {
	skipOnWindows(t)
	temp := t.TempDir()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	runner := Runner{
		LogDir: temp,
		Now:    func() time.Time { return fixed },
	}
	result := runner.Execute(context.Background(), "echo hello", time.Second)
	if result.LogPath == "" {
		t.Fatalf("expected log path")
	}
	data, err := os.ReadFile(result.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "$ echo hello") {
		t.Fatalf("missing command in log")
	}
	if !strings.Contains(content, "exit code: 0") {
		t.Fatalf("missing exit code in log: %q", content)
	}
}

func TestExecuteLogsDoNotCollideWithinOneTick(t *testing.T) {
	skipOnWindows(t)
	temp := t.TempDir()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	runner := Runner{
		LogDir: temp,
		Now:    func() time.Time { return fixed },
	}
	first := runner.Execute(context.Background(), "echo first", time.Second)
	second := runner.Execute(context.Background(), "echo second", time.Second)
	if first.LogPath == "" || first.LogPath == second.LogPath {
		t.Fatalf("expected distinct log paths, got %q and %q", first.LogPath, second.LogPath)
	}
	if !strings.HasPrefix(filepath.Base(first.LogPath), "cmd-20250102-030405.000000000-") {
		t.Fatalf("unexpected log name: %s", first.LogPath)
	}
	data, err := os.ReadFile(first.LogPath)
	if err != nil || !strings.Contains(string(data), "$ echo first") {
		t.Fatalf("first log overwritten: %v %q", err, data)
	}
	entries, _ := os.ReadDir(temp)
	if len(entries) != 2 {
		t.Fatalf("expected 2 log files, got %d", len(entries))
	}
}

func TestCommandResultOutputPrefersStdout(t *testing.T) {
	if got := (CommandResult{Stdout: "a", Stderr: "b"}).Output(); got != "a" {
		t.Fatalf("expected stdout, got %q", got)
	}
	if got := (CommandResult{Stderr: "b"}).Output(); got != "b" {
		t.Fatalf("expected stderr fallback, got %q", got)
	}
}
