package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Wait keeps draining pipes after the process group
// was killed; grandchildren holding the pipes open must not stall the caller.
const waitDelay = 2 * time.Second

type Runner struct {
	DefaultTimeout time.Duration
	LogDir         string
	Now            func() time.Time
}

// CommandResult is the outcome of one shell command. ExitCode is -1 when the
// command never produced an exit status (timeout, cancellation, start failure).
type CommandResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	LogPath  string
}

func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output prefers stdout and falls back to stderr.
func (r CommandResult) Output() string {
	if r.Stdout != "" {
		return r.Stdout
	}
	return r.Stderr
}

// Execute runs command through the host shell. It never returns an error:
// every failure is encoded in the result.
func (r *Runner) Execute(ctx context.Context, command string, timeout time.Duration) CommandResult {
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	result := CommandResult{Command: command}
	if ctx.Err() != nil {
		result.Stderr = fmt.Sprintf("command canceled: %v", ctx.Err())
		result.ExitCode = -1
		return r.finish(result)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(runCtx, command)
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := now()
	err := cmd.Run()
	result.Duration = now().Sub(started)

	switch {
	case err == nil:
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		result.Stderr = fmt.Sprintf("command timed out after %s", timeout)
		result.ExitCode = -1
	case ctx.Err() != nil:
		result.Stderr = fmt.Sprintf("command canceled: %v", ctx.Err())
		result.ExitCode = -1
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Stdout = stdout.String()
			result.Stderr = stderr.String()
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.Stderr = err.Error()
			result.ExitCode = -1
		}
	}
	return r.finish(result)
}

func (r *Runner) finish(result CommandResult) CommandResult {
	if r.LogDir == "" {
		return result
	}
	if logPath, err := r.writeLog(result); err == nil {
		result.LogPath = logPath
	}
	return result
}

func (r *Runner) writeLog(result CommandResult) (string, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	timestamp := now().UTC().Format("20060102-150405.000000000")
	if err := os.MkdirAll(r.LogDir, 0o700); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	// Parallel tool calls can finish within one clock tick; the random
	// suffix keeps their logs apart.
	f, err := os.CreateTemp(r.LogDir, "cmd-"+timestamp+"-*.log")
	if err != nil {
		return "", fmt.Errorf("create log: %w", err)
	}
	content := fmt.Sprintf("$ %s\n\n%s\n--- stderr ---\n%s\n--- exit code: %d (%s) ---\n",
		result.Command, result.Stdout, result.Stderr, result.ExitCode, result.Duration.Round(time.Millisecond))
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write log: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write log: %w", err)
	}
	return f.Name(), nil
}
