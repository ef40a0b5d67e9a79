// Package shell runs the bash tool: a single command executed in the
// workspace with a wall-clock timeout, combined output capped at a
// configured byte limit, and an optional sandbox wrapper command.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jpl-au/coderd/internal/coderr"
)

// Options configures a command execution.
type Options struct {
	Dir            string        // working directory (the workspace root)
	Timeout        time.Duration // wall-clock budget; required
	MaxOutputBytes int           // combined stdout+stderr cap; zero means no cap
	// SandboxCommand, when non-empty, is split on whitespace and prefixed
	// to the bash invocation, e.g. "firejail --quiet".
	SandboxCommand string
}

// Result is the outcome of a command execution.
type Result struct {
	Output    string // combined stdout+stderr, possibly truncated
	ExitCode  int
	Truncated bool
	TimedOut  bool
}

// Run executes command with `bash -c` under opts. A non-zero exit status is
// not an error; it is reported in the Result so the orchestrating LLM can
// react to it. Only failures to execute at all return an error.
func Run(ctx context.Context, command string, opts Options) (Result, error) {
	if strings.TrimSpace(command) == "" {
		return Result{}, coderr.New(coderr.InvalidParams, "command is required")
	}
	if opts.Timeout <= 0 {
		return Result{}, coderr.New(coderr.InvalidParams, "timeout must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	argv := []string{"bash", "-c", command}
	if opts.SandboxCommand != "" {
		argv = append(strings.Fields(opts.SandboxCommand), argv...)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	out, err := cmd.CombinedOutput()

	res := Result{Output: string(out)}
	if opts.MaxOutputBytes > 0 && len(res.Output) > opts.MaxOutputBytes {
		res.Output = res.Output[:opts.MaxOutputBytes]
		res.Truncated = true
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return Result{}, coderr.Wrap(coderr.IO, err, "execute command")
	}
	return res, nil
}

// Format renders a Result as tool output text.
func Format(r Result) string {
	var b strings.Builder
	b.WriteString(r.Output)
	if r.Truncated {
		b.WriteString("\n... output truncated")
	}
	if r.TimedOut {
		b.WriteString("\n(command timed out)")
	}
	if r.ExitCode != 0 && !r.TimedOut {
		fmt.Fprintf(&b, "\n(exit code %d)", r.ExitCode)
	}
	return b.String()
}
