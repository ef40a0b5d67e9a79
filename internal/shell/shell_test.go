package shell

import (
	"context"
	"strings"
	"testing"
	"time"
)

func runOpts(t *testing.T) Options {
	t.Helper()
	return Options{
		Dir:            t.TempDir(),
		Timeout:        10 * time.Second,
		MaxOutputBytes: 1 << 20,
	}
}

func TestRunEcho(t *testing.T) {
	res, err := Run(context.Background(), "echo hello", runOpts(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "hello\n" {
		t.Errorf("output = %q", res.Output)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit = %d", res.ExitCode)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), "exit 3", runOpts(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(Format(res), "(exit code 3)") {
		t.Errorf("formatted output missing exit code: %q", Format(res))
	}
}

func TestRunCombinesStderr(t *testing.T) {
	res, err := Run(context.Background(), "echo out; echo err 1>&2", runOpts(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("output = %q, want stdout and stderr combined", res.Output)
	}
}

func TestRunTimeout(t *testing.T) {
	opts := runOpts(t)
	opts.Timeout = 100 * time.Millisecond
	res, err := Run(context.Background(), "sleep 5", opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if !strings.Contains(Format(res), "timed out") {
		t.Errorf("formatted output missing timeout note: %q", Format(res))
	}
}

func TestRunTruncates(t *testing.T) {
	opts := runOpts(t)
	opts.MaxOutputBytes = 10
	res, err := Run(context.Background(), "printf '0123456789abcdef'", opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if res.Output != "0123456789" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestRunWorkingDirectory(t *testing.T) {
	opts := runOpts(t)
	res, err := Run(context.Background(), "pwd", opts)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Output) != opts.Dir {
		t.Errorf("pwd = %q, want %q", strings.TrimSpace(res.Output), opts.Dir)
	}
}

func TestRunEmptyCommand(t *testing.T) {
	if _, err := Run(context.Background(), "  ", runOpts(t)); err == nil {
		t.Error("expected validation error")
	}
}

func TestRunSandboxPrefix(t *testing.T) {
	opts := runOpts(t)
	// env(1) as a stand-in sandbox wrapper: it just executes its argv.
	opts.SandboxCommand = "env"
	res, err := Run(context.Background(), "echo sandboxed", opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "sandboxed\n" {
		t.Errorf("output = %q", res.Output)
	}
}
