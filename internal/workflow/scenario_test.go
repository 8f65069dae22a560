package workflow

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/deixis/cmdtest/internal/config"
	"github.com/deixis/cmdtest/internal/outcome"
	"github.com/deixis/cmdtest/internal/runner"
)

// These scenarios run real processes through runner.Runner.

func newRealEngine(t *testing.T) *Engine {
	t.Helper()
	return &Engine{
		Config: &config.Config{},
		Runner: &runner.Runner{Workspace: t.TempDir(), Timeout: config.DefaultTimeout, MaxOutput: config.DefaultMaxOutput},
	}
}

func TestScenario_EchoOK(t *testing.T) {
	rep, err := newRealEngine(t).RunSpec(context.Background(),
		[]byte(`[{description: echo-ok, command: echo, args: [hi], timeout: 2, returncode: 0}]`))
	if err != nil {
		t.Fatalf("RunSpec: %v", err)
	}
	if rep.Failed() != 0 {
		t.Fatalf("Failed = %d, want 0: %+v", rep.Failed(), rep.Entries())
	}

	var buf bytes.Buffer
	if err := rep.WriteJUnit(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `tests="1" failures="0" errors="0"`) {
		t.Errorf("report = %s", buf.String())
	}
	if !strings.Contains(buf.String(), `<testcase name=" echo-ok: echo hi "/>`) {
		t.Errorf("report = %s", buf.String())
	}
}

func TestScenario_SleepTimeout(t *testing.T) {
	start := time.Now()
	rep, err := newRealEngine(t).RunSpec(context.Background(),
		[]byte(`[{description: sleep-timeout, command: sleep, args: [5], timeout: 1, returncode: 0, expected: timeout}]`))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("RunSpec: %v", err)
	}
	entries := rep.Entries()
	if entries[0].Outcome.Status != outcome.Pass {
		t.Errorf("Status = %q (%s), want pass", entries[0].Outcome.Status, entries[0].Outcome.Message)
	}
	if !entries[0].TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if elapsed > 3*time.Second {
		t.Errorf("batch took %v, want about 1s", elapsed)
	}
}

func TestScenario_NegativeTimeout(t *testing.T) {
	rep, err := newRealEngine(t).RunSpec(context.Background(),
		[]byte(`[{description: neg, command: sleep, args: [5], timeout: -1, returncode: 0, expected: timeout}]`))
	if err != nil {
		t.Fatalf("RunSpec: %v", err)
	}
	if rep.Failed() != 0 {
		t.Errorf("Failed = %d, want 0: %+v", rep.Failed(), rep.Entries())
	}
}

func TestScenario_BadExecutable(t *testing.T) {
	rep, err := newRealEngine(t).RunSpec(context.Background(),
		[]byte(`[{description: bad-exe, command: nonexistent_cmd_xyz, timeout: 1, returncode: 0}]`))
	if err != nil {
		t.Fatalf("RunSpec: %v", err)
	}
	entries := rep.Entries()
	if entries[0].Outcome.Status != outcome.Fail {
		t.Fatalf("Status = %q, want fail", entries[0].Outcome.Status)
	}
	msg := entries[0].Outcome.Message
	if !strings.Contains(msg, "launch failed") || !strings.Contains(msg, "not found") {
		t.Errorf("Message = %q, want a launch/not-found message", msg)
	}
}

func TestScenario_ExpectedFailure(t *testing.T) {
	rep, err := newRealEngine(t).RunSpec(context.Background(),
		[]byte(`[{description: fails, command: [sh, -c, "exit 4"], timeout: 2, returncode: 0, expected: failure}]`))
	if err != nil {
		t.Fatalf("RunSpec: %v", err)
	}
	if rep.Failed() != 0 {
		t.Errorf("Failed = %d, want 0: %+v", rep.Failed(), rep.Entries())
	}
}

func TestScenario_StderrExcerpt(t *testing.T) {
	rep, err := newRealEngine(t).RunSpec(context.Background(),
		[]byte(`[{description: noisy, command: [sh, -c, "printf 'abcdefghijklmnopqrstuvwxyz0123456789' >&2; exit 1"], timeout: 2, returncode: 0}]`))
	if err != nil {
		t.Fatalf("RunSpec: %v", err)
	}
	msg := rep.Entries()[0].Outcome.Message
	want := "return code (1) differs from expected (0); stderr: (abcdefghijklmnopqrstuvwxyz012345...)"
	if msg != want {
		t.Errorf("Message = %q, want %q", msg, want)
	}
}
