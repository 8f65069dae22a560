package report

import (
	"testing"
	"time"

	"github.com/deixis/cmdtest/internal/outcome"
	"github.com/deixis/cmdtest/internal/runner"
	"github.com/deixis/cmdtest/internal/spec"
)

func cmd(descr string, argv ...string) spec.Command {
	return spec.Command{Description: descr, Argv: argv, Timeout: time.Second, Expect: spec.Success}
}

var (
	passed = outcome.Outcome{Status: outcome.Pass}
	failed = outcome.Outcome{Status: outcome.Fail, Message: "return code (1) differs from expected (0)"}
)

func TestReport_AddKeepsOrderAndCounts(t *testing.T) {
	r := New("run-1")
	r.Add(cmd("a", "true"), passed, &runner.Result{RunID: "x1", ExitCode: 0, Duration: 10 * time.Millisecond})
	r.Add(cmd("b", "false"), failed, &runner.Result{RunID: "x2", ExitCode: 1, Stderr: []byte("err"), Duration: 20 * time.Millisecond})
	r.Add(cmd("c", "missing"), outcome.Outcome{Status: outcome.Fail, Message: "launch failed"}, nil)

	if r.Total() != 3 {
		t.Errorf("Total = %d, want 3", r.Total())
	}
	if r.Failed() != 2 {
		t.Errorf("Failed = %d, want 2", r.Failed())
	}

	entries := r.Entries()
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].Command.Description != want {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Command.Description, want)
		}
		if entries[i].Index != i {
			t.Errorf("entries[%d].Index = %d", i, entries[i].Index)
		}
	}
	if entries[1].Stderr != "err" || entries[1].ExecID != "x2" {
		t.Errorf("entries[1] = %+v, want captured stderr and exec id", entries[1])
	}
	if entries[2].ExitCode != runner.UndefinedExitCode {
		t.Errorf("entries[2].ExitCode = %d, want undefined for a launch failure", entries[2].ExitCode)
	}
}

func TestReport_Sinks(t *testing.T) {
	var got []string
	sink := SinkFunc(func(e Entry) { got = append(got, e.Name()) })

	r := New("run-1", sink)
	r.Add(cmd("echo-ok", "echo", "hi"), passed, &runner.Result{})
	r.Add(cmd("other", "true"), passed, &runner.Result{})

	if len(got) != 2 || got[0] != "echo-ok: echo hi" || got[1] != "other: true" {
		t.Errorf("sink saw %v", got)
	}
}

func TestReport_Durations(t *testing.T) {
	r := New("run-1")
	if p50, p95, max := r.Durations(); p50 != 0 || p95 != 0 || max != 0 {
		t.Errorf("Durations on empty report = %v %v %v, want zeros", p50, p95, max)
	}

	for i := 1; i <= 10; i++ {
		r.Add(cmd("d", "true"), passed, &runner.Result{Duration: time.Duration(i) * 100 * time.Millisecond})
	}
	p50, p95, max := r.Durations()
	if max != time.Second {
		t.Errorf("max = %v, want 1s", max)
	}
	if p50 < 300*time.Millisecond || p50 > 700*time.Millisecond {
		t.Errorf("p50 = %v, want about 500ms", p50)
	}
	if p95 < p50 || p95 > max {
		t.Errorf("p95 = %v, want between p50 %v and max %v", p95, p50, max)
	}
}

func TestReport_Run(t *testing.T) {
	r := New("run-1")
	r.Add(cmd("a", "true"), passed, &runner.Result{})
	r.Add(cmd("b", "false"), failed, &runner.Result{ExitCode: 1})

	run := r.Run()
	if run.ID != "run-1" || run.Total != 2 || run.Failed != 1 {
		t.Errorf("Run = %+v", run)
	}
	if fails := run.Failures(); len(fails) != 1 || fails[0].Index != 1 {
		t.Errorf("Failures = %+v, want entry 1", fails)
	}
	if _, err := run.Entry(2); err == nil {
		t.Error("Entry(2): expected error")
	}
	e, err := run.Entry(0)
	if err != nil || e.Command.Description != "a" {
		t.Errorf("Entry(0) = %+v, %v", e, err)
	}
}

func TestReport_Summary(t *testing.T) {
	r := New("run-1")
	r.Add(cmd("a", "true"), passed, &runner.Result{Duration: 5 * time.Millisecond})
	r.Add(cmd("b", "false"), failed, &runner.Result{ExitCode: 1, Duration: 5 * time.Millisecond})

	got := r.Summary(false)
	want := `Tests Completed: 2. Failures: 1.

  PASS  a: true
  FAIL  b: false
        return code (1) differs from expected (0)

Duration: p50 5ms, p95 5ms, max 5ms
`
	if got != want {
		t.Errorf("Summary =\n%s\nwant\n%s", got, want)
	}
}
