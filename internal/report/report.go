package report

import (
	"sync"
	"time"

	"github.com/deixis/cmdtest/internal/outcome"
	"github.com/deixis/cmdtest/internal/runner"
	"github.com/deixis/cmdtest/internal/spec"
	"github.com/influxdata/tdigest"
)

// Entry pairs a command with its outcome and what its execution captured.
type Entry struct {
	Index    int             `json:"index"`
	Command  spec.Command    `json:"command"`
	Outcome  outcome.Outcome `json:"outcome"`
	ExecID   string          `json:"exec_id,omitempty"`
	ExitCode int             `json:"exit_code"`
	TimedOut bool            `json:"timed_out,omitempty"`
	Launched bool            `json:"launched"`
	Duration time.Duration   `json:"duration"`
	Stdout   string          `json:"stdout,omitempty"`
	Stderr   string          `json:"stderr,omitempty"`
}

// Name is the test case name used in reports: "description: command".
func (e Entry) Name() string {
	return e.Command.Description + ": " + e.Command.String()
}

// Sink receives every entry as it is added to a Report.
type Sink interface {
	Record(e Entry)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(e Entry)

// Record calls f(e).
func (f SinkFunc) Record(e Entry) { f(e) }

// Report accumulates outcomes in input order. It is written once and
// then discarded or saved to a Store.
type Report struct {
	mu      sync.Mutex
	id      string
	started time.Time
	entries []Entry
	failed  int
	sinks   []Sink

	durations   *tdigest.TDigest // nanoseconds
	timed       int
	maxDuration time.Duration
	written     bool
}

// New creates an empty report. Every added entry is forwarded to sinks.
func New(id string, sinks ...Sink) *Report {
	return &Report{
		id:        id,
		started:   time.Now(),
		sinks:     sinks,
		durations: tdigest.NewWithCompression(100),
	}
}

// ID returns the run identifier the report was created with.
func (r *Report) ID() string { return r.id }

// Add appends the outcome of the next command. res is nil when the
// command could not be launched.
func (r *Report) Add(cmd spec.Command, out outcome.Outcome, res *runner.Result) Entry {
	r.mu.Lock()
	e := Entry{
		Index:    len(r.entries),
		Command:  cmd,
		Outcome:  out,
		ExitCode: runner.UndefinedExitCode,
	}
	if res != nil {
		e.Launched = true
		e.ExecID = res.RunID
		e.ExitCode = res.ExitCode
		e.TimedOut = res.TimedOut
		e.Duration = res.Duration
		e.Stdout = string(res.Stdout)
		e.Stderr = string(res.Stderr)

		r.durations.Add(float64(res.Duration.Nanoseconds()), 1)
		r.timed++
		if res.Duration > r.maxDuration {
			r.maxDuration = res.Duration
		}
	}
	r.entries = append(r.entries, e)
	if !out.Passed() {
		r.failed++
	}
	sinks := r.sinks
	r.mu.Unlock()

	for _, s := range sinks {
		s.Record(e)
	}
	return e
}

// Entries returns a copy of the entries in input order.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Total returns the number of commands recorded.
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Failed returns the number of failed commands.
func (r *Report) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Durations returns the median and 95th percentile execution time, and
// the maximum. All are zero when nothing ran.
func (r *Report) Durations() (p50, p95, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timed == 0 {
		return 0, 0, 0
	}
	return time.Duration(r.durations.Quantile(0.50)), time.Duration(r.durations.Quantile(0.95)), r.maxDuration
}

// Run returns the storable form of the report.
func (r *Report) Run() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Run{
		ID:       r.id,
		Started:  r.started,
		Finished: time.Now(),
		Total:    len(r.entries),
		Failed:   r.failed,
		Entries:  append([]Entry(nil), r.entries...),
	}
}
