// Package metrics records Prometheus metrics for a test batch and
// exports them in the text exposition format, suitable for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/deixis/cmdtest/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Recorder holds the batch collectors on a private registry. It
// implements report.Sink.
type Recorder struct {
	registry *prometheus.Registry

	commands     *prometheus.CounterVec
	timeouts     prometheus.Counter
	launchErrors prometheus.Counter
	duration     *prometheus.HistogramVec
	lastRun      prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdtest_commands_total",
				Help: "Commands executed, by verdict and expectation",
			},
			[]string{"status", "expected"},
		),
		timeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cmdtest_command_timeouts_total",
				Help: "Commands killed at their timeout",
			},
		),
		launchErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cmdtest_command_launch_errors_total",
				Help: "Commands that could not be started",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmdtest_command_duration_seconds",
				Help:    "Wall-clock time of launched commands",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8), // 5ms .. ~82s
			},
			[]string{"status"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cmdtest_last_run_timestamp_seconds",
				Help: "Unix time the last command finished",
			},
		),
	}
	r.registry.MustRegister(r.commands, r.timeouts, r.launchErrors, r.duration, r.lastRun)
	return r
}

// Registry returns the registry the collectors are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record implements report.Sink.
func (r *Recorder) Record(e report.Entry) {
	status := string(e.Outcome.Status)
	r.commands.WithLabelValues(status, string(e.Command.Expect)).Inc()
	if e.TimedOut {
		r.timeouts.Inc()
	}
	if !e.Launched {
		r.launchErrors.Inc()
	} else {
		r.duration.WithLabelValues(status).Observe(e.Duration.Seconds())
	}
	r.lastRun.SetToCurrentTime()
}

// Encode writes all gathered families in the text exposition format.
func (r *Recorder) Encode(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the metrics to path through a temp file in the same
// directory, renamed into place so collectors never read a partial file.
func (r *Recorder) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := r.Encode(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	return nil
}
