package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deixis/cmdtest/internal/outcome"
	"github.com/deixis/cmdtest/internal/report"
	"github.com/deixis/cmdtest/internal/spec"
	dto "github.com/prometheus/client_model/go"
)

func entry(status outcome.Status, expect spec.Expectation, launched, timedOut bool) report.Entry {
	return report.Entry{
		Command:  spec.Command{Description: "d", Argv: []string{"true"}, Expect: expect},
		Outcome:  outcome.Outcome{Status: status},
		Launched: launched,
		TimedOut: timedOut,
		Duration: 50 * time.Millisecond,
	}
}

func TestRecorder_Record(t *testing.T) {
	r := New()
	r.Record(entry(outcome.Pass, spec.Success, true, false))
	r.Record(entry(outcome.Pass, spec.Timeout, true, true))
	r.Record(entry(outcome.Fail, spec.Success, false, false))

	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"cmdtest_commands_total", map[string]string{"status": "pass", "expected": "success"}, 1},
		{"cmdtest_commands_total", map[string]string{"status": "pass", "expected": "timeout"}, 1},
		{"cmdtest_commands_total", map[string]string{"status": "fail", "expected": "success"}, 1},
		{"cmdtest_command_timeouts_total", nil, 1},
		{"cmdtest_command_launch_errors_total", nil, 1},
		{"cmdtest_command_duration_seconds", map[string]string{"status": "pass"}, 2},
	}
	for _, c := range checks {
		got, ok := value(families, c.name, c.labels)
		if !ok {
			t.Errorf("%s%v: not found", c.name, c.labels)
			continue
		}
		if got != c.want {
			t.Errorf("%s%v = %v, want %v", c.name, c.labels, got, c.want)
		}
	}

	if _, ok := value(families, "cmdtest_command_duration_seconds", map[string]string{"status": "fail"}); ok {
		t.Error("launch failures must not observe a duration")
	}
}

func TestRecorder_WriteFile(t *testing.T) {
	r := New()
	r.Record(entry(outcome.Pass, spec.Success, true, false))

	path := filepath.Join(t.TempDir(), "cmdtest.prom")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `cmdtest_commands_total{expected="success",status="pass"} 1`) {
		t.Errorf("metrics file missing counter:\n%s", data)
	}

	if !strings.Contains(string(data), "# TYPE cmdtest_command_duration_seconds histogram") {
		t.Errorf("metrics file missing histogram:\n%s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d files, want only the metrics file", len(entries))
	}
}

// value finds the sample of the named family whose labels include all of
// labels and returns its counter, gauge, or histogram sample count.
func value(families []*dto.MetricFamily, name string, labels map[string]string) (float64, bool) {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), true
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), true
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	have := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		have[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
