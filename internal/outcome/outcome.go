// Package outcome classifies an execution against the expectation
// declared for it.
//
// Rules are evaluated in order and the first match wins:
//
//  1. The command timed out and a timeout was expected: pass.
//  2. The command could not be launched: fail, except that under a
//     failure expectation a launch error that is not a "not found"
//     diagnostic passes (see Options.StrictLaunch).
//  3. Success was expected and the exit code matches: pass.
//  4. Failure was expected and the exit code differs: pass.
//  5. Anything else fails with a message describing the mismatch.
package outcome

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/cmdtest/internal/runner"
	"github.com/deixis/cmdtest/internal/spec"
)

// Status is the verdict of a single command.
type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
)

// Outcome is the classified result of one command. Message is set iff
// Status is Fail.
type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Passed reports whether the outcome is a pass.
func (o Outcome) Passed() bool { return o.Status == Pass }

func pass() Outcome { return Outcome{Status: Pass} }

func fail(format string, args ...any) Outcome {
	return Outcome{Status: Fail, Message: fmt.Sprintf(format, args...)}
}

// Options tunes classification.
type Options struct {
	// StrictLaunch makes every launch error a failure. Without it, a
	// launch error under a failure expectation passes unless its
	// diagnostic says the executable was not found.
	StrictLaunch bool
}

// stderrExcerptLen is the number of stderr characters quoted in a
// return-code mismatch message.
const stderrExcerptLen = 32

// Classify compares an execution against cmd's expectation. res is nil
// when launchErr is set. launchErr may be any error; only a
// *runner.LaunchError carries the structured not-found signal.
func Classify(cmd spec.Command, res *runner.Result, launchErr error, opts Options) Outcome {
	timedOut := res != nil && res.TimedOut

	// Rule 1.
	if timedOut && cmd.Expect == spec.Timeout {
		return pass()
	}

	// Rule 2. A process that ran but whose stderr says its executable
	// was not found (e.g. through a wrapper) counts as a launch error.
	diag, notFound, launched := launchDiagnostic(cmd.Executable(), res, launchErr)
	if !launched {
		if cmd.Expect == spec.Failure && !notFound && !opts.StrictLaunch {
			return pass()
		}
		return fail("launch failed: %s", diag)
	}

	if !timedOut {
		// Rules 3 and 4.
		if cmd.Expect == spec.Success && res.ExitCode == cmd.ReturnCode {
			return pass()
		}
		if cmd.Expect == spec.Failure && res.ExitCode != cmd.ReturnCode {
			return pass()
		}
	}

	// Rule 5.
	switch {
	case cmd.Expect == spec.Timeout:
		return fail("command did not time out")
	case timedOut:
		return fail("command timed out after %s (return code undefined)", runner.NormalizeTimeout(cmd.Timeout).Round(time.Millisecond))
	}

	msg := fmt.Sprintf("return code (%d) differs from expected (%d)", res.ExitCode, cmd.ReturnCode)
	if len(res.Stderr) > 0 {
		msg += fmt.Sprintf("; stderr: (%s)", Excerpt(string(res.Stderr), stderrExcerptLen))
	}
	return Outcome{Status: Fail, Message: msg}
}

// launchDiagnostic decides whether the command was launched. When it was
// not, it returns the diagnostic text and whether that diagnostic means
// the executable was not found.
func launchDiagnostic(exe string, res *runner.Result, launchErr error) (diag string, notFound, launched bool) {
	if launchErr != nil {
		diag = launchErr.Error()
		var le *runner.LaunchError
		if errors.As(launchErr, &le) && le.NotFound {
			return diag, true, false
		}
		return diag, MentionsNotFound(diag, exe), false
	}
	if res == nil {
		return "no execution result", false, false
	}
	if stderr := string(res.Stderr); MentionsNotFound(stderr, exe) {
		return strings.TrimSpace(stderr), true, false
	}
	return "", false, true
}

// notFoundPhrases are matched case-insensitively. The misspelling is
// what some Windows shells have been observed to print.
var notFoundPhrases = []string{
	"not found",
	"not recognized",
	"not recogonized",
}

// MentionsNotFound reports whether text is a "command not found" style
// diagnostic naming exe. Matching is case-insensitive. exe must appear
// quoted, or directly before the phrase as in "exe: command not found",
// so that a shell's own name in a prefix like "sh: 1: foo: not found"
// does not count.
func MentionsNotFound(text, exe string) bool {
	if exe == "" {
		return false
	}
	lower := strings.ToLower(text)
	name := strings.ToLower(exe)

	quoted := strings.Contains(lower, "'"+name+"'") || strings.Contains(lower, `"`+name+`"`)
	for _, p := range notFoundPhrases {
		if !strings.Contains(lower, p) {
			continue
		}
		if quoted || strings.Contains(lower, name+": "+p) || strings.Contains(lower, name+": command "+p) {
			return true
		}
	}
	return false
}

// Excerpt collapses line breaks to spaces and keeps the first n
// characters of s, appending "..." when anything was cut.
func Excerpt(s string, n int) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
