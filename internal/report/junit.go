package report

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SuiteName is the name of the single JUnit test suite.
const SuiteName = " Commands to Test"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// SerializationError reports that the report could not be written. The
// Report itself is left intact.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("writing report %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// WriteJUnit writes the report as a JUnit XML document. Errors are
// never counted separately from failures.
func (r *Report) WriteJUnit(w io.Writer) error {
	entries := r.Entries()
	failed := r.Failed()

	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, xmlHeader)
	fmt.Fprint(bw, "<testsuites>\n")
	fmt.Fprintf(bw, "\t<testsuite id=\"0\" name=\"%s\" tests=\"%d\" failures=\"%d\" errors=\"0\">\n",
		attr(SuiteName), len(entries), failed)
	for _, e := range entries {
		name := attr(" " + e.Name() + " ")
		if e.Outcome.Passed() {
			fmt.Fprintf(bw, "\t\t<testcase name=\"%s\"/>\n", name)
			continue
		}
		fmt.Fprintf(bw, "\t\t<testcase name=\"%s\">\n", name)
		fmt.Fprintf(bw, "\t\t\t<failure message=\"%s\" type=\"WARNING\"/>\n", attr(e.Outcome.Message+" "))
		fmt.Fprint(bw, "\t\t</testcase>\n")
	}
	fmt.Fprint(bw, "\t</testsuite>\n")
	fmt.Fprint(bw, "</testsuites>\n")
	return bw.Flush()
}

// WriteFile writes the JUnit report to path. It may be called once; the
// file is closed on every path and a failure is returned as a
// *SerializationError.
func (r *Report) WriteFile(path string) (err error) {
	r.mu.Lock()
	if r.written {
		r.mu.Unlock()
		return &SerializationError{Path: path, Err: errors.New("report already written")}
	}
	r.written = true
	r.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return &SerializationError{Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, &SerializationError{Path: path, Err: cerr})
		}
	}()

	if err := r.WriteJUnit(f); err != nil {
		return &SerializationError{Path: path, Err: err}
	}
	return nil
}

// attr escapes s for use inside a double-quoted XML attribute.
func attr(s string) string {
	var b strings.Builder
	// EscapeText only fails if the writer does.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
