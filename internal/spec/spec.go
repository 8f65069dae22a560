// Package spec loads the declarative command list that drives a test batch.
//
// Input is YAML (and therefore also JSON): either a list of command
// mappings or a single mapping. Each mapping must carry description,
// command, timeout and returncode; expected, args and cwd are optional.
package spec

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Expectation is the outcome a command is expected to produce.
type Expectation string

const (
	// Success expects the command to exit with the declared return code.
	Success Expectation = "success"
	// Failure expects the command to exit with any other return code.
	Failure Expectation = "failure"
	// Timeout expects the command to still be running when its timeout expires.
	Timeout Expectation = "timeout"
)

// ParseExpectation parses an expectation name case-insensitively.
// An empty string yields Success.
func ParseExpectation(s string) (Expectation, error) {
	switch Expectation(strings.ToLower(strings.TrimSpace(s))) {
	case "", Success:
		return Success, nil
	case Failure:
		return Failure, nil
	case Timeout:
		return Timeout, nil
	}
	return "", fmt.Errorf("unknown expectation %q (want success, failure or timeout)", s)
}

// Command describes one command to run and the outcome it should produce.
type Command struct {
	Description string        `json:"description"`
	Argv        []string      `json:"argv"`    // executable followed by its arguments; never empty
	Timeout     time.Duration `json:"timeout"` // as declared; may be negative, see runner.NormalizeTimeout
	ReturnCode  int           `json:"returncode"`
	Expect      Expectation   `json:"expected"`
	Dir         string        `json:"cwd,omitempty"` // optional working directory
}

// Executable returns the first argv token.
func (c Command) Executable() string {
	return c.Argv[0]
}

// String returns the command line as it is shown in reports.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// SpecError reports a malformed command entry. It is fatal to the batch.
type SpecError struct {
	Index  int    // position of the entry in the input list
	Field  string // offending field, empty when the entry as a whole is bad
	Reason string
}

func (e *SpecError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("command %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("command %d: %s: %s", e.Index, e.Field, e.Reason)
}

// rawCommand mirrors the input mapping. Pointer and Node fields let
// Parse tell a missing key apart from a zero value.
type rawCommand struct {
	Description *string   `yaml:"description"`
	Command     yaml.Node `yaml:"command"`
	Args        yaml.Node `yaml:"args"`
	Timeout     *float64  `yaml:"timeout"`
	ReturnCode  *int      `yaml:"returncode"`
	Expected    string    `yaml:"expected"`
	Cwd         string    `yaml:"cwd"`
}

// Parse decodes a command list. Every entry is validated before any is
// returned, so a SpecError always aborts the batch before execution.
func Parse(data []byte) ([]Command, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing commands: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &SpecError{Reason: "no commands given"}
	}

	root := doc.Content[0]
	var items []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		items = root.Content
	case yaml.MappingNode:
		items = []*yaml.Node{root}
	default:
		return nil, &SpecError{Reason: fmt.Sprintf("expected a list of mappings or a mapping, found %s", kindName(root.Kind))}
	}

	cmds := make([]Command, 0, len(items))
	for i, item := range items {
		cmd, err := parseCommand(i, item)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func parseCommand(idx int, node *yaml.Node) (Command, error) {
	if node.Kind != yaml.MappingNode {
		return Command{}, &SpecError{Index: idx, Reason: fmt.Sprintf("expected a mapping, found %s", kindName(node.Kind))}
	}

	var raw rawCommand
	if err := node.Decode(&raw); err != nil {
		return Command{}, &SpecError{Index: idx, Reason: err.Error()}
	}

	// Required keys, checked in the order the input format lists them.
	if raw.Description == nil {
		return Command{}, missing(idx, "description")
	}
	if raw.Command.Kind == 0 {
		return Command{}, missing(idx, "command")
	}
	if raw.Timeout == nil {
		return Command{}, missing(idx, "timeout")
	}
	if raw.ReturnCode == nil {
		return Command{}, missing(idx, "returncode")
	}

	argv, err := tokens(&raw.Command)
	if err != nil {
		return Command{}, &SpecError{Index: idx, Field: "command", Reason: err.Error()}
	}
	args, err := tokens(&raw.Args)
	if err != nil {
		return Command{}, &SpecError{Index: idx, Field: "args", Reason: err.Error()}
	}
	argv = append(argv, args...)
	if len(argv) == 0 || argv[0] == "" {
		return Command{}, &SpecError{Index: idx, Field: "command", Reason: "executable is empty"}
	}

	expect, err := ParseExpectation(raw.Expected)
	if err != nil {
		return Command{}, &SpecError{Index: idx, Field: "expected", Reason: err.Error()}
	}

	if math.IsNaN(*raw.Timeout) || math.IsInf(*raw.Timeout, 0) {
		return Command{}, &SpecError{Index: idx, Field: "timeout", Reason: "must be a finite number of seconds"}
	}

	return Command{
		Description: *raw.Description,
		Argv:        argv,
		Timeout:     seconds(*raw.Timeout),
		ReturnCode:  *raw.ReturnCode,
		Expect:      expect,
		Dir:         raw.Cwd,
	}, nil
}

// seconds converts a finite number of seconds to a Duration, saturating
// at the int64 range and keeping the sign. A non-zero value never
// rounds to zero, since zero selects the default timeout.
func seconds(s float64) time.Duration {
	ns := s * float64(time.Second)
	switch {
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= -math.MaxInt64:
		return -math.MaxInt64
	case ns > 0 && ns < 1:
		return 1
	case ns < 0 && ns > -1:
		return -1
	}
	return time.Duration(ns)
}

func missing(idx int, field string) *SpecError {
	return &SpecError{Index: idx, Field: field, Reason: "required key is missing"}
}

// tokens accepts a scalar (one token) or a sequence of scalars.
// An absent node yields no tokens.
func tokens(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("expected a scalar token, found %s", kindName(c.Kind))
			}
			out = append(out, c.Value)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a string or list of strings, found %s", kindName(n.Kind))
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}
