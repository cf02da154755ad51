// Package suite defines the test case model a launch test executes and the
// runner that turns a bound suite into a structured phase result.
package suite

import (
	"fmt"

	"github.com/ethereum-optimism/infra/op-launchtest/accumulator"
)

// Reserved names under which the coordinator binds its own values into every
// suite, alongside the run definition's context values.
const (
	ValueProcInfo   = "proc_info"
	ValueProcOutput = "proc_output"
	ValueTestArgs   = "test_args"
)

// Case is a single test case. Run reports failures through the provided T.
type Case struct {
	Name string
	Run  func(t *T)
}

// Suite is an ordered collection of cases sharing one set of bound values.
// SetUp, if present, runs once before the first case; if it fails, every
// case is recorded as errored and none run.
type Suite struct {
	Name  string
	SetUp func(t *T) error
	Cases []Case

	values map[string]any
}

// Bind attaches named values to the suite. Later bindings override earlier
// ones. The bound values are visible to SetUp and to every case through T.
func (s *Suite) Bind(values map[string]any) {
	if s.values == nil {
		s.values = make(map[string]any, len(values))
	}
	for k, v := range values {
		s.values[k] = v
	}
}

// Value returns a bound value by name.
func (s *Suite) Value(name string) any {
	return s.values[name]
}

// CaseNames lists the suite's case names in order.
func (s *Suite) CaseNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Cases))
	for _, c := range s.Cases {
		names = append(names, c.Name)
	}
	return names
}

// T is the execution context handed to a case. It carries the bound values
// and collects the case's outcome.
type T struct {
	name   string
	values map[string]any

	failed  bool
	skipped bool
	logs    []string
	message string
}

// Name returns the running case's name.
func (t *T) Name() string { return t.name }

// Value returns a bound value by name, or nil.
func (t *T) Value(name string) any {
	return t.values[name]
}

// ProcInfo returns the injected exit-record reader for the current phase.
func (t *T) ProcInfo() accumulator.InfoReader {
	r, _ := t.values[ValueProcInfo].(accumulator.InfoReader)
	return r
}

// ProcOutput returns the injected output reader for the current phase.
func (t *T) ProcOutput() accumulator.OutputReader {
	r, _ := t.values[ValueProcOutput].(accumulator.OutputReader)
	return r
}

// Args returns the parsed launch arguments.
func (t *T) Args() map[string]string {
	a, _ := t.values[ValueTestArgs].(map[string]string)
	return a
}

// Logf records a log line for the case.
func (t *T) Logf(format string, args ...any) {
	t.logs = append(t.logs, fmt.Sprintf(format, args...))
}

// Errorf marks the case as failed and continues execution.
func (t *T) Errorf(format string, args ...any) {
	t.failed = true
	t.appendMessage(fmt.Sprintf(format, args...))
}

// Fatalf marks the case as failed and stops it immediately.
func (t *T) Fatalf(format string, args ...any) {
	t.failed = true
	t.appendMessage(fmt.Sprintf(format, args...))
	panic(failNow{})
}

// Skipf marks the case as skipped and stops it immediately.
func (t *T) Skipf(format string, args ...any) {
	t.skipped = true
	t.appendMessage(fmt.Sprintf(format, args...))
	panic(skipNow{})
}

// Failed reports whether the case has recorded a failure.
func (t *T) Failed() bool { return t.failed }

func (t *T) appendMessage(msg string) {
	if t.message != "" {
		t.message += "\n"
	}
	t.message += msg
}

// failNow and skipNow are the panic sentinels thrown by Fatalf and Skipf and
// recovered by the runner.
type (
	failNow struct{}
	skipNow struct{}
)
