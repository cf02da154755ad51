package types

import (
	"fmt"
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// Phase identifies which half of a launch test a suite runs in.
type Phase string

const (
	PhasePreShutdown  Phase = "pre-shutdown"
	PhasePostShutdown Phase = "post-shutdown"
)

// Stream identifies the origin of a captured process output line.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// ExitRecord captures the termination of a single supervised process.
type ExitRecord struct {
	Process  string
	ExitCode int
}

// Ok reports whether the process terminated cleanly.
func (r ExitRecord) Ok() bool {
	return r.ExitCode == 0
}

// OutputLine is a single captured line of process output, tagged with its
// stream of origin.
type OutputLine struct {
	Process string
	Stream  Stream
	Text    string
}

// Failure describes one failing or errored case within a phase.
type Failure struct {
	Case    string
	Status  TestStatus
	Message string
}

// ResultStats tracks case counts for one phase.
type ResultStats struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
	Skipped int
}

// PhaseResult is the structured outcome of running one suite. Two are
// produced per launch test: one for the pre-shutdown suite and one for the
// post-shutdown suite.
type PhaseResult struct {
	Phase    Phase
	Suite    string
	Status   TestStatus
	Stats    ResultStats
	Failures []Failure
	Duration time.Duration
}

// DetermineStatus derives the overall status from the recorded stats.
// Errored cases count as failures for status purposes.
func (r *PhaseResult) DetermineStatus() {
	switch {
	case r.Stats.Failed > 0 || r.Stats.Errored > 0:
		r.Status = TestStatusFail
	case r.Stats.Passed == 0 && r.Stats.Skipped > 0:
		r.Status = TestStatusSkip
	default:
		r.Status = TestStatusPass
	}
}

func (r *PhaseResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s results (%.1fs):\n", r.Phase, r.Duration.Seconds()))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Errored: %d, Skipped: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Errored, r.Stats.Skipped))
	for _, f := range r.Failures {
		b.WriteString(fmt.Sprintf("├── %s [status=%s]\n", f.Case, f.Status))
		if f.Message != "" {
			b.WriteString(fmt.Sprintf("│       └── %s\n", firstLine(f.Message)))
		}
	}
	return b.String()
}

// NewFailResult builds a universally-failing result: every named case is
// recorded as failed. Used when a run terminates before its suites could
// produce real results.
func NewFailResult(phase Phase, suiteName string, caseNames []string, reason string) *PhaseResult {
	result := &PhaseResult{
		Phase:  phase,
		Suite:  suiteName,
		Status: TestStatusFail,
		Stats: ResultStats{
			Total:  len(caseNames),
			Failed: len(caseNames),
		},
	}
	for _, name := range caseNames {
		result.Failures = append(result.Failures, Failure{
			Case:    name,
			Status:  TestStatusFail,
			Message: reason,
		})
	}
	return result
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx != -1 {
		return s[:idx]
	}
	return s
}
