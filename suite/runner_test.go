package suite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-launchtest/accumulator"
	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

func TestRunner_NilSuitePasses(t *testing.T) {
	r := NewRunner(log.New())
	result := r.Run(context.Background(), types.PhasePreShutdown, nil)

	assert.Equal(t, types.TestStatusPass, result.Status)
	assert.Zero(t, result.Stats.Total)
}

func TestRunner_StatusesRecorded(t *testing.T) {
	s := &Suite{
		Name: "mixed",
		Cases: []Case{
			{Name: "passing", Run: func(t *T) {}},
			{Name: "failing", Run: func(t *T) { t.Errorf("value mismatch: got %d", 3) }},
			{Name: "fatal", Run: func(t *T) {
				t.Fatalf("cannot continue")
				t.Errorf("unreachable")
			}},
			{Name: "skipped", Run: func(t *T) { t.Skipf("not applicable here") }},
			{Name: "panicking", Run: func(t *T) { panic("boom") }},
		},
	}

	r := NewRunner(log.New())
	result := r.Run(context.Background(), types.PhasePreShutdown, s)

	assert.Equal(t, types.TestStatusFail, result.Status)
	assert.Equal(t, 5, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.Passed)
	assert.Equal(t, 2, result.Stats.Failed)
	assert.Equal(t, 1, result.Stats.Errored)
	assert.Equal(t, 1, result.Stats.Skipped)

	require.Len(t, result.Failures, 3)
	byCase := map[string]types.Failure{}
	for _, f := range result.Failures {
		byCase[f.Case] = f
	}
	assert.Equal(t, types.TestStatusFail, byCase["failing"].Status)
	assert.Contains(t, byCase["failing"].Message, "value mismatch")
	assert.Contains(t, byCase["fatal"].Message, "cannot continue")
	assert.NotContains(t, byCase["fatal"].Message, "unreachable")
	assert.Equal(t, types.TestStatusError, byCase["panicking"].Status)
	assert.Contains(t, byCase["panicking"].Message, "panic: boom")
}

func TestRunner_SetUpFailureErrorsAllCases(t *testing.T) {
	ran := false
	s := &Suite{
		Name:  "broken-setup",
		SetUp: func(t *T) error { return errors.New("connection refused") },
		Cases: []Case{
			{Name: "a", Run: func(t *T) { ran = true }},
			{Name: "b", Run: func(t *T) { ran = true }},
		},
	}

	r := NewRunner(log.New())
	result := r.Run(context.Background(), types.PhasePreShutdown, s)

	assert.False(t, ran, "cases must not run after setup failure")
	assert.Equal(t, types.TestStatusFail, result.Status)
	assert.Equal(t, 2, result.Stats.Errored)
	require.Len(t, result.Failures, 2)
	assert.Contains(t, result.Failures[0].Message, "connection refused")
}

func TestRunner_SetUpPanicErrorsAllCases(t *testing.T) {
	s := &Suite{
		Name:  "panicking-setup",
		SetUp: func(t *T) error { panic("setup blew up") },
		Cases: []Case{{Name: "a", Run: func(t *T) {}}},
	}

	r := NewRunner(log.New())
	result := r.Run(context.Background(), types.PhasePreShutdown, s)

	assert.Equal(t, types.TestStatusFail, result.Status)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Message, "setup blew up")
}

func TestSuite_BindAndValues(t *testing.T) {
	s := &Suite{Name: "bound"}
	s.Bind(map[string]any{"endpoint": "localhost:8545"})
	s.Bind(map[string]any{"endpoint": "localhost:9545", "chain": "op"})

	// Later bindings override earlier ones.
	assert.Equal(t, "localhost:9545", s.Value("endpoint"))
	assert.Equal(t, "op", s.Value("chain"))
	assert.Nil(t, s.Value("missing"))
}

func TestT_InjectedValues(t *testing.T) {
	info := accumulator.NewLiveInfo()
	info.Append(types.ExitRecord{Process: "app", ExitCode: 0})
	output := accumulator.NewLiveOutput()
	output.Append(types.OutputLine{Process: "app", Stream: types.StreamStdout, Text: "started"})

	var seenExit bool
	var seenOutput bool
	var seenArg string

	s := &Suite{
		Name: "injected",
		Cases: []Case{
			{Name: "reads-injected", Run: func(t *T) {
				_, seenExit = t.ProcInfo().WaitExit("app", time.Second)
				seenOutput = t.ProcOutput().WaitOutput("app", "started", time.Second)
				seenArg = t.Args()["region"]
			}},
		},
	}
	s.Bind(map[string]any{
		ValueProcInfo:   info,
		ValueProcOutput: output,
		ValueTestArgs:   map[string]string{"region": "us-east"},
	})

	r := NewRunner(log.New())
	result := r.Run(context.Background(), types.PhasePreShutdown, s)

	assert.Equal(t, types.TestStatusPass, result.Status)
	assert.True(t, seenExit)
	assert.True(t, seenOutput)
	assert.Equal(t, "us-east", seenArg)
}

func TestSuite_CaseNames(t *testing.T) {
	var nilSuite *Suite
	assert.Nil(t, nilSuite.CaseNames())

	s := &Suite{Cases: []Case{{Name: "x"}, {Name: "y"}}}
	assert.Equal(t, []string{"x", "y"}, s.CaseNames())
}
