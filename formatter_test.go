package launchtest

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

func createSampleResults() (*types.PhaseResult, *types.PhaseResult) {
	pre := &types.PhaseResult{
		Phase:    types.PhasePreShutdown,
		Suite:    "demo/pre-shutdown",
		Status:   types.TestStatusPass,
		Duration: 250 * time.Millisecond,
		Stats:    types.ResultStats{Total: 2, Passed: 2},
	}
	post := &types.PhaseResult{
		Phase:    types.PhasePostShutdown,
		Suite:    "demo/post-shutdown",
		Status:   types.TestStatusFail,
		Duration: 50 * time.Millisecond,
		Stats:    types.ResultStats{Total: 2, Passed: 1, Failed: 1},
		Failures: []types.Failure{
			{Case: "clean_exit", Status: types.TestStatusFail, Message: "process 'web' exited with 1, want 0"},
		},
	}
	return pre, post
}

// TestConsoleResultFormatter_FormatResults is mostly a visual test; we check
// that rendering a typical result pair doesn't error.
func TestConsoleResultFormatter_FormatResults(t *testing.T) {
	formatter := NewConsoleResultFormatter(log.New())
	pre, post := createSampleResults()

	err := formatter.FormatResults(pre, post)
	assert.NoError(t, err)
}

func TestConsoleResultFormatter_NilResults(t *testing.T) {
	formatter := NewConsoleResultFormatter(log.New())
	pre, _ := createSampleResults()

	err := formatter.FormatResults(nil, nil)
	assert.Error(t, err)

	err = formatter.FormatResults(pre, nil)
	assert.Error(t, err)
}

func TestConsoleResultFormatter_EmptyResults(t *testing.T) {
	formatter := NewConsoleResultFormatter(log.New())
	pre := &types.PhaseResult{Phase: types.PhasePreShutdown, Status: types.TestStatusPass}
	post := &types.PhaseResult{Phase: types.PhasePostShutdown, Status: types.TestStatusPass}

	err := formatter.FormatResults(pre, post)
	assert.NoError(t, err)
}
