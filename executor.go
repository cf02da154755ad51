package launchtest

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-launchtest/runner"
	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// TestExecutor executes one launch test and yields its phase result pair.
type TestExecutor interface {
	Validate() error
	RunTests(ctx context.Context) (pre, post *types.PhaseResult, err error)
}

// DefaultTestExecutor runs tests through a runner.Orchestrator.
type DefaultTestExecutor struct {
	orchestrator *runner.Orchestrator
	log          log.Logger
}

func NewDefaultTestExecutor(orchestrator *runner.Orchestrator, log log.Logger) *DefaultTestExecutor {
	return &DefaultTestExecutor{
		orchestrator: orchestrator,
		log:          log,
	}
}

// Validate checks the run definitions without starting any process.
func (e *DefaultTestExecutor) Validate() error {
	return e.orchestrator.Validate()
}

// RunTests launches the processes under test and runs both suite phases
// around their lifetime.
func (e *DefaultTestExecutor) RunTests(ctx context.Context) (*types.PhaseResult, *types.PhaseResult, error) {
	e.log.Debug("Executing launch test")
	return e.orchestrator.Run(ctx)
}
