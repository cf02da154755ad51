package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-launchtest/accumulator"
	"github.com/ethereum-optimism/infra/op-launchtest/definition"
	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// Orchestrator validates a list of run definitions and drives exactly one
// coordinator to completion.
type Orchestrator struct {
	runs           []*definition.TestRun
	launchArgs     []string
	log            log.Logger
	startupTimeout time.Duration
	diag           io.Writer
	newSupervisor  NewSupervisorFunc
	onCapture      func(info accumulator.InfoReader, output accumulator.OutputReader)
}

// OrchestratorConfig holds configuration for creating an Orchestrator.
type OrchestratorConfig struct {
	TestRuns        []*definition.TestRun
	LaunchArguments []string
	Log             log.Logger
	StartupTimeout  time.Duration
	DiagWriter      io.Writer
	NewSupervisor   NewSupervisorFunc
	OnCapture       func(info accumulator.InfoReader, output accumulator.OutputReader)
}

// NewOrchestrator creates an orchestrator over the given run definitions.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if len(cfg.TestRuns) == 0 {
		return nil, fmt.Errorf("at least one test run is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Orchestrator{
		runs:           cfg.TestRuns,
		launchArgs:     cfg.LaunchArguments,
		log:            cfg.Log,
		startupTimeout: cfg.StartupTimeout,
		diag:           cfg.DiagWriter,
		newSupervisor:  cfg.NewSupervisor,
		onCapture:      cfg.OnCapture,
	}, nil
}

// Validate inspects every run definition for configuration errors: an
// incompatible description-function signature or malformed launch
// arguments. It is the only path that surfaces errors to the caller, and it
// runs before any process is started.
func (o *Orchestrator) Validate() error {
	for _, run := range o.runs {
		if err := run.Validate(); err != nil {
			return err
		}
	}
	if _, err := definition.ParseLaunchArguments(o.launchArgs); err != nil {
		return definition.NewConfigurationError(o.runs[0].Name, err)
	}
	return nil
}

// Run validates the definitions and drives a coordinator for the first one,
// returning its result pair. Only the first definition is executed; the
// multi-run input shape is a known limitation of the current contract.
func (o *Orchestrator) Run(ctx context.Context) (*types.PhaseResult, *types.PhaseResult, error) {
	if err := o.Validate(); err != nil {
		return nil, nil, err
	}

	run := o.runs[0]
	if len(o.runs) > 1 {
		o.log.Warn("Multiple test runs configured, only the first will execute", "run", run.Name, "ignored", len(o.runs)-1)
	}

	coordinator, err := NewCoordinator(CoordinatorConfig{
		TestRun:         run,
		LaunchArguments: o.launchArgs,
		Log:             o.log,
		StartupTimeout:  o.startupTimeout,
		DiagWriter:      o.diag,
		NewSupervisor:   o.newSupervisor,
		OnCapture:       o.onCapture,
	})
	if err != nil {
		return nil, nil, definition.NewConfigurationError(run.Name, err)
	}

	o.log.Info("Starting launch test", "run", run.Name)
	pre, post := coordinator.Run(ctx)
	return pre, post, nil
}
