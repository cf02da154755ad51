// Package runner coordinates one launch test: it drives the process
// supervisor, runs the pre-shutdown suite concurrently with the live
// processes, tears the processes down, and runs the post-shutdown suite
// against the frozen capture.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-launchtest/accumulator"
	"github.com/ethereum-optimism/infra/op-launchtest/definition"
	"github.com/ethereum-optimism/infra/op-launchtest/launch"
	"github.com/ethereum-optimism/infra/op-launchtest/metrics"
	"github.com/ethereum-optimism/infra/op-launchtest/suite"
	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// DefaultStartupTimeout bounds how long the coordinator waits for the
// processes under test to signal readiness.
const DefaultStartupTimeout = 15 * time.Second

// ProcessSupervisor is the slice of launch.Supervisor the coordinator
// drives. Hooks must be registered before Run; Shutdown must be idempotent.
type ProcessSupervisor interface {
	Run(ctx context.Context) error
	Shutdown()
	OnExit(launch.ExitHook)
	OnOutput(launch.OutputHook)
}

// NewSupervisorFunc constructs the supervisor for a description. Replaced in
// tests to avoid spawning real processes.
type NewSupervisorFunc func(desc *launch.Description, logger log.Logger) ProcessSupervisor

func defaultNewSupervisor(desc *launch.Description, logger log.Logger) ProcessSupervisor {
	return launch.NewSupervisor(desc, logger)
}

// CoordinatorConfig holds configuration for creating a Coordinator.
type CoordinatorConfig struct {
	TestRun         *definition.TestRun
	LaunchArguments []string
	Log             log.Logger
	StartupTimeout  time.Duration // defaults to DefaultStartupTimeout
	DiagWriter      io.Writer     // destination for diagnostic text, defaults to os.Stdout
	NewSupervisor   NewSupervisorFunc

	// OnCapture, if set, receives the frozen accumulators once process
	// supervision has ended, on every exit path that started a supervisor.
	OnCapture func(info accumulator.InfoReader, output accumulator.OutputReader)
}

// Coordinator sequences one test run's process lifecycle and two-phase test
// execution. Exactly one coordinator is active per run; a fresh worker
// goroutine is created per Run call.
type Coordinator struct {
	testRun        *definition.TestRun
	launchArgs     []string
	log            log.Logger
	startupTimeout time.Duration
	diag           io.Writer
	newSupervisor  NewSupervisorFunc
	onCapture      func(info accumulator.InfoReader, output accumulator.OutputReader)
	suites         *suite.Runner
}

// NewCoordinator creates a coordinator for one test run.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.TestRun == nil {
		return nil, fmt.Errorf("test run is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}
	if cfg.DiagWriter == nil {
		cfg.DiagWriter = os.Stdout
	}
	if cfg.NewSupervisor == nil {
		cfg.NewSupervisor = defaultNewSupervisor
	}
	return &Coordinator{
		testRun:        cfg.TestRun,
		launchArgs:     cfg.LaunchArguments,
		log:            cfg.Log,
		startupTimeout: cfg.StartupTimeout,
		diag:           cfg.DiagWriter,
		newSupervisor:  cfg.NewSupervisor,
		onCapture:      cfg.OnCapture,
		suites:         suite.NewRunner(cfg.Log),
	}, nil
}

// preOutcome is the completion signal sent by the worker goroutine. It is
// delivered on a buffered channel before the worker requests shutdown, so
// the primary goroutine's non-blocking check after the supervisor returns
// observes its final state.
type preOutcome struct {
	result   *types.PhaseResult
	timedOut bool
}

// Run launches the processes under test and runs both suites. It always
// returns a (pre-shutdown, post-shutdown) result pair: startup timeouts and
// early process death are encoded as universally-failing results, never as
// errors that would abort the caller's own aggregation. The worker goroutine
// is joined before Run returns on every path, so a subsequent run may safely
// rebind the same suites.
func (c *Coordinator) Run(ctx context.Context) (*types.PhaseResult, *types.PhaseResult) {
	ready := make(chan struct{})
	var readyOnce sync.Once
	signalReady := func() {
		readyOnce.Do(func() { close(ready) })
	}

	desc, testContext, err := c.testRun.NormalizedDescription(signalReady)
	if err != nil {
		c.log.Error("Failed to normalize test description", "run", c.testRun.Name, "error", err)
		return c.failPair(fmt.Sprintf("invalid description: %v", err))
	}

	testArgs, err := definition.ParseLaunchArguments(c.launchArgs)
	if err != nil {
		c.log.Error("Failed to parse launch arguments", "run", c.testRun.Name, "error", err)
		return c.failPair(fmt.Sprintf("invalid launch arguments: %v", err))
	}

	procInfo := accumulator.NewLiveInfo()
	procOutput := accumulator.NewLiveOutput()

	c.bindSuites(testContext, procInfo, procOutput, testArgs)

	sup := c.newSupervisor(desc, c.log)
	sup.OnExit(func(process string, exitCode int) {
		procInfo.Append(types.ExitRecord{Process: process, ExitCode: exitCode})
		metrics.RecordProcessExit(process, exitCode)
	})
	sup.OnOutput(func(process string, stream types.Stream, line string) {
		procOutput.Append(types.OutputLine{Process: process, Stream: stream, Text: line})
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	outcome := make(chan preOutcome, 1)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		c.runPreSuite(workerCtx, sup, ready, outcome)
	}()

	// Blocks for the entire duration of process supervision. Returns once
	// the worker requests shutdown or all processes exit on their own.
	if err := sup.Run(ctx); err != nil {
		c.log.Error("Supervisor run failed", "run", c.testRun.Name, "error", err)
	}

	if c.onCapture != nil {
		c.onCapture(procInfo.Store(), procOutput.Store())
	}

	select {
	case out := <-outcome:
		<-workerDone
		if out.timedOut {
			return c.failPair("timed out waiting for processes to start up")
		}
		post := c.suites.Run(ctx, types.PhasePostShutdown, c.testRun.PostShutdown)
		return out.result, post
	default:
		// The supervisor returned before the pre-shutdown suite finished:
		// all processes died, or the run was interrupted externally. The
		// check is deliberately non-blocking: a pre-shutdown suite still in
		// flight the instant supervision ends counts as an early exit even
		// if it completes moments later. The worker is canceled and joined
		// here so its suite cannot touch state a later run rebinds; its
		// waits are bounded, so the join is too.
		cancelWorker()
		<-workerDone
		fmt.Fprintln(c.diag, "Processes under test stopped before tests completed")
		WriteProcessSummary(c.diag, procInfo.Store(), procOutput.Store())
		return c.failPair("processes under test stopped before tests completed")
	}
}

// runPreSuite is the worker goroutine: it waits for the readiness signal
// within the startup bound, runs the pre-shutdown suite, delivers the
// completion signal, and requests supervisor shutdown, in that order.
func (c *Coordinator) runPreSuite(ctx context.Context, sup ProcessSupervisor, ready <-chan struct{}, outcome chan<- preOutcome) {
	select {
	case <-ready:
	case <-time.After(c.startupTimeout):
		fmt.Fprintln(c.diag, "Timed out waiting for processes to start up")
		outcome <- preOutcome{timedOut: true}
		sup.Shutdown()
		return
	case <-ctx.Done():
		// Canceled, externally or by the primary goroutine once supervision
		// has already ended; the early-exit path reports the failure.
		return
	}

	result := c.suites.Run(ctx, types.PhasePreShutdown, c.testRun.PreShutdown)
	outcome <- preOutcome{result: result}
	sup.Shutdown()
}

// bindSuites injects the per-phase context values into both suites. The
// pre-shutdown suite sees the live accumulator handles; the post-shutdown
// suite sees the underlying stores, which are quiescent by the time it runs.
func (c *Coordinator) bindSuites(testContext launch.ContextMap, procInfo *accumulator.LiveInfo, procOutput *accumulator.LiveOutput, testArgs map[string]string) {
	base := make(map[string]any, len(testContext)+3)
	for k, v := range testContext {
		base[k] = v
	}

	if s := c.testRun.PreShutdown; s != nil {
		values := make(map[string]any, len(base)+3)
		for k, v := range base {
			values[k] = v
		}
		values[suite.ValueProcInfo] = procInfo
		values[suite.ValueProcOutput] = procOutput
		values[suite.ValueTestArgs] = testArgs
		s.Bind(values)
	}
	if s := c.testRun.PostShutdown; s != nil {
		values := make(map[string]any, len(base)+3)
		for k, v := range base {
			values[k] = v
		}
		values[suite.ValueProcInfo] = procInfo.Store()
		values[suite.ValueProcOutput] = procOutput.Store()
		values[suite.ValueTestArgs] = testArgs
		s.Bind(values)
	}
}

func (c *Coordinator) failPair(reason string) (*types.PhaseResult, *types.PhaseResult) {
	pre := types.NewFailResult(types.PhasePreShutdown, suiteName(c.testRun.PreShutdown), c.testRun.PreShutdown.CaseNames(), reason)
	post := types.NewFailResult(types.PhasePostShutdown, suiteName(c.testRun.PostShutdown), c.testRun.PostShutdown.CaseNames(), reason)
	return pre, post
}

func suiteName(s *suite.Suite) string {
	if s == nil {
		return ""
	}
	return s.Name
}
