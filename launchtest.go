package launchtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-launchtest/accumulator"
	"github.com/ethereum-optimism/infra/op-launchtest/definition"
	"github.com/ethereum-optimism/infra/op-launchtest/exitcodes"
	"github.com/ethereum-optimism/infra/op-launchtest/logging"
	"github.com/ethereum-optimism/infra/op-launchtest/registry"
	"github.com/ethereum-optimism/infra/op-launchtest/runner"
	"github.com/ethereum-optimism/infra/op-launchtest/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// launchtest implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &launchtest{}

// launchtest is the service that drives launch tests: processes started,
// suites run around their lifetime, results reported.
type launchtest struct {
	ctx      context.Context
	config   *Config
	version  string
	registry *registry.Registry

	executor  TestExecutor
	scheduler TestScheduler
	formatter ResultFormatter
	reporter  MetricsReporter

	preResult  *types.PhaseResult
	postResult *types.PhaseResult

	runID string

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*launchtest, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating launchtest service with config",
		"runConfig", config.RunConfigFile,
		"startupTimeout", config.StartupTimeout,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	reg, err := registry.NewRegistry(registry.Config{
		Log:              config.Log,
		RunConfigFile:    config.RunConfigFile,
		DefaultCheckWait: config.CheckWait,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	l := &launchtest{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		formatter:        NewConsoleResultFormatter(config.Log),
		reporter:         NewDefaultMetricsReporter(),
		scheduler:        NewDefaultTestScheduler(config.RunInterval, config.RunOnce, config.Log),
		shutdownCallback: shutdownCallback,
	}

	orchestrator, err := runner.NewOrchestrator(runner.OrchestratorConfig{
		TestRuns:        []*definition.TestRun{reg.TestRun()},
		LaunchArguments: config.LaunchArgs,
		Log:             config.Log,
		StartupTimeout:  config.StartupTimeout,
		OnCapture:       l.captureOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	l.executor = NewDefaultTestExecutor(orchestrator, config.Log)

	config.Log.Info("launchtest.New: created registry and orchestrator", "run", reg.TestRun().Name)
	return l, nil
}

// Start runs the launch test, once or periodically at the configured
// interval. Start implements the cliapp.Lifecycle interface.
func (l *launchtest) Start(ctx context.Context) error {
	// Panics are runtime errors, not test failures.
	defer func() {
		if r := recover(); r != nil {
			l.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	l.ctx = ctx
	l.running.Store(true)

	// Configuration errors surface before any process is started.
	if err := l.executor.Validate(); err != nil {
		l.config.Log.Error("Invalid test configuration", "error", err)
		return err
	}

	if l.config.RunOnce {
		l.config.Log.Info("Starting op-launchtest in run-once mode")

		if err := l.runTests(); err != nil {
			l.config.Log.Error("Runtime error running launch test", "error", err)
			return cli.Exit(err.Error(), exitcodes.RuntimeErr)
		}

		l.config.Log.Info("Launch test completed, exiting (run-once mode)")
		if failed := failedResult(l.preResult, l.postResult); failed != nil {
			l.config.Log.Warn("Run-once launch test completed with failures, returning exit code 1")
			return NewTestFailureError(failed.String())
		}

		go func() {
			l.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	l.config.Log.Info("Starting op-launchtest in continuous mode", "interval", l.config.RunInterval)
	l.scheduler.RegisterCallback(l.runTests)
	return l.scheduler.Start(ctx)
}

// runTests runs one launch test and processes the result pair.
func (l *launchtest) runTests() error {
	l.runID = uuid.New().String()
	l.config.Log.Info("Running launch test...", "run_id", l.runID)

	pre, post, err := l.executor.RunTests(l.ctx)
	if err != nil {
		if definition.IsConfigurationError(err) {
			return err
		}
		return NewRuntimeError(err)
	}
	l.preResult = pre
	l.postResult = post

	if err := l.formatter.FormatResults(pre, post); err != nil {
		l.config.Log.Error("Failed to format results", "error", err)
	}
	l.reporter.ReportResults(l.runID, pre, post)

	if fileLogger, err := logging.NewFileLogger(l.config.LogDir, l.runID); err != nil {
		l.config.Log.Error("Failed to create file logger for summary", "error", err)
	} else if err := fileLogger.LogSummary(pre, post); err != nil {
		l.config.Log.Error("Failed to write run summary", "error", err)
	}

	l.config.Log.Info("Launch test run completed", "run_id", l.runID,
		"pre_status", pre.Status, "post_status", post.Status)
	return nil
}

// captureOutput persists the frozen accumulators once supervision ends.
func (l *launchtest) captureOutput(info accumulator.InfoReader, output accumulator.OutputReader) {
	fileLogger, err := logging.NewFileLogger(l.config.LogDir, l.runID)
	if err != nil {
		l.config.Log.Error("Failed to create file logger", "error", err)
		return
	}
	if err := fileLogger.LogProcessOutput(output); err != nil {
		l.config.Log.Error("Failed to write captured process output", "error", err)
	}
	l.config.Log.Info("Captured process output written", "dir", fileLogger.RunDir(),
		"processes", len(info.Processes()))
}

// Stop stops the op-launchtest service.
// Stop implements the cliapp.Lifecycle interface.
func (l *launchtest) Stop(ctx context.Context) error {
	l.config.Log.Info("Stopping op-launchtest")

	if !l.running.Load() {
		l.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	l.running.Store(false)

	if err := l.scheduler.Stop(); err != nil {
		l.config.Log.Error("Failed to stop scheduler", "error", err)
	}

	l.config.Log.Info("op-launchtest stopped successfully")
	return nil
}

// Stopped returns true if the op-launchtest service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (l *launchtest) Stopped() bool {
	return !l.running.Load()
}

// WaitForShutdown blocks until all scheduler goroutines have terminated.
func (l *launchtest) WaitForShutdown(ctx context.Context) error {
	return l.scheduler.WaitForShutdown(ctx)
}

// failedResult returns the first failing phase result, or nil if both
// phases passed.
func failedResult(pre, post *types.PhaseResult) *types.PhaseResult {
	if pre != nil && pre.Status == types.TestStatusFail {
		return pre
	}
	if post != nil && post.Status == types.TestStatusFail {
		return post
	}
	return nil
}
