package launchtest

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-launchtest/flags"
	"github.com/ethereum/go-ethereum/log"
)

// Config holds the application configuration
type Config struct {
	RunConfigFile  string        // Path to the YAML launch-test definition
	LaunchArgs     []string      // Raw key=value launch arguments passed through to test code
	StartupTimeout time.Duration // Bound on waiting for process readiness
	CheckWait      time.Duration // Default bound for pre-shutdown output checks
	RunInterval    time.Duration // Interval between runs
	RunOnce        bool          // Indicates if the service should exit after one run
	LogDir         string        // Directory to store captured output and summaries
	Log            log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, runConfigFile string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if runConfigFile == "" {
		return nil, errors.New("run config file is required")
	}

	absRunConfig, err := filepath.Abs(runConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for run config '%s': %w", runConfigFile, err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	return &Config{
		RunConfigFile:  absRunConfig,
		LaunchArgs:     ctx.StringSlice(flags.LaunchArg.Name),
		StartupTimeout: ctx.Duration(flags.StartupTimeout.Name),
		CheckWait:      ctx.Duration(flags.CheckWait.Name),
		RunInterval:    runInterval,
		RunOnce:        runOnce,
		LogDir:         logDir,
		Log:            log,
	}, nil
}
