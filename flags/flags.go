package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_LAUNCHTEST"

var (
	RunConfig = &cli.StringFlag{
		Name:     "run-config",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "RUN_CONFIG"),
		Usage:    "Path to the launch-test definition file (eg. 'launchtest.yaml')",
	}
	LaunchArg = &cli.StringSliceFlag{
		Name:    "launch-arg",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LAUNCH_ARG"),
		Usage:   "Launch argument as key=value, repeatable. Passed through to test code as test_args.",
	}
	StartupTimeout = &cli.DurationFlag{
		Name:    "startup-timeout",
		Value:   15 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STARTUP_TIMEOUT"),
		Usage:   "How long to wait for the processes under test to signal readiness",
	}
	CheckWait = &cli.DurationFlag{
		Name:    "check-wait",
		Value:   10 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CHECK_WAIT"),
		Usage:   "Default bound for pre-shutdown output checks",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between launch-test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to store captured process output and run summaries",
	}
)

var requiredFlags = []cli.Flag{
	RunConfig,
}

var optionalFlags = []cli.Flag{
	LaunchArg,
	StartupTimeout,
	CheckWait,
	RunInterval,
	LogDir,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
