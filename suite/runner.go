package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// Runner executes suites and produces phase results. Failures raised by test
// code never propagate out of Run; they are captured in the result.
type Runner struct {
	log    log.Logger
	tracer trace.Tracer
}

// NewRunner creates a suite runner.
func NewRunner(logger log.Logger) *Runner {
	if logger == nil {
		logger = log.New()
	}
	return &Runner{
		log:    logger,
		tracer: otel.Tracer("suite runner"),
	}
}

// Run executes s sequentially and returns its structured result. A nil or
// empty suite yields a passing result with zero cases.
func (r *Runner) Run(ctx context.Context, phase types.Phase, s *Suite) *types.PhaseResult {
	start := time.Now()
	result := &types.PhaseResult{Phase: phase}
	if s == nil {
		result.DetermineStatus()
		return result
	}
	result.Suite = s.Name
	result.Stats.Total = len(s.Cases)

	r.log.Info("Running suite", "phase", phase, "suite", s.Name, "cases", len(s.Cases))

	if s.SetUp != nil {
		setupT := &T{name: s.Name + "/setup", values: s.values}
		if err := r.runSetUp(ctx, s, setupT); err != nil {
			r.log.Error("Suite setup failed", "suite", s.Name, "error", err)
			for _, c := range s.Cases {
				result.Stats.Errored++
				result.Failures = append(result.Failures, types.Failure{
					Case:    c.Name,
					Status:  types.TestStatusError,
					Message: fmt.Sprintf("suite setup failed: %v", err),
				})
			}
			result.Duration = time.Since(start)
			result.DetermineStatus()
			return result
		}
	}

	for _, c := range s.Cases {
		status, message := r.runCase(ctx, s, c)
		switch status {
		case types.TestStatusPass:
			result.Stats.Passed++
		case types.TestStatusSkip:
			result.Stats.Skipped++
		default:
			if status == types.TestStatusFail {
				result.Stats.Failed++
			} else {
				result.Stats.Errored++
			}
			result.Failures = append(result.Failures, types.Failure{
				Case:    c.Name,
				Status:  status,
				Message: message,
			})
		}
		r.log.Debug("Case finished", "suite", s.Name, "case", c.Name, "status", status)
	}

	result.Duration = time.Since(start)
	result.DetermineStatus()
	return result
}

func (r *Runner) runSetUp(ctx context.Context, s *Suite, t *T) (err error) {
	_, span := r.tracer.Start(ctx, fmt.Sprintf("%s setup", s.Name))
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.SetUp(t)
}

// runCase executes one case, recovering Fatalf/Skipf sentinels and treating
// any other panic as an errored case.
func (r *Runner) runCase(ctx context.Context, s *Suite, c Case) (status types.TestStatus, message string) {
	_, span := r.tracer.Start(ctx, c.Name)
	defer span.End()

	t := &T{name: c.Name, values: s.values}

	func() {
		defer func() {
			rec := recover()
			switch rec.(type) {
			case nil, failNow, skipNow:
			default:
				status = types.TestStatusError
				message = fmt.Sprintf("panic: %v", rec)
			}
		}()
		c.Run(t)
	}()

	if status == types.TestStatusError {
		return status, message
	}
	switch {
	case t.skipped:
		return types.TestStatusSkip, t.message
	case t.failed:
		return types.TestStatusFail, t.message
	default:
		return types.TestStatusPass, t.message
	}
}
