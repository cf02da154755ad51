package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

const (
	MetricsNamespace = "launchtest"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	phaseResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_results",
		Help:      "Result of each launch test phase",
	}, []string{
		"run_id",
		"phase",
		"result",
	})

	phaseTestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_tests_total",
		Help:      "Total number of cases per phase",
	}, []string{
		"run_id",
		"phase",
	})

	phaseTestsPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_tests_passed",
		Help:      "Number of passed cases per phase",
	}, []string{
		"run_id",
		"phase",
	})

	phaseTestsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_tests_failed",
		Help:      "Number of failed or errored cases per phase",
	}, []string{
		"run_id",
		"phase",
	})

	phaseDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of each launch test phase",
	}, []string{
		"run_id",
		"phase",
	})

	processExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "process_exits_total",
		Help:      "Count of supervised process exits",
	}, []string{
		"process",
		"class",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordPhase records the outcome of one phase of a launch test.
func RecordPhase(runID string, result *types.PhaseResult) {
	if result == nil {
		return
	}
	if !isValidResult(result.Status) && result.Status != types.TestStatusError {
		log.Error("RecordPhase - invalid result", "result", result.Status)
		return
	}
	phase := string(result.Phase)
	if Debug {
		log.Debug("metric set",
			"m", "phase_results",
			"run_id", runID,
			"phase", phase,
			"result", result.Status)
	}
	phaseResults.WithLabelValues(runID, phase, string(result.Status)).Set(1)
	phaseTestsTotal.WithLabelValues(runID, phase).Add(float64(result.Stats.Total))
	phaseTestsPassed.WithLabelValues(runID, phase).Add(float64(result.Stats.Passed))
	phaseTestsFailed.WithLabelValues(runID, phase).Add(float64(result.Stats.Failed + result.Stats.Errored))
	phaseDuration.WithLabelValues(runID, phase).Set(result.Duration.Seconds())
}

// RecordProcessExit records one supervised process exit.
func RecordProcessExit(process string, exitCode int) {
	class := "ok"
	if exitCode != 0 {
		class = "failed"
	}
	if Debug {
		log.Debug("metric inc",
			"m", "process_exits_total",
			"process", process,
			"exit_code", exitCode)
	}
	processExitsTotal.WithLabelValues(process, class).Inc()
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
