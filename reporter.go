package launchtest

import (
	"github.com/ethereum-optimism/infra/op-launchtest/metrics"
	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// MetricsReporter publishes finished results to the metrics backend.
type MetricsReporter interface {
	ReportResults(runID string, pre, post *types.PhaseResult)
}

// DefaultMetricsReporter reports to the prometheus registry.
type DefaultMetricsReporter struct{}

func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

func (r *DefaultMetricsReporter) ReportResults(runID string, pre, post *types.PhaseResult) {
	metrics.RecordPhase(runID, pre)
	metrics.RecordPhase(runID, post)
}
