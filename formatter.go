package launchtest

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// ResultFormatter presents a finished phase result pair to the operator.
type ResultFormatter interface {
	FormatResults(pre, post *types.PhaseResult) error
}

// ConsoleResultFormatter renders results as a table on stdout.
type ConsoleResultFormatter struct {
	log log.Logger
}

func NewConsoleResultFormatter(log log.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{log: log}
}

// FormatResults writes one row per phase plus a row per failing case.
func (f *ConsoleResultFormatter) FormatResults(pre, post *types.PhaseResult) error {
	if pre == nil || post == nil {
		return fmt.Errorf("cannot format nil results")
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Launch Test Results")
	t.AppendHeader(table.Row{"Phase", "Suite", "Status", "Passed", "Failed", "Errored", "Skipped", "Duration"})

	for _, result := range []*types.PhaseResult{pre, post} {
		t.AppendRow(table.Row{
			result.Phase,
			result.Suite,
			colorStatus(result.Status),
			result.Stats.Passed,
			result.Stats.Failed,
			result.Stats.Errored,
			result.Stats.Skipped,
			formatDuration(result.Duration),
		})
	}
	t.Render()

	failures := append(append([]types.Failure{}, pre.Failures...), post.Failures...)
	if len(failures) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(os.Stdout)
		ft.SetStyle(table.StyleLight)
		ft.SetTitle("Failing Checks")
		ft.AppendHeader(table.Row{"Case", "Status", "Message"})
		for _, failure := range failures {
			ft.AppendRow(table.Row{failure.Case, colorStatus(failure.Status), failure.Message})
		}
		ft.Render()
	}

	return nil
}

func colorStatus(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return text.FgGreen.Sprint(status)
	case types.TestStatusFail, types.TestStatusError:
		return text.FgRed.Sprint(status)
	case types.TestStatusSkip:
		return text.FgYellow.Sprint(status)
	default:
		return string(status)
	}
}
