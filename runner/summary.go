package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum-optimism/infra/op-launchtest/accumulator"
)

// WriteProcessSummary writes a human-readable account of why a run died
// early: for every process whose final exit code is non-zero, its name and
// exit code followed by its captured output inside a delimited block. A
// process with no captured output is reported as silence, not a fault.
func WriteProcessSummary(w io.Writer, info accumulator.InfoReader, output accumulator.OutputReader) {
	for _, process := range info.Processes() {
		rec, ok := info.Exit(process)
		if !ok || rec.Ok() {
			continue
		}
		fmt.Fprintf(w, "Process '%s' exited with %d\n", rec.Process, rec.ExitCode)
		fmt.Fprintf(w, "##### '%s' output #####\n", rec.Process)
		for _, line := range output.Output(rec.Process) {
			fmt.Fprintln(w, line.Text)
		}
		fmt.Fprintln(w, strings.Repeat("#", len(rec.Process)+21))
	}
}
