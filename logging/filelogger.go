// Package logging persists what a launch test captured: one file of output
// per process and a summary of both phase results, under a per-run
// directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-launchtest/accumulator"
	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

const (
	RunDirectoryPrefix = "launchrun-" // Standardized prefix for run directories
	SummaryFilename    = "summary.txt"
)

// FileLogger handles writing captured process output and results to files.
type FileLogger struct {
	baseDir string
	runDir  string
	runID   string
	mu      sync.Mutex
}

// NewFileLogger creates a logger rooted at baseDir for the given run,
// creating the run directory.
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}
	return &FileLogger{
		baseDir: baseDir,
		runDir:  runDir,
		runID:   runID,
	}, nil
}

// RunDir returns the directory this run's files are written to.
func (l *FileLogger) RunDir() string { return l.runDir }

// GetRunID returns the run ID this logger writes under.
func (l *FileLogger) GetRunID() string { return l.runID }

// LogProcessOutput writes one file per process containing its captured
// output, ANSI escapes stripped, stderr lines tagged.
func (l *FileLogger) LogProcessOutput(output accumulator.OutputReader) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, line := range output.All() {
		f, ok := files[line.Process]
		if !ok {
			var err error
			f, err = os.Create(filepath.Join(l.runDir, line.Process+".log"))
			if err != nil {
				return fmt.Errorf("failed to create output file for %q: %w", line.Process, err)
			}
			files[line.Process] = f
		}
		text := stripansi.Strip(line.Text)
		if line.Stream == types.StreamStderr {
			text = "[stderr] " + text
		}
		if _, err := fmt.Fprintln(f, text); err != nil {
			return fmt.Errorf("failed to write output for %q: %w", line.Process, err)
		}
	}
	return nil
}

// LogSummary writes both phase results to the run's summary file.
func (l *FileLogger) LogSummary(pre, post *types.PhaseResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Create(filepath.Join(l.runDir, SummaryFilename))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "Launch test run %s\n\n", l.runID)
	if pre != nil {
		fmt.Fprintln(f, stripansi.Strip(pre.String()))
	}
	if post != nil {
		fmt.Fprintln(f, stripansi.Strip(post.String()))
	}
	return nil
}
