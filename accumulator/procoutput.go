package accumulator

import (
	"strings"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// OutputReader is the query surface over captured process output.
type OutputReader interface {
	// Output returns every captured line for the named process, in capture order.
	Output(process string) []types.OutputLine
	// All returns every captured line in capture order.
	All() []types.OutputLine
	// Contains reports whether any captured line for the process contains substr.
	Contains(process, substr string) bool
	// WaitOutput waits up to timeout for a line of the process containing substr.
	WaitOutput(process, substr string, timeout time.Duration) bool
}

// OutputStore is the append-only store of captured output lines. A store
// handed to post-shutdown tests is quiescent, so its WaitOutput answers
// immediately.
type OutputStore struct {
	mu      sync.RWMutex
	lines   []types.OutputLine
	changed chan struct{}
}

var _ OutputReader = (*OutputStore)(nil)

// NewOutputStore creates an empty output store.
func NewOutputStore() *OutputStore {
	return &OutputStore{changed: make(chan struct{})}
}

// Append records one captured output line.
func (s *OutputStore) Append(line types.OutputLine) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

func (s *OutputStore) Output(process string) []types.OutputLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.OutputLine
	for _, l := range s.lines {
		if l.Process == process {
			out = append(out, l)
		}
	}
	return out
}

func (s *OutputStore) All() []types.OutputLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.OutputLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *OutputStore) Contains(process, substr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.lines {
		if l.Process == process && strings.Contains(l.Text, substr) {
			return true
		}
	}
	return false
}

// WaitOutput on the bare store answers immediately: a frozen store will
// never receive further lines.
func (s *OutputStore) WaitOutput(process, substr string, _ time.Duration) bool {
	return s.Contains(process, substr)
}

// Len returns the number of captured lines.
func (s *OutputStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

func (s *OutputStore) changeCh() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// LiveOutput wraps an OutputStore with blocking bounded-wait queries.
type LiveOutput struct {
	store *OutputStore
}

var _ OutputReader = (*LiveOutput)(nil)

// NewLiveOutput creates a live handler over a fresh store.
func NewLiveOutput() *LiveOutput {
	return &LiveOutput{store: NewOutputStore()}
}

// Store exposes the underlying store, the frozen handle for post-shutdown
// suites.
func (l *LiveOutput) Store() *OutputStore { return l.store }

// Append records one captured line on the underlying store.
func (l *LiveOutput) Append(line types.OutputLine) { l.store.Append(line) }

func (l *LiveOutput) Output(process string) []types.OutputLine { return l.store.Output(process) }

func (l *LiveOutput) All() []types.OutputLine { return l.store.All() }

func (l *LiveOutput) Contains(process, substr string) bool { return l.store.Contains(process, substr) }

// WaitOutput blocks until a matching line is captured or the timeout
// elapses.
func (l *LiveOutput) WaitOutput(process, substr string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		ch := l.store.changeCh()
		if l.store.Contains(process, substr) {
			return true
		}
		select {
		case <-ch:
		case <-deadline.C:
			return false
		}
	}
}
