// Package accumulator provides the append-only stores of process exit
// records and captured output lines populated by supervisor hooks, and the
// read handles injected into test suites.
//
// Each store comes in two handle variants with the same query surface:
// the live handler (injected into pre-shutdown suites) answers bounded-wait
// queries by blocking until data arrives or the deadline passes, while the
// underlying store (injected into post-shutdown suites, once the supervisor
// has stopped emitting events) answers them immediately from what was
// captured. Test code can use either without caring which phase it runs in.
package accumulator

import (
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// InfoReader is the query surface over process exit records.
type InfoReader interface {
	// Processes lists every process that has an exit record, in first-exit order.
	Processes() []string
	// Exit returns the exit record for the named process.
	Exit(process string) (types.ExitRecord, bool)
	// All returns every exit record in append order.
	All() []types.ExitRecord
	// WaitExit waits up to timeout for the named process to exit.
	WaitExit(process string, timeout time.Duration) (types.ExitRecord, bool)
}

// InfoStore is the append-only store of exit records. It is safe for
// concurrent append and read. An InfoStore handed to post-shutdown tests is
// quiescent: the supervisor has stopped emitting events, so its WaitExit
// answers immediately.
type InfoStore struct {
	mu      sync.RWMutex
	records []types.ExitRecord
	changed chan struct{}
}

var _ InfoReader = (*InfoStore)(nil)

// NewInfoStore creates an empty exit-record store.
func NewInfoStore() *InfoStore {
	return &InfoStore{changed: make(chan struct{})}
}

// Append records a process exit.
func (s *InfoStore) Append(rec types.ExitRecord) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

func (s *InfoStore) Processes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.records))
	var names []string
	for _, rec := range s.records {
		if _, ok := seen[rec.Process]; ok {
			continue
		}
		seen[rec.Process] = struct{}{}
		names = append(names, rec.Process)
	}
	return names
}

func (s *InfoStore) Exit(process string) (types.ExitRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.Process == process {
			return rec, true
		}
	}
	return types.ExitRecord{}, false
}

func (s *InfoStore) All() []types.ExitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ExitRecord, len(s.records))
	copy(out, s.records)
	return out
}

// WaitExit on the bare store answers immediately: a frozen store will never
// receive further records.
func (s *InfoStore) WaitExit(process string, _ time.Duration) (types.ExitRecord, bool) {
	return s.Exit(process)
}

// Len returns the number of recorded exits.
func (s *InfoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// changeCh returns the channel closed on the next append.
func (s *InfoStore) changeCh() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// LiveInfo wraps an InfoStore with blocking bounded-wait queries for test
// code racing the processes it observes.
type LiveInfo struct {
	store *InfoStore
}

var _ InfoReader = (*LiveInfo)(nil)

// NewLiveInfo creates a live handler over a fresh store.
func NewLiveInfo() *LiveInfo {
	return &LiveInfo{store: NewInfoStore()}
}

// Store exposes the underlying store, the frozen handle for post-shutdown
// suites.
func (l *LiveInfo) Store() *InfoStore { return l.store }

// Append records a process exit on the underlying store.
func (l *LiveInfo) Append(rec types.ExitRecord) { l.store.Append(rec) }

func (l *LiveInfo) Processes() []string { return l.store.Processes() }

func (l *LiveInfo) Exit(process string) (types.ExitRecord, bool) { return l.store.Exit(process) }

func (l *LiveInfo) All() []types.ExitRecord { return l.store.All() }

// WaitExit blocks until the named process has an exit record or the timeout
// elapses.
func (l *LiveInfo) WaitExit(process string, timeout time.Duration) (types.ExitRecord, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		ch := l.store.changeCh()
		if rec, ok := l.store.Exit(process); ok {
			return rec, true
		}
		select {
		case <-ch:
		case <-deadline.C:
			return types.ExitRecord{}, false
		}
	}
}
