// Package launch starts and supervises the processes under test. A
// Description declares what to run; a Supervisor runs it, streaming captured
// output and exit records to registered hooks.
package launch

import (
	"fmt"
	"strings"
)

// ProcessSpec declares a single process under test.
type ProcessSpec struct {
	Name    string
	Command string
	Args    []string
	Env     []string // KEY=VALUE entries appended to the inherited environment
	Dir     string

	// ReadyPattern is a substring of an output line that marks this process
	// as ready. Empty means the process is considered ready as soon as it
	// has been spawned.
	ReadyPattern string
}

// ContextMap holds named values a description resolves for test code.
type ContextMap map[string]any

// Description is a declarative set of processes plus the readiness
// notification wired in by the description function. NotifyReady is invoked
// exactly once, when every declared process has met its ready condition.
type Description struct {
	Processes   []ProcessSpec
	NotifyReady func()
}

// Validate checks the description for shape errors before any process is
// started.
func (d *Description) Validate() error {
	if len(d.Processes) == 0 {
		return fmt.Errorf("description declares no processes")
	}
	seen := make(map[string]struct{}, len(d.Processes))
	for i, p := range d.Processes {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("process %d has no name", i)
		}
		if p.Command == "" {
			return fmt.Errorf("process %q has no command", p.Name)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("duplicate process name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
