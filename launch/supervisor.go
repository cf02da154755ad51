package launch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

// DefaultShutdownGrace is how long a process gets between SIGTERM and
// SIGKILL during shutdown.
const DefaultShutdownGrace = 5 * time.Second

// ExitHook receives a process exit record. Hooks run on the supervisor's
// event goroutines; they must not block.
type ExitHook func(process string, exitCode int)

// OutputHook receives one captured line of process output.
type OutputHook func(process string, stream types.Stream, line string)

// Supervisor starts the processes of a Description, pipes their output and
// reports their exits. Run blocks until every process has exited; Shutdown
// requests termination and is safe to call any number of times, from any
// goroutine.
type Supervisor struct {
	desc  *Description
	log   log.Logger
	grace time.Duration

	onExit   []ExitHook
	onOutput []OutputHook

	mu      sync.Mutex
	cmds    map[string]*exec.Cmd
	started bool

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	readyMu   sync.Mutex
	notReady  map[string]struct{}
	readyOnce sync.Once
}

// NewSupervisor creates a supervisor for the given description.
func NewSupervisor(desc *Description, logger log.Logger) *Supervisor {
	if logger == nil {
		logger = log.New()
	}
	return &Supervisor{
		desc:       desc,
		log:        logger,
		grace:      DefaultShutdownGrace,
		cmds:       make(map[string]*exec.Cmd),
		shutdownCh: make(chan struct{}),
		notReady:   make(map[string]struct{}),
	}
}

// SetShutdownGrace overrides the SIGTERM-to-SIGKILL grace period. Must be
// called before Run.
func (s *Supervisor) SetShutdownGrace(d time.Duration) {
	s.grace = d
}

// OnExit registers an exit hook. Must be called before Run.
func (s *Supervisor) OnExit(h ExitHook) {
	s.onExit = append(s.onExit, h)
}

// OnOutput registers an output hook. Must be called before Run.
func (s *Supervisor) OnOutput(h OutputHook) {
	s.onOutput = append(s.onOutput, h)
}

// Run starts every declared process and blocks until they have all exited,
// whether on their own, via Shutdown, or because ctx was canceled. It is the
// single long-lived blocking call of a launch test.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.desc.Validate(); err != nil {
		return fmt.Errorf("invalid description: %w", err)
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already ran")
	}
	s.started = true
	s.mu.Unlock()

	for _, p := range s.desc.Processes {
		s.readyMu.Lock()
		s.notReady[p.Name] = struct{}{}
		s.readyMu.Unlock()
	}

	var wg sync.WaitGroup
	for _, spec := range s.desc.Processes {
		if err := s.startProcess(spec, &wg); err != nil {
			s.log.Error("Failed to start process", "process", spec.Name, "error", err)
			s.emitExit(spec.Name, -1)
			s.Shutdown()
			wg.Wait()
			return fmt.Errorf("failed to start process %q: %w", spec.Name, err)
		}
	}

	// Treat context cancellation as an external shutdown request.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.log.Info("Context canceled, shutting down processes")
			s.Shutdown()
		case <-watchDone:
		}
	}()

	wg.Wait()
	close(watchDone)
	return nil
}

// Shutdown requests termination of all supervised processes. The first call
// sends SIGTERM and, after the grace period, SIGKILL to anything still
// alive. Subsequent calls are no-ops.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)

		s.mu.Lock()
		cmds := make([]*exec.Cmd, 0, len(s.cmds))
		for _, cmd := range s.cmds {
			cmds = append(cmds, cmd)
		}
		s.mu.Unlock()

		for _, cmd := range cmds {
			if cmd.Process != nil {
				_ = cmd.Process.Signal(syscall.SIGTERM)
			}
		}

		go func() {
			time.Sleep(s.grace)
			for _, cmd := range cmds {
				if cmd.Process != nil {
					_ = cmd.Process.Kill()
				}
			}
		}()
	})
}

func (s *Supervisor) startProcess(spec ProcessSpec, wg *sync.WaitGroup) error {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	s.log.Debug("Process started", "process", spec.Name, "pid", cmd.Process.Pid)

	s.mu.Lock()
	s.cmds[spec.Name] = cmd
	s.mu.Unlock()

	if spec.ReadyPattern == "" {
		s.markReady(spec.Name)
	}

	var scanners sync.WaitGroup
	scanners.Add(2)
	go s.scanOutput(spec, types.StreamStdout, stdout, &scanners)
	go s.scanOutput(spec, types.StreamStderr, stderr, &scanners)

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Drain output before reporting the exit so that captured lines
		// always precede their process's exit record.
		scanners.Wait()
		err := cmd.Wait()
		code := exitCode(err)
		s.log.Debug("Process exited", "process", spec.Name, "exit_code", code)
		s.emitExit(spec.Name, code)
	}()

	return nil
}

func (s *Supervisor) scanOutput(spec ProcessSpec, stream types.Stream, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		for _, h := range s.onOutput {
			h(spec.Name, stream, line)
		}
		if spec.ReadyPattern != "" && strings.Contains(line, spec.ReadyPattern) {
			s.markReady(spec.Name)
		}
	}
}

func (s *Supervisor) markReady(process string) {
	s.readyMu.Lock()
	delete(s.notReady, process)
	allReady := len(s.notReady) == 0
	s.readyMu.Unlock()

	if allReady && s.desc.NotifyReady != nil {
		s.readyOnce.Do(s.desc.NotifyReady)
	}
}

func (s *Supervisor) emitExit(process string, code int) {
	for _, h := range s.onExit {
		h(process, code)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
