// Package registry loads declarative launch-test definitions from YAML: the
// processes under test, context values for test code, and the checks that
// become the pre-shutdown and post-shutdown suites.
package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-launchtest/definition"
	"github.com/ethereum-optimism/infra/op-launchtest/launch"
	"github.com/ethereum-optimism/infra/op-launchtest/suite"
)

// DefaultCheckWait bounds how long a pre-shutdown output check waits for its
// pattern before failing.
const DefaultCheckWait = 10 * time.Second

// Registry holds the test run loaded from a run config file.
type Registry struct {
	config Config
	run    *definition.TestRun
}

// Config contains registry configuration
type Config struct {
	Log              log.Logger
	RunConfigFile    string
	DefaultCheckWait time.Duration
}

// RunConfig is the YAML shape of a launch-test definition.
type RunConfig struct {
	Name         string            `yaml:"name"`
	Context      map[string]string `yaml:"context,omitempty"`
	Processes    []ProcessConfig   `yaml:"processes"`
	PreShutdown  []CheckConfig     `yaml:"pre_shutdown,omitempty"`
	PostShutdown []CheckConfig     `yaml:"post_shutdown,omitempty"`
}

// ProcessConfig declares one process under test.
type ProcessConfig struct {
	Name         string            `yaml:"name"`
	Command      string            `yaml:"command"`
	Args         []string          `yaml:"args,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	Dir          string            `yaml:"dir,omitempty"`
	ReadyPattern string            `yaml:"ready_pattern,omitempty"`
}

// CheckConfig is one declarative check, compiled into a suite case. Exactly
// one of OutputContains or ExitCode must be set; ExitCode checks are only
// meaningful post-shutdown.
type CheckConfig struct {
	Name           string               `yaml:"name"`
	OutputContains *OutputContainsCheck `yaml:"output_contains,omitempty"`
	ExitCode       *ExitCodeCheck       `yaml:"exit_code,omitempty"`
}

// OutputContainsCheck asserts that a process emitted a line containing
// Pattern, waiting up to Within in the pre-shutdown phase.
type OutputContainsCheck struct {
	Process string         `yaml:"process"`
	Pattern string         `yaml:"pattern"`
	Within  *time.Duration `yaml:"within,omitempty"`
}

// ExitCodeCheck asserts a process's final exit code.
type ExitCodeCheck struct {
	Process string `yaml:"process"`
	Equals  int    `yaml:"equals"`
}

// NewRegistry creates a new registry instance and loads its run config.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.RunConfigFile == "" {
		return nil, fmt.Errorf("run config file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.DefaultCheckWait <= 0 {
		cfg.DefaultCheckWait = DefaultCheckWait
	}

	r := &Registry{config: cfg}
	if err := r.loadRun(cfg.RunConfigFile); err != nil {
		return nil, fmt.Errorf("failed to load run config: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "run", r.run.Name,
		"pre_checks", len(r.run.PreShutdown.Cases), "post_checks", len(r.run.PostShutdown.Cases))
	return r, nil
}

// TestRun returns the loaded test run definition.
func (r *Registry) TestRun() *definition.TestRun {
	return r.run
}

func (r *Registry) loadRun(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	run, err := r.buildRun(&cfg)
	if err != nil {
		return err
	}
	r.run = run
	return nil
}

func (r *Registry) buildRun(cfg *RunConfig) (*definition.TestRun, error) {
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	if len(cfg.Processes) == 0 {
		return nil, definition.NewConfigurationError(name, fmt.Errorf("no processes declared"))
	}

	specs := make([]launch.ProcessSpec, 0, len(cfg.Processes))
	for _, p := range cfg.Processes {
		specs = append(specs, launch.ProcessSpec{
			Name:         p.Name,
			Command:      p.Command,
			Args:         p.Args,
			Env:          flattenEnv(p.Env),
			Dir:          p.Dir,
			ReadyPattern: p.ReadyPattern,
		})
	}

	contextMap := launch.ContextMap{}
	for k, v := range cfg.Context {
		contextMap[k] = v
	}

	pre, err := r.buildSuite(name+"/pre-shutdown", cfg.PreShutdown, true)
	if err != nil {
		return nil, definition.NewConfigurationError(name, err)
	}
	post, err := r.buildSuite(name+"/post-shutdown", cfg.PostShutdown, false)
	if err != nil {
		return nil, definition.NewConfigurationError(name, err)
	}

	describe := definition.DescribeFunc(func(ready func()) (*launch.Description, launch.ContextMap) {
		return &launch.Description{
			Processes:   specs,
			NotifyReady: ready,
		}, contextMap
	})

	return &definition.TestRun{
		Name:         name,
		Describe:     describe,
		PreShutdown:  pre,
		PostShutdown: post,
	}, nil
}

func (r *Registry) buildSuite(name string, checks []CheckConfig, preShutdown bool) (*suite.Suite, error) {
	s := &suite.Suite{Name: name}
	for i, check := range checks {
		if check.Name == "" {
			return nil, fmt.Errorf("check %d in %s has no name", i, name)
		}
		c, err := r.buildCase(check, preShutdown)
		if err != nil {
			return nil, fmt.Errorf("check %q: %w", check.Name, err)
		}
		s.Cases = append(s.Cases, c)
	}
	return s, nil
}

func (r *Registry) buildCase(check CheckConfig, preShutdown bool) (suite.Case, error) {
	switch {
	case check.OutputContains != nil && check.ExitCode != nil:
		return suite.Case{}, fmt.Errorf("declares both output_contains and exit_code")
	case check.OutputContains != nil:
		return r.buildOutputCase(check.Name, check.OutputContains), nil
	case check.ExitCode != nil:
		if preShutdown {
			return suite.Case{}, fmt.Errorf("exit_code checks are only valid post-shutdown")
		}
		return buildExitCodeCase(check.Name, check.ExitCode), nil
	default:
		return suite.Case{}, fmt.Errorf("declares no check type")
	}
}

func (r *Registry) buildOutputCase(name string, check *OutputContainsCheck) suite.Case {
	wait := r.config.DefaultCheckWait
	if check.Within != nil {
		wait = *check.Within
	}
	process, pattern := check.Process, check.Pattern
	return suite.Case{
		Name: name,
		Run: func(t *suite.T) {
			if !t.ProcOutput().WaitOutput(process, pattern, wait) {
				t.Errorf("process %q never printed %q", process, pattern)
			}
		},
	}
}

func buildExitCodeCase(name string, check *ExitCodeCheck) suite.Case {
	process, want := check.Process, check.Equals
	return suite.Case{
		Name: name,
		Run: func(t *suite.T) {
			rec, ok := t.ProcInfo().Exit(process)
			if !ok {
				t.Fatalf("no exit record for process %q", process)
			}
			if rec.ExitCode != want {
				t.Errorf("process %q exited with %d, want %d", process, rec.ExitCode, want)
			}
		},
	}
}

func flattenEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
