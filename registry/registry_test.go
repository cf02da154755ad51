package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-launchtest/definition"
)

func writeRunConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewRegistry_LoadsRunConfig(t *testing.T) {
	path := writeRunConfig(t, `
name: web-smoke
context:
  endpoint: localhost:8080
processes:
  - name: web
    command: ./bin/web
    args: ["--port", "8080"]
    env:
      LOG_LEVEL: debug
    ready_pattern: "listening on"
pre_shutdown:
  - name: serves_requests
    output_contains:
      process: web
      pattern: "request handled"
      within: 5s
post_shutdown:
  - name: clean_exit
    exit_code:
      process: web
      equals: 0
  - name: no_panics
    output_contains:
      process: web
      pattern: "shutting down"
`)

	r, err := NewRegistry(Config{Log: log.New(), RunConfigFile: path})
	require.NoError(t, err)

	run := r.TestRun()
	assert.Equal(t, "web-smoke", run.Name)
	require.NoError(t, run.Validate())

	desc, ctx, err := run.NormalizedDescription(func() {})
	require.NoError(t, err)
	require.Len(t, desc.Processes, 1)
	assert.Equal(t, "web", desc.Processes[0].Name)
	assert.Equal(t, "./bin/web", desc.Processes[0].Command)
	assert.Equal(t, []string{"--port", "8080"}, desc.Processes[0].Args)
	assert.Contains(t, desc.Processes[0].Env, "LOG_LEVEL=debug")
	assert.Equal(t, "listening on", desc.Processes[0].ReadyPattern)
	assert.Equal(t, "localhost:8080", ctx["endpoint"])

	assert.Equal(t, []string{"serves_requests"}, run.PreShutdown.CaseNames())
	assert.Equal(t, []string{"clean_exit", "no_panics"}, run.PostShutdown.CaseNames())
}

func TestNewRegistry_MissingFile(t *testing.T) {
	_, err := NewRegistry(Config{Log: log.New(), RunConfigFile: "/nonexistent/run.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load run config")
}

func TestNewRegistry_RequiresConfigFile(t *testing.T) {
	_, err := NewRegistry(Config{Log: log.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run config file is required")
}

func TestNewRegistry_InvalidYAML(t *testing.T) {
	path := writeRunConfig(t, "processes: [unclosed")
	_, err := NewRegistry(Config{Log: log.New(), RunConfigFile: path})
	require.Error(t, err)
}

func TestNewRegistry_NoProcesses(t *testing.T) {
	path := writeRunConfig(t, `
name: empty
processes: []
`)
	_, err := NewRegistry(Config{Log: log.New(), RunConfigFile: path})
	require.Error(t, err)
	assert.True(t, definition.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "no processes declared")
}

func TestNewRegistry_ExitCodeCheckRejectedPreShutdown(t *testing.T) {
	path := writeRunConfig(t, `
name: bad-phase
processes:
  - name: app
    command: ./app
pre_shutdown:
  - name: too_early
    exit_code:
      process: app
      equals: 0
`)
	_, err := NewRegistry(Config{Log: log.New(), RunConfigFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only valid post-shutdown")
}

func TestNewRegistry_CheckRequiresExactlyOneType(t *testing.T) {
	path := writeRunConfig(t, `
name: ambiguous
processes:
  - name: app
    command: ./app
post_shutdown:
  - name: both_types
    output_contains:
      process: app
      pattern: x
    exit_code:
      process: app
      equals: 0
`)
	_, err := NewRegistry(Config{Log: log.New(), RunConfigFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both output_contains and exit_code")

	path = writeRunConfig(t, `
name: none
processes:
  - name: app
    command: ./app
post_shutdown:
  - name: empty_check
`)
	_, err = NewRegistry(Config{Log: log.New(), RunConfigFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no check type")
}

func TestNewRegistry_UnnamedCheck(t *testing.T) {
	path := writeRunConfig(t, `
name: unnamed
processes:
  - name: app
    command: ./app
post_shutdown:
  - exit_code:
      process: app
      equals: 0
`)
	_, err := NewRegistry(Config{Log: log.New(), RunConfigFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no name")
}

func TestRegistry_DefaultCheckWaitApplied(t *testing.T) {
	path := writeRunConfig(t, `
name: defaults
processes:
  - name: app
    command: ./app
`)
	r, err := NewRegistry(Config{Log: log.New(), RunConfigFile: path, DefaultCheckWait: 0})
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckWait, r.config.DefaultCheckWait)

	r, err = NewRegistry(Config{Log: log.New(), RunConfigFile: path, DefaultCheckWait: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, r.config.DefaultCheckWait)
}
