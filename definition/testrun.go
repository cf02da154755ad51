// Package definition models one launch-test run: the description function
// producing the processes under test, the two suites to execute around their
// lifetime, and the launch arguments passed through to test code.
package definition

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum-optimism/infra/op-launchtest/launch"
	"github.com/ethereum-optimism/infra/op-launchtest/suite"
)

// DescribeFunc is the expected shape of a run's description function: given
// a readiness callback, it returns the process description (with the
// callback wired into it) and the context values resolved while composing
// the description.
type DescribeFunc func(ready func()) (*launch.Description, launch.ContextMap)

// TestRun is one unit of launch-test configuration. It is immutable once
// built; the coordinator only reads it.
type TestRun struct {
	Name string

	// Describe holds the description function. It is deliberately untyped so
	// that configuration mistakes surface as ConfigurationErrors during
	// validation rather than as compile-path contortions for callers
	// assembling runs dynamically. Any func assignable to DescribeFunc's
	// shape is accepted.
	Describe any

	PreShutdown  *suite.Suite
	PostShutdown *suite.Suite
}

// ConfigurationError indicates a run definition that cannot be executed.
// It is detected during validation and surfaced to the caller before any
// process is started; it is the only error class a launch test raises
// rather than encoding into its results.
type ConfigurationError struct {
	Run string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in run %q: %v", e.Run, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError creates a ConfigurationError naming the offending run.
func NewConfigurationError(run string, err error) *ConfigurationError {
	return &ConfigurationError{Run: run, Err: err}
}

// IsConfigurationError checks if the error is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return err != nil && errors.As(err, &cfgErr)
}

var readyFuncType = reflect.TypeOf(func() {})

// Validate checks that the description function has a compatible signature:
// exactly one parameter accepting a zero-argument callback, returning the
// process description and a context mapping.
func (r *TestRun) Validate() error {
	if r.Describe == nil {
		return NewConfigurationError(r.Name, errors.New("no description function"))
	}
	if _, ok := r.Describe.(DescribeFunc); ok {
		return nil
	}

	t := reflect.TypeOf(r.Describe)
	if t.Kind() != reflect.Func {
		return NewConfigurationError(r.Name, fmt.Errorf("description is %T, not a function", r.Describe))
	}
	if t.IsVariadic() || t.NumIn() != 1 {
		return NewConfigurationError(r.Name,
			fmt.Errorf("description function must take exactly one parameter (the readiness callback), has %d", t.NumIn()))
	}
	if !readyFuncType.AssignableTo(t.In(0)) {
		return NewConfigurationError(r.Name,
			fmt.Errorf("description function parameter must accept a func(), is %s", t.In(0)))
	}
	if t.NumOut() != 2 {
		return NewConfigurationError(r.Name,
			fmt.Errorf("description function must return (description, context), returns %d values", t.NumOut()))
	}
	if t.Out(0) != reflect.TypeOf((*launch.Description)(nil)) {
		return NewConfigurationError(r.Name,
			fmt.Errorf("description function must return *launch.Description first, returns %s", t.Out(0)))
	}
	if !t.Out(1).AssignableTo(reflect.TypeOf(launch.ContextMap(nil))) {
		return NewConfigurationError(r.Name,
			fmt.Errorf("description function must return launch.ContextMap second, returns %s", t.Out(1)))
	}
	return nil
}

// NormalizedDescription invokes the description function with the given
// readiness callback. Callers are expected to have run Validate first.
func (r *TestRun) NormalizedDescription(ready func()) (*launch.Description, launch.ContextMap, error) {
	switch fn := r.Describe.(type) {
	case DescribeFunc:
		desc, ctx := fn(ready)
		return checkDescription(desc, ctx)
	case func(func()) (*launch.Description, launch.ContextMap):
		desc, ctx := fn(ready)
		return checkDescription(desc, ctx)
	}

	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	out := reflect.ValueOf(r.Describe).Call([]reflect.Value{reflect.ValueOf(ready)})
	desc, _ := out[0].Interface().(*launch.Description)
	ctx, _ := out[1].Interface().(launch.ContextMap)
	return checkDescription(desc, ctx)
}

func checkDescription(desc *launch.Description, ctx launch.ContextMap) (*launch.Description, launch.ContextMap, error) {
	if desc == nil {
		return nil, nil, errors.New("description function returned a nil description")
	}
	if ctx == nil {
		ctx = launch.ContextMap{}
	}
	return desc, ctx, nil
}

// ParseLaunchArguments parses raw key=value strings into a name-to-value
// mapping. Parsing is a pass-through: values are kept verbatim, including
// any '=' after the first.
func ParseLaunchArguments(args []string) (map[string]string, error) {
	parsed := make(map[string]string, len(args))
	for _, raw := range args {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed launch argument %q, expected key=value", raw)
		}
		parsed[key] = value
	}
	return parsed, nil
}
