// Package exitcodes defines the standard exit codes used by op-launchtest.
package exitcodes

// Exit code constants used by op-launchtest
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when both launch-test phases pass
// * TestFailure (1): Used when one or more cases fail
// * RuntimeErr (2): Used for runtime errors such as panics, bad configuration or other failures
const (
	Success     = 0 // Both phases pass
	TestFailure = 1 // Case failures
	RuntimeErr  = 2 // Runtime errors or bad configuration
)
