// Package exitcode maps planner errors to process exit codes for
// consistent scripting against the CLI.
package exitcode

import (
	"os"

	"github.com/felixgeelhaar/taskplan/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// NotFound indicates a plan or task lookup failed
	NotFound = 3

	// Conflict indicates a duplicate identifier
	Conflict = 4

	// StoreError indicates the persistence layer failed
	StoreError = 5

	// ConfigError indicates the configuration could not be loaded
	ConfigError = 6

	// Interrupted indicates the operation was cancelled by the user
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on the error's code
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error to its exit code.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodePlanNotFound, errors.ErrCodeTaskNotFound, errors.ErrCodeParentNotFound:
		return NotFound
	case errors.ErrCodePlanInvalid, errors.ErrCodeTaskInvalid:
		return UsageError
	case errors.ErrCodePlanDuplicate:
		return Conflict
	case errors.ErrCodeStoreLoad, errors.ErrCodeStoreSave,
		errors.ErrCodeStoreMigration, errors.ErrCodeStoreConsistency:
		return StoreError
	case errors.ErrCodeConfigNotFound, errors.ErrCodeConfigInvalid:
		return ConfigError
	default:
		return GeneralError
	}
}
