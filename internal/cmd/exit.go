package cmd

// Exit codes of the builder CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitValidationError indicates invalid configuration or arguments.
	ExitValidationError = 2

	// ExitLockError indicates the build cache was taken over or its lock
	// file vanished during the run.
	ExitLockError = 3

	// ExitModuleFailed indicates at least one module failed to build.
	ExitModuleFailed = 4

	// ExitNotFound indicates a module, file or cache record was not found.
	ExitNotFound = 5
)

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitValidationError:
		return "Validation Error"
	case ExitLockError:
		return "Lock Error"
	case ExitModuleFailed:
		return "Module Failed"
	case ExitNotFound:
		return "Not Found"
	default:
		return "Unknown"
	}
}
