package errors

import (
	"errors"
	"fmt"
)

// Exit codes for clippy-ctl
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitCapability   = 2
	ExitBoot         = 3
	ExitManifest     = 4
	ExitProcess      = 5
	ExitConfigError  = 6
	ExitBackend      = 7
	ExitStructure    = 8
)

// BuilderError is the base error type for clippy-ctl
type BuilderError struct {
	Code    int
	Message string
	Cause   error
}

func (e *BuilderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BuilderError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *BuilderError) ExitCode() int {
	return e.Code
}

// New creates a new BuilderError
func New(code int, message string) *BuilderError {
	return &BuilderError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a BuilderError
func Wrap(code int, message string, cause error) *BuilderError {
	return &BuilderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// CapabilityUnavailable returns a terminal error for a missing sandbox
// capability. The message is shown to the user as-is.
func CapabilityUnavailable(message string) *BuilderError {
	return New(ExitCapability, message)
}

// BootFailed returns an error for a sandbox that failed to boot after retries
func BootFailed(attempts int, cause error) *BuilderError {
	return Wrap(ExitBoot, fmt.Sprintf("sandbox boot failed after %d attempts", attempts), cause)
}

// ManifestInvalid returns an error for a manifest that cannot be parsed or updated
func ManifestInvalid(path string, cause error) *BuilderError {
	return Wrap(ExitManifest, fmt.Sprintf("invalid manifest %s", path), cause)
}

// ManifestNotFound returns an error when no manifest exists in the tree.
// The message is written to the operator log as is.
func ManifestNotFound(name string) *BuilderError {
	return New(ExitManifest, fmt.Sprintf("No %s found", name))
}

// ProcessFailed returns an error for a sandbox process that could not run
func ProcessFailed(command string, cause error) *BuilderError {
	return Wrap(ExitProcess, fmt.Sprintf("process %q failed", command), cause)
}

// PathConflict returns an error when a file and a folder claim the same path
func PathConflict(path, existing string) *BuilderError {
	return New(ExitStructure, fmt.Sprintf("path %s conflicts with existing %s", path, existing))
}

// BackendFailed returns an error for backend endpoint failures
func BackendFailed(endpoint string, cause error) *BuilderError {
	return Wrap(ExitBackend, fmt.Sprintf("backend %s request failed", endpoint), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *BuilderError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *BuilderError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var builderErr *BuilderError
	if errors.As(err, &builderErr) {
		return builderErr.ExitCode()
	}
	return ExitGeneralError
}

// HasCode reports whether err carries a BuilderError with the given code
func HasCode(err error, code int) bool {
	var builderErr *BuilderError
	if errors.As(err, &builderErr) {
		return builderErr.Code == code
	}
	return false
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
