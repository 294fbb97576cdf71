// Package errors provides typed errors with exit codes for clippy-ctl.
//
// # Error Types
//
// BuilderError is the base error type that wraps an error with an exit code:
//
//	type BuilderError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// Defined exit codes follow the failure taxonomy of the builder:
//
//	ExitSuccess      = 0  // Success
//	ExitGeneralError = 1  // General/unknown errors
//	ExitCapability   = 2  // Sandbox capability missing (terminal)
//	ExitBoot         = 3  // Sandbox boot failed after retries
//	ExitManifest     = 4  // package.json missing or unparseable
//	ExitProcess      = 5  // Install or dev server process failed
//	ExitConfigError  = 6  // Configuration error
//	ExitBackend      = 7  // Step-generation backend failed
//	ExitStructure    = 8  // File/folder path conflict in the tree
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.CapabilityUnavailable("Live preview requires a secure context")
//	errors.BootFailed(4, err)
//	errors.ManifestInvalid("/package.json", err)
//	errors.PathConflict("/src", "file")
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
