package secure

import (
	"fmt"
	"strings"
)

// ToolNotFoundError means no installed teensy_secure could be located,
// either because no board is selected or the platform is not installed.
type ToolNotFoundError struct {
	// PropertyPrefix is the build property prefix that was searched
	PropertyPrefix string
	// FQBN is the board the lookup ran against (empty when absent)
	FQBN string
}

func (e *ToolNotFoundError) Error() string {
	if e.FQBN == "" {
		return fmt.Sprintf("teensy_secure not found: no board details (searched %q)", e.PropertyPrefix)
	}
	return fmt.Sprintf("teensy_secure not found in build properties of %s (searched %q)", e.FQBN, e.PropertyPrefix)
}

// ToolOutdatedError means the installed teensy_secure does not know the
// keyfile subcommand.
type ToolOutdatedError struct {
	// Program is the teensy_secure path that was invoked
	Program string
	// ExitCode is the exit code of the keyfile query
	ExitCode int
	// Stderr is what the tool printed, kept for logs
	Stderr string
}

func (e *ToolOutdatedError) Error() string {
	return fmt.Sprintf("%s does not support the keyfile subcommand (exit code %d)", e.Program, e.ExitCode)
}

// KeyFileMissingError means the key file reported by teensy_secure does not
// exist on disk.
type KeyFileMissingError struct {
	Path string
}

func (e *KeyFileMissingError) Error() string {
	return fmt.Sprintf("key file %s does not exist", e.Path)
}

// ProcessSpawnError is a failure to start teensy_secure at all.
type ProcessSpawnError struct {
	Program string
	Args    []string
	Err     error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("failed to start %s %s: %v", e.Program, strings.Join(e.Args, " "), e.Err)
}

func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}

// ProcessExitError is a teensy_secure invocation that exited nonzero.
type ProcessExitError struct {
	Program  string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ProcessExitError) Error() string {
	msg := fmt.Sprintf("%s %s exited with code %d", e.Program, strings.Join(e.Args, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\nstderr: " + stderr
	}
	return msg
}

// EmptyOutputError is a teensy_secure invocation that succeeded but printed
// nothing on stdout.
type EmptyOutputError struct {
	Program string
	Args    []string
}

func (e *EmptyOutputError) Error() string {
	return fmt.Sprintf("%s %s produced no output", e.Program, strings.Join(e.Args, " "))
}
