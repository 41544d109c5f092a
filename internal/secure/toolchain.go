package secure

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/board"
)

// Codegen subcommands and the sketch files their output is written to.
const (
	OpFuseIno     = "fuseino"
	OpTestDataIno = "testdataino"
	OpVerifyIno   = "verifyino"
	OpLockIno     = "lockino"

	opKeyFile = "keyfile"
	opKeygen  = "keygen"
)

// Toolchain invokes the teensy_secure helper of the currently selected board.
//
// Paths it returns are valid for the immediate call only. Boards Manager can
// upgrade, downgrade or remove the platform at any time, and teensy_secure
// picks its key.pem from several locations, so neither path is cached.
type Toolchain struct {
	// PropertyPrefix is the build property prefix that names the tools directory.
	PropertyPrefix string
	// Program is the helper binary name without the .exe suffix.
	Program string

	runner Runner
	logger *zap.Logger
}

// NewToolchain creates a toolchain using runner to start processes.
// Empty propertyPrefix or program fall back to the Teensy defaults.
func NewToolchain(propertyPrefix, program string, runner Runner, logger *zap.Logger) *Toolchain {
	if propertyPrefix == "" {
		propertyPrefix = DefaultPropertyPrefix
	}
	if program == "" {
		program = DefaultProgram
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolchain{
		PropertyPrefix: propertyPrefix,
		Program:        program,
		runner:         runner,
		logger:         logger,
	}
}

// ProgramPath returns the full path of teensy_secure for the given board.
func (t *Toolchain) ProgramPath(details *board.Details) (string, error) {
	dir, found := LocateTool(details, t.PropertyPrefix)
	path, ok := programPath(dir, found, t.Program)
	if !ok {
		err := &ToolNotFoundError{PropertyPrefix: t.PropertyPrefix}
		if details != nil {
			err.FQBN = string(details.FQBN)
		}
		return "", err
	}
	return path, nil
}

// KeyFile asks teensy_secure which key.pem it would use.
func (t *Toolchain) KeyFile(ctx context.Context, program string) (string, error) {
	args := []string{opKeyFile}
	result, err := t.runner.Run(ctx, program, args...)
	if err != nil {
		return "", &ProcessSpawnError{Program: program, Args: args, Err: err}
	}

	if result.ExitCode != 0 {
		t.logger.Warn("teensy_secure keyfile query failed, tool is likely outdated",
			zap.String("program", program),
			zap.Int("exit_code", result.ExitCode),
		)
		return "", &ToolOutdatedError{
			Program:  program,
			ExitCode: result.ExitCode,
			Stderr:   string(result.Stderr),
		}
	}

	if len(result.Stdout) == 0 {
		return "", &EmptyOutputError{Program: program, Args: args}
	}

	path := strings.TrimRightFunc(string(result.Stdout), unicode.IsSpace)
	if path == "" {
		return "", &EmptyOutputError{Program: program, Args: args}
	}

	t.logger.Debug("resolved key file", zap.String("path", path))
	return path, nil
}

// Codegen runs one of the sketch generating subcommands and returns its
// stdout verbatim.
func (t *Toolchain) Codegen(ctx context.Context, program, keyfile, op string) ([]byte, error) {
	args := []string{op, keyfile}
	result, err := t.runner.Run(ctx, program, args...)
	if err != nil {
		return nil, &ProcessSpawnError{Program: program, Args: args, Err: err}
	}
	if result.ExitCode != 0 {
		return nil, &ProcessExitError{
			Program:  program,
			Args:     args,
			ExitCode: result.ExitCode,
			Stderr:   string(result.Stderr),
		}
	}
	if len(result.Stdout) == 0 {
		return nil, &EmptyOutputError{Program: program, Args: args}
	}
	return result.Stdout, nil
}

// Keygen starts `teensy_secure keygen <keyfile>` and streams both output
// channels into out with newlines rewritten for terminal display.
// It does not wait for the key to be written.
func (t *Toolchain) Keygen(ctx context.Context, program, keyfile string, out io.Writer) (*Process, error) {
	args := []string{opKeygen, keyfile}
	proc, err := t.runner.Start(ctx, program, args, &CRLFWriter{W: out})
	if err != nil {
		return nil, &ProcessSpawnError{Program: program, Args: args, Err: err}
	}
	return proc, nil
}

// KeyFileExists reports whether path names an existing file.
func KeyFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CRLFWriter rewrites every "\n" to "\r\n" before passing a write on.
type CRLFWriter struct {
	W io.Writer
}

// Write implements io.Writer. It reports len(p) on success so callers see
// their own byte count rather than the expanded one.
func (c *CRLFWriter) Write(p []byte) (int, error) {
	if _, err := c.W.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
