package extension

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/availability"
	"github.com/muurk/teensysecure/internal/board"
	"github.com/muurk/teensysecure/internal/secure"
)

// Options configures a Session. Zero values select the Teensy defaults.
type Options struct {
	// BoardPrefix is the vendor:architecture the commands apply to.
	BoardPrefix string
	// PropertyPrefix is the build property prefix naming the tools directory.
	PropertyPrefix string
	// Program is the helper binary name without .exe.
	Program string
	// TempDir is where sketch folders are created. Empty means os.TempDir.
	TempDir string
	// Runner starts teensy_secure. Defaults to a secure.Executor.
	Runner secure.Runner
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Session is one activation of the Teensy security commands against a host.
// It owns the availability state and the last board the host reported.
type Session struct {
	host      Host
	toolchain *secure.Toolchain
	machine   *availability.Machine
	tempDir   string
	logger    *zap.Logger

	mu      sync.Mutex
	details *board.Details
}

// NewSession creates a session. Nothing is published until Activate.
func NewSession(host Host, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = secure.NewExecutor(logger)
	}

	s := &Session{
		host:      host,
		toolchain: secure.NewToolchain(opts.PropertyPrefix, opts.Program, runner, logger),
		tempDir:   opts.TempDir,
		logger:    logger,
	}
	s.machine = availability.NewMachine(opts.BoardPrefix, host, s, secure.KeyFileExists, logger)
	return s
}

// Activate publishes the initial availability for the board the host has
// selected at startup.
func (s *Session) Activate(fqbn board.FQBN, details *board.Details) {
	s.setDetails(details)
	s.logger.Info("session activated",
		zap.String("fqbn", string(fqbn)),
		zap.Bool("has_details", details != nil),
	)
	s.machine.Activate(fqbn, details)
}

// SelectBoard forwards a board selection change.
func (s *Session) SelectBoard(fqbn board.FQBN) {
	s.machine.SelectBoard(fqbn)
}

// ResolveBoardDetails forwards resolved board details (nil when the platform
// of the selected board is not installed).
func (s *Session) ResolveBoardDetails(details *board.Details) {
	s.setDetails(details)
	s.machine.ResolveBoardDetails(details)
}

// State returns the current availability state.
func (s *Session) State() availability.State {
	return s.machine.State()
}

// Toolchain exposes the toolchain for read-only queries such as status output.
func (s *Session) Toolchain() *secure.Toolchain {
	return s.toolchain
}

// Details returns the last board details the host reported.
func (s *Session) Details() *board.Details {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details
}

func (s *Session) setDetails(details *board.Details) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = details
}

// Execute runs the command with the given ID. Any message the user needs has
// already been shown through the host when an error is returned; callers log
// it, they do not show it again.
func (s *Session) Execute(ctx context.Context, id string) error {
	s.logger.Debug("executing command", zap.String("command", id))

	var err error
	switch id {
	case CommandCreateKey:
		_, err = s.GenerateKey(ctx)
	case CommandShowKeyPath:
		err = s.ShowKeyPath(ctx)
	case CommandFuseWriteSketch:
		_, err = s.FuseWriteSketch(ctx)
	case CommandVerifySketch:
		_, err = s.VerifySketch(ctx)
	case CommandLockSecuritySketch:
		_, err = s.LockSecuritySketch(ctx)
	default:
		return fmt.Errorf("unknown command %q", id)
	}

	if err != nil {
		s.logger.Warn("command failed", zap.String("command", id), zap.Error(err))
	}
	return err
}

// ProbeKeyFile implements availability.KeyFileProber. A missing toolchain is
// not reported to the user, an outdated one is.
func (s *Session) ProbeKeyFile(details *board.Details) (string, error) {
	program, err := s.programPath(details, false)
	if err != nil {
		return "", err
	}
	return s.keyFile(context.Background(), program)
}

// programPath resolves teensy_secure for details, showing the not found
// message when report is set.
func (s *Session) programPath(details *board.Details, report bool) (string, error) {
	program, err := s.toolchain.ProgramPath(details)
	if err != nil {
		if report {
			s.host.ShowError(MsgToolNotFound)
		}
		return "", err
	}
	return program, nil
}

func (s *Session) keyFile(ctx context.Context, program string) (string, error) {
	keyfile, err := s.toolchain.KeyFile(ctx, program)
	if err != nil {
		var outdated *secure.ToolOutdatedError
		if errors.As(err, &outdated) {
			s.host.ShowError(MsgToolOutdated)
		}
		return "", err
	}
	return keyfile, nil
}

// resolve runs the program path and key file steps every command starts with.
func (s *Session) resolve(ctx context.Context) (program, keyfile string, err error) {
	program, err = s.programPath(s.Details(), true)
	if err != nil {
		return "", "", err
	}
	keyfile, err = s.keyFile(ctx, program)
	if err != nil {
		return "", "", err
	}
	return program, keyfile, nil
}
