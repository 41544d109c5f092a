package extension

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/secure"
	"github.com/muurk/teensysecure/internal/terminal"
)

// TempDirPattern is the os.MkdirTemp pattern of every sketch folder parent.
const TempDirPattern = "teensysecure-*"

// sketchFile is one codegen step of a sketch command.
type sketchFile struct {
	op   string
	name string
}

// sketch describes the folder a sketch command generates.
type sketch struct {
	folder string
	files  []sketchFile
}

var (
	fuseWriteSketch = sketch{
		folder: "FuseWrite",
		files: []sketchFile{
			{op: secure.OpFuseIno, name: "FuseWrite.ino"},
			{op: secure.OpTestDataIno, name: "testdata.ino"},
		},
	}
	verifySketch = sketch{
		folder: "VerifySecure",
		files:  []sketchFile{{op: secure.OpVerifyIno, name: "VerifySecure.ino"}},
	}
	lockSecuritySketch = sketch{
		folder: "LockSecureMode",
		files:  []sketchFile{{op: secure.OpLockIno, name: "LockSecureMode.ino"}},
	}
)

// GenerateKey starts `teensy_secure keygen` with its output shown in a "New
// Key" terminal. It returns as soon as the process is running; the process
// outlives the call and is reaped by its handle.
func (s *Session) GenerateKey(ctx context.Context) (*secure.Process, error) {
	program, keyfile, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	// Output arriving before the terminal is shown stays buffered in pty.
	pty := terminal.New()
	proc, err := s.toolchain.Keygen(ctx, program, keyfile, pty)
	if err != nil {
		pty.Close()
		return nil, err
	}
	s.host.ShowTerminal(TerminalName, pty)
	s.logger.Info("key generation started",
		zap.String("keyfile", keyfile),
		zap.Int("pid", proc.Pid()),
	)

	// The key is not on disk yet, but the sketch commands should become
	// available without waiting for another details event.
	s.machine.MarkKeyFilePresent()
	return proc, nil
}

// ShowKeyPath tells the user which key.pem teensy_secure would use and
// offers to open it when it exists.
func (s *Session) ShowKeyPath(ctx context.Context) error {
	_, keyfile, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	var actions []string
	if secure.KeyFileExists(keyfile) {
		actions = append(actions, ActionOpenKeyFile)
	}
	if choice := s.host.ShowInfo(ctx, MsgKeyLocation+keyfile, actions...); choice == ActionOpenKeyFile {
		if err := s.host.OpenFile(keyfile); err != nil {
			return fmt.Errorf("failed to open key file: %w", err)
		}
	}
	return nil
}

// FuseWriteSketch generates the fuse writing sketch and its test data.
// It returns the sketch folder.
func (s *Session) FuseWriteSketch(ctx context.Context) (string, error) {
	return s.generateSketch(ctx, fuseWriteSketch)
}

// VerifySketch generates the sketch that checks the key was written.
func (s *Session) VerifySketch(ctx context.Context) (string, error) {
	return s.generateSketch(ctx, verifySketch)
}

// LockSecuritySketch generates the sketch that permanently locks secure mode.
func (s *Session) LockSecuritySketch(ctx context.Context) (string, error) {
	return s.generateSketch(ctx, lockSecuritySketch)
}

// generateSketch writes every file of sk into a fresh temp folder and asks
// the host to open it. A failed codegen step does not stop the remaining
// steps or the open request; the failures are returned together afterwards.
// Nothing is rolled back.
func (s *Session) generateSketch(ctx context.Context, sk sketch) (string, error) {
	program, keyfile, err := s.resolve(ctx)
	if err != nil {
		return "", err
	}
	if !secure.KeyFileExists(keyfile) {
		s.host.ShowError(KeyFileMissingMessage(keyfile))
		return "", &secure.KeyFileMissingError{Path: keyfile}
	}

	dir, err := s.createSketchFolder(sk.folder)
	if err != nil {
		return "", err
	}

	var errs []error
	for _, f := range sk.files {
		if err := s.writeCode(ctx, program, keyfile, f, dir); err != nil {
			s.logger.Warn("sketch file not generated",
				zap.String("op", f.op),
				zap.String("file", f.name),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}

	if err := s.host.OpenFolder(dir, true); err != nil {
		errs = append(errs, fmt.Errorf("failed to open sketch folder: %w", err))
	}
	return dir, errors.Join(errs...)
}

func (s *Session) createSketchFolder(name string) (string, error) {
	parent, err := os.MkdirTemp(s.tempDir, TempDirPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	dir := filepath.Join(parent, name)
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create sketch folder: %w", err)
	}
	s.logger.Debug("temporary sketch directory", zap.String("path", dir))
	return dir, nil
}

func (s *Session) writeCode(ctx context.Context, program, keyfile string, f sketchFile, dir string) error {
	code, err := s.toolchain.Codegen(ctx, program, keyfile, f.op)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, f.name), code, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.name, err)
	}
	return nil
}
