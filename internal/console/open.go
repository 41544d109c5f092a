package console

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/secure"
)

// opener hands folders and files to a desktop application.
type opener struct {
	command string
	disable bool
	runner  secure.Runner
	logger  *zap.Logger
}

func (o *opener) open(path string) error {
	if o.disable {
		return nil
	}
	program, args := openCommand(o.command, runtime.GOOS, path)
	proc, err := o.runner.Start(context.Background(), program, args, io.Discard)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", program, err)
	}
	o.logger.Debug("opener started",
		zap.String("program", program),
		zap.String("path", path),
		zap.Int("pid", proc.Pid()),
	)
	return nil
}

// openCommand builds the command line that opens path. A configured command
// may carry its own arguments ("code --new-window"); path is appended.
func openCommand(configured, goos, path string) (string, []string) {
	if fields := strings.Fields(configured); len(fields) > 0 {
		return fields[0], append(fields[1:], path)
	}
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "explorer", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}
