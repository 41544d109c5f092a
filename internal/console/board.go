package console

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/board"
	"github.com/muurk/teensysecure/internal/logging"
	"github.com/muurk/teensysecure/internal/secure"
)

// BoardSource describes where the console learns the selected board and its
// build properties. In the IDE these arrive as events; on the command line
// they come from flags, a properties file or arduino-cli.
type BoardSource struct {
	// FQBN is the selected board. Empty means no board is selected.
	FQBN board.FQBN
	// ArduinoCLI, when set, is run as `board details -b FQBN
	// --show-properties=expanded` to resolve the build properties.
	ArduinoCLI string
	// PropertiesFile holds key=value build properties, for example saved
	// arduino-cli output.
	PropertiesFile string
	// Properties are extra key=value pairs, applied after the file.
	Properties []string
	// ToolsDir sets <PropertyPrefix>.path directly.
	ToolsDir string
	// PropertyPrefix names the tools property ToolsDir is stored under.
	PropertyPrefix string
}

// Resolve returns the board details for the source, or nil when the board's
// platform cannot be resolved (nothing selected, no property source, or
// arduino-cli reporting the platform as not installed).
func (s BoardSource) Resolve(ctx context.Context, runner secure.Runner, logger *zap.Logger) (*board.Details, error) {
	if s.FQBN == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var props board.BuildProperties
	resolved := false

	if s.ArduinoCLI != "" {
		cliProps, ok, err := s.arduinoCLIProperties(ctx, runner, logger)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		props = cliProps
		resolved = true
	}

	if s.PropertiesFile != "" {
		f, err := os.Open(s.PropertiesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open properties file: %w", err)
		}
		fileProps, err := board.ParseProperties(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", s.PropertiesFile, err)
		}
		for _, p := range fileProps {
			props.Set(p.Key, p.Value)
		}
		resolved = true
	}

	for _, kv := range s.Properties {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q (want key=value)", kv)
		}
		props.Set(key, value)
		resolved = true
	}

	if s.ToolsDir != "" {
		prefix := s.PropertyPrefix
		if prefix == "" {
			prefix = secure.DefaultPropertyPrefix
		}
		props.Set(prefix+".path", s.ToolsDir)
		resolved = true
	}

	if !resolved {
		return nil, nil
	}

	logger.Debug("resolved board details",
		zap.String("fqbn", string(s.FQBN)),
		zap.Int("properties", len(props)),
	)
	return &board.Details{FQBN: s.FQBN, BuildProperties: props}, nil
}

// arduinoCLIProperties runs arduino-cli. ok is false when arduino-cli ran but
// could not resolve the board, which is how an uninstalled platform shows up.
func (s BoardSource) arduinoCLIProperties(ctx context.Context, runner secure.Runner, logger *zap.Logger) (board.BuildProperties, bool, error) {
	args := []string{"board", "details", "-b", string(s.FQBN), "--show-properties=expanded"}
	result, err := runner.Run(ctx, s.ArduinoCLI, args...)
	if err != nil {
		return nil, false, &secure.ProcessSpawnError{Program: s.ArduinoCLI, Args: args, Err: err}
	}
	if result.ExitCode != 0 {
		logger.Info("arduino-cli could not resolve board, treating platform as not installed",
			zap.String("fqbn", string(s.FQBN)),
			zap.Int("exit_code", result.ExitCode),
		)
		logging.LogRawBytes("arduino-cli stderr", result.Stderr)
		return nil, false, nil
	}

	props, err := board.ParseProperties(bytes.NewReader(result.Stdout))
	if err != nil {
		logging.LogRawBytes("arduino-cli stdout", result.Stdout)
		return nil, false, fmt.Errorf("failed to parse arduino-cli output: %w", err)
	}
	return props, true, nil
}
