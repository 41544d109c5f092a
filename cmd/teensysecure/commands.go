package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/teensysecure/internal/availability"
	"github.com/muurk/teensysecure/internal/board"
	"github.com/muurk/teensysecure/internal/config"
	"github.com/muurk/teensysecure/internal/console"
	"github.com/muurk/teensysecure/internal/extension"
	"github.com/muurk/teensysecure/internal/logging"
	"github.com/muurk/teensysecure/internal/secure"
	"github.com/muurk/teensysecure/internal/ui"
	"github.com/muurk/teensysecure/internal/urls"
)

// Board and output flags
var (
	fqbnFlag       string
	arduinoCLI     string
	propertiesFile string
	propertyFlags  []string
	toolsDir       string
	logLevel       string
	noOpen         bool
	noInteractive  bool
	dryRun         bool
)

func init() {
	// Common flags for all commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&fqbnFlag, "fqbn", "", "Selected board, e.g. teensy:avr:teensy41 (default console.fqbn)")
	rootCmd.PersistentFlags().StringVar(&arduinoCLI, "arduino-cli", "", "arduino-cli binary used to resolve board details (default console.arduino_cli)")
	rootCmd.PersistentFlags().StringVar(&propertiesFile, "properties", "", "File of key=value build properties")
	rootCmd.PersistentFlags().StringArrayVar(&propertyFlags, "property", nil, "Build property key=value (repeatable)")
	rootCmd.PersistentFlags().StringVar(&toolsDir, "tools-dir", "", "Teensy tools directory containing teensy_secure")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent by default")
	rootCmd.PersistentFlags().BoolVar(&noOpen, "no-open", false, "Print generated folders instead of opening them")
	rootCmd.PersistentFlags().BoolVar(&noInteractive, "no-interactive", false, "Never prompt and stream key generation output directly")

	rootCmd.AddCommand(generateKeyCmd)
	rootCmd.AddCommand(showKeyPathCmd)
	rootCmd.AddCommand(fuseWriteSketchCmd)
	rootCmd.AddCommand(verifySketchCmd)
	rootCmd.AddCommand(lockSecuritySketchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
}

func initLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		// A broken config file is reported by the command itself.
		if settings, err := config.Load(); err == nil {
			level = settings.LogLevel
		}
	}
	return logging.Initialize(level)
}

// commandEnv is one console session for the selected board.
type commandEnv struct {
	settings *config.Settings
	source   console.BoardSource
	details  *board.Details
	host     *console.Host
	session  *extension.Session
}

func newCommandEnv(ctx context.Context) (*commandEnv, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	runner := secure.NewExecutor(logging.Named("exec"))

	source := console.BoardSource{
		FQBN:           board.FQBN(firstNonEmpty(fqbnFlag, settings.Console.FQBN)),
		ArduinoCLI:     firstNonEmpty(arduinoCLI, settings.Console.ArduinoCLI),
		PropertiesFile: propertiesFile,
		Properties:     propertyFlags,
		ToolsDir:       toolsDir,
		PropertyPrefix: settings.Board.ToolPropertyPrefix,
	}
	details, err := source.Resolve(ctx, runner, logging.Named("board"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve board details: %w", err)
	}

	host := console.NewHost(console.Options{
		Interactive: !noInteractive && ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout),
		OpenCommand: settings.Host.OpenCommand,
		NoOpen:      noOpen,
		Runner:      runner,
		Logger:      logging.Named("console"),
	})
	session := extension.NewSession(host, extension.Options{
		BoardPrefix:    settings.Board.FQBNPrefix,
		PropertyPrefix: settings.Board.ToolPropertyPrefix,
		Program:        settings.Board.Program,
		Runner:         runner,
		Logger:         logging.Named("session"),
	})
	session.Activate(source.FQBN, details)

	return &commandEnv{
		settings: settings,
		source:   source,
		details:  details,
		host:     host,
		session:  session,
	}, nil
}

func (e *commandEnv) printHeader(title, command string) {
	fqbn := string(e.source.FQBN)
	if fqbn == "" {
		fqbn = "(none)"
	}
	e.host.Printer().PrintHeader(title, command,
		ui.Detail{Key: "Board", Value: fqbn},
		ui.Detail{Key: "State", Value: e.session.State().String()},
	)
}

// requireTeensy stops commands the IDE would hide because the selected board
// is not a Teensy.
func (e *commandEnv) requireTeensy() error {
	if e.session.State() != availability.Unset {
		return nil
	}
	p := e.host.Printer()
	if e.source.FQBN == "" {
		p.PrintError("No board selected", fmt.Errorf("no FQBN given"), []string{
			"Pass --fqbn teensy:avr:teensy41 (or teensy40, teensyMM)",
			"Or save a default: teensysecure config set console.fqbn teensy:avr:teensy41",
		})
		return fmt.Errorf("no board selected")
	}
	p.PrintError("Not a Teensy board", fmt.Errorf("%s is not a %s board", e.source.FQBN, e.settings.Board.FQBNPrefix), []string{
		"Code security is only available for Teensy 4.x boards",
		"Background: " + urls.CodeSecurity,
	})
	return fmt.Errorf("%s is not a %s board", e.source.FQBN, e.settings.Board.FQBNPrefix)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateKeyCmd implements the 'generate-key' command
var generateKeyCmd = &cobra.Command{
	Use:   "generate-key",
	Short: "Generate a new key.pem",
	Long: `Generate a new encryption key with teensy_secure keygen.

The key is written where teensy_secure keyfile reports (usually key.pem in
the Arduino sketchbook). Keep it private and backed up: a board locked into
secure mode only runs code encrypted with this key.`,
	Example: `  teensysecure generate-key --fqbn teensy:avr:teensy41 --arduino-cli arduino-cli`,
	RunE:    runGenerateKey,
}

func runGenerateKey(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	env, err := newCommandEnv(cmd.Context())
	if err != nil {
		return err
	}
	env.printHeader("Generate Key", "teensysecure generate-key")
	if err := env.requireTeensy(); err != nil {
		return err
	}

	proc, err := env.session.GenerateKey(cmd.Context())
	if err != nil {
		return err
	}
	if err := env.host.RunTerminal(proc); err != nil {
		env.host.Printer().PrintError("Key generation failed", err, []string{
			"Check the terminal output above",
			"Update the Teensy platform: " + urls.BoardsManager,
		})
		return err
	}

	env.host.Printer().PrintSuccess("Key generation finished",
		ui.Detail{Key: "Next", Value: "teensysecure fuse-write-sketch"},
	)
	return nil
}

// showKeyPathCmd implements the 'show-key-path' command
var showKeyPathCmd = &cobra.Command{
	Use:   "show-key-path",
	Short: "Show where key.pem is",
	Long: `Print the key.pem location teensy_secure uses and offer to open it.

When the file does not exist yet, run 'teensysecure generate-key'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "Key File", extension.CommandShowKeyPath)
	},
}

// fuseWriteSketchCmd implements the 'fuse-write-sketch' command
var fuseWriteSketchCmd = &cobra.Command{
	Use:   "fuse-write-sketch",
	Short: "Create the sketch that writes the key to the fuses",
	Long: `Create the FuseWrite sketch from key.pem.

Uploading it writes the key into the Teensy's one-time programmable fuses.
The fuses are not locked, so this step can be tested and repeated with the
same key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "Fuse Write Sketch", extension.CommandFuseWriteSketch)
	},
}

// verifySketchCmd implements the 'verify-sketch' command
var verifySketchCmd = &cobra.Command{
	Use:   "verify-sketch",
	Short: "Create the sketch that verifies secure mode",
	Long: `Create the VerifySecure sketch from key.pem.

Upload it as an encrypted program to confirm the fuses hold the right key
before locking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "Verify Sketch", extension.CommandVerifySketch)
	},
}

// lockSecuritySketchCmd implements the 'lock-security-sketch' command
var lockSecuritySketchCmd = &cobra.Command{
	Use:   "lock-security-sketch",
	Short: "Create the sketch that permanently locks secure mode",
	Long: `Create the LockSecureMode sketch from key.pem.

WARNING: running it is permanent. Afterwards the board only accepts code
encrypted with this key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionCommand(cmd, "Lock Security Sketch", extension.CommandLockSecuritySketch)
	},
}

func runSessionCommand(cmd *cobra.Command, title, id string) error {
	cmd.SilenceUsage = true

	env, err := newCommandEnv(cmd.Context())
	if err != nil {
		return err
	}
	env.printHeader(title, "teensysecure "+cmd.Name())
	if err := env.requireTeensy(); err != nil {
		return err
	}
	return env.session.Execute(cmd.Context(), id)
}

// statusCmd implements the 'status' command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show board, tool and key status",
	Long: `Show what the Teensy security commands see for the selected board: the
availability state, the teensy_secure location and the key.pem location.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	env, err := newCommandEnv(cmd.Context())
	if err != nil {
		return err
	}
	env.printHeader("Status", "teensysecure status")

	details := []ui.Detail{
		{Key: "Platform", Value: platformStatus(env.details)},
	}

	toolchain := env.session.Toolchain()
	program, err := toolchain.ProgramPath(env.details)
	if err != nil {
		details = append(details, ui.Detail{Key: "teensy_secure", Value: "not found"})
		env.host.Printer().PrintWarning("Teensy security commands unavailable", details...)
		return nil
	}
	details = append(details, ui.Detail{Key: "teensy_secure", Value: program})

	keyfile, err := toolchain.KeyFile(cmd.Context(), program)
	if err != nil {
		details = append(details, ui.Detail{Key: "key.pem", Value: err.Error()})
		env.host.Printer().PrintWarning("teensy_secure cannot report the key file", details...)
		return nil
	}
	if secure.KeyFileExists(keyfile) {
		details = append(details, ui.Detail{Key: "key.pem", Value: keyfile})
	} else {
		details = append(details, ui.Detail{Key: "key.pem", Value: keyfile + " (missing)"})
	}

	for _, key := range env.host.ContextKeys() {
		v, _ := env.host.Context(key)
		details = append(details, ui.Detail{Key: key, Value: fmt.Sprint(v)})
	}
	env.host.Printer().PrintSuccess("Teensy security commands available", details...)
	return nil
}

func platformStatus(details *board.Details) string {
	if details == nil {
		return "not resolved"
	}
	return fmt.Sprintf("resolved (%d build properties)", len(details.BuildProperties))
}

// cleanCmd implements the 'clean' command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove sketch folders left in the temp directory",
	Long: `Remove the teensysecure-* folders earlier sketch commands created in the
system temp directory. Sketches you still need should be saved elsewhere
first.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the folders without removing them")
}

func runClean(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	p := ui.NewPrinter(os.Stdout)
	dirs, err := extension.StaleSketchDirs("")
	if err != nil {
		return fmt.Errorf("failed to list sketch folders: %w", err)
	}
	if len(dirs) == 0 {
		p.PrintInfo("Clean", "No sketch folders to remove.")
		return nil
	}

	details := make([]ui.Detail, 0, len(dirs))
	for _, d := range dirs {
		details = append(details, ui.Detail{Key: "Folder", Value: d})
	}
	if dryRun {
		p.PrintWarning(fmt.Sprintf("%d sketch folder(s) would be removed", len(dirs)), details...)
		return nil
	}

	if err := extension.RemoveSketchDirs(dirs); err != nil {
		p.PrintError("Failed to remove some sketch folders", err, nil)
		return err
	}
	p.PrintSuccess(fmt.Sprintf("Removed %d sketch folder(s)", len(dirs)), details...)
	return nil
}
