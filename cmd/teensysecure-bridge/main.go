// Teensysecure-bridge serves the Teensy security commands to an IDE.
//
// The IDE side is a thin extension that forwards board selection, board
// details and command invocations over a loopback WebSocket and renders what
// the bridge sends back: context key updates, messages, folders to open and
// the "New Key" terminal.
//
// Usage:
//
//	teensysecure-bridge serve [flags]
//
// See 'teensysecure-bridge serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/teensysecure/internal/bridge"
	"github.com/muurk/teensysecure/internal/config"
	"github.com/muurk/teensysecure/internal/extension"
	"github.com/muurk/teensysecure/internal/logging"
	"github.com/muurk/teensysecure/internal/secure"
	"github.com/muurk/teensysecure/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "teensysecure-bridge",
	Short: "Teensy Security IDE Bridge",
	Long: `A loopback WebSocket server that runs the Teensy security commands for an IDE.

Each connection is one IDE window with its own board state. The bridge only
listens on loopback addresses.

Note: For terminal use, see the separate 'teensysecure' utility.`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	listen   string
	logLevel string
	tempDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge",
	Long: `Start the bridge and accept IDE connections on ws://<listen>/ws.

The listen address defaults to bridge.listen from the configuration file
(127.0.0.1:7755). GET /healthz answers with the bridge version.`,
	Example: `  # Start on the configured address
  teensysecure-bridge serve

  # Start on another port with debug logging
  teensysecure-bridge serve --listen 127.0.0.1:9000 --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listen, "listen", "", "Loopback host:port to listen on (default bridge.listen)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&tempDir, "temp-dir", "", "Directory for generated sketch folders (default system temp)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := logLevel
	if level == "" {
		level = settings.LogLevel
	}
	if level == "" {
		// The bridge runs unattended; keep connection events by default.
		level = "info"
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	if listen == "" {
		listen = settings.Bridge.Listen
	}

	srv, err := bridge.New(&bridge.Config{
		Listen: listen,
		Session: extension.Options{
			BoardPrefix:    settings.Board.FQBNPrefix,
			PropertyPrefix: settings.Board.ToolPropertyPrefix,
			Program:        settings.Board.Program,
			TempDir:        tempDir,
			Runner:         secure.NewExecutor(logging.Named("exec")),
			Logger:         logging.Named("session"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner())
	},
}
