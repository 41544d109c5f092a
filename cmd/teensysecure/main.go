// Teensysecure runs the Teensy secure boot commands from a terminal.
//
// It wraps PJRC's teensy_secure utility the way the Arduino IDE's Teensy
// Security extension does: it finds the utility through the selected board's
// build properties, asks it where key.pem lives, and generates the key,
// fuse-write, verify and lock sketches.
//
// Usage:
//
//	teensysecure [command] --fqbn teensy:avr:teensy41 [flags]
//
// Board properties come from --arduino-cli, --properties, --property or
// --tools-dir. See 'teensysecure --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/teensysecure/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "teensysecure",
	Short: "Teensy Secure Boot Utility",
	Long: `Manage Teensy 4.x code security from the command line.

Generates the encryption key used for secure boot and the sketches that write
it to the fuses, verify it, and permanently lock the board into secure mode.
All cryptographic work is done by PJRC's teensy_secure utility, which ships
with the Teensy platform (` + version.MinimumTeensy + ` or later).

The board is selected with --fqbn (or console.fqbn in the configuration).
Commands only apply to teensy:avr boards whose platform is installed.`,
	Version:           version.Version,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
	Example: `  # Resolve the board through arduino-cli and generate a key
  teensysecure generate-key --fqbn teensy:avr:teensy41 --arduino-cli arduino-cli

  # Point straight at the Teensy tools directory
  teensysecure fuse-write-sketch --fqbn teensy:avr:teensy41 \
      --tools-dir ~/.arduino15/packages/teensy/tools/teensy-tools/1.60.0

  # Show what is available for the selected board
  teensysecure status`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner())
	},
}
