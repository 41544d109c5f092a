package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/teensysecure/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change the configuration file",
	Long: `Read and change ~/.config/teensysecure/config.yaml.

Keys:
  board.fqbn_prefix           vendor:architecture the commands apply to
  board.tool_property_prefix  build property naming the tools directory
  board.program               helper binary name
  bridge.listen               teensysecure-bridge address (loopback only)
  host.open_command           command that opens folders and files
  console.fqbn                board used when --fqbn is not given
  console.arduino_cli         arduino-cli used when --arduino-cli is not given
  log_level                   debug, info, warn or error`,
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every key and its value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		settings, err := config.Load()
		if err != nil {
			return err
		}
		for _, key := range config.Keys() {
			value, _ := settings.Get(key)
			fmt.Printf("%s=%s\n", key, value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		settings, err := config.Load()
		if err != nil {
			return err
		}
		value, err := settings.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change one value; without a value the default is restored",
	Args:  cobra.RangeArgs(1, 2),
	Example: `  teensysecure config set console.fqbn teensy:avr:teensy41
  teensysecure config set host.open_command "code --new-window"
  teensysecure config set log_level`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		settings, err := config.Load()
		if err != nil {
			return err
		}
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		if err := settings.Set(args[0], value); err != nil {
			return err
		}
		if err := settings.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}
