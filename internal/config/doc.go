// Package config provides user configuration for teensysecure.
//
// Settings live in a YAML file at the OS-specific location:
//   - Linux: $XDG_CONFIG_HOME/teensysecure/config.yaml or $HOME/.config/teensysecure/config.yaml
//   - macOS: $HOME/.config/teensysecure/config.yaml
//   - Windows: %LOCALAPPDATA%\teensysecure\config.yaml
//
// A missing file, or a missing key, means the default. The defaults describe
// a Teensy platform installed through Boards Manager:
//
//	version: 1
//	board:
//	  fqbn_prefix: teensy:avr
//	  tool_property_prefix: runtime.tools.teensy-tools
//	  program: teensy_secure
//	bridge:
//	  listen: 127.0.0.1:7755
//
// # Usage Example
//
//	settings, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	if err := settings.Set("host.open_command", "code"); err != nil {
//	    return err
//	}
//	return settings.Save()
//
// Load caches the settings for the process using sync.Once. Saves write a
// temporary file and rename it over the old one.
package config
