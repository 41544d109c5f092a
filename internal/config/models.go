package config

import (
	"fmt"
	"sort"
	"strings"
)

// Default values for a fresh configuration.
const (
	DefaultFQBNPrefix         = "teensy:avr"
	DefaultToolPropertyPrefix = "runtime.tools.teensy-tools"
	DefaultProgram            = "teensy_secure"
	DefaultBridgeListen       = "127.0.0.1:7755"
)

// Settings represents the entire user configuration file.
type Settings struct {
	Version  int           `yaml:"version"`
	Board    *BoardPrefs   `yaml:"board,omitempty"`
	Bridge   *BridgePrefs  `yaml:"bridge,omitempty"`
	Host     *HostPrefs    `yaml:"host,omitempty"`
	Console  *ConsolePrefs `yaml:"console,omitempty"`
	LogLevel string        `yaml:"log_level,omitempty"`
}

// BoardPrefs controls which boards the commands apply to and where
// teensy_secure is found.
type BoardPrefs struct {
	FQBNPrefix         string `yaml:"fqbn_prefix"`          // vendor:architecture of supported boards
	ToolPropertyPrefix string `yaml:"tool_property_prefix"` // build property naming the tools directory
	Program            string `yaml:"program"`              // helper binary name, without .exe
}

// BridgePrefs configures the websocket bridge daemon.
type BridgePrefs struct {
	Listen string `yaml:"listen"` // host:port, loopback only
}

// HostPrefs configures how the console host opens folders and files.
type HostPrefs struct {
	// OpenCommand opens a folder or file, e.g. "code" or "arduino-ide".
	// Empty uses the platform opener (xdg-open, open, explorer).
	OpenCommand string `yaml:"open_command,omitempty"`
}

// ConsolePrefs configures how the console host learns about the board.
type ConsolePrefs struct {
	FQBN       string `yaml:"fqbn,omitempty"`        // board used when --fqbn is not given
	ArduinoCLI string `yaml:"arduino_cli,omitempty"` // arduino-cli binary for board details
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	s := &Settings{Version: 1}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Board == nil {
		s.Board = &BoardPrefs{}
	}
	if s.Board.FQBNPrefix == "" {
		s.Board.FQBNPrefix = DefaultFQBNPrefix
	}
	if s.Board.ToolPropertyPrefix == "" {
		s.Board.ToolPropertyPrefix = DefaultToolPropertyPrefix
	}
	if s.Board.Program == "" {
		s.Board.Program = DefaultProgram
	}
	if s.Bridge == nil {
		s.Bridge = &BridgePrefs{}
	}
	if s.Bridge.Listen == "" {
		s.Bridge.Listen = DefaultBridgeListen
	}
	if s.Host == nil {
		s.Host = &HostPrefs{}
	}
	if s.Console == nil {
		s.Console = &ConsolePrefs{}
	}
}

// field binds a dotted key to a string setting.
type field struct {
	get func(*Settings) string
	set func(*Settings, string)
}

var fields = map[string]field{
	"board.fqbn_prefix": {
		get: func(s *Settings) string { return s.Board.FQBNPrefix },
		set: func(s *Settings, v string) { s.Board.FQBNPrefix = v },
	},
	"board.tool_property_prefix": {
		get: func(s *Settings) string { return s.Board.ToolPropertyPrefix },
		set: func(s *Settings, v string) { s.Board.ToolPropertyPrefix = v },
	},
	"board.program": {
		get: func(s *Settings) string { return s.Board.Program },
		set: func(s *Settings, v string) { s.Board.Program = v },
	},
	"bridge.listen": {
		get: func(s *Settings) string { return s.Bridge.Listen },
		set: func(s *Settings, v string) { s.Bridge.Listen = v },
	},
	"host.open_command": {
		get: func(s *Settings) string { return s.Host.OpenCommand },
		set: func(s *Settings, v string) { s.Host.OpenCommand = v },
	},
	"console.fqbn": {
		get: func(s *Settings) string { return s.Console.FQBN },
		set: func(s *Settings, v string) { s.Console.FQBN = v },
	},
	"console.arduino_cli": {
		get: func(s *Settings) string { return s.Console.ArduinoCLI },
		set: func(s *Settings, v string) { s.Console.ArduinoCLI = v },
	},
	"log_level": {
		get: func(s *Settings) string { return s.LogLevel },
		set: func(s *Settings, v string) { s.LogLevel = v },
	},
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "bridge.listen".
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", unknownKey(key)
	}
	s.applyDefaults()
	return f.get(s), nil
}

// Set updates a dotted key. An empty value restores the default.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return unknownKey(key)
	}
	if key == "log_level" && value != "" && !validLogLevel(value) {
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", value)
	}
	s.applyDefaults()
	f.set(s, value)
	s.applyDefaults()
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
