package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if want := filepath.Join(xdg, "teensysecure"); configDir != want {
		t.Errorf("GetConfigDir() = %v, want %v", configDir, want)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewSettings(t *testing.T) {
	s := NewSettings()

	if s.Version != 1 {
		t.Errorf("NewSettings().Version = %v, want 1", s.Version)
	}
	if s.Board.FQBNPrefix != "teensy:avr" {
		t.Errorf("FQBNPrefix = %v, want teensy:avr", s.Board.FQBNPrefix)
	}
	if s.Board.ToolPropertyPrefix != "runtime.tools.teensy-tools" {
		t.Errorf("ToolPropertyPrefix = %v", s.Board.ToolPropertyPrefix)
	}
	if s.Board.Program != "teensy_secure" {
		t.Errorf("Program = %v, want teensy_secure", s.Board.Program)
	}
	if s.Bridge.Listen != "127.0.0.1:7755" {
		t.Errorf("Bridge.Listen = %v, want 127.0.0.1:7755", s.Bridge.Listen)
	}
	if s.Host.OpenCommand != "" {
		t.Errorf("Host.OpenCommand = %v, want empty", s.Host.OpenCommand)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if s.Board.Program != DefaultProgram {
		t.Errorf("Program = %v, want default", s.Board.Program)
	}
}

func TestLoadFile_PartialFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `version: 1
board:
  program: teensy_secure_beta
host:
  open_command: code
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if s.Board.Program != "teensy_secure_beta" {
		t.Errorf("Program = %v", s.Board.Program)
	}
	if s.Board.FQBNPrefix != DefaultFQBNPrefix {
		t.Errorf("FQBNPrefix = %v, want default", s.Board.FQBNPrefix)
	}
	if s.Bridge.Listen != DefaultBridgeListen {
		t.Errorf("Bridge.Listen = %v, want default", s.Bridge.Listen)
	}
	if s.Host.OpenCommand != "code" {
		t.Errorf("OpenCommand = %v, want code", s.Host.OpenCommand)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", s.LogLevel)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "board: [unclosed"},
		{"future version", "version: 2\n"},
		{"bad log level", "version: 1\nlog_level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("LoadFile() should fail")
			}
		})
	}
}

func TestSettingsSaveAndLoad(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", xdg)
	t.Setenv("LOCALAPPDATA", xdg)

	s := NewSettings()
	if err := s.Set("bridge.listen", "127.0.0.1:9000"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set("console.fqbn", "teensy:avr:teensy40"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path, err := GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.HasPrefix(string(raw), "# teensysecure configuration file") {
		t.Errorf("config lacks header: %q", raw)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	loaded, err := Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if loaded.Bridge.Listen != "127.0.0.1:9000" {
		t.Errorf("Bridge.Listen = %v, want 127.0.0.1:9000", loaded.Bridge.Listen)
	}
	if loaded.Console.FQBN != "teensy:avr:teensy40" {
		t.Errorf("Console.FQBN = %v", loaded.Console.FQBN)
	}
	if loaded.Board.Program != DefaultProgram {
		t.Errorf("Program = %v, want default", loaded.Board.Program)
	}
}

func TestSettings_GetSet(t *testing.T) {
	s := NewSettings()

	tests := []struct {
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{key: "board.program", value: "my_secure", want: "my_secure"},
		{key: "board.program", value: "", want: DefaultProgram},
		{key: "host.open_command", value: "arduino-ide", want: "arduino-ide"},
		{key: "log_level", value: "warn", want: "warn"},
		{key: "log_level", value: "chatty", wantErr: true},
		{key: "no.such.key", value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := s.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, err := s.Get(tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := s.Get("bogus"); err == nil {
		t.Error("Get() should fail for unknown keys")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != len(fields) {
		t.Fatalf("Keys() returned %d keys, want %d", len(keys), len(fields))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("Keys() not sorted: %v", keys)
		}
	}
}

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}
