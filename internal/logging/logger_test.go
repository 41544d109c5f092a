package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent without a level")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	t.Cleanup(func() { logger = nil })

	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDumps(t *testing.T) {
	data := []byte("key\r\n\x00")
	if got := hexDump(data); got != "6b65790d0a00" {
		t.Errorf("hexDump() = %q", got)
	}
	if got := asciiDump(data); got != "key..." {
		t.Errorf("asciiDump() = %q", got)
	}

	long := []byte(strings.Repeat("a", 300))
	if got := truncate(long); len(got) != 259 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate() length = %d", len(got))
	}
	if hexDump(nil) != "" || asciiDump(nil) != "" {
		t.Error("dumps of empty input should be empty")
	}
}
