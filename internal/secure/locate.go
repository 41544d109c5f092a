package secure

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/muurk/teensysecure/internal/board"
)

const (
	// DefaultPropertyPrefix is the build property prefix under which the
	// Teensy platform reports its tools directory.
	DefaultPropertyPrefix = "runtime.tools.teensy-tools"

	// DefaultProgram is the helper binary name without extension.
	DefaultProgram = "teensy_secure"
)

// LocateTool returns the value of the first build property whose key starts
// with prefix and whose value is present. Keys are scanned in the order the
// host reported them; when several keys match, the first one wins.
func LocateTool(details *board.Details, prefix string) (string, bool) {
	if details == nil {
		return "", false
	}
	for _, prop := range details.BuildProperties {
		if strings.HasPrefix(prop.Key, prefix) && prop.Present {
			return prop.Value, true
		}
	}
	return "", false
}

// ExecutableName appends the host executable suffix to name.
func ExecutableName(name string) string {
	return executableName(name, runtime.GOOS)
}

func executableName(name, goos string) string {
	if goos == "windows" {
		return name + ".exe"
	}
	return name
}

// programPath joins a located tool directory with the program name.
// An empty directory counts as not found.
func programPath(dir string, found bool, program string) (string, bool) {
	if !found || dir == "" {
		return "", false
	}
	return filepath.Join(dir, ExecutableName(program)), true
}
