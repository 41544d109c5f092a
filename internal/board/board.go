package board

import (
	"strings"
)

// FQBN is a fully qualified board name ("vendor:architecture:board[:options]").
// The empty string means no board is selected.
type FQBN string

// Matches reports whether the FQBN starts with the given vendor:architecture prefix.
func (f FQBN) Matches(prefix string) bool {
	if f == "" || prefix == "" {
		return false
	}
	return strings.HasPrefix(string(f), prefix)
}

// Vendor returns the first FQBN segment, or "" when absent.
func (f FQBN) Vendor() string {
	parts := strings.SplitN(string(f), ":", 3)
	return parts[0]
}

// Architecture returns the second FQBN segment, or "" when absent.
func (f FQBN) Architecture() string {
	parts := strings.SplitN(string(f), ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// String implements fmt.Stringer
func (f FQBN) String() string {
	return string(f)
}

// Details is the resolved metadata of an installed board.
// A nil *Details means the platform is not installed or not resolved yet.
type Details struct {
	FQBN            FQBN            `json:"fqbn"`
	BuildProperties BuildProperties `json:"buildProperties"`
}

// Matches reports whether the details exist and belong to a board under prefix.
func (d *Details) Matches(prefix string) bool {
	return d != nil && d.FQBN.Matches(prefix)
}
