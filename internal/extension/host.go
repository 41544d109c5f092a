package extension

import (
	"context"

	"github.com/muurk/teensysecure/internal/terminal"
	"github.com/muurk/teensysecure/internal/version"
)

// Command IDs registered with the host.
const (
	CommandCreateKey          = "teensysecurity.createKey"
	CommandShowKeyPath        = "teensysecurity.showKeyPath"
	CommandFuseWriteSketch    = "teensysecurity.fuseWriteSketch"
	CommandVerifySketch       = "teensysecurity.verifySketch"
	CommandLockSecuritySketch = "teensysecurity.lockSecuritySketch"
)

// Commands lists every command ID in menu order.
var Commands = []string{
	CommandCreateKey,
	CommandShowKeyPath,
	CommandFuseWriteSketch,
	CommandVerifySketch,
	CommandLockSecuritySketch,
}

// User facing text.
const (
	MsgToolNotFound = "Could not find teensy_secure utility.  Please select a Teensy board from the drop-down list or Tools > Port menu."
	MsgToolOutdated = "Found old version of teensy_secure utility.  Please use Boards Manager to install Teensy " + version.MinimumTeensy + " or later."
	MsgKeyLocation  = "key.pem location: "

	ActionOpenKeyFile = "Open Key File"
	TerminalName      = "New Key"
)

// KeyFileMissingMessage is shown when a sketch command needs a key that does not exist yet.
func KeyFileMissingMessage(keyfile string) string {
	return "This command requires a key.pem file (" + keyfile + ").  Please use \"Teensy Security: Generate Key\" to create your key.pem file."
}

// Host is the environment a Session runs in: the IDE behind the bridge, or
// the console when run from the command line.
type Host interface {
	// SetContext publishes a command visibility key. nil clears it.
	SetContext(key string, value any)
	// ShowError displays an error message and returns immediately.
	ShowError(message string)
	// ShowInfo displays a message with optional actions and returns the
	// chosen action, or "" if the message was dismissed.
	ShowInfo(ctx context.Context, message string, actions ...string) string
	// OpenFolder asks the host to open a sketch folder.
	OpenFolder(path string, forceNewWindow bool) error
	// OpenFile asks the host to open a file in an editor.
	OpenFile(path string) error
	// ShowTerminal creates a terminal view named name fed from pty.
	// The host calls pty.Open once the view is ready and pty.Close when the
	// user closes it.
	ShowTerminal(name string, pty *terminal.Pty)
}
