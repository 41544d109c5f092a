package bridge

import (
	"github.com/muurk/teensysecure/internal/board"
)

// Inbound message types, sent by the IDE glue.
const (
	TypeActivate      = "activate"
	TypeFQBN          = "fqbn"
	TypeBoardDetails  = "boardDetails"
	TypeCommand       = "command"
	TypeAction        = "action"
	TypeTerminalOpen  = "terminal.open"
	TypeTerminalClose = "terminal.close"
)

// Outbound message types, sent by the bridge.
const (
	TypeHello          = "hello"
	TypeSetContext     = "setContext"
	TypeShowError      = "showError"
	TypeShowInfo       = "showInfo"
	TypeOpenFolder     = "openFolder"
	TypeOpenFile       = "openFile"
	TypeTerminalCreate = "terminal.create"
	TypeTerminalWrite  = "terminal.write"
	TypeCommandResult  = "commandResult"
)

// Inbound is any message the IDE glue sends. Only the fields of its Type are
// set.
//
//	{"type":"activate","fqbn":"teensy:avr:teensy41","details":{...}}
//	{"type":"fqbn","fqbn":"teensy:avr:teensy41"}
//	{"type":"boardDetails","details":null}
//	{"type":"command","id":"7","command":"teensysecurity.verifySketch"}
//	{"type":"action","id":"3","action":"Open Key File"}
//	{"type":"terminal.open","terminal":"1"}
type Inbound struct {
	Type     string         `json:"type"`
	ID       string         `json:"id,omitempty"`
	FQBN     string         `json:"fqbn,omitempty"`
	Details  *board.Details `json:"details,omitempty"`
	Command  string         `json:"command,omitempty"`
	Action   string         `json:"action,omitempty"`
	Terminal string         `json:"terminal,omitempty"`
}

// Hello is the first message on every connection.
type Hello struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// SetContext updates a when-clause context key. A null value clears it.
type SetContext struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// ShowError is an error notification.
type ShowError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ShowInfo is an information notification. When Actions is non-empty the
// glue answers with an action message carrying the same ID; an empty action
// means dismissed.
type ShowInfo struct {
	Type    string   `json:"type"`
	ID      string   `json:"id,omitempty"`
	Message string   `json:"message"`
	Actions []string `json:"actions,omitempty"`
}

// OpenFolder asks the IDE to open a sketch folder.
type OpenFolder struct {
	Type           string `json:"type"`
	Path           string `json:"path"`
	ForceNewWindow bool   `json:"forceNewWindow"`
}

// OpenFile asks the IDE to open a file in an editor.
type OpenFile struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// TerminalCreate asks the IDE to show a pseudo-terminal. Output is held until
// the glue answers with terminal.open.
type TerminalCreate struct {
	Type     string `json:"type"`
	Terminal string `json:"terminal"`
	Name     string `json:"name"`
}

// TerminalWrite carries terminal output, with \r\n line endings.
type TerminalWrite struct {
	Type     string `json:"type"`
	Terminal string `json:"terminal"`
	Data     string `json:"data"`
}

// CommandResult reports that a command finished. Error is empty on success.
// A failed command has already shown the user whatever message applies.
type CommandResult struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
	Error   string `json:"error,omitempty"`
}

// outbound is a message queued for the writer.
type outbound struct {
	typ  string
	body any
}
