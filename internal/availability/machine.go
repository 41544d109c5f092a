package availability

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/board"
)

// Context keys published to the host's command visibility system.
const (
	ContextPrefix     = "teensysecurity."
	ContextState      = ContextPrefix + "state"
	ContextHasKeyFile = ContextPrefix + "hasKeyFile"
)

// DefaultBoardPrefix is the vendor:architecture pair of boards installed
// through Boards Manager as the Teensy platform.
const DefaultBoardPrefix = "teensy:avr"

// State says how far the selected board has got towards being usable.
type State int

const (
	// Unset covers loading, another vendor's board, or nothing selected.
	Unset State = iota
	// Selected means a Teensy is selected but its platform is not resolved.
	Selected
	// Installed means a Teensy is selected and its board details resolved.
	Installed
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Installed:
		return "installed"
	default:
		return "unset"
	}
}

// ContextValue is the value published for the state key; Unset is nil.
func (s State) ContextValue() any {
	if s == Unset {
		return nil
	}
	return s.String()
}

// Publisher receives context key updates. A nil value clears the key.
type Publisher interface {
	SetContext(key string, value any)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(key string, value any)

// SetContext implements Publisher
func (f PublisherFunc) SetContext(key string, value any) {
	f(key, value)
}

// KeyFileProber resolves the key.pem path for a board without reporting a
// missing toolchain to the user.
type KeyFileProber interface {
	ProbeKeyFile(details *board.Details) (string, error)
}

// Machine derives command availability from two host events that arrive
// independently: the FQBN changing when the user picks a board, and board
// details resolving once the platform turns out to be installed. The host has
// no direct "is this platform installed" query, so installation is inferred
// by correlating the two.
type Machine struct {
	prefix    string
	publisher Publisher
	prober    KeyFileProber
	exists    func(path string) bool
	logger    *zap.Logger

	mu    sync.Mutex
	state State
	fqbn  board.FQBN
}

// NewMachine creates a machine in the Unset state. prefix defaults to
// DefaultBoardPrefix. exists reports whether a key file is on disk.
func NewMachine(prefix string, publisher Publisher, prober KeyFileProber, exists func(string) bool, logger *zap.Logger) *Machine {
	if prefix == "" {
		prefix = DefaultBoardPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		prefix:    prefix,
		publisher: publisher,
		prober:    prober,
		exists:    exists,
		logger:    logger,
	}
}

// State returns the current availability state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// FQBN returns the last selected board.
func (m *Machine) FQBN() board.FQBN {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fqbn
}

// Activate publishes the initial context from the host's current values.
func (m *Machine) Activate(fqbn board.FQBN, details *board.Details) {
	m.SelectBoard(fqbn)
	m.ResolveBoardDetails(details)
}

// SelectBoard handles a board selection change.
func (m *Machine) SelectBoard(fqbn board.FQBN) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fqbn = fqbn
	matches := fqbn.Matches(m.prefix)

	// Details for the same board may still be resolving; dropping back to
	// Selected here would make the commands flicker.
	if m.state == Installed && matches {
		m.logger.Debug("board reselected while installed, keeping state",
			zap.String("fqbn", string(fqbn)),
		)
		return
	}

	if matches {
		m.state = Selected
	} else {
		m.state = Unset
	}
	m.logger.Debug("board selection changed",
		zap.String("fqbn", string(fqbn)),
		zap.Stringer("state", m.state),
	)
	m.publisher.SetContext(ContextState, m.state.ContextValue())
}

// ResolveBoardDetails handles board details resolving (or going away, nil).
func (m *Machine) ResolveBoardDetails(details *board.Details) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateInstalled(details)
	m.updateHasKeyFile(details)
}

func (m *Machine) updateInstalled(details *board.Details) {
	switch {
	case details == nil:
		return

	case details.Matches(m.prefix):
		// Details events follow the FQBN event for the same board.
		if m.state == Selected {
			m.state = Installed
			m.logger.Debug("board platform installed", zap.String("fqbn", string(details.FQBN)))
			m.publisher.SetContext(ContextState, m.state.ContextValue())
		}

	default:
		if m.state != Unset {
			m.state = Unset
			m.logger.Debug("resolved board is not a Teensy", zap.String("fqbn", string(details.FQBN)))
			m.publisher.SetContext(ContextState, m.state.ContextValue())
		}
	}
}

// updateHasKeyFile publishes exactly once per call: true or false when the
// key file could be resolved, nil when any step failed.
func (m *Machine) updateHasKeyFile(details *board.Details) {
	var value any
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("key file probe panicked", zap.Any("panic", r))
			value = nil
		}
		m.publisher.SetContext(ContextHasKeyFile, value)
	}()

	if !details.Matches(m.prefix) || m.prober == nil {
		return
	}

	path, err := m.prober.ProbeKeyFile(details)
	if err != nil {
		m.logger.Debug("key file probe failed", zap.Error(err))
		return
	}
	value = m.exists(path)
}

// MarkKeyFilePresent publishes hasKeyFile=true without probing. Used right
// after key generation starts, before the key is actually on disk.
func (m *Machine) MarkKeyFilePresent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher.SetContext(ContextHasKeyFile, true)
}
