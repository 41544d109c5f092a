package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Messages driving the terminal view
type (
	// TerminalOutputMsg carries one chunk of process output
	TerminalOutputMsg []byte
	// ProcessExitedMsg reports that the process behind the view has exited
	ProcessExitedMsg struct {
		ExitCode int
		Err      error
	}
	outputClosedMsg struct{}
)

// terminalKeyMap defines key bindings for the terminal view
type terminalKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k terminalKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k terminalKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Quit},
	}
}

// TerminalModel is a Bubble Tea model showing live process output, the
// console counterpart of an IDE pseudo-terminal tab. Quitting closes the
// view only; the process keeps running.
type TerminalModel struct {
	Title    string
	Viewport viewport.Model
	Spinner  spinner.Model
	Help     help.Model
	Keys     terminalKeyMap

	output  <-chan []byte
	content *strings.Builder
	ready   bool

	exited   bool
	exitCode int
	exitErr  error
}

// NewTerminalModel creates a terminal view reading output chunks from output.
func NewTerminalModel(title string, output <-chan []byte) TerminalModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(WarningColor)

	return TerminalModel{
		Title:   title,
		Spinner: s,
		Help:    help.New(),
		Keys: terminalKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "scroll up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "scroll down"),
			),
			Top: key.NewBinding(
				key.WithKeys("home", "g"),
				key.WithHelp("g", "top"),
			),
			Bottom: key.NewBinding(
				key.WithKeys("end", "G"),
				key.WithHelp("G", "bottom"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "close"),
			),
		},
		output:  output,
		content: &strings.Builder{},
	}
}

// waitForOutput reads the next chunk from the output channel
func waitForOutput(output <-chan []byte) tea.Cmd {
	return func() tea.Msg {
		data, ok := <-output
		if !ok {
			return outputClosedMsg{}
		}
		return TerminalOutputMsg(data)
	}
}

// Init implements tea.Model
func (m TerminalModel) Init() tea.Cmd {
	return tea.Batch(waitForOutput(m.output), m.Spinner.Tick)
}

// Update implements tea.Model
func (m TerminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 3 // title bar and help line
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.Viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = height
		}
		m.Viewport.SetContent(m.content.String())
		m.Viewport.GotoBottom()
		return m, nil

	case TerminalOutputMsg:
		// Output arrives with \r\n line endings meant for IDE terminals.
		m.content.WriteString(strings.ReplaceAll(string(msg), "\r", ""))
		if m.ready {
			follow := m.Viewport.AtBottom()
			m.Viewport.SetContent(m.content.String())
			if follow {
				m.Viewport.GotoBottom()
			}
		}
		return m, waitForOutput(m.output)

	case outputClosedMsg:
		return m, nil

	case ProcessExitedMsg:
		m.exited = true
		m.exitCode = msg.ExitCode
		m.exitErr = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.exited {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Top):
			m.Viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.Keys.Bottom):
			m.Viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m TerminalModel) View() string {
	title := TerminalTitleStyle.Render(m.Title) + TerminalStatusStyle.Render(m.status())
	if !m.ready {
		return title + "\n" + m.content.String()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.Viewport.View(),
		m.Help.View(m.Keys),
	)
}

func (m TerminalModel) status() string {
	switch {
	case !m.exited:
		return m.Spinner.View() + " running"
	case m.exitCode == 0 && m.exitErr == nil:
		return SuccessMarker + " finished"
	default:
		return fmt.Sprintf("%s exited with code %d", FailureMarker, m.exitCode)
	}
}

// Output returns everything the view has received so far.
func (m TerminalModel) Output() string {
	return m.content.String()
}

// Exited reports whether a ProcessExitedMsg was received and its exit code.
func (m TerminalModel) Exited() (bool, int) {
	return m.exited, m.exitCode
}
