package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/extension"
	"github.com/muurk/teensysecure/internal/secure"
	"github.com/muurk/teensysecure/internal/terminal"
	"github.com/muurk/teensysecure/internal/ui"
	"github.com/muurk/teensysecure/internal/urls"
)

const messageTitle = "Teensy Security"

// Options configures a console Host.
type Options struct {
	In  io.Reader // defaults to os.Stdin
	Out io.Writer // defaults to os.Stdout

	// Interactive enables the action prompt and the full screen terminal
	// view. Without it messages are printed and output is streamed.
	Interactive bool
	// OpenCommand opens folders and files; empty uses the platform opener.
	OpenCommand string
	// NoOpen only prints folders and files instead of opening them.
	NoOpen bool
	// Runner starts the opener. Defaults to a secure.Executor.
	Runner secure.Runner
	Logger *zap.Logger
}

// Host is the command line implementation of extension.Host.
type Host struct {
	in          io.Reader
	out         io.Writer
	printer     *ui.Printer
	interactive bool
	opener      *opener
	logger      *zap.Logger

	mu        sync.Mutex
	contexts  map[string]any
	errors    []string
	terminals []*pendingTerminal
}

type pendingTerminal struct {
	name string
	pty  *terminal.Pty
}

// NewHost creates a console host.
func NewHost(opts Options) *Host {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Runner == nil {
		opts.Runner = secure.NewExecutor(opts.Logger)
	}
	return &Host{
		in:          opts.In,
		out:         opts.Out,
		printer:     ui.NewPrinter(opts.Out),
		interactive: opts.Interactive,
		opener: &opener{
			command: opts.OpenCommand,
			disable: opts.NoOpen,
			runner:  opts.Runner,
			logger:  opts.Logger,
		},
		logger:   opts.Logger,
		contexts: make(map[string]any),
	}
}

// Printer returns the printer the host renders with.
func (h *Host) Printer() *ui.Printer {
	return h.printer
}

// SetContext implements extension.Host
func (h *Host) SetContext(key string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger.Debug("context updated", zap.String("key", key), zap.Any("value", value))
	h.contexts[key] = value
}

// Context returns the last published value of key.
func (h *Host) Context(key string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.contexts[key]
	return v, ok
}

// ContextKeys returns the published keys in sorted order.
func (h *Host) ContextKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.contexts))
	for k := range h.contexts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ShowError implements extension.Host
func (h *Host) ShowError(message string) {
	h.mu.Lock()
	h.errors = append(h.errors, message)
	h.mu.Unlock()
	h.printer.PrintMessage(ui.ResultFailure, messageTitle, message, troubleshootingFor(message))
}

// Errors returns every message shown with ShowError.
func (h *Host) Errors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.errors...)
}

// ShowInfo implements extension.Host
func (h *Host) ShowInfo(ctx context.Context, message string, actions ...string) string {
	if !h.interactive || len(actions) == 0 {
		h.printer.PrintInfo(messageTitle, message)
		return ""
	}
	return ui.ChooseAction(h.in, h.out, messageTitle, message, actions)
}

// OpenFolder implements extension.Host
func (h *Host) OpenFolder(path string, forceNewWindow bool) error {
	details := []ui.Detail{{Key: "Folder", Value: path}}
	if entries, err := os.ReadDir(path); err == nil {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		details = append(details, ui.Detail{Key: "Files", Value: strings.Join(names, ", ")})
	}
	h.printer.PrintSuccess("Sketch folder created", details...)
	return h.opener.open(path)
}

// OpenFile implements extension.Host
func (h *Host) OpenFile(path string) error {
	return h.opener.open(path)
}

// ShowTerminal implements extension.Host. Without a terminal the output is
// streamed to the host's writer as it arrives; otherwise it is held until
// RunTerminal shows the view.
func (h *Host) ShowTerminal(name string, pty *terminal.Pty) {
	if !h.interactive {
		h.printer.Println(ui.TerminalTitleStyle.Render(name))
		pty.Open(func(data []byte) {
			_, _ = h.out.Write(data)
		})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.terminals = append(h.terminals, &pendingTerminal{name: name, pty: pty})
}

func (h *Host) takeTerminal() *pendingTerminal {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.terminals) == 0 {
		return nil
	}
	t := h.terminals[0]
	h.terminals = h.terminals[1:]
	return t
}

// RunTerminal shows the terminal created for proc and returns once the user
// closed it and the process has exited. Closing the view early does not stop
// the process; the key is only complete once it exits.
func (h *Host) RunTerminal(proc *secure.Process) error {
	t := h.takeTerminal()
	if t == nil {
		return proc.Wait()
	}

	output := make(chan []byte, 64)
	done := make(chan struct{})
	t.pty.Open(func(data []byte) {
		select {
		case output <- data:
		case <-done:
		}
	})

	program := tea.NewProgram(
		ui.NewTerminalModel(t.name, output),
		tea.WithAltScreen(),
		tea.WithInput(h.in),
		tea.WithOutput(h.out),
	)

	go func() {
		<-proc.Done()
		program.Send(ui.ProcessExitedMsg{ExitCode: proc.ExitCode(), Err: proc.Wait()})
	}()

	final, runErr := program.Run()
	close(done)
	// Close waits out a sink call in progress, so nothing sends after it.
	t.pty.Close()
	close(output)

	if m, ok := final.(ui.TerminalModel); ok {
		// The alternate screen is gone; keep the transcript visible.
		_, _ = fmt.Fprint(h.out, m.Output())
	}

	waitErr := proc.Wait()
	if runErr != nil {
		return fmt.Errorf("terminal view failed: %w", runErr)
	}
	return waitErr
}

func troubleshootingFor(message string) []string {
	switch {
	case message == extension.MsgToolNotFound:
		return []string{
			"Pass --fqbn with a teensy:avr board",
			"Resolve build properties with --arduino-cli, --properties or --tools-dir",
			"Install the Teensy platform: " + urls.BoardsManager,
		}
	case message == extension.MsgToolOutdated:
		return []string{"Update the Teensy platform: " + urls.BoardsManager}
	case strings.HasPrefix(message, "This command requires a key.pem file"):
		return []string{
			"Run: teensysecure generate-key",
			"Background: " + urls.CodeSecurity,
		}
	}
	return nil
}

var _ extension.Host = (*Host)(nil)
