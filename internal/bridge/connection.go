package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/board"
	"github.com/muurk/teensysecure/internal/extension"
	"github.com/muurk/teensysecure/internal/logging"
	"github.com/muurk/teensysecure/internal/terminal"
	"github.com/muurk/teensysecure/internal/version"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Expanded build properties of
	// a Teensy board run to tens of kilobytes.
	maxMessageSize = 1 << 20

	sendQueueSize = 64
)

var errConnectionClosed = errors.New("bridge connection closed")

// connection is one IDE window. It implements extension.Host by turning
// every host call into an outbound message.
type connection struct {
	ws         *websocket.Conn
	remoteAddr string
	session    *extension.Session
	logger     *zap.Logger

	send   chan outbound
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	nextID   atomic.Uint64
	commands sync.WaitGroup

	mu        sync.Mutex
	pending   map[string]chan string
	terminals map[string]*terminal.Pty
}

func newConnection(ws *websocket.Conn, remoteAddr string, opts extension.Options) *connection {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		ws:         ws,
		remoteAddr: remoteAddr,
		logger:     opts.Logger.With(zap.String("remote_addr", remoteAddr)),
		send:       make(chan outbound, sendQueueSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[string]chan string),
		terminals:  make(map[string]*terminal.Pty),
	}
	opts.Logger = c.logger
	c.session = extension.NewSession(c, opts)
	return c
}

// serve runs the connection until the peer goes away.
func (c *connection) serve() {
	logging.LogConnection(c.remoteAddr, "websocket_upgraded")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	_ = c.enqueue(TypeHello, Hello{Type: TypeHello, Version: version.Banner()})
	c.readPump()

	c.close()
	c.commands.Wait()
	<-writerDone

	c.mu.Lock()
	for id, pty := range c.terminals {
		pty.Close()
		delete(c.terminals, id)
	}
	c.mu.Unlock()

	_ = c.ws.Close()
	logging.LogConnection(c.remoteAddr, "websocket_closed")
}

// close stops the connection. Pending prompts are answered as dismissed and
// running commands see their context cancelled.
func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
	})
}

func (c *connection) readPump() {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			} else {
				logging.Info("Connection closed by peer", zap.String("remote_addr", c.remoteAddr))
			}
			return
		}
		if msgType != websocket.TextMessage {
			logging.Warn("Ignoring non-text message",
				zap.String("remote_addr", c.remoteAddr),
				zap.Int("message_type", msgType),
			)
			continue
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn("Failed to decode message",
				zap.String("remote_addr", c.remoteAddr),
				zap.Error(err),
			)
			logging.LogRawBytes("undecodable message", data)
			continue
		}
		logging.LogBridgeMessage(c.remoteAddr, "received", msg.Type, data)
		c.dispatch(msg)
	}
}

// dispatch handles one inbound message. Board events run inline so they are
// applied in the order the IDE sent them; commands get their own goroutine
// because they may wait for the user.
func (c *connection) dispatch(msg Inbound) {
	switch msg.Type {
	case TypeActivate:
		c.session.Activate(board.FQBN(msg.FQBN), msg.Details)

	case TypeFQBN:
		c.session.SelectBoard(board.FQBN(msg.FQBN))

	case TypeBoardDetails:
		c.session.ResolveBoardDetails(msg.Details)

	case TypeCommand:
		c.commands.Add(1)
		go func() {
			defer c.commands.Done()
			c.runCommand(msg.ID, msg.Command)
		}()

	case TypeAction:
		c.answer(msg.ID, msg.Action)

	case TypeTerminalOpen:
		c.openTerminal(msg.Terminal)

	case TypeTerminalClose:
		c.closeTerminal(msg.Terminal)

	default:
		logging.Warn("Unknown message type",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("type", msg.Type),
		)
	}
}

func (c *connection) runCommand(id, command string) {
	result := CommandResult{Type: TypeCommandResult, ID: id, Command: command}
	if err := c.session.Execute(c.ctx, command); err != nil {
		result.Error = err.Error()
	}
	_ = c.enqueue(TypeCommandResult, result)
}

// writePump owns all writes to the socket.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				logging.Error("Failed to write message",
					zap.String("remote_addr", c.remoteAddr),
					zap.String("type", msg.typ),
					zap.Error(err),
				)
				// Unblock the reader as well.
				_ = c.ws.Close()
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.ws.Close()
				c.close()
				return
			}

		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// Unblocks a reader still waiting on an unresponsive peer.
			_ = c.ws.Close()
			return
		}
	}
}

func (c *connection) write(msg outbound) error {
	data, err := json.Marshal(msg.body)
	if err != nil {
		return err
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	logging.LogBridgeMessage(c.remoteAddr, "sent", msg.typ, data)
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// enqueue hands a message to the writer. It fails once the connection is
// closing.
func (c *connection) enqueue(typ string, body any) error {
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}
	select {
	case c.send <- outbound{typ: typ, body: body}:
		return nil
	case <-c.done:
		return errConnectionClosed
	}
}

func (c *connection) newID() string {
	return strconv.FormatUint(c.nextID.Add(1), 10)
}

// SetContext implements extension.Host
func (c *connection) SetContext(key string, value any) {
	_ = c.enqueue(TypeSetContext, SetContext{Type: TypeSetContext, Key: key, Value: value})
}

// ShowError implements extension.Host
func (c *connection) ShowError(message string) {
	_ = c.enqueue(TypeShowError, ShowError{Type: TypeShowError, Message: message})
}

// ShowInfo implements extension.Host. With actions it blocks until the glue
// answers, the context ends or the connection closes.
func (c *connection) ShowInfo(ctx context.Context, message string, actions ...string) string {
	if len(actions) == 0 {
		_ = c.enqueue(TypeShowInfo, ShowInfo{Type: TypeShowInfo, Message: message})
		return ""
	}

	id := c.newID()
	answer := make(chan string, 1)
	c.mu.Lock()
	c.pending[id] = answer
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg := ShowInfo{Type: TypeShowInfo, ID: id, Message: message, Actions: actions}
	if err := c.enqueue(TypeShowInfo, msg); err != nil {
		return ""
	}

	select {
	case choice := <-answer:
		for _, a := range actions {
			if a == choice {
				return a
			}
		}
		return ""
	case <-ctx.Done():
		return ""
	case <-c.done:
		return ""
	}
}

func (c *connection) answer(id, action string) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		logging.Debug("Answer for unknown prompt",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("id", id),
		)
		return
	}
	ch <- action
}

// OpenFolder implements extension.Host
func (c *connection) OpenFolder(path string, forceNewWindow bool) error {
	return c.enqueue(TypeOpenFolder, OpenFolder{Type: TypeOpenFolder, Path: path, ForceNewWindow: forceNewWindow})
}

// OpenFile implements extension.Host
func (c *connection) OpenFile(path string) error {
	return c.enqueue(TypeOpenFile, OpenFile{Type: TypeOpenFile, Path: path})
}

// ShowTerminal implements extension.Host. The pty keeps buffering until the
// glue reports the terminal open.
func (c *connection) ShowTerminal(name string, pty *terminal.Pty) {
	id := c.newID()
	c.mu.Lock()
	c.terminals[id] = pty
	c.mu.Unlock()

	if err := c.enqueue(TypeTerminalCreate, TerminalCreate{Type: TypeTerminalCreate, Terminal: id, Name: name}); err != nil {
		c.closeTerminal(id)
	}
}

func (c *connection) openTerminal(id string) {
	c.mu.Lock()
	pty, ok := c.terminals[id]
	c.mu.Unlock()
	if !ok {
		logging.Debug("Open for unknown terminal",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("terminal", id),
		)
		return
	}

	pty.Open(func(data []byte) {
		_ = c.enqueue(TypeTerminalWrite, TerminalWrite{Type: TypeTerminalWrite, Terminal: id, Data: string(data)})
	})
}

func (c *connection) closeTerminal(id string) {
	c.mu.Lock()
	pty, ok := c.terminals[id]
	delete(c.terminals, id)
	c.mu.Unlock()
	if ok {
		pty.Close()
	}
}

var _ extension.Host = (*connection)(nil)
