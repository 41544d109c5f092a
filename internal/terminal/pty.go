// Package terminal buffers subprocess output for a pseudo-terminal view that
// may open after the output has started to arrive.
//
// A Pty goes through three states:
//
//	Buffering --Open(sink)--> Streaming --Close()--> Closed
//	    |                                              ^
//	    +-------------------Close()--------------------+
//
// While buffering, writes accumulate. Open drains the buffer to the sink in a
// single write and from then on every write is passed straight through.
// Close drops whatever is buffered and discards all later writes; a closed
// Pty cannot be reopened, each key generation gets a fresh one.
package terminal

import (
	"bytes"
	"sync"
)

// State is the lifecycle state of a Pty.
type State int

const (
	// Buffering keeps writes until the view opens.
	Buffering State = iota
	// Streaming passes writes straight to the open view.
	Streaming
	// Closed discards writes. It is final.
	Closed
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Buffering:
		return "buffering"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sink receives output once the terminal view is open. It is called with the
// Pty lock held, so calls never overlap and arrive in write order.
type Sink func(data []byte)

// Pty is the producer side of one pseudo-terminal. It is safe for concurrent
// writers; stdout and stderr copiers share one Pty.
type Pty struct {
	mu    sync.Mutex
	state State
	buf   bytes.Buffer
	sink  Sink
}

// New returns a Pty in the Buffering state.
func New() *Pty {
	return &Pty{}
}

// Write implements io.Writer. It never fails: output that cannot be shown is
// dropped, and the full length is reported so copiers keep draining.
func (p *Pty) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Buffering:
		p.buf.Write(data)
	case Streaming:
		p.sink(clone(data))
	}
	return len(data), nil
}

// Open attaches the terminal view. Buffered output is delivered as one write.
// Opening a Pty that is already streaming or closed does nothing.
func (p *Pty) Open(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Buffering || sink == nil {
		return
	}
	if p.buf.Len() > 0 {
		sink(clone(p.buf.Bytes()))
	}
	p.buf.Reset()
	p.sink = sink
	p.state = Streaming
}

// Close detaches the view and discards buffered and future output.
func (p *Pty) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Reset()
	p.sink = nil
	p.state = Closed
}

// State returns the current state.
func (p *Pty) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Buffered returns how many bytes are waiting for Open.
func (p *Pty) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Len()
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
