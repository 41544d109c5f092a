package terminal

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

type recorder struct {
	writes []string
}

func (r *recorder) sink(data []byte) {
	r.writes = append(r.writes, string(data))
}

func TestPty_BuffersUntilOpen(t *testing.T) {
	p := New()
	if p.State() != Buffering {
		t.Fatalf("initial state = %s, want buffering", p.State())
	}

	for _, chunk := range []string{"one\r\n", "two\r\n", "three"} {
		n, err := p.Write([]byte(chunk))
		if err != nil || n != len(chunk) {
			t.Fatalf("Write(%q) = %d, %v", chunk, n, err)
		}
	}
	if p.Buffered() != len("one\r\ntwo\r\nthree") {
		t.Errorf("Buffered() = %d", p.Buffered())
	}

	rec := &recorder{}
	p.Open(rec.sink)

	if len(rec.writes) != 1 {
		t.Fatalf("Open() delivered %d writes, want 1", len(rec.writes))
	}
	if rec.writes[0] != "one\r\ntwo\r\nthree" {
		t.Errorf("Open() delivered %q", rec.writes[0])
	}
	if p.Buffered() != 0 {
		t.Error("buffer should be empty after Open()")
	}
	if p.State() != Streaming {
		t.Errorf("state = %s, want streaming", p.State())
	}

	_, _ = p.Write([]byte("four"))
	if len(rec.writes) != 2 || rec.writes[1] != "four" {
		t.Errorf("writes after Open() = %v", rec.writes)
	}
}

func TestPty_OpenWithEmptyBuffer(t *testing.T) {
	p := New()
	rec := &recorder{}
	p.Open(rec.sink)

	if len(rec.writes) != 0 {
		t.Errorf("Open() on empty buffer delivered %v", rec.writes)
	}
	_, _ = p.Write([]byte("x"))
	if len(rec.writes) != 1 {
		t.Errorf("writes = %v", rec.writes)
	}
}

func TestPty_CloseDiscards(t *testing.T) {
	p := New()
	rec := &recorder{}
	p.Open(rec.sink)
	_, _ = p.Write([]byte("before"))

	p.Close()
	n, err := p.Write([]byte("after"))
	if err != nil || n != len("after") {
		t.Errorf("Write() after Close() = %d, %v", n, err)
	}

	// Reopening is not supported and must not resurrect anything.
	again := &recorder{}
	p.Open(again.sink)
	_, _ = p.Write([]byte("later"))

	if strings.Join(rec.writes, "") != "before" {
		t.Errorf("first sink saw %v", rec.writes)
	}
	if len(again.writes) != 0 {
		t.Errorf("reopened sink saw %v", again.writes)
	}
	if p.State() != Closed {
		t.Errorf("state = %s, want closed", p.State())
	}
}

func TestPty_CloseBeforeOpenDropsBuffer(t *testing.T) {
	p := New()
	_, _ = p.Write([]byte("never shown"))
	p.Close()

	if p.Buffered() != 0 {
		t.Errorf("Buffered() = %d after Close()", p.Buffered())
	}
	rec := &recorder{}
	p.Open(rec.sink)
	if len(rec.writes) != 0 {
		t.Errorf("closed pty delivered %v", rec.writes)
	}
}

func TestPty_WriteDoesNotAliasCallerBuffer(t *testing.T) {
	p := New()
	rec := &recorder{}
	p.Open(rec.sink)

	var got []byte
	p.sink = func(data []byte) { got = data }
	buf := []byte("abc")
	_, _ = p.Write(buf)
	buf[0] = 'z'

	if string(got) != "abc" {
		t.Errorf("sink data changed with caller buffer: %q", got)
	}
}

func TestPty_ConcurrentWritersDeliverEveryByteOnce(t *testing.T) {
	p := New()
	var mu sync.Mutex
	var delivered strings.Builder
	sink := func(data []byte) {
		mu.Lock()
		delivered.Write(data)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, _ = p.Write([]byte(fmt.Sprintf("<%d:%d>", w, i)))
			}
		}(w)
	}
	p.Open(sink)
	wg.Wait()

	out := delivered.String()
	for w := 0; w < 2; w++ {
		last := -1
		for i := 0; i < 200; i++ {
			token := fmt.Sprintf("<%d:%d>", w, i)
			if strings.Count(out, token) != 1 {
				t.Fatalf("token %s delivered %d times", token, strings.Count(out, token))
			}
			idx := strings.Index(out, token)
			if idx < last {
				t.Fatalf("writer %d output out of order at %d", w, i)
			}
			last = idx
		}
	}
}

func TestState_String(t *testing.T) {
	if Buffering.String() != "buffering" || Streaming.String() != "streaming" || Closed.String() != "closed" {
		t.Error("unexpected state names")
	}
	if State(9).String() != "unknown" {
		t.Error("unknown state should stringify as unknown")
	}
}
