package transport

import (
	"sync"
	"time"
)

// Pipe returns two connected in-memory Ports. Bytes written to one end
// are readable from the other. Reads honor the deadline set with
// SetReadTimeout the same way the serial implementation does, so a
// scripted device on one end behaves like the real thing to a session on
// the other.
func Pipe() (Port, Port) {
	a := newPipeBuf()
	b := newPipeBuf()
	return &pipeEnd{rd: a, wr: b}, &pipeEnd{rd: b, wr: a}
}

type pipeEnd struct {
	rd *pipeBuf
	wr *pipeBuf

	mu      sync.Mutex
	timeout time.Duration
	closed  bool
}

func (p *pipeEnd) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	timeout := p.timeout
	p.mu.Unlock()
	return p.rd.read(buf, timeout)
}

func (p *pipeEnd) Write(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	p.mu.Unlock()
	return p.wr.write(buf)
}

// Close closes both directions. Idempotent; a peer blocked in Read wakes
// with ErrClosed.
func (p *pipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.rd.close()
	p.wr.close()
	return nil
}

func (p *pipeEnd) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
	return nil
}

// pipeBuf is one direction of the pipe: an unbounded byte queue with
// blocking reads.
type pipeBuf struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   []byte
	closed bool
}

func newPipeBuf() *pipeBuf {
	b := &pipeBuf{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pipeBuf) read(p []byte, timeout time.Duration) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for len(b.data) == 0 {
		if b.closed {
			return 0, ErrClosed
		}
		if timeout > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return 0, ErrTimeout
			}
			// Wake the Wait below when the deadline passes.
			t := time.AfterFunc(remaining, b.cond.Broadcast)
			b.cond.Wait()
			t.Stop()
		} else {
			b.cond.Wait()
		}
	}

	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func (b *pipeBuf) write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	b.data = append(b.data, p...)
	b.cond.Broadcast()
	return len(p), nil
}

func (b *pipeBuf) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
