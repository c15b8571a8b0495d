package transport

import "sync"

// pipeQueueSize bounds buffered chunks per direction. Tests and simulators
// never come close to this.
const pipeQueueSize = 256

// PipeChannel is one end of an in-memory duplex channel pair.
type PipeChannel struct {
	mu      sync.Mutex
	closed  bool
	peer    *PipeChannel
	senders sync.WaitGroup

	in   chan []byte
	errs chan error
	done chan struct{}
}

var _ Channel = (*PipeChannel)(nil)

// Pipe returns two connected in-memory Channels. Bytes written to one end are
// delivered as a single chunk on the other end's Bytes stream.
//
// Closing either end closes the Bytes stream of both.
func Pipe() (*PipeChannel, *PipeChannel) {
	a := &PipeChannel{
		in:   make(chan []byte, pipeQueueSize),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	b := &PipeChannel{
		in:   make(chan []byte, pipeQueueSize),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	a.peer = b
	b.peer = a

	return a, b
}

// Open is a no-op; a pipe is connected from construction.
func (p *PipeChannel) Open() error { return nil }

// Write delivers a copy of buf to the peer end.
//
// A Write against a full buffer blocks until the peer drains a chunk or
// either end is closed; it never blocks Close.
func (p *PipeChannel) Write(buf []byte) (int, error) {
	target := p.peer

	target.mu.Lock()
	if target.closed {
		target.mu.Unlock()

		return 0, ErrChannelClosed
	}
	target.senders.Add(1)
	target.mu.Unlock()
	defer target.senders.Done()

	chunk := make([]byte, len(buf))
	copy(chunk, buf)

	// The send happens outside any lock and races Close through done, so a
	// full buffer cannot wedge Close behind a blocked writer.
	select {
	case target.in <- chunk:
		return len(buf), nil
	case <-target.done:
		return 0, ErrChannelClosed
	}
}

// Bytes returns the incoming chunk stream for this end.
func (p *PipeChannel) Bytes() <-chan []byte { return p.in }

// Errors returns the transport failure stream for this end.
func (p *PipeChannel) Errors() <-chan error { return p.errs }

// FailWith injects a transport-level failure on this end and closes it.
// Intended for tests simulating cable pulls and driver faults.
func (p *PipeChannel) FailWith(err error) {
	select {
	case p.errs <- err:
	default:
	}

	_ = p.Close()
}

// Close closes both directions of this end.
func (p *PipeChannel) Close() error {
	p.closeEnd()
	// A pipe has no half-open state; wake the peer's consumer too.
	p.peer.closeEnd()

	return nil
}

func (p *PipeChannel) closeEnd() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	// Pending senders wake on done; wait them out so closing the data
	// channel never races a send.
	p.senders.Wait()
	close(p.in)
}
