package mcp

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed is returned by channel operations after Close.
var ErrChannelClosed = errors.New("channel closed")

// Channel is an abstract bidirectional message channel carrying one framed
// protocol message per Send/Receive. The session layer depends on this
// interface, not on a specific streaming transport.
//
// A channel is exclusively owned by one session: implementations must
// tolerate one concurrent reader and one concurrent writer, but callers
// must not run two concurrent Receives or two concurrent Sends. Close is
// idempotent and must unblock a pending Receive.
type Channel interface {
	Send(ctx context.Context, msg []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// pipeEnd is one end of an in-memory duplex channel. Used by tests and by
// clients talking to an in-process server.
type pipeEnd struct {
	in        <-chan []byte
	out       chan<- []byte
	closed    chan struct{}
	peerDone  <-chan struct{}
	closeOnce sync.Once
}

// Pipe creates a connected pair of in-memory channels. Messages sent on one
// end are received on the other. Closing either end unblocks both.
func Pipe() (Channel, Channel) {
	aToB := make(chan []byte, 16)
	bToA := make(chan []byte, 16)
	aClosed := make(chan struct{})
	bClosed := make(chan struct{})

	a := &pipeEnd{in: bToA, out: aToB, closed: aClosed, peerDone: bClosed}
	b := &pipeEnd{in: aToB, out: bToA, closed: bClosed, peerDone: aClosed}
	return a, b
}

func (p *pipeEnd) Send(ctx context.Context, msg []byte) error {
	buf := make([]byte, len(msg))
	copy(buf, msg)
	select {
	case <-p.closed:
		return ErrChannelClosed
	case <-p.peerDone:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.out <- buf:
		return nil
	}
}

func (p *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-p.closed:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-p.in:
		if !ok {
			return nil, ErrChannelClosed
		}
		return msg, nil
	case <-p.peerDone:
		// Drain messages already in flight before reporting closure.
		select {
		case msg := <-p.in:
			return msg, nil
		default:
			return nil, ErrChannelClosed
		}
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	return nil
}
