package mcp

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
)

// StdioChannel frames messages as newline-delimited JSON over a reader and
// writer pair, the native transport for local MCP clients that spawn the
// server as a subprocess.
type StdioChannel struct {
	writer  io.Writer
	writeMu sync.Mutex

	lines chan []byte
	errCh chan error

	closed    chan struct{}
	closeOnce sync.Once
}

// NewStdioChannel creates a channel over stdin/stdout.
func NewStdioChannel() *StdioChannel {
	return NewStdioChannelWithIO(os.Stdin, os.Stdout)
}

// NewStdioChannelWithIO creates a channel over a custom reader/writer pair,
// for testing.
func NewStdioChannelWithIO(reader io.Reader, writer io.Writer) *StdioChannel {
	c := &StdioChannel{
		writer: writer,
		lines:  make(chan []byte),
		errCh:  make(chan error, 1),
		closed: make(chan struct{}),
	}

	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max message size

	go func() {
		defer close(c.lines)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case c.lines <- line:
			case <-c.closed:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.errCh <- err
		}
	}()

	return c
}

// Send writes one newline-terminated message.
func (c *StdioChannel) Send(ctx context.Context, msg []byte) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.writer.Write(append(msg, '\n'))
	return err
}

// Receive blocks until the next complete line arrives, the stream ends, or
// the channel is closed.
func (c *StdioChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			select {
			case err := <-c.errCh:
				return nil, err
			default:
				return nil, io.EOF
			}
		}
		return line, nil
	}
}

// Close is idempotent and unblocks any pending Receive.
func (c *StdioChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}
