package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of one streaming session.
type SessionState int32

const (
	// StateConnecting: channel open, no protocol messages exchanged yet.
	StateConnecting SessionState = iota
	// StateInitialized: handshake completed.
	StateInitialized
	// StateActive: client confirmed initialization; discovery and
	// invocation requests are accepted.
	StateActive
	// StateClosed: terminal; the channel has been released.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	default:
		return "closed"
	}
}

// Session owns one logical connection to one agent: handshake, ordered
// message pump, teardown. The channel is exclusively owned by the session;
// requests are processed and responses delivered in the order received.
// Whatever path the session takes into the closed state, the channel is
// released exactly once.
type Session struct {
	id      string
	channel Channel
	handler *Handler
	logger  *slog.Logger

	state     atomic.Int32
	cancel    context.CancelFunc
	cancelMu  sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session over the given channel. The session starts
// in the connecting state; call Run to serve it.
func NewSession(channel Channel, handler *Handler, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		channel: channel,
		handler: handler,
		logger:  logger.With("session", id),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run pumps messages until the channel ends, the context is cancelled, or
// the session is closed. It requires a successful initialize exchange
// before any tool method is served. Run always releases the channel before
// returning, on error paths included.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()

	s.logger.Info("session started")

	for {
		msg, err := s.channel.Receive(runCtx)
		if err != nil {
			return s.pumpError(err)
		}

		resp, respErr := s.handleMessage(runCtx, msg)
		if resp == nil {
			continue
		}
		if respErr != nil {
			// Session-level failures close the session instead of
			// producing a call-level error response.
			return respErr
		}

		data, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("error marshaling response", "error", err)
			continue
		}
		if err := s.channel.Send(runCtx, data); err != nil {
			return s.pumpError(err)
		}
	}
}

// handleMessage enforces the session state machine around the protocol
// handler: before initialization only the initialize method is accepted.
func (s *Session) handleMessage(ctx context.Context, msg []byte) (*Response, error) {
	var probe Request
	if err := json.Unmarshal(msg, &probe); err != nil {
		// Let the handler produce the standard parse error response.
		return s.handler.HandleMessage(ctx, msg), nil
	}

	if probe.ID == nil {
		if probe.Method == MethodInitialized && s.State() == StateInitialized {
			s.state.Store(int32(StateActive))
			s.logger.Info("session active")
		} else {
			s.handler.HandleMessage(ctx, msg)
		}
		return nil, nil
	}

	if s.State() == StateConnecting && probe.Method != MethodInitialize {
		return &Response{
			JSONRPC: "2.0",
			ID:      probe.ID,
			Error: &RPCError{
				Code:    InvalidRequest,
				Message: "Session not initialized",
			},
		}, nil
	}

	resp := s.handler.HandleMessage(ctx, msg)

	if probe.Method == MethodInitialize && resp != nil && resp.Error == nil {
		if s.State() == StateConnecting {
			s.state.Store(int32(StateInitialized))
			s.logger.Info("session initialized")
		}
	}

	return resp, nil
}

// pumpError translates channel termination into Run's return value. A
// clean end of stream, a cancelled context, or a deliberate close is a
// normal exit.
func (s *Session) pumpError(err error) error {
	if errors.Is(err, ErrChannelClosed) || errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info("session ended")
		return nil
	}
	s.logger.Error("session channel error", "error", err)
	return err
}

// Close transitions the session to closed, cancels any in-flight receive,
// and releases the channel. Closing an already-closed session is a no-op.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.cancelMu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.cancelMu.Unlock()
		s.closeErr = s.channel.Close()
		s.logger.Info("session closed")
	})
	return s.closeErr
}
