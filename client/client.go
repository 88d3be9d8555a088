// Package client implements the client side of the MCP session: connect,
// handshake, tool discovery, tool invocation, health checking, and
// idempotent teardown. It talks over the same abstract channel as the
// server session layer, with a WebSocket dialer for remote servers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tidefall/cityscout/mcp"
)

// Client maintains one logical session with an MCP server. A client serves
// one conversation at a time: calls are serialized, matching the in-order
// response guarantee of the session protocol.
type Client struct {
	url    string
	info   mcp.ClientInfo
	logger *slog.Logger

	mu        sync.Mutex
	channel   mcp.Channel
	connected bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientInfo sets the identity sent during the handshake.
func WithClientInfo(info mcp.ClientInfo) Option {
	return func(c *Client) {
		c.info = info
	}
}

// New creates a client that dials the given WebSocket URL on Connect.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		info:   mcp.ClientInfo{Name: "cityscout-client", Version: "0.1.0"},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithChannel creates a client over an already-open channel, used for
// in-process servers and tests. Connect performs the handshake only.
func NewWithChannel(channel mcp.Channel, opts ...Option) *Client {
	c := New("", opts...)
	c.channel = channel
	return c
}

// rpcResponse mirrors mcp.Response with a raw result for client-side
// decoding.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *mcp.RPCError   `json:"error,omitempty"`
}

// Connect establishes the channel if needed and performs the initialize
// handshake. A failed handshake releases the channel and leaves the client
// disconnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if c.channel == nil {
		if c.url == "" {
			return fmt.Errorf("no server URL configured")
		}
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return fmt.Errorf("dialing %s: %w", c.url, err)
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		c.channel = mcp.NewWebSocketChannel(conn)
	}

	if err := c.initialize(ctx); err != nil {
		// Handshake failure must not leak the channel.
		c.channel.Close()
		c.channel = nil
		return fmt.Errorf("initialize handshake: %w", err)
	}

	c.connected = true
	c.logger.Info("connected to MCP server", "url", c.url)
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	params, err := json.Marshal(mcp.InitializeParams{
		ProtocolVersion: mcp.ProtocolVersion,
		ClientInfo:      c.info,
	})
	if err != nil {
		return err
	}

	var result mcp.InitializeResult
	if err := c.roundTrip(ctx, mcp.MethodInitialize, params, &result); err != nil {
		return err
	}

	// Confirm initialization so the server session moves to active.
	note, err := json.Marshal(mcp.Notification{
		JSONRPC: "2.0",
		Method:  mcp.MethodInitialized,
	})
	if err != nil {
		return err
	}
	return c.channel.Send(ctx, note)
}

// roundTrip sends one request and blocks for its response, correlating by
// request ID. Callers must hold c.mu.
func (c *Client) roundTrip(ctx context.Context, method string, params json.RawMessage, out any) error {
	id := uuid.NewString()
	data, err := json.Marshal(mcp.Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	if err := c.channel.Send(ctx, data); err != nil {
		return err
	}

	for {
		msg, err := c.channel.Receive(ctx)
		if err != nil {
			return err
		}

		var resp rpcResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			c.logger.Warn("discarding unparseable message", "error", err)
			continue
		}
		if respID, ok := resp.ID.(string); !ok || respID != id {
			// Not ours: a notification or a stale reply.
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("%s (code: %d)", resp.Error.Message, resp.Error.Code)
		}
		if out != nil && resp.Result != nil {
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	}
}

// ListTools returns the server's tool catalog in the server's declared
// order.
func (c *Client) ListTools(ctx context.Context) ([]mcp.ToolDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, fmt.Errorf("client not connected; call Connect first")
	}

	var result mcp.ToolsListResult
	if err := c.roundTrip(ctx, mcp.MethodToolsList, nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool by name with the given arguments and returns the
// content sequence reply.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolsCallResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, fmt.Errorf("client not connected; call Connect first")
	}

	if args == nil {
		args = map[string]any{}
	}
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(mcp.ToolsCallParams{Name: name, Arguments: rawArgs})
	if err != nil {
		return nil, err
	}

	var result mcp.ToolsCallResult
	if err := c.roundTrip(ctx, mcp.MethodToolsCall, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HealthCheck reports whether the server is reachable and serving: it
// connects if needed and issues a trivial discovery call. It returns a
// boolean rather than propagating errors; health checks must never crash
// the caller.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if err := c.Connect(ctx); err != nil {
		return false
	}
	_, err := c.ListTools(ctx)
	return err == nil
}

// Close tears down the session and releases the channel. Closing an
// already-closed client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil {
		return nil
	}
	err := c.channel.Close()
	c.channel = nil
	c.connected = false
	c.logger.Info("client closed")
	return err
}
