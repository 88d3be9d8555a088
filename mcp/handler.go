package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tidefall/cityscout/tools"
)

// Handler processes JSON-RPC 2.0 messages for the MCP protocol. It is a
// thin decoder around the dispatcher: initialize and tools/list are
// answered locally, tools/call is routed through Dispatch.
type Handler struct {
	info       ServerInfo
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewHandler creates a protocol handler over the given dispatcher.
func NewHandler(info ServerInfo, dispatcher *Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		info:       info,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Info returns the server identity advertised during initialization.
func (h *Handler) Info() ServerInfo {
	return h.info
}

// HandleMessage processes one JSON-RPC message and returns a response, or
// nil when the message is a notification (no response expected).
func (h *Handler) HandleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.ID == nil {
		h.logger.Info("received notification", "method", req.Method)
		return nil
	}

	if req.JSONRPC != "2.0" {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidRequest,
				Message: "Invalid JSON-RPC version",
			},
		}
	}

	var result any
	var rpcErr *RPCError

	switch req.Method {
	case MethodInitialize:
		result, rpcErr = h.handleInitialize(req.Params)
	case MethodToolsList:
		result, rpcErr = h.handleToolsList()
	case MethodToolsCall:
		result, rpcErr = h.handleToolsCall(ctx, req.Params)
	default:
		rpcErr = &RPCError{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	}
}

func (h *Handler) handleInitialize(params json.RawMessage) (any, *RPCError) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &RPCError{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	h.logger.Info("MCP client connected",
		"client", initParams.ClientInfo.Name,
		"version", initParams.ClientInfo.Version)

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: map[string]any{
				"listChanged": false,
			},
		},
		ServerInfo: h.info,
	}, nil
}

func (h *Handler) handleToolsList() (any, *RPCError) {
	descriptions, err := h.dispatcher.ListTools()
	if err != nil {
		return nil, &RPCError{
			Code:    InternalError,
			Message: "Failed to list tools",
			Data:    err.Error(),
		}
	}
	return ToolsListResult{Tools: descriptions}, nil
}

func (h *Handler) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var callParams ToolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "Invalid tools/call parameters",
			Data:    err.Error(),
		}
	}

	result, err := h.dispatcher.Dispatch(ctx, callParams.Name, callParams.Arguments)
	if err != nil {
		toolErr := tools.Classify(err)
		switch toolErr.Kind {
		case tools.KindValidation, tools.KindNotFound:
			// Caller-facing: surface as a protocol error object.
			return nil, &RPCError{
				Code:    toolErr.Code,
				Message: toolErr.Message,
				Data:    toolErr.Data,
			}
		default:
			// Execution failure: MCP reports these as an in-band error
			// result, not a protocol error.
			return ToolsCallResult{
				Content: TextContent(fmt.Sprintf("Error executing tool: %s", toolErr.Message)),
				IsError: true,
			}, nil
		}
	}

	return ToolsCallResult{
		Content: TextContent(tools.ResultText(h.logger, result)),
	}, nil
}
