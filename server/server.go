// Package server provides the HTTP front ends: the stateless REST
// compatibility surface, the JSON-RPC POST endpoint, and the WebSocket
// upgrade for streaming sessions. All three are thin encoders/decoders
// around the shared dispatcher; behavior for a given (tool, arguments)
// pair is identical regardless of which surface received the call.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/tidefall/cityscout/mcp"
	"github.com/tidefall/cityscout/tools"
)

// Server contains the configured router, protocol handler, and dispatcher.
type Server struct {
	cfg        Config
	dispatcher *mcp.Dispatcher
	handler    *mcp.Handler
	router     *chi.Mux
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config, dispatcher *mcp.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	info := mcp.ServerInfo{Name: cfg.Name, Version: cfg.Version}
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		handler:    mcp.NewHandler(info, dispatcher, logger),
		router:     chi.NewRouter(),
		upgrader:   websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		logger:     logger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/mcp/info", s.handleInfo)
		r.Get("/mcp/tools/list", s.handleListTools)
		r.Post("/mcp/tools/call", s.handleCallTool)
		r.Post("/mcp", s.handleJSONRPC)
	})

	// Streaming sessions are long-lived; no request timeout here.
	s.router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/mcp/ws", s.handleWebSocket)
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// auth enforces the shared bearer token when one is configured.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			s.logger.Warn("unauthorized request", "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        s.cfg.Name,
		"version":     s.cfg.Version,
		"protocol":    "MCP",
		"description": "A Model Context Protocol server with weather and events tools",
		"endpoints": map[string]string{
			"info":   "/mcp/info",
			"tools":  "/mcp/tools/list",
			"call":   "/mcp/tools/call",
			"mcp_ws": "/mcp/ws",
			"health": "/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"protocolVersion": mcp.ProtocolVersion,
		"serverInfo":      s.handler.Info(),
		"capabilities":    map[string]any{"tools": true},
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	descriptions, err := s.dispatcher.ListTools()
	if err != nil {
		s.logger.Error("failed to list tools", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tools"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": descriptions})
}

// callRequest is the REST invocation body. A missing arguments key is
// treated as an empty mapping, so declared defaults apply.
type callRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	s.logger.Info("tool call", "tool", req.Name)

	result, err := s.dispatcher.Dispatch(r.Context(), req.Name, req.Arguments)
	if err != nil {
		toolErr := tools.Classify(err)
		switch toolErr.Kind {
		case tools.KindNotFound:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": toolErr.Message})
		case tools.KindValidation:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": toolErr.Message})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": fmt.Sprintf("Error executing tool: %s", toolErr.Message),
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content": mcp.TextContent(tools.ResultText(s.logger, result)),
	})
}

// handleJSONRPC serves the MCP protocol over plain POST for clients that
// do not hold a streaming session. Single requests and batches are both
// accepted.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request: %v", err), http.StatusBadRequest)
		return
	}

	var requests []json.RawMessage
	isBatch := false
	if err := json.Unmarshal(body, &requests); err == nil && len(requests) > 0 {
		isBatch = true
	} else {
		requests = []json.RawMessage{body}
	}

	responses := make([]*mcp.Response, 0, len(requests))
	for _, reqData := range requests {
		if resp := s.handler.HandleMessage(r.Context(), reqData); resp != nil {
			responses = append(responses, resp)
		}
	}

	// Notifications only: acknowledge without a body.
	if len(responses) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if isBatch {
		writeJSON(w, http.StatusOK, responses)
		return
	}
	writeJSON(w, http.StatusOK, responses[0])
}

// handleWebSocket upgrades the connection and serves one streaming session
// over it. The session owns the connection and releases it on every exit
// path.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	session := mcp.NewSession(mcp.NewWebSocketChannel(conn), s.handler, s.logger)
	if err := session.Run(r.Context()); err != nil {
		s.logger.Error("session terminated", "session", session.ID(), "error", err)
	}
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming sessions outlive request deadlines
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
