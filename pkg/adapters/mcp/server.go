// Package mcp exposes the ordering conversation as MCP tools so an LLM agent
// can act as the voice driver: one tool per action plus session tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/internal/runtime"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/schema"
)

// NodesURI is the resource listing the conversation nodes.
const NodesURI = "roomservice://nodes"

// Service is the engine surface the tools drive.
type Service interface {
	Start(ctx context.Context) (string, runtime.Outcome, error)
	Act(ctx context.Context, sessionID, action string, params map[string]any) (runtime.Outcome, error)
	Session(ctx context.Context, sessionID string) (roomservice.View, error)
	End(ctx context.Context, sessionID string) error
	Registry() *runtime.Registry
}

// Turn is the structured result of every session tool.
type Turn struct {
	SessionID string        `json:"session_id" jsonschema_description:"Session to pass to the next tool call"`
	Node      string        `json:"node" jsonschema_description:"Conversation node the session is now at"`
	Prompt    string        `json:"prompt" jsonschema_description:"What to say to the guest next"`
	Terminal  bool          `json:"terminal" jsonschema_description:"The conversation is over"`
	Kind      string        `json:"kind,omitempty" jsonschema_description:"Type of result"`
	Result    domain.Result `json:"result,omitempty" jsonschema_description:"Outcome of the action"`
	Actions   []string      `json:"actions" jsonschema_description:"Tools that may be called next"`
}

// Server exposes a Service as an MCP server.
type Server struct {
	svc       Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
	tools     []string
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		svc:       svc,
		logger:    logger,
		mcpServer: server.NewMCPServer("roomservice-mcp", roomservice.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Tools lists the registered tool names.
func (s *Server) Tools() []string { return append([]string(nil), s.tools...) }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	allow := cors.AllowAll().Handler
	mux := http.NewServeMux()
	mux.Handle("/sse", allow(sseServer.SSEHandler()))
	mux.Handle("/message", allow(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) add(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

func (s *Server) registerTools() {
	s.add(mcp.NewTool("start_session",
		mcp.WithDescription("Answer a new room-service call. Returns the session id and the greeting."),
		mcp.WithOutputSchema[Turn](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.add(mcp.NewTool("get_session",
		mcp.WithDescription("Show where a call stands: node, prompt, order and the tools allowed next."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from start_session")),
	), s.handleGet)

	s.add(mcp.NewTool("end_session",
		mcp.WithDescription("Hang up the call and discard its order."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from start_session")),
	), s.handleEnd)

	for _, spec := range s.svc.Registry().Specs() {
		opts := []mcp.ToolOption{
			mcp.WithDescription(spec.Description),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from start_session")),
			mcp.WithOutputSchema[Turn](),
		}
		for _, name := range spec.Params.Keys() {
			opts = append(opts, paramOption(name, spec.Params[name]))
		}
		s.add(mcp.NewTool(spec.Name, opts...), mcp.NewStructuredToolHandler(s.actionHandler(spec.Name)))
	}
}

// paramOption maps a schema field to a tool argument. Scalars are declared as
// strings so spoken quantities ("two") pass through to the parser.
func paramOption(name string, field schema.Field) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(field.Description)}
	if field.Required {
		props = append(props, mcp.Required())
	}
	switch field.Type.Name() {
	case "int":
		return mcp.WithNumber(name, props...)
	case "bool":
		return mcp.WithBoolean(name, props...)
	default:
		return mcp.WithString(name, props...)
	}
}

func (s *Server) turn(sessionID string, out runtime.Outcome) Turn {
	t := Turn{
		SessionID: sessionID,
		Node:      out.Node,
		Prompt:    out.Prompt,
		Terminal:  out.Terminal,
		Result:    out.Result,
		Actions:   []string{},
	}
	if out.Result != nil {
		t.Kind = out.Result.Kind()
	}
	for _, spec := range s.svc.Registry().ActionsFor(out.Node) {
		t.Actions = append(t.Actions, spec.Name)
	}
	return t
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (Turn, error) {
	id, out, err := s.svc.Start(ctx)
	if err != nil {
		return Turn{}, fmt.Errorf("start session: %w", err)
	}
	return s.turn(id, out), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Session(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	payload, _ := json.Marshal(view)
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleEnd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.End(ctx, id); err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	return mcp.NewToolResultText("call ended"), nil
}

func (s *Server) actionHandler(action string) func(context.Context, mcp.CallToolRequest, map[string]any) (Turn, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (Turn, error) {
		id, _ := args["session_id"].(string)
		if id == "" {
			return Turn{}, errors.New("session_id is required")
		}
		params := make(map[string]any, len(args))
		for k, v := range args {
			if k != "session_id" {
				params[k] = v
			}
		}

		out, err := s.svc.Act(ctx, id, action, params)
		if err != nil {
			s.logger.Warn("MCP tool call rejected", "session_id", id, "action", action, "err", err)
			return Turn{}, errors.New(s.describeState(err))
		}
		return s.turn(id, out), nil
	}
}

// describeState adds the allowed tools to a state error.
func (s *Server) describeState(err error) string {
	var stateErr *domain.StateError
	if !errors.As(err, &stateErr) {
		return describe(err)
	}
	var allowed []string
	for _, spec := range s.svc.Registry().ActionsFor(stateErr.NodeID) {
		allowed = append(allowed, spec.Name)
	}
	return fmt.Sprintf("%s; allowed now: %s", stateErr.Error(), strings.Join(allowed, ", "))
}

func describe(err error) string {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return "unknown session_id; call start_session first"
	}
	return err.Error()
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(NodesURI, "Conversation nodes",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		payload, err := json.Marshal(s.svc.Registry().Nodes())
		if err != nil {
			return nil, fmt.Errorf("encode nodes: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      NodesURI,
				MIMEType: "application/json",
				Text:     string(payload),
			},
		}, nil
	})
}
