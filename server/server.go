// Package server implements the tool server: a long-running HTTP process
// exposing health, tool discovery, and tool invocation for one registry of
// tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/denser-ai/toolfleet/config"
	"github.com/denser-ai/toolfleet/logger"
	"github.com/denser-ai/toolfleet/mcp"
	"github.com/denser-ai/toolfleet/tools"
)

// Server owns one tool registry and dispatches calls to the registered
// implementations. Servers are independently addressable and stateless
// across calls.
type Server struct {
	cfg      *config.Config
	registry *mcp.Registry
	bindings map[string]tools.Tool
	echo     *echo.Echo
}

// New creates a server for the given configuration.
func New(cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		cfg:      cfg,
		registry: mcp.NewRegistry(),
		bindings: make(map[string]tools.Tool),
		echo:     e,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/mcp/tools", s.handleListTools)
	s.echo.POST("/mcp/call_tool", s.handleCallTool)
}

// Register binds a tool implementation and records its descriptor.
func (s *Server) Register(tool tools.Tool) error {
	if err := s.registry.Register(tools.Descriptor(tool)); err != nil {
		return err
	}
	s.bindings[tool.Name()] = tool
	logger.Debug("Tool registered", "identity", s.cfg.Identity, "name", tool.Name())
	return nil
}

// RegisterAll registers a tool set, stopping at the first failure.
func (s *Server) RegisterAll(ts []tools.Tool) error {
	for _, tool := range ts {
		if err := s.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Identity returns the server's configured identity.
func (s *Server) Identity() string { return s.cfg.Identity }

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Addr()
	logger.Info("Tool server starting",
		"identity", s.cfg.Identity, "addr", addr, "tools", s.registry.Len())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Tool server shutting down", "identity", s.cfg.Identity)
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, mcp.HealthResponse{
		Status:   "ok",
		Identity: s.cfg.Identity,
	})
}

func (s *Server) handleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, mcp.ListToolsResponse{Tools: s.registry.List()})
}

func (s *Server) handleCallTool(c echo.Context) error {
	var req mcp.CallRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest,
			mcp.Fail(mcp.KindInvalidArguments, "invalid request body"))
	}
	if req.ToolName == "" {
		return c.JSON(http.StatusBadRequest,
			mcp.Fail(mcp.KindInvalidArguments, "tool_name is required"))
	}

	result := s.dispatch(c.Request().Context(), req)
	if !result.Success {
		logger.Warn("Tool call failed",
			"identity", s.cfg.Identity, "tool", req.ToolName,
			"kind", result.Error.Kind, "message", result.Error.Message)
	}
	return c.JSON(http.StatusOK, result)
}

// dispatch runs resolve → validate → invoke and wraps the outcome. A faulty
// implementation can never take the server down.
func (s *Server) dispatch(ctx context.Context, req mcp.CallRequest) mcp.CallResult {
	desc, err := s.registry.Resolve(req.ToolName)
	if err != nil {
		return mcp.Fail(mcp.KindUnknownTool, err.Error())
	}

	args, err := ValidateArgs(desc.InputSchema, req.Arguments)
	if err != nil {
		return mcp.Fail(mcp.KindInvalidArguments, err.Error())
	}

	tool := s.bindings[req.ToolName]
	payload, err := s.invoke(ctx, tool, args)
	if err != nil {
		// A tool returning *mcp.CallError keeps its declared kind.
		return mcp.FailErr(mcp.KindExecutionError, err)
	}
	return mcp.Succeed(payload)
}

func (s *Server) invoke(ctx context.Context, tool tools.Tool, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Tool panicked",
				"identity", s.cfg.Identity, "tool", tool.Name(), "panic", r)
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, args)
}
