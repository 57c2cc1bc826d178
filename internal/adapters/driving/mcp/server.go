package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// DefaultMaxAnswerLength applies when Config leaves it zero.
const DefaultMaxAnswerLength = 100

const shutdownGrace = 5 * time.Second

var log = logger.New("mcp")

// Config holds the defaults applied to tool calls.
type Config struct {
	// MaxAnswerLength bounds answers when a call does not set one.
	MaxAnswerLength int

	// Dataset tags questions that do not name a dataset.
	Dataset string
}

// Server is the MCP server for ras.
type Server struct {
	ports  *Ports
	cfg    Config
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if cfg.MaxAnswerLength <= 0 {
		cfg.MaxAnswerLength = DefaultMaxAnswerLength
	}

	impl := &mcp.Implementation{
		Name:    "ras",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		cfg:    cfg,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	log.Info("serving over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled, then drains open requests for up to shutdownGrace.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving over http", "addr", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
