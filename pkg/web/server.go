package web

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/pkg/core"
)

// Server wraps a fasthttp.Server around a Router.
type Server struct {
	router *Router
	server *fasthttp.Server
	addr   string
	logger core.Logger

	totalRequests      int64
	successfulRequests int64
	errorRequests      int64
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Concurrency  int
}

// DefaultServerConfig returns defaults suited to a small rendered-HTML app
func DefaultServerConfig(addr string) *ServerConfig {
	return &ServerConfig{
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Concurrency:  1024,
	}
}

// NewServer creates a server around the given router
func NewServer(router *Router, config *ServerConfig, logger core.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig(":8080")
	}
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	s := &Server{
		router: router,
		addr:   config.Addr,
		logger: logger,
		server: &fasthttp.Server{
			ReadTimeout:           config.ReadTimeout,
			WriteTimeout:          config.WriteTimeout,
			Concurrency:           config.Concurrency,
			NoDefaultServerHeader: true,
		},
	}
	s.server.Handler = s.handleRequest
	return s
}

// Start begins listening (blocking call)
func (s *Server) Start() error {
	s.logger.Infof("http server listening on %s", s.addr)
	return s.server.ListenAndServe(s.addr)
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.ShutdownWithContext(ctx)
}

// Metrics returns request counters accumulated since start
func (s *Server) Metrics() ServerMetrics {
	return ServerMetrics{
		TotalRequests:      atomic.LoadInt64(&s.totalRequests),
		SuccessfulRequests: atomic.LoadInt64(&s.successfulRequests),
		ErrorRequests:      atomic.LoadInt64(&s.errorRequests),
	}
}

// ServerMetrics provides server performance metrics
type ServerMetrics struct {
	TotalRequests      int64
	SuccessfulRequests int64
	ErrorRequests      int64
}

// handleRequest processes a single request
func (s *Server) handleRequest(ctx *fasthttp.RequestCtx) {
	// Generate or extract request ID from headers
	requestID := string(ctx.Request.Header.Peek("X-Request-ID"))
	if requestID == "" {
		requestID = core.GenerateRequestID()
	}

	reqCtx := NewRequestContext(ctx, requestID)

	// Set request ID in response header for tracing
	ctx.Response.Header.Set("X-Request-ID", requestID)

	atomic.AddInt64(&s.totalRequests, 1)

	s.router.Serve(reqCtx)

	statusCode := ctx.Response.StatusCode()
	if statusCode >= 200 && statusCode < 400 {
		atomic.AddInt64(&s.successfulRequests, 1)
	} else if statusCode >= 500 {
		atomic.AddInt64(&s.errorRequests, 1)
	}
}
