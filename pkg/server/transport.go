package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zen-systems/toolroute/pkg/config"
)

// Transport serves an MCP server until ctx is done or the transport fails.
type Transport interface {
	Serve(ctx context.Context) error
}

// shutdowner is implemented by transports that hold resources past Serve.
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

const shutdownTimeout = 5 * time.Second

// NewTransport builds the transport named in cfg. gatherer backs /metrics on
// the HTTP transport and may be nil.
func NewTransport(cfg config.ServerConfig, s *server.MCPServer, gatherer prometheus.Gatherer, logger zerolog.Logger) (Transport, error) {
	switch cfg.Transport {
	case "", config.TransportStdio:
		return NewStdioTransport(s, os.Stdin, os.Stdout, logger), nil
	case config.TransportHTTP:
		return NewHTTPTransport(s, cfg.Addr, gatherer, logger), nil
	default:
		return nil, &config.ConfigurationError{
			Field:  "server.transport",
			Reason: fmt.Sprintf("unknown transport %q", cfg.Transport),
		}
	}
}

// Run serves t and shuts it down once Serve returns.
func Run(ctx context.Context, t Transport) error {
	serveErr := t.Serve(ctx)
	if sd, ok := t.(shutdowner); ok {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sd.Shutdown(shutdownCtx); err != nil && serveErr == nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return serveErr
}

// StdioTransport speaks MCP over a reader and writer, normally stdin and
// stdout. Logs must never go to the writer.
type StdioTransport struct {
	stdio *server.StdioServer
	in    io.Reader
	out   io.Writer
}

// NewStdioTransport creates a stdio transport.
func NewStdioTransport(s *server.MCPServer, in io.Reader, out io.Writer, logger zerolog.Logger) *StdioTransport {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(logger, "", 0))
	return &StdioTransport{stdio: stdio, in: in, out: out}
}

// Serve reads requests until ctx is done or the input closes.
func (t *StdioTransport) Serve(ctx context.Context) error {
	err := t.stdio.Listen(ctx, t.in, t.out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// HTTPTransport serves streamable HTTP MCP at /mcp and Prometheus metrics
// at /metrics.
type HTTPTransport struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewHTTPTransport creates an HTTP transport listening on addr.
func NewHTTPTransport(s *server.MCPServer, addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) *HTTPTransport {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(s))
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &HTTPTransport{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler, for mounting elsewhere or testing.
func (t *HTTPTransport) Handler() http.Handler {
	return t.srv.Handler
}

// Serve listens until ctx is done or the listener fails.
func (t *HTTPTransport) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", t.srv.Addr, err)
	}
	t.logger.Info().Str("addr", ln.Addr().String()).Msg("serving MCP over HTTP")

	errCh := make(chan error, 1)
	go func() {
		errCh <- t.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (t *HTTPTransport) Shutdown(ctx context.Context) error {
	return t.srv.Shutdown(ctx)
}
