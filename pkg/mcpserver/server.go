// Package mcpserver exposes the dispatcher's tools and the reader's resources
// over the Model Context Protocol, on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/edumesh/eduagent/pkg/dispatch"
	"github.com/edumesh/eduagent/pkg/errmodel"
	"github.com/edumesh/eduagent/pkg/resources"
)

const (
	// ServerName identifies this server in the MCP handshake.
	ServerName = "eduagent"
	// ServerVersion is the protocol-visible server version.
	ServerVersion = "1.0.0"
)

// Server bridges the dispatcher and reader onto an MCP server instance.
type Server struct {
	mcp        *mcp.Server
	dispatcher *dispatch.Dispatcher
	reader     *resources.Reader
	log        *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New registers every dispatcher tool and reader resource on a fresh MCP
// server. Tool schemas are decoded from their raw declarations; a bad schema
// is a programming error and fails construction.
func New(d *dispatch.Dispatcher, r *resources.Reader, opts ...Option) (*Server, error) {
	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
		dispatcher: d,
		reader:     r,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, desc := range d.Tools() {
		schema := new(jsonschema.Schema)
		if err := json.Unmarshal(desc.InputSchema, schema); err != nil {
			return nil, fmt.Errorf("mcpserver: schema for tool %q: %w", desc.Name, err)
		}
		name := desc.Name
		s.mcp.AddTool(&mcp.Tool{
			Name:        name,
			Description: desc.Description,
			InputSchema: schema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.callTool(ctx, name, req)
		})
	}

	for _, rd := range r.List() {
		if rd.Templated {
			s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
				URITemplate: rd.URI,
				Name:        rd.Name,
				Description: rd.Description,
				MIMEType:    rd.MIMEType,
			}, s.readResource)
			continue
		}
		s.mcp.AddResource(&mcp.Resource{
			URI:         rd.URI,
			Name:        rd.Name,
			Description: rd.Description,
			MIMEType:    rd.MIMEType,
		}, s.readResource)
	}

	return s, nil
}

// callTool decodes the raw arguments and renders the dispatch Result as tool
// content. Every outcome is success-framed; errors set IsError.
func (s *Server) callTool(ctx context.Context, name string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := map[string]any{}
	if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return textResult("Error: malformed arguments: "+err.Error(), true), nil
		}
	}

	res := s.dispatcher.Call(ctx, name, args)
	return textResult(res.Text(), res.IsErr()), nil
}

func textResult(text string, isErr bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isErr,
	}
}

// readResource resolves any registered URI through the reader. Unknown or
// failing reads yield an error envelope as content rather than a protocol
// error, matching the tool-call error policy.
func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := ""
	if req != nil && req.Params != nil {
		uri = req.Params.URI
	}
	text, rerr := s.reader.Read(ctx, uri)
	if rerr != nil {
		text = errmodel.Envelope(rerr)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}, nil
}

// RunStdio serves MCP over stdin/stdout until ctx is canceled or the peer
// disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.log.Info("mcp server starting", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// ServeHTTP serves MCP over the streamable HTTP transport on addr, mounted at
// /mcp, until ctx is canceled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: otelhttp.NewHandler(mux, "eduagent")}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("mcp server starting", "transport", "http", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
