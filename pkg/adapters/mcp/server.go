package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
)

// CatalogURI addresses the resource that describes every schema.
const CatalogURI = "vigil://catalog"

// ValidateArgs are the arguments of the validate tool.
type ValidateArgs struct {
	Schema string         `json:"schema"`
	Data   map[string]any `json:"data"`
	Fields []string       `json:"fields,omitempty"`
}

// SchemaArgs are the arguments of the describe_schema tool.
type SchemaArgs struct {
	Schema string `json:"schema"`
}

// ValidateResponse aligns with the HTTP report and adds the issues sorted by path.
type ValidateResponse struct {
	ID     string         `json:"id" jsonschema_description:"Report ID, usable with the HTTP API"`
	Schema string         `json:"schema" jsonschema_description:"The schema the data was checked against"`
	Valid  bool           `json:"valid" jsonschema_description:"True when no field failed"`
	Issues []domain.Issue `json:"issues" jsonschema_description:"Failed paths and their error codes"`
}

// SchemaList is the result of the list_schemas tool.
type SchemaList struct {
	Schemas []string `json:"schemas" jsonschema_description:"Names of the catalog schemas"`
}

// Server wraps a validation engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.ValidationEngine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the MCP server.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	version string
}

// WithLogger sets the logger of the tool handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithVersion sets the version announced on initialize.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.ValidationEngine, opts ...Option) *Server {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		engine:    engine,
		logger:    o.logger,
		mcpServer: server.NewMCPServer("vigil-mcp", o.version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mainly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: validate
	validateTool := mcp.NewTool("validate",
		mcp.WithDescription("Validate a JSON object against a catalog schema and return the failing paths."),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Name of the schema")),
		mcp.WithObject("data", mcp.Required(), mcp.Description("The document to validate")),
		mcp.WithArray("fields",
			mcp.Description("Validate only these fields (optional)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	// TOOL: list_schemas
	listTool := mcp.NewTool("list_schemas",
		mcp.WithDescription("List the names of the schemas in the catalog."),
		mcp.WithOutputSchema[SchemaList](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListSchemas))

	// TOOL: describe_schema
	describeTool := mcp.NewTool("describe_schema",
		mcp.WithDescription("Describe the fields of a schema: types, bounds, nullability and nested schemas."),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Name of the schema")),
		mcp.WithOutputSchema[domain.SchemaInfo](),
	)
	s.mcpServer.AddTool(describeTool, mcp.NewStructuredToolHandler(s.handleDescribe))
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args ValidateArgs) (ValidateResponse, error) {
	if args.Schema == "" {
		return ValidateResponse{}, fmt.Errorf("schema is required")
	}
	if args.Data == nil {
		return ValidateResponse{}, fmt.Errorf("data is required")
	}

	report, err := s.engine.Validate(ctx, args.Schema, args.Data, args.Fields...)
	if err != nil {
		s.logger.Warn("MCP validate failed", "schema", args.Schema, "err", err)
		return ValidateResponse{}, fmt.Errorf("validate failed: %w", err)
	}
	return ValidateResponse{
		ID:     report.ID,
		Schema: report.Schema,
		Valid:  report.Valid,
		Issues: report.Issues(),
	}, nil
}

func (s *Server) handleListSchemas(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SchemaList, error) {
	names := s.engine.Schemas()
	if names == nil {
		names = []string{}
	}
	return SchemaList{Schemas: names}, nil
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest, args SchemaArgs) (domain.SchemaInfo, error) {
	info, err := s.engine.Describe(args.Schema)
	if err != nil {
		return domain.SchemaInfo{}, fmt.Errorf("describe failed: %w", err)
	}
	return *info, nil
}

func (s *Server) registerResources() {
	// EXPOSE: vigil://catalog
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Schema Catalog",
		mcp.WithResourceDescription("Descriptions of every schema in the catalog"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.catalogJSON()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CatalogURI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}

func (s *Server) catalogJSON() (string, error) {
	infos := make([]*domain.SchemaInfo, 0)
	for _, name := range s.engine.Schemas() {
		info, err := s.engine.Describe(name)
		if err != nil {
			return "", fmt.Errorf("failed to describe %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	b, err := json.Marshal(infos)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
