package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sqlagent/sqlagent/internal/query"
	"github.com/sqlagent/sqlagent/internal/resttool"
)

const (
	ExecuteSQLQueryTool = "execute_sql_query"
	MakeRequestTool     = "make_request"
)

type QueryTool interface {
	ExecuteSQLQuery(ctx context.Context, text string) (query.Envelope, error)
}

type Fetcher interface {
	MakeRequest(ctx context.Context, url string) resttool.Response
}

// Tools is the set of backends exposed over MCP. A nil Fetcher leaves
// make_request unregistered.
type Tools struct {
	Query   QueryTool
	Fetcher Fetcher
	Logger  *slog.Logger
}

func NewServer(name, version string, tools Tools) (*server.MCPServer, error) {
	if tools.Query == nil {
		return nil, fmt.Errorf("query tool is required")
	}
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	Register(s, tools)
	return s, nil
}

func Register(s *server.MCPServer, tools Tools) {
	queryTool := mcp.NewTool(ExecuteSQLQueryTool,
		mcp.WithDescription("Answer a question about the database. Accepts a SELECT statement or a natural language request; only data retrieval is allowed."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("SELECT statement or natural language request"),
		),
	)
	s.AddTool(queryTool, executeSQLQueryHandler(tools.Query, tools.Logger))

	if tools.Fetcher != nil {
		requestTool := mcp.NewTool(MakeRequestTool,
			mcp.WithDescription("Make an HTTP GET request and return the response data"),
			mcp.WithString("url",
				mcp.Required(),
				mcp.Description("Absolute http or https URL"),
			),
		)
		s.AddTool(requestTool, makeRequestHandler(tools.Fetcher))
	}
}

func executeSQLQueryHandler(tool QueryTool, logger *slog.Logger) server.ToolHandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing query parameter: %v", err)), nil
		}

		envelope, execErr := tool.ExecuteSQLQuery(ctx, text)
		payload, err := json.Marshal(envelope)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
		}
		if execErr != nil {
			logger.Error("execute_sql_query failed", slog.Any("error", execErr))
			return mcp.NewToolResultError(string(payload)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func makeRequestHandler(fetcher Fetcher) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing url parameter: %v", err)), nil
		}
		payload, err := json.Marshal(fetcher.MakeRequest(ctx, url))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
