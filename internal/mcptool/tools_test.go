package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlagent/sqlagent/internal/database"
	"github.com/sqlagent/sqlagent/internal/query"
	"github.com/sqlagent/sqlagent/internal/resttool"
)

type fakeQueryTool struct {
	envelope query.Envelope
	err      error
	got      string
}

func (f *fakeQueryTool) ExecuteSQLQuery(_ context.Context, text string) (query.Envelope, error) {
	f.got = text
	return f.envelope, f.err
}

type fakeFetcher struct {
	response resttool.Response
	got      string
}

func (f *fakeFetcher) MakeRequest(_ context.Context, url string) resttool.Response {
	f.got = url
	return f.response
}

func TestExecuteSQLQueryReturnsEnvelopeJSON(t *testing.T) {
	tool := &fakeQueryTool{envelope: query.Envelope{
		Status:   query.StatusSuccess,
		Success:  true,
		RowCount: 1,
		Data:     []map[string]any{{"name": "Macbook"}},
	}}

	result, err := executeSQLQueryHandler(tool, nil)(context.Background(), callRequest(ExecuteSQLQueryTool, map[string]any{"query": "SELECT name FROM products"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "SELECT name FROM products", tool.got)
	assert.JSONEq(t, `{"status":"success","success":true,"data":[{"name":"Macbook"}],"row_count":1}`, resultText(t, result))
}

func TestExecuteSQLQueryRefusalIsNotAToolError(t *testing.T) {
	tool := &fakeQueryTool{envelope: query.Envelope{Status: query.StatusError, Message: query.WriteRefusalMessage}}

	result, err := executeSQLQueryHandler(tool, nil)(context.Background(), callRequest(ExecuteSQLQueryTool, map[string]any{"query": "DROP TABLE X"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var envelope query.Envelope
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &envelope))
	assert.Equal(t, query.WriteRefusalMessage, envelope.Message)
}

func TestExecuteSQLQueryConnectionErrorIsToolError(t *testing.T) {
	tool := &fakeQueryTool{
		envelope: query.Envelope{Status: query.StatusError, Message: query.UnavailableMessage},
		err:      &database.ConnectionError{Backend: "postgres", Op: "ping", Err: errors.New("refused")},
	}

	result, err := executeSQLQueryHandler(tool, nil)(context.Background(), callRequest(ExecuteSQLQueryTool, map[string]any{"query": "SELECT 1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), query.UnavailableMessage)
	assert.NotContains(t, resultText(t, result), "refused")
}

func TestExecuteSQLQueryMissingArgument(t *testing.T) {
	result, err := executeSQLQueryHandler(&fakeQueryTool{}, nil)(context.Background(), callRequest(ExecuteSQLQueryTool, map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMakeRequestHandler(t *testing.T) {
	fetcher := &fakeFetcher{response: resttool.Response{Success: true, StatusCode: 200, Data: map[string]any{"ok": true}}}

	result, err := makeRequestHandler(fetcher)(context.Background(), callRequest(MakeRequestTool, map[string]any{"url": "https://api.github.com/users/google"}))
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/users/google", fetcher.got)
	assert.JSONEq(t, `{"success":true,"status_code":200,"data":{"ok":true}}`, resultText(t, result))
}

func TestNewServerRequiresQueryTool(t *testing.T) {
	_, err := NewServer("sqlagent", "test", Tools{})
	assert.Error(t, err)

	s, err := NewServer("sqlagent", "test", Tools{Query: &fakeQueryTool{}, Fetcher: &fakeFetcher{}})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Name = name
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return text.Text
}
