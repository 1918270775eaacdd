package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aretw0/vigil"
	"github.com/aretw0/vigil/pkg/adapters/memory"
	"github.com/aretw0/vigil/pkg/domain"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := vigil.New("", vigil.WithSource(memory.NewSource(map[string]string{
		"user":    "fields:\n  name: { type: string, required: true }\n  address: Address\n",
		"Address": "fields:\n  city: { type: string, min: 2 }\n",
	})))
	require.NoError(t, err)
	return NewServer(eng, WithVersion("test"))
}

func TestHandleValidate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleValidate(ctx, mcp.CallToolRequest{}, ValidateArgs{
		Schema: "user",
		Data:   map[string]any{"address": map[string]any{"city": "X"}},
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, []domain.Issue{
		{Path: "address", Code: "invalid"},
		{Path: "address.city", Code: "minString"},
		{Path: "name", Code: "required"},
	}, resp.Issues)

	resp, err = s.handleValidate(ctx, mcp.CallToolRequest{}, ValidateArgs{
		Schema: "user",
		Data:   map[string]any{},
		Fields: []string{"address"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Issues)

	_, err = s.handleValidate(ctx, mcp.CallToolRequest{}, ValidateArgs{Schema: "nope", Data: map[string]any{}})
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)

	_, err = s.handleValidate(ctx, mcp.CallToolRequest{}, ValidateArgs{Schema: "user"})
	assert.Error(t, err)
}

func TestHandleListAndDescribe(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	list, err := s.handleListSchemas(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Address", "user"}, list.Schemas)

	info, err := s.handleDescribe(ctx, mcp.CallToolRequest{}, SchemaArgs{Schema: "user"})
	require.NoError(t, err)
	require.Len(t, info.Fields, 2)
	assert.Equal(t, "address", info.Fields[1].Name)
	require.NotNil(t, info.Fields[1].Nested)
	assert.Equal(t, "Address", info.Fields[1].Nested.Name)

	_, err = s.handleDescribe(ctx, mcp.CallToolRequest{}, SchemaArgs{Schema: "nope"})
	assert.Error(t, err)
}

func TestCatalogResource(t *testing.T) {
	text, err := newTestServer(t).catalogJSON()
	require.NoError(t, err)
	assert.Equal(t, []string{"Address", "user"}, toStrings(gjson.Get(text, "#.name").Array()))
	assert.Equal(t, "city", gjson.Get(text, "0.fields.0.name").String())
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	init := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	s.MCPServer().HandleMessage(ctx, init)

	out := s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	b, err := json.Marshal(out)
	require.NoError(t, err)

	names := toStrings(gjson.GetBytes(b, "result.tools.#.name").Array())
	assert.ElementsMatch(t, []string{"validate", "list_schemas", "describe_schema"}, names)
	assert.Equal(t, "object", gjson.GetBytes(b, `result.tools.#(name=="validate").inputSchema.properties.data.type`).String())
}

func toStrings(results []gjson.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.String()
	}
	return out
}
