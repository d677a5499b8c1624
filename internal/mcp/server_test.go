package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.store.Close() })
	return s
}

func seedElements(t *testing.T, s *Server) {
	t.Helper()
	ctx := context.Background()
	records := []types.ElementRecord{
		{
			ID:             "docker-debug",
			ElementType:    types.ElementSkill,
			Name:           "Docker Debugging",
			Keywords:       []string{"docker", "container"},
			ActionTriggers: []string{"debug", "troubleshoot"},
			RawText:        "troubleshoot docker container failures and read logs",
		},
		{
			ID:             "docker-guide",
			ElementType:    types.ElementTemplate,
			Name:           "Docker Guide",
			Keywords:       []string{"docker", "setup"},
			ActionTriggers: []string{"deploy"},
			RawText:        "docker setup guide for new services",
		},
		{
			ID:          "git-helper",
			ElementType: types.ElementSkill,
			Name:        "Git Helper",
			Keywords:    []string{"git"},
			RawText:     "git branching rebasing and history rewriting",
		},
	}
	for i := range records {
		require.NoError(t, s.store.UpsertElement(ctx, &records[i]))
	}
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &payload))
	return payload
}

func mcpCode(t *testing.T, err error) int {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	return mcpErr.Code
}

func TestServerInitialization(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.mcp, "MCP server should be initialized")
	assert.NotNil(t, s.store, "Element store should be initialized")
	assert.NotNil(t, s.builder, "Builder should be initialized")
	assert.NotNil(t, s.codec, "Codec should be initialized")
}

func TestBuildIndexTool(t *testing.T) {
	s := newTestServer(t)
	seedElements(t, s)

	result, err := s.handleBuildIndex(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["built"])
	assert.Equal(t, "full", payload["strategy"])
	assert.Equal(t, "full", payload["completeness"])
	assert.Equal(t, float64(3), payload["elements_indexed"])
	assert.Equal(t, float64(3), payload["comparisons_made"])
}

func TestGetRelationshipsTool(t *testing.T) {
	s := newTestServer(t)
	seedElements(t, s)

	_, err := s.handleBuildIndex(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	result, err := s.handleGetRelationships(context.Background(),
		toolRequest(map[string]interface{}{"element_id": "docker-debug"}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "docker-debug", payload["element_id"])
	_, ok := payload["relationships"].([]interface{})
	assert.True(t, ok, "relationships should be a list")
}

func TestGetRelationshipsUnknownElement(t *testing.T) {
	s := newTestServer(t)
	seedElements(t, s)

	_, err := s.handleBuildIndex(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	_, err = s.handleGetRelationships(context.Background(),
		toolRequest(map[string]interface{}{"element_id": "phantom"}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeElementNotFound, mcpCode(t, err))
}

func TestGetRelationshipsRequiresElementID(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleGetRelationships(context.Background(), toolRequest(map[string]interface{}{}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestQueryBeforeBuildReportsNotIndexed(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleGetRelationships(context.Background(),
		toolRequest(map[string]interface{}{"element_id": "docker-debug"}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeNotIndexed, mcpCode(t, err))
}

func TestGetByActionTriggerTool(t *testing.T) {
	s := newTestServer(t)
	seedElements(t, s)

	_, err := s.handleBuildIndex(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	result, err := s.handleGetByActionTrigger(context.Background(),
		toolRequest(map[string]interface{}{"trigger": "debug"}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, []interface{}{"docker-debug"}, payload["element_ids"])

	// Unknown verbs come back empty, not as errors
	result, err = s.handleGetByActionTrigger(context.Background(),
		toolRequest(map[string]interface{}{"trigger": "levitate"}))
	require.NoError(t, err)
	payload = resultJSON(t, result)
	assert.Empty(t, payload["element_ids"])
}

func TestGetSemanticProfileTool(t *testing.T) {
	s := newTestServer(t)
	seedElements(t, s)

	_, err := s.handleBuildIndex(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	result, err := s.handleGetSemanticProfile(context.Background(),
		toolRequest(map[string]interface{}{"element_id": "git-helper"}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "git-helper", payload["element_id"])
	assert.Greater(t, payload["entropy"].(float64), 0.0)
	assert.Greater(t, payload["unique_term_count"].(float64), 0.0)
}

func TestGetIndexStatusTool(t *testing.T) {
	s := newTestServer(t)
	seedElements(t, s)

	// Before any build
	result, err := s.handleGetIndexStatus(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	assert.Equal(t, false, payload["indexed"])
	assert.Equal(t, "idle", payload["builder_state"])

	// After a build
	_, err = s.handleBuildIndex(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	result, err = s.handleGetIndexStatus(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	payload = resultJSON(t, result)
	assert.Equal(t, true, payload["indexed"])
	assert.Equal(t, float64(2), payload["schema_version"])

	stats, ok := payload["statistics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "full", stats["completeness"])
	assert.Equal(t, float64(3), stats["elements_indexed"])
}

func TestQueryServesFromPersistedIndexAfterRestart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dataDir := t.TempDir()

	first, err := NewServer(dataDir, logger)
	require.NoError(t, err)
	seedElements(t, first)
	_, err = first.handleBuildIndex(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	require.NoError(t, first.store.Close())

	// A fresh server over the same data dir loads the index lazily
	second, err := NewServer(dataDir, logger)
	require.NoError(t, err)
	defer func() { _ = second.store.Close() }()

	result, err := second.handleGetByActionTrigger(context.Background(),
		toolRequest(map[string]interface{}{"trigger": "deploy"}))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	assert.Equal(t, []interface{}{"docker-guide"}, payload["element_ids"])
}
