package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jtallon/capindex-mcp/internal/builder"
	"github.com/jtallon/capindex-mcp/internal/lease"
	"github.com/jtallon/capindex-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeNotIndexed      = -32001 // No index has been built yet
	ErrorCodeBuildInProgress = -32002 // Another build holds the index lease
	ErrorCodeElementNotFound = -32003 // Element id not present in the index
)

// handleBuildIndex handles the build_index tool invocation
func (s *Server) handleBuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	waitForLease := getBoolDefault(args, "wait_for_lease", false)

	index, err := s.builder.BuildWith(ctx, builder.BuildOptions{WaitForLease: waitForLease})
	if err != nil {
		if errors.Is(err, lease.ErrLockTimeout) {
			return nil, newMCPError(ErrorCodeBuildInProgress, "another build holds the index lease", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "index build failed", map[string]interface{}{
			"state":  string(s.builder.State()),
			"reason": s.builder.FailureReason(),
			"error":  err.Error(),
		})
	}
	s.setIndex(index)

	stats := index.BuildStats
	response := map[string]interface{}{
		"built":            true,
		"strategy":         string(stats.Strategy),
		"completeness":     string(stats.Completeness),
		"elements_indexed": stats.ElementsIndexed,
		"elements_skipped": stats.ElementsSkipped,
		"comparisons_made": stats.ComparisonsMade,
		"edges_created":    stats.EdgesCreated,
		"cache_hits":       stats.CacheHits,
		"cache_misses":     stats.CacheMisses,
		"duration_ms":      stats.DurationMs,
	}
	if len(stats.Warnings) > 0 {
		warningCount := len(stats.Warnings)
		if warningCount > 5 {
			response["warnings"] = stats.Warnings[:5]
			response["warning_count"] = warningCount
		} else {
			response["warnings"] = stats.Warnings
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetRelationships handles the get_relationships tool invocation
func (s *Server) handleGetRelationships(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	elementID, mcpErr := requiredString(request, "element_id")
	if mcpErr != nil {
		return nil, mcpErr
	}

	index, err := s.currentIndex()
	if err != nil {
		return nil, indexLoadError(err)
	}

	edges, err := index.GetRelationships(elementID)
	if err != nil {
		return nil, newMCPError(ErrorCodeElementNotFound, "element not in index", map[string]interface{}{
			"element_id": elementID,
		})
	}

	relationships := make([]map[string]interface{}, 0, len(edges))
	for _, edge := range edges {
		relationships = append(relationships, map[string]interface{}{
			"source_id":     edge.SourceID,
			"target_id":     edge.TargetID,
			"kind":          string(edge.Kind),
			"weight":        edge.Weight,
			"evidence_type": string(edge.Evidence.Type),
		})
	}

	response := map[string]interface{}{
		"element_id":    elementID,
		"relationships": relationships,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetByActionTrigger handles the get_by_action_trigger tool invocation
func (s *Server) handleGetByActionTrigger(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trigger, mcpErr := requiredString(request, "trigger")
	if mcpErr != nil {
		return nil, mcpErr
	}

	index, err := s.currentIndex()
	if err != nil {
		return nil, indexLoadError(err)
	}

	// An unknown verb is an empty result, not an error
	response := map[string]interface{}{
		"trigger":     trigger,
		"element_ids": index.GetByActionTrigger(trigger),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetSemanticProfile handles the get_semantic_profile tool invocation
func (s *Server) handleGetSemanticProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	elementID, mcpErr := requiredString(request, "element_id")
	if mcpErr != nil {
		return nil, mcpErr
	}

	index, err := s.currentIndex()
	if err != nil {
		return nil, indexLoadError(err)
	}

	profile, err := index.GetSemanticProfile(elementID)
	if err != nil {
		return nil, newMCPError(ErrorCodeElementNotFound, "element not in index", map[string]interface{}{
			"element_id": elementID,
		})
	}

	response := map[string]interface{}{
		"element_id":        profile.ElementID,
		"entropy":           profile.Entropy,
		"unique_term_count": profile.UniqueTermCount,
		"total_term_count":  profile.TotalTermCount,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetIndexStatus handles the get_index_status tool invocation
func (s *Server) handleGetIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"builder_state": string(s.builder.State()),
	}
	if reason := s.builder.FailureReason(); reason != "" {
		response["failure_reason"] = reason
	}

	index, err := s.currentIndex()
	if indexMissing(err) {
		response["indexed"] = false
		response["message"] = "No index built yet. Use the build_index tool."
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats := index.BuildStats
	response["indexed"] = true
	response["generated_at"] = index.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")
	response["schema_version"] = index.SchemaVersion
	response["statistics"] = map[string]interface{}{
		"strategy":         string(stats.Strategy),
		"completeness":     string(stats.Completeness),
		"elements_indexed": stats.ElementsIndexed,
		"comparisons_made": stats.ComparisonsMade,
		"edges_created":    stats.EdgesCreated,
		"duration_ms":      stats.DurationMs,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// indexLoadError maps index loading failures onto MCP error codes
func indexLoadError(err error) error {
	if errors.Is(err, types.ErrNotFound) {
		return newMCPError(ErrorCodeNotIndexed, "no index built yet", nil)
	}
	return newMCPError(ErrorCodeInternalError, "failed to load index", map[string]interface{}{
		"error": err.Error(),
	})
}

// requiredString extracts a mandatory string parameter
func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return value, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}
