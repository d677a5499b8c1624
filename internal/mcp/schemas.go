package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// buildIndexTool returns the tool definition for build_index
func buildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_index",
		Description: "Build the capability index from the element catalog and persist it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"wait_for_lease": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, wait for a concurrent build to finish instead of failing fast",
					"default":     false,
				},
			},
		},
	}
}

// getRelationshipsTool returns the tool definition for get_relationships
func getRelationshipsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_relationships",
		Description: "List the outbound relationship edges of one indexed element",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"element_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the element to inspect",
				},
			},
			Required: []string{"element_id"},
		},
	}
}

// getByActionTriggerTool returns the tool definition for get_by_action_trigger
func getByActionTriggerTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_by_action_trigger",
		Description: "List the elements that declare a given action-trigger verb",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"trigger": map[string]interface{}{
					"type":        "string",
					"description": "Action-trigger verb, e.g. 'debug'",
				},
			},
			Required: []string{"trigger"},
		},
	}
}

// getSemanticProfileTool returns the tool definition for get_semantic_profile
func getSemanticProfileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_semantic_profile",
		Description: "Return the lexical profile (entropy, term counts) of one indexed element",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"element_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the element to inspect",
				},
			},
			Required: []string{"element_id"},
		},
	}
}

// getIndexStatusTool returns the tool definition for get_index_status
func getIndexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_index_status",
		Description: "Report builder state and the statistics of the current index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
