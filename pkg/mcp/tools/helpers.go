package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	val, _ := arguments(req)[key].(string)
	return val
}

// getOptionalFloat extracts an optional number argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	val, ok := arguments(req)[key].(float64)
	return val, ok
}

// getOptionalBool returns the boolean argument or defaultVal when absent.
func getOptionalBool(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	if val, ok := arguments(req)[key].(bool); ok {
		return val
	}
	return defaultVal
}

// getStringSlice reads an array of strings, skipping non-string items.
func getStringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := arguments(req)[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && trimString(s) != "" {
			out = append(out, trimString(s))
		}
	}
	return out
}

// jsonResult marshals v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
