package mcpserver

import "encoding/json"

// shapeQueryResult reshapes a raw SQL result for tool output. A JSON array
// longer than limit becomes {"rows": first limit, "total": N}; everything
// else passes through verbatim.
func shapeQueryResult(raw json.RawMessage, limit int) string {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return string(raw)
	}
	if len(rows) <= limit {
		return string(raw)
	}
	shaped, err := json.Marshal(map[string]any{
		"rows":  rows[:limit],
		"total": len(rows),
	})
	if err != nil {
		return string(raw)
	}
	return string(shaped)
}
