package http

import "encoding/json"

// Export internal decoders for testing
var (
	Truthy            = truthy
	TaskLabel         = taskLabel
	TaskWeight        = taskWeight
	DecodeTaskUpdates = decodeTaskUpdates
)

func DecodeTaskTemplates(raw string) int {
	return len(decodeTaskTemplates(json.RawMessage(raw)))
}
