package http

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/secmon-lab/complytrack/pkg/domain/model"
)

// isNull reports whether raw is absent or a JSON null
func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// truthy coerces a JSON value to a boolean: null, false, 0 and "" are false,
// every other value is true.
func truthy(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// taskLabel converts a JSON label to text. Falsy values fall back to the default
// label; strings are used as is and other values by their JSON text.
func taskLabel(raw json.RawMessage) string {
	if !truthy(raw) {
		return model.DefaultTaskLabel
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.NormalizeTaskLabel(s)
	}
	return model.NormalizeTaskLabel(string(bytes.TrimSpace(raw)))
}

// taskWeight accepts only JSON numbers; anything else weighs 0
func taskWeight(raw json.RawMessage) int {
	var f float64
	if isNull(raw) || json.Unmarshal(raw, &f) != nil {
		return 0
	}
	return model.TaskWeightFromFloat(f)
}

// taskID accepts a JSON integer or a numeric string. The second result is false
// when the value is missing or null; unparsable ids map to 0, which matches no task.
func taskID(raw json.RawMessage) (int64, bool) {
	if isNull(raw) {
		return 0, false
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, true
	}

	switch x := v.(type) {
	case json.Number:
		n = x
	case string:
		n = json.Number(strings.TrimSpace(x))
	default:
		return 0, true
	}

	id, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, true
	}
	return id, true
}

// decodeTaskTemplates converts the tasks of a create request. A missing or
// non-array value yields no tasks, so the risk is seeded from the catalog.
func decodeTaskTemplates(raw json.RawMessage) []model.TaskTemplate {
	if isNull(raw) {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	tasks := make([]model.TaskTemplate, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		// non-object entries become a default task, like an empty object
		_ = json.Unmarshal(item, &fields)
		tasks = append(tasks, model.TaskTemplate{
			Label:  taskLabel(fields["label"]),
			Weight: taskWeight(fields["weight"]),
			Done:   truthy(fields["done"]),
		})
	}
	return tasks
}

// decodeTaskUpdates converts the tasks of an update request. ok is false when
// the value is not a JSON array.
func decodeTaskUpdates(raw json.RawMessage) (updates []model.TaskUpdate, ok bool) {
	if isNull(raw) {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}

	updates = make([]model.TaskUpdate, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		_ = json.Unmarshal(item, &fields)

		u := model.TaskUpdate{Done: truthy(fields["done"])}
		if id, present := taskID(fields["id"]); present {
			u.ID = &id
		}
		updates = append(updates, u)
	}
	return updates, true
}
