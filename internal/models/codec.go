package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
)

// The backend rewrites the whole state and may add fields of its own or
// write ids as 1.0 or "1". Task and AppState decode those leniently and
// keep unknown fields in Extra so they survive the next round trip.

type (
	taskJSON     Task
	appStateJSON AppState
)

var (
	taskFields     = []string{"id", "text", "icon", "completed", "createdAt", "updatedAt", "parentID"}
	appStateFields = []string{"tasks", "visibleTaskIDs", "selectedTaskIDs"}
)

// MarshalJSON writes the modeled fields followed by Extra in key order.
func (t Task) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(taskJSON(t))
	if err != nil {
		return nil, err
	}
	return appendExtra(data, t.Extra, taskFields)
}

// UnmarshalJSON accepts integral ids in any JSON number form.
func (t *Task) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Task
	for key, raw := range fields {
		var err error
		switch key {
		case "id":
			out.ID, err = decodeID(raw)
		case "text":
			err = json.Unmarshal(raw, &out.Text)
		case "icon":
			err = json.Unmarshal(raw, &out.Icon)
		case "completed":
			err = json.Unmarshal(raw, &out.Completed)
		case "createdAt":
			err = json.Unmarshal(raw, &out.CreatedAt)
		case "updatedAt":
			err = json.Unmarshal(raw, &out.UpdatedAt)
		case "parentID":
			out.ParentID, err = decodeOptionalID(raw)
		default:
			out.Extra = addExtra(out.Extra, key, raw)
		}
		if err != nil {
			return fmt.Errorf("task field %q: %w", key, err)
		}
	}

	*t = out
	return nil
}

// MarshalJSON writes the modeled fields followed by Extra in key order.
func (s AppState) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(appStateJSON(s))
	if err != nil {
		return nil, err
	}
	return appendExtra(data, s.Extra, appStateFields)
}

// UnmarshalJSON decodes tasks and id lists leniently and keeps other fields.
func (s *AppState) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out AppState
	for key, raw := range fields {
		var err error
		switch key {
		case "tasks":
			err = json.Unmarshal(raw, &out.Tasks)
		case "visibleTaskIDs":
			out.VisibleTaskIDs, err = decodeIDs(raw)
		case "selectedTaskIDs":
			out.SelectedTaskIDs, err = decodeIDs(raw)
		default:
			out.Extra = addExtra(out.Extra, key, raw)
		}
		if err != nil {
			return fmt.Errorf("state field %q: %w", key, err)
		}
	}

	*s = out
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// decodeID reads an integral id. null decodes as 0.
func decodeID(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return parseID(n)
}

func decodeOptionalID(raw json.RawMessage) (*int64, error) {
	if isNull(raw) {
		return nil, nil
	}
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func decodeIDs(raw json.RawMessage) ([]int64, error) {
	var nums []json.Number
	if err := json.Unmarshal(raw, &nums); err != nil {
		return nil, err
	}
	if nums == nil {
		return nil, nil
	}
	ids := make([]int64, len(nums))
	for i, n := range nums {
		id, err := parseID(n)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func parseID(n json.Number) (int64, error) {
	if id, err := n.Int64(); err == nil {
		return id, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", n.String())
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("id %s is not an integer", n.String())
	}
	return int64(f), nil
}

func addExtra(extra map[string]json.RawMessage, key string, raw json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		extra = make(map[string]json.RawMessage)
	}
	extra[key] = raw
	return extra
}

// appendExtra splices extra into the JSON object data. Keys that collide
// with modeled fields are dropped.
func appendExtra(data []byte, extra map[string]json.RawMessage, known []string) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, key := range slices.Sorted(maps.Keys(extra)) {
		if slices.Contains(known, key) || len(extra[key]) == 0 {
			continue
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = slices.Clone(v)
	}
	return out
}
