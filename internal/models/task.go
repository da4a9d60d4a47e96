package models

import (
	"encoding/json"
	"time"
)

// Task represents a single entry in the task list. IDs are assigned by the
// creator of the task, which in practice is the completion backend.
type Task struct {
	ID        int64   `json:"id"`
	Text      string  `json:"text"`
	Icon      *string `json:"icon,omitempty"`
	Completed bool    `json:"completed"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
	ParentID  *int64  `json:"parentID,omitempty"`

	// Extra holds fields the backend added that Task does not model. They
	// are written back unchanged so nothing is lost between mutations.
	Extra map[string]json.RawMessage `json:"-"`
}

// timestampLayouts are tried in order when interpreting CreatedAt/UpdatedAt.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// IsSubtask returns true if the task references a parent task.
func (t *Task) IsSubtask() bool {
	return t.ParentID != nil
}

// IconOrEmpty returns the task icon, or an empty string when unset.
func (t *Task) IconOrEmpty() string {
	if t.Icon == nil {
		return ""
	}
	return *t.Icon
}

// Created parses CreatedAt. The second return value is false when the
// timestamp is missing or in a format we don't recognise.
func (t *Task) Created() (time.Time, bool) {
	return parseTimestamp(t.CreatedAt)
}

// Updated parses UpdatedAt.
func (t *Task) Updated() (time.Time, bool) {
	return parseTimestamp(t.UpdatedAt)
}

// Edited returns UpdatedAt when it is later than CreatedAt.
func (t *Task) Edited() (time.Time, bool) {
	created, ok := t.Created()
	if !ok {
		return time.Time{}, false
	}
	updated, ok := t.Updated()
	if !ok || !updated.After(created) {
		return time.Time{}, false
	}
	return updated, true
}

func (t Task) clone() Task {
	c := t
	if t.Icon != nil {
		icon := *t.Icon
		c.Icon = &icon
	}
	if t.ParentID != nil {
		parent := *t.ParentID
		c.ParentID = &parent
	}
	c.Extra = cloneExtra(t.Extra)
	return c
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
