package models

import (
	"encoding/json"
	"slices"
)

// AppState is the complete client-side state that the completion backend
// rewrites on every accepted mutation.
type AppState struct {
	Tasks           []Task  `json:"tasks"`
	VisibleTaskIDs  []int64 `json:"visibleTaskIDs"`
	SelectedTaskIDs []int64 `json:"selectedTaskIDs"`

	// Extra holds unmodeled top-level fields; see Task.Extra.
	Extra map[string]json.RawMessage `json:"-"`
}

// HistoryEntry pairs a submitted prompt with the state it produced.
type HistoryEntry struct {
	Prompt string   `json:"prompt"`
	State  AppState `json:"state"`
}

// NewAppState returns an empty state with non-nil slices so it encodes as
// empty arrays rather than null.
func NewAppState() AppState {
	return AppState{
		Tasks:           []Task{},
		VisibleTaskIDs:  []int64{},
		SelectedTaskIDs: []int64{},
	}
}

// Normalize replaces nil slices with empty ones.
func (s *AppState) Normalize() {
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.VisibleTaskIDs == nil {
		s.VisibleTaskIDs = []int64{}
	}
	if s.SelectedTaskIDs == nil {
		s.SelectedTaskIDs = []int64{}
	}
}

// Clone returns a deep copy. The copy shares no memory with s.
func (s AppState) Clone() AppState {
	c := AppState{
		Tasks:           make([]Task, len(s.Tasks)),
		VisibleTaskIDs:  slices.Clone(s.VisibleTaskIDs),
		SelectedTaskIDs: slices.Clone(s.SelectedTaskIDs),
		Extra:           cloneExtra(s.Extra),
	}
	for i, t := range s.Tasks {
		c.Tasks[i] = t.clone()
	}
	c.Normalize()
	return c
}

// TaskByID returns the task with the given id.
func (s *AppState) TaskByID(id int64) (*Task, bool) {
	i := s.taskIndex(id)
	if i < 0 {
		return nil, false
	}
	return &s.Tasks[i], true
}

func (s *AppState) taskIndex(id int64) int {
	return slices.IndexFunc(s.Tasks, func(t Task) bool { return t.ID == id })
}

// ToggleCompletion flips the completed flag of the matching task and leaves
// every other field alone. It returns false if no task has that id.
func (s *AppState) ToggleCompletion(id int64) bool {
	t, ok := s.TaskByID(id)
	if !ok {
		return false
	}
	t.Completed = !t.Completed
	return true
}

// ToggleSelection adds id to SelectedTaskIDs, or removes it if already
// present. Unknown task ids are ignored and false is returned.
func (s *AppState) ToggleSelection(id int64) bool {
	if s.taskIndex(id) < 0 {
		return false
	}
	if i := slices.Index(s.SelectedTaskIDs, id); i >= 0 {
		s.SelectedTaskIDs = slices.Delete(s.SelectedTaskIDs, i, i+1)
		return true
	}
	s.SelectedTaskIDs = append(s.SelectedTaskIDs, id)
	return true
}

// IsSelected reports whether id is in SelectedTaskIDs.
func (s *AppState) IsSelected(id int64) bool {
	return slices.Contains(s.SelectedTaskIDs, id)
}

// VisibleTasks returns the tasks named by VisibleTaskIDs, in that order.
// IDs that do not reference a task are skipped.
func (s *AppState) VisibleTasks() []Task {
	tasks := make([]Task, 0, len(s.VisibleTaskIDs))
	for _, id := range s.VisibleTaskIDs {
		if t, ok := s.TaskByID(id); ok {
			tasks = append(tasks, *t)
		}
	}
	return tasks
}

// HiddenCount returns the number of tasks that are not visible.
func (s *AppState) HiddenCount() int {
	n := len(s.Tasks) - len(s.VisibleTasks())
	if n < 0 {
		return 0
	}
	return n
}

// DanglingIDs returns visible or selected ids that reference no task.
func (s *AppState) DanglingIDs() []int64 {
	var dangling []int64
	for _, ids := range [][]int64{s.VisibleTaskIDs, s.SelectedTaskIDs} {
		for _, id := range ids {
			if s.taskIndex(id) < 0 && !slices.Contains(dangling, id) {
				dangling = append(dangling, id)
			}
		}
	}
	return dangling
}
