package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// MutationRequest is the body accepted by the mutation endpoint. State and
// Schema are passed through to the completion backend without inspection.
type MutationRequest struct {
	Prompt string          `json:"prompt"`
	State  json.RawMessage `json:"state"`
	Schema json.RawMessage `json:"schema"`
}

// MutationResponse is the body returned for an applied mutation.
type MutationResponse struct {
	State json.RawMessage `json:"state"`
}

// Validate checks that prompt, state and schema are all present, in that order.
func (r *MutationRequest) Validate() error {
	if r.Prompt == "" {
		return errors.New("missing prompt")
	}
	if isAbsent(r.State) {
		return errors.New("missing state")
	}
	if isAbsent(r.Schema) {
		return errors.New("missing schema")
	}
	return nil
}

// isAbsent treats a missing key and JSON falsy scalars as absent.
func isAbsent(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

// MutationStatus is the terminal state of one mutation submission.
type MutationStatus string

const (
	MutationApplied         MutationStatus = "applied"
	MutationParseFailed     MutationStatus = "parse_failed"
	MutationTransportFailed MutationStatus = "transport_failed"
)

// MutationRecord is an operator-facing log row for one handled submission.
// RawOutput is only kept for parse failures.
type MutationRecord struct {
	ID        string         `json:"id"`
	Prompt    string         `json:"prompt"`
	Status    MutationStatus `json:"status"`
	RawOutput string         `json:"raw_output,omitempty"`
	Duration  time.Duration  `json:"duration"`
	CreatedAt time.Time      `json:"created_at"`
}
