package mutation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gptodo/internal/models"
)

const instruction = "Below is an current app state, along with a user prompt. " +
	"Mutate the state to match the prompt. Do not delete data unless told to do so. " +
	"When mutating, prefer selected items as targets."

// timestampLayout matches ISO-8601 UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// BuildPrompt renders the single instruction sent to the completion backend.
// The section order and wording are fixed.
func BuildPrompt(req models.MutationRequest, now time.Time) (string, error) {
	state, err := indentJSON(req.State)
	if err != nil {
		return "", fmt.Errorf("failed to format state: %w", err)
	}
	schema, err := indentJSON(req.Schema)
	if err != nil {
		return "", fmt.Errorf("failed to format schema: %w", err)
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\nSTATE (JSON):")
	b.WriteString(state)
	b.WriteString("\nSCHEMA (JSON):")
	b.WriteString(schema)
	b.WriteString("\nPROMPT: \"")
	b.WriteString(req.Prompt)
	b.WriteString("\"\nMETADATA: The time is currently ")
	b.WriteString(now.UTC().Format(timestampLayout))
	b.WriteString("\nOUTPUT:\n")

	return b.String(), nil
}

func indentJSON(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseState accepts backend output only if it is a single JSON object,
// and returns it compacted.
func parseState(text string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, ErrParseFailed
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return buf.Bytes(), nil
}
