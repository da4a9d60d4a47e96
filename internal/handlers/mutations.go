package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"gptodo/internal/models"
)

const (
	defaultMutationLimit = 50
	maxMutationLimit     = 500
)

type mutationView struct {
	ID         string                `json:"id"`
	Prompt     string                `json:"prompt"`
	Status     models.MutationStatus `json:"status"`
	RawOutput  string                `json:"raw_output,omitempty"`
	DurationMS int64                 `json:"duration_ms"`
	CreatedAt  time.Time             `json:"created_at"`
}

// ListMutations serves the operator mutation log.
// Query parameters: status (applied, parse_failed, transport_failed) and limit.
func (h *Handlers) ListMutations(w http.ResponseWriter, r *http.Request) {
	status := models.MutationStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.MutationApplied, models.MutationParseFailed, models.MutationTransportFailed:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	limit := defaultMutationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxMutationLimit)
	}

	records, err := h.mutations.ListMutations(r.Context(), status, limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list mutations")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	views := make([]mutationView, 0, len(records))
	for _, rec := range records {
		views = append(views, mutationView{
			ID:         rec.ID,
			Prompt:     rec.Prompt,
			Status:     rec.Status,
			RawOutput:  rec.RawOutput,
			DurationMS: rec.Duration.Milliseconds(),
			CreatedAt:  rec.CreatedAt,
		})
	}

	respondJSON(w, r, http.StatusOK, map[string]any{"mutations": views})
}
