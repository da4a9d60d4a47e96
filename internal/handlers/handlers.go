package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"gptodo/internal/models"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Mutator produces a replacement state for a mutation request.
type Mutator interface {
	Mutate(ctx context.Context, req models.MutationRequest) (json.RawMessage, error)
}

// MutationLog lists recorded mutations, newest first.
type MutationLog interface {
	ListMutations(ctx context.Context, status models.MutationStatus, limit int) ([]models.MutationRecord, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	mutator      Mutator
	mutations    MutationLog
	maxBodyBytes int64
	log          zerolog.Logger
}

// New creates a new Handlers instance. mutations may be nil, in which case
// the mutation log is not served.
func New(m Mutator, mutations MutationLog, maxBodyBytes int64, logger zerolog.Logger) *Handlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handlers{
		mutator:      m,
		mutations:    mutations,
		maxBodyBytes: maxBodyBytes,
		log:          logger,
	}
}

// respondError sends a plain-text error response.
func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(message))
}

func respondJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// Health reports that the process is serving.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
