package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"gptodo/internal/models"
	"gptodo/internal/mutation"
)

// Mutate asks the completion backend for a replacement state.
func (h *Handlers) Mutate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondError(w, http.StatusMethodNotAllowed, "only POST is allowed")
		return
	}

	var req models.MutationRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	state, err := h.mutator.Mutate(r.Context(), req)
	if err != nil {
		h.respondMutationError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, models.MutationResponse{State: state})
}

func (h *Handlers) respondMutationError(w http.ResponseWriter, r *http.Request, err error) {
	var merr *mutation.Error
	if errors.As(err, &merr) {
		respondError(w, merr.Code.HTTPCode(), merr.Msg)
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("internal server error")
	respondError(w, http.StatusInternalServerError, "internal server error")
}
