package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CTAG07/wordchain/pkg/markov"
	"github.com/CTAG07/wordchain/pkg/registry"
	"github.com/CTAG07/wordchain/pkg/store"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// statusForError maps errors from the model packages to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrModelExists):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidMode),
		errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, markov.ErrInvalidContext),
		errors.Is(err, markov.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, markov.ErrEmptyModel):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
