package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrWong99/glidekey/internal/observe"
	"github.com/MrWong99/glidekey/internal/suggestion"
	"github.com/MrWong99/glidekey/pkg/types"
)

// maxBodyBytes caps REST request bodies.
const maxBodyBytes = 64 << 10

type suggestResponse struct {
	Words []string `json:"words"`
}

type learnRequest struct {
	Word     string `json:"word"`
	Previous string `json:"previous,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var sc types.SuggestionContext
	if !decode(w, r, &sc) {
		return
	}
	if !s.engine.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: suggestion.ErrNotInitialized.Error()})
		return
	}
	words := s.engine.Suggest(r.Context(), sc)
	if words == nil {
		words = []string{}
	}
	writeJSON(w, http.StatusOK, suggestResponse{Words: words})
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Word) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "word is required"})
		return
	}

	err := s.engine.Learn(r.Context(), req.Word, req.Previous)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, suggestion.ErrNotInitialized):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, suggestion.ErrNoLearner):
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: err.Error()})
	default:
		// The word is learned in memory even when persisting it failed.
		observe.Logger(r.Context()).Warn("server: learn", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// decode reads a JSON body into v and writes a 400 response on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
