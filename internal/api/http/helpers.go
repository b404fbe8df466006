package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bluebook-labs/satprep/internal/engine"
	"github.com/bluebook-labs/satprep/internal/proctor"
	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto HTTP statuses. Missing resources and
// access failures surface as page-level errors; everything else is a 400.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, testbank.ErrNotFound),
		errors.Is(err, results.ErrNotFound),
		errors.Is(err, proctor.ErrNotFound),
		errors.Is(err, engine.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, results.ErrBadTransition),
		errors.Is(err, proctor.ErrBadTransition),
		errors.Is(err, proctor.ErrNotPublishable),
		errors.Is(err, proctor.ErrNotScorable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
