package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bluebook-labs/satprep/internal/auth"
	"github.com/bluebook-labs/satprep/internal/report"
	"github.com/bluebook-labs/satprep/internal/results"
)

// canSee enforces the visibility invariant: admins always, owners only once
// the record is published.
func canSee(r results.Result, claims *auth.Claims) bool {
	if claims.Role == "admin" {
		return true
	}
	return r.StudentID == claims.Sub && r.Status == results.StatusPublished
}

// GET /results/{resultID}
func GetResultHandler(store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.Get(r.Context(), chi.URLParam(r, "resultID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		claims := auth.ClaimsFromContext(r.Context())
		if !canSee(res, claims) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, res)
	}
}

// GET /results lists the caller's published results; admins see everything
// for a session via /sessions/{code}.
func ListMyResultsHandler(store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		list, err := store.ListByStudent(r.Context(), claims.Sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		visible := list[:0]
		for _, res := range list {
			if canSee(res, claims) {
				visible = append(visible, res)
			}
		}
		writeJSON(w, visible)
	}
}

// GET /results/{resultID}/analysis returns the stored AI analysis, or 204
// when it is unavailable.
func GetAnalysisHandler(store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.Get(r.Context(), chi.URLParam(r, "resultID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		claims := auth.ClaimsFromContext(r.Context())
		if !canSee(res, claims) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if res.Analysis == "" || !json.Valid([]byte(res.Analysis)) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(res.Analysis))
	}
}

// GET /results/{resultID}/report streams the PDF score report.
func DownloadReportHandler(store results.Store, gen *report.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.Get(r.Context(), chi.URLParam(r, "resultID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		claims := auth.ClaimsFromContext(r.Context())
		if !canSee(res, claims) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		pdf, err := gen.Render(res)
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(res)))
		_, _ = w.Write(pdf)
	}
}
