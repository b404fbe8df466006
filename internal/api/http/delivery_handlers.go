package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bluebook-labs/satprep/internal/auth"
	"github.com/bluebook-labs/satprep/internal/engine"
	"github.com/bluebook-labs/satprep/internal/images"
)

// POST /attempts {"test_id": "...", "session_code": "..."}
func StartAttemptHandler(d *Delivery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TestID      string `json:"test_id"`
			SessionCode string `json:"session_code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TestID == "" {
			http.Error(w, "test_id required", http.StatusBadRequest)
			return
		}
		claims := auth.ClaimsFromContext(r.Context())
		s, err := d.Start(r.Context(), req.TestID, claims.Sub, claims.Name, req.SessionCode)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"attempt_id": s.ID, "view": s.View()})
	}
}

// GET /attempts/{attemptID}/view
func ViewHandler(d *Delivery, resolver images.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Registry.Get(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		v := s.View()
		resolveImage(r, &v, resolver)
		writeJSON(w, v)
	}
}

// resolveImage swaps the question's opaque image ref for a download URL on
// a copy, leaving session state untouched.
func resolveImage(r *http.Request, v *engine.View, resolver images.Resolver) {
	if resolver == nil || v.Question == nil || v.Question.Image == nil {
		return
	}
	q := *v.Question
	img := *q.Image
	img.Ref = resolver.Resolve(r.Context(), img.Ref)
	q.Image = &img
	v.Question = &q
}

// POST /attempts/{attemptID}/answer {"question_id": "...", "value": "..."}
// An empty value clears the stored answer (option elimination).
func AnswerHandler(d *Delivery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Registry.Get(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			QuestionID string `json:"question_id"`
			Value      string `json:"value"`
			Clear      bool   `json:"clear"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		if req.Clear || req.Value == "" {
			err = s.ClearAnswer(req.QuestionID)
		} else {
			err = s.SetAnswer(req.QuestionID, req.Value)
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, s.View())
	}
}

// POST /attempts/{attemptID}/mark {"question_id": "..."}
func MarkHandler(d *Delivery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Registry.Get(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			QuestionID string `json:"question_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		if err := s.ToggleMark(req.QuestionID); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, s.View())
	}
}

// POST /attempts/{attemptID}/nav {"op": "next|back|jump|finish|confirm", "index": 0}
func NavHandler(d *Delivery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Registry.Get(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			Op    string `json:"op"`
			Index int    `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		switch req.Op {
		case "next":
			err = s.Next()
		case "back":
			err = s.Back()
		case "jump":
			err = s.Jump(req.Index)
		case "finish":
			err = s.FinishModule()
		case "confirm":
			err = s.ConfirmModule()
		default:
			http.Error(w, "unknown op", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		if s.Phase() == engine.PhaseFinished {
			writeJSON(w, map[string]any{"phase": engine.PhaseFinished, "result_id": s.ID})
			return
		}
		writeJSON(w, s.View())
	}
}

// POST /attempts/{attemptID}/exit records a focus-loss event for proctoring.
func ExitHandler(d *Delivery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.RecordExit(r.Context(), chi.URLParam(r, "attemptID")); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /attempts/{attemptID} abandons the run; nothing is persisted.
func AbandonHandler(d *Delivery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Abandon(chi.URLParam(r, "attemptID"))
		w.WriteHeader(http.StatusNoContent)
	}
}
