package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bluebook-labs/satprep/internal/auth"
	"github.com/bluebook-labs/satprep/internal/proctor"
)

// ScoreProgress is the polled state of one session's batch scoring run.
type ScoreProgress struct {
	Scored  int    `json:"scored"`
	Total   int    `json:"total"`
	Message string `json:"message"`
	Done    bool   `json:"done"`
}

// ProgressHub keeps batch-scoring progress in memory for polling clients.
type ProgressHub struct {
	mu   sync.Mutex
	runs map[string]ScoreProgress
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{runs: map[string]ScoreProgress{}}
}

func (h *ProgressHub) update(code string, p ScoreProgress) {
	h.mu.Lock()
	h.runs[code] = p
	h.mu.Unlock()
}

func (h *ProgressHub) get(code string) (ScoreProgress, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.runs[code]
	return p, ok
}

// POST /sessions {"test_id": "..."}
func CreateSessionHandler(svc *proctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TestID string `json:"test_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TestID == "" {
			http.Error(w, "test_id required", http.StatusBadRequest)
			return
		}
		sess, err := svc.Create(r.Context(), req.TestID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sess)
	}
}

// POST /sessions/{code}/join
func JoinSessionHandler(store proctor.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		sess, err := store.Get(r.Context(), code)
		if err != nil {
			writeErr(w, err)
			return
		}
		claims := auth.ClaimsFromContext(r.Context())
		err = store.Join(r.Context(), code, proctor.Participant{
			StudentID:   claims.Sub,
			StudentName: claims.Name,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"code": code, "test_id": sess.TestID})
	}
}

// GET /sessions/{code}
func GetSessionHandler(store proctor.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sess)
	}
}

// POST /sessions/{code}/score starts the batch AI scoring run and returns
// immediately; clients poll /sessions/{code}/progress.
func ScoreSessionHandler(svc *proctor.Service, hub *ProgressHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		hub.update(code, ScoreProgress{Message: "starting"})

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			sum, err := svc.ScoreAll(ctx, code, func(scored, total int, msg string) {
				hub.update(code, ScoreProgress{Scored: scored, Total: total, Message: msg})
			})
			if err != nil {
				log.Printf("api: score session %s: %v", code, err)
				hub.update(code, ScoreProgress{Scored: sum.Scored, Total: sum.Total, Message: err.Error(), Done: true})
				return
			}
			hub.update(code, ScoreProgress{Scored: sum.Scored, Total: sum.Total, Message: "session scored", Done: true})
		}()

		w.WriteHeader(http.StatusAccepted)
	}
}

// GET /sessions/{code}/progress
func SessionProgressHandler(hub *ProgressHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := hub.get(chi.URLParam(r, "code"))
		if !ok {
			http.Error(w, "no scoring run", http.StatusNotFound)
			return
		}
		writeJSON(w, p)
	}
}

// POST /sessions/{code}/publish
func PublishSessionHandler(svc *proctor.Service, store proctor.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if err := svc.Publish(r.Context(), code); err != nil {
			writeErr(w, err)
			return
		}
		sess, err := store.Get(r.Context(), code)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sess)
	}
}
