package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bluebook-labs/satprep/internal/storage"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

var validate = validator.New()

// POST /tests {"id": "...", "title": "..."}
func CreateTestHandler(store testbank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID    string `json:"id"`
			Title string `json:"title" validate:"required"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		t := testbank.Test{ID: req.ID, Title: req.Title}
		if err := store.PutTest(r.Context(), t); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, t)
	}
}

func ListTestsHandler(store testbank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListTests(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, list)
	}
}

// GET /tests/{testID} returns the full test with answer keys (admin only,
// enforced by rbac on the route).
func GetTestAdminHandler(store testbank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.GetTestAdmin(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, t)
	}
}

// PUT /tests/{testID}/questions
func UpsertQuestionHandler(store testbank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in testbank.UpsertQuestionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if in.Format == testbank.FormatMultipleChoice && len(in.Options) != len(testbank.OptionLabels) {
			http.Error(w, "multiple-choice questions need options A-D", http.StatusBadRequest)
			return
		}
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		q := testbank.Question{
			ID:           in.ID,
			Module:       in.Module,
			Number:       in.Number,
			Format:       in.Format,
			PromptHTML:   in.PromptHTML,
			StimulusHTML: in.StimulusHTML,
			Image:        in.Image,
			Options:      in.Options,
			Answer:       in.Answer,
			Domain:       in.Domain,
			Skill:        in.Skill,
			Points:       in.Points,
			Explanation:  in.Explanation,
		}
		if q.Points == 0 {
			q.Points = 1
		}
		if err := store.UpsertQuestion(r.Context(), chi.URLParam(r, "testID"), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, q)
	}
}

func DeleteQuestionHandler(store testbank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.DeleteQuestion(r.Context(), chi.URLParam(r, "testID"), chi.URLParam(r, "questionID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /images uploads a question image and returns its opaque reference.
func UploadImageHandler(blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "image field required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		ref, err := blobs.Put(r.Context(), hdr.Filename, f)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"ref": ref})
	}
}
