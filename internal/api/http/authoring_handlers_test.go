package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/bluebook-labs/satprep/internal/testbank"
)

func authoringRouter(store testbank.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(admin))
	r.Post("/tests", CreateTestHandler(store))
	r.Get("/tests/{testID}", GetTestAdminHandler(store))
	r.Put("/tests/{testID}/questions", UpsertQuestionHandler(store))
	r.Delete("/tests/{testID}/questions/{questionID}", DeleteQuestionHandler(store))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateTestRequiresTitle(t *testing.T) {
	r := authoringRouter(newFakeTestStore())
	rec := do(t, r, http.MethodPost, "/tests", `{"id":"t1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/tests", `{"id":"t1","title":"Practice Test 1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Practice Test 1"`)
}

func TestUpsertQuestionValidation(t *testing.T) {
	store := newFakeTestStore()
	require.NoError(t, store.PutTest(context.Background(), testbank.Test{ID: "t1", Title: "T"}))
	r := authoringRouter(store)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing prompt", `{"module":1,"number":1,"format":"fill-in","answer":"4"}`, http.StatusBadRequest},
		{"module out of range", `{"module":5,"number":1,"format":"fill-in","prompt_html":"<p>x</p>","answer":"4"}`, http.StatusBadRequest},
		{"unknown format", `{"module":1,"number":1,"format":"essay","prompt_html":"<p>x</p>","answer":"4"}`, http.StatusBadRequest},
		{"mcq without options", `{"module":1,"number":1,"format":"multiple-choice","prompt_html":"<p>x</p>","answer":"A"}`, http.StatusBadRequest},
		{"valid fill-in", `{"module":3,"number":1,"format":"fill-in","prompt_html":"<p>x</p>","answer":"4"}`, http.StatusOK},
		{"valid mcq", `{"module":1,"number":2,"format":"multiple-choice","prompt_html":"<p>x</p>","answer":"B",
			"options":{"A":"one","B":"two","C":"three","D":"four"}}`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPut, "/tests/t1/questions", tc.body)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUpsertQuestionDefaultsPointsAndID(t *testing.T) {
	store := newFakeTestStore()
	require.NoError(t, store.PutTest(context.Background(), testbank.Test{ID: "t1", Title: "T"}))
	r := authoringRouter(store)

	rec := do(t, r, http.MethodPut, "/tests/t1/questions",
		`{"module":3,"number":1,"format":"fill-in","prompt_html":"<p>x</p>","answer":"4"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	full, err := store.GetTestAdmin(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, full.Questions, 1)
	require.NotEmpty(t, full.Questions[0].ID)
	require.Equal(t, float64(1), full.Questions[0].Points)
}

func TestUpsertQuestionReplacesExisting(t *testing.T) {
	store := newFakeTestStore()
	require.NoError(t, store.PutTest(context.Background(), testbank.Test{ID: "t1", Title: "T"}))
	r := authoringRouter(store)

	rec := do(t, r, http.MethodPut, "/tests/t1/questions",
		`{"id":"q1","module":3,"number":1,"format":"fill-in","prompt_html":"<p>old</p>","answer":"4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodPut, "/tests/t1/questions",
		`{"id":"q1","module":3,"number":1,"format":"fill-in","prompt_html":"<p>new</p>","answer":"5"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	full, err := store.GetTestAdmin(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, full.Questions, 1)
	require.Equal(t, "5", full.Questions[0].Answer)
}

func TestDeleteQuestion(t *testing.T) {
	store := newFakeTestStore()
	require.NoError(t, store.PutTest(context.Background(), testbank.Test{
		ID: "t1", Title: "T",
		Questions: []testbank.Question{{ID: "q1", Module: 1, Number: 1, Format: testbank.FormatFillIn, Answer: "4"}},
	}))
	r := authoringRouter(store)

	rec := do(t, r, http.MethodDelete, "/tests/t1/questions/q1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodDelete, "/tests/t1/questions/q1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTestAdminIncludesAnswerKeys(t *testing.T) {
	store := newFakeTestStore()
	require.NoError(t, store.PutTest(context.Background(), testbank.Test{
		ID: "t1", Title: "T",
		Questions: []testbank.Question{{ID: "q1", Module: 1, Number: 1, Format: testbank.FormatFillIn, Answer: "42"}},
	}))
	r := authoringRouter(store)

	rec := do(t, r, http.MethodGet, "/tests/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"42"`)
}
