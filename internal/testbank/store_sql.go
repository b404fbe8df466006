package testbank

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("test not found")

type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error)      // student-safe (answers stripped)
	GetTestAdmin(ctx context.Context, id string) (Test, error) // full test with answer keys
	ListTests(ctx context.Context) ([]TestSummary, error)
	UpsertQuestion(ctx context.Context, testID string, q Question) error
	DeleteQuestion(ctx context.Context, testID, questionID string) error
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests (id,title,questions_json,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, questions_json=EXCLUDED.questions_json`,
		t.ID, t.Title, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetTestAdmin(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,questions_json,created_at FROM tests WHERE id=$1`, id)
	var t Test
	var qjson string
	if err := row.Scan(&t.ID, &t.Title, &qjson, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrNotFound
		}
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return Test{}, err
	}
	return t, nil
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	t, err := s.GetTestAdmin(ctx, id)
	if err != nil {
		return Test{}, err
	}
	// Strip answers and explanations when serving to students.
	for i := range t.Questions {
		t.Questions[i].Answer = ""
		t.Questions[i].Explanation = ""
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context) ([]TestSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,questions_json,created_at FROM tests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TestSummary
	for rows.Next() {
		var sum TestSummary
		var qjson string
		if err := rows.Scan(&sum.ID, &sum.Title, &qjson, &sum.CreatedAt); err != nil {
			return nil, err
		}
		var qs []Question
		if err := json.Unmarshal([]byte(qjson), &qs); err == nil {
			sum.QuestionCount = len(qs)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertQuestion(ctx context.Context, testID string, q Question) error {
	t, err := s.GetTestAdmin(ctx, testID)
	if err != nil {
		return err
	}
	replaced := false
	for i := range t.Questions {
		if t.Questions[i].ID == q.ID {
			t.Questions[i] = q
			replaced = true
			break
		}
	}
	if !replaced {
		t.Questions = append(t.Questions, q)
	}
	return s.PutTest(ctx, t)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, testID, questionID string) error {
	t, err := s.GetTestAdmin(ctx, testID)
	if err != nil {
		return err
	}
	kept := t.Questions[:0]
	for _, q := range t.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	t.Questions = kept
	return s.PutTest(ctx, t)
}
