package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("result not found")
	ErrBadTransition  = errors.New("status may not move backward")
	ErrPublishedFinal = errors.New("published result is immutable")
)

type Store interface {
	Put(ctx context.Context, r Result) error
	Get(ctx context.Context, id string) (Result, error)
	ListByStudent(ctx context.Context, studentID string) ([]Result, error)
	ListBySession(ctx context.Context, sessionCode string) ([]Result, error)
	SetStatus(ctx context.Context, id, status string) error
	SetAnalysis(ctx context.Context, id, analysisJSON string) error
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const resultCols = `id,test_id,student_id,student_name,session_code,status,
	verbal_raw,verbal_total,verbal_scaled,quant_raw,quant_total,quant_scaled,total_scaled,
	questions_json,answers_json,analysis_json,started_at,completed_at`

func (s *SQLStore) Put(ctx context.Context, r Result) error {
	qj, err := json.Marshal(r.Questions)
	if err != nil {
		return err
	}
	aj, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	var completed sql.NullInt64
	if r.CompletedAt != 0 {
		completed = sql.NullInt64{Int64: r.CompletedAt, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO results (`+resultCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
			status=EXCLUDED.status,
			verbal_raw=EXCLUDED.verbal_raw, verbal_total=EXCLUDED.verbal_total, verbal_scaled=EXCLUDED.verbal_scaled,
			quant_raw=EXCLUDED.quant_raw, quant_total=EXCLUDED.quant_total, quant_scaled=EXCLUDED.quant_scaled,
			total_scaled=EXCLUDED.total_scaled,
			answers_json=EXCLUDED.answers_json, analysis_json=EXCLUDED.analysis_json,
			completed_at=EXCLUDED.completed_at`,
		r.ID, r.TestID, r.StudentID, r.StudentName, r.SessionCode, r.Status,
		r.Score.Verbal.Raw, r.Score.Verbal.Total, r.Score.Verbal.Scaled,
		r.Score.Quant.Raw, r.Score.Quant.Total, r.Score.Quant.Scaled, r.Score.Total,
		string(qj), string(aj), r.Analysis, r.StartedAt, completed)
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultCols+` FROM results WHERE id=$1`, id)
	return scanResult(row)
}

func (s *SQLStore) ListByStudent(ctx context.Context, studentID string) ([]Result, error) {
	return s.list(ctx, `SELECT `+resultCols+` FROM results WHERE student_id=$1 ORDER BY started_at DESC`, studentID)
}

func (s *SQLStore) ListBySession(ctx context.Context, sessionCode string) ([]Result, error) {
	return s.list(ctx, `SELECT `+resultCols+` FROM results WHERE session_code=$1 ORDER BY started_at`, sessionCode)
}

func (s *SQLStore) list(ctx context.Context, query string, arg any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetStatus advances the scoring status, rejecting backward moves.
func (s *SQLStore) SetStatus(ctx context.Context, id, status string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status == status {
		return nil
	}
	if !CanAdvance(cur.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, cur.Status, status)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE results SET status=$1 WHERE id=$2`, status, id)
	return err
}

func (s *SQLStore) SetAnalysis(ctx context.Context, id, analysisJSON string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status == StatusPublished {
		return ErrPublishedFinal
	}
	_, err = s.db.ExecContext(ctx, `UPDATE results SET analysis_json=$1 WHERE id=$2`, analysisJSON, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (Result, error) {
	var r Result
	var qjson, ajson string
	var completed sql.NullInt64
	err := row.Scan(&r.ID, &r.TestID, &r.StudentID, &r.StudentName, &r.SessionCode, &r.Status,
		&r.Score.Verbal.Raw, &r.Score.Verbal.Total, &r.Score.Verbal.Scaled,
		&r.Score.Quant.Raw, &r.Score.Quant.Total, &r.Score.Quant.Scaled, &r.Score.Total,
		&qjson, &ajson, &r.Analysis, &r.StartedAt, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, ErrNotFound
		}
		return Result{}, err
	}
	if completed.Valid {
		r.CompletedAt = completed.Int64
	}
	if err := json.Unmarshal([]byte(qjson), &r.Questions); err != nil {
		return Result{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &r.Answers); err != nil {
		r.Answers = map[string]string{}
	}
	return r, nil
}
