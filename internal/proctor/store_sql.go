package proctor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bluebook-labs/satprep/internal/results"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrBadTransition = errors.New("session status may not move backward")
	ErrNotJoined     = errors.New("participant not in session")
)

type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, code string) (Session, error)
	SetStatus(ctx context.Context, code, status string) error
	// MarkPublished flips scored -> published exactly once; the boolean is
	// false when the session was already published (or not yet scored).
	MarkPublished(ctx context.Context, code string) (bool, error)

	Join(ctx context.Context, code string, p Participant) error
	Participants(ctx context.Context, code string) ([]Participant, error)
	SetParticipantStatus(ctx context.Context, code, studentID, status string) error
	IncrementExitCount(ctx context.Context, code, studentID string) error
	RecordCompletion(ctx context.Context, code, studentID, resultID string, rawScore int) error
	RecordScoreError(ctx context.Context, code, studentID, msg string) error
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (code,test_id,status,created_at)
		VALUES ($1,$2,$3,$4)`,
		sess.Code, sess.TestID, sess.Status, time.Now().Unix())
	return err
}

func (s *SQLStore) Get(ctx context.Context, code string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code,test_id,status,created_at,published_at FROM sessions WHERE code=$1`, code)
	var sess Session
	var published sql.NullInt64
	if err := row.Scan(&sess.Code, &sess.TestID, &sess.Status, &sess.CreatedAt, &published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if published.Valid {
		sess.PublishedAt = published.Int64
	}
	ps, err := s.Participants(ctx, code)
	if err != nil {
		return Session{}, err
	}
	sess.Participants = ps
	return sess, nil
}

func (s *SQLStore) SetStatus(ctx context.Context, code, status string) error {
	cur, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if cur.Status == status {
		return nil
	}
	if !results.CanAdvance(cur.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, cur.Status, status)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE sessions SET status=$1 WHERE code=$2`, status, code)
	return err
}

func (s *SQLStore) MarkPublished(ctx context.Context, code string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status=$1, published_at=$2 WHERE code=$3 AND status=$4`,
		results.StatusPublished, time.Now().Unix(), code, results.StatusScored)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLStore) Join(ctx context.Context, code string, p Participant) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO participants (session_code,student_id,student_name,status)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (session_code,student_id) DO NOTHING`,
		code, p.StudentID, p.StudentName, ParticipantWaiting)
	return err
}

func (s *SQLStore) Participants(ctx context.Context, code string) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_code,student_id,student_name,status,exit_count,raw_score,result_id,score_error
		FROM participants WHERE session_code=$1 ORDER BY student_id`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.SessionCode, &p.StudentID, &p.StudentName, &p.Status,
			&p.ExitCount, &p.RawScore, &p.ResultID, &p.ScoreError); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetParticipantStatus(ctx context.Context, code, studentID, status string) error {
	return s.execOne(ctx, `UPDATE participants SET status=$1 WHERE session_code=$2 AND student_id=$3`,
		status, code, studentID)
}

func (s *SQLStore) IncrementExitCount(ctx context.Context, code, studentID string) error {
	return s.execOne(ctx, `UPDATE participants SET exit_count=exit_count+1 WHERE session_code=$1 AND student_id=$2`,
		code, studentID)
}

func (s *SQLStore) RecordCompletion(ctx context.Context, code, studentID, resultID string, rawScore int) error {
	return s.execOne(ctx, `UPDATE participants SET status=$1, result_id=$2, raw_score=$3 WHERE session_code=$4 AND student_id=$5`,
		ParticipantCompleted, resultID, rawScore, code, studentID)
}

func (s *SQLStore) RecordScoreError(ctx context.Context, code, studentID, msg string) error {
	return s.execOne(ctx, `UPDATE participants SET score_error=$1 WHERE session_code=$2 AND student_id=$3`,
		msg, code, studentID)
}

func (s *SQLStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotJoined
	}
	return nil
}
