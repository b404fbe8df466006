package http

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bluebook-labs/satprep/internal/engine"
	"github.com/bluebook-labs/satprep/internal/proctor"
	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/scoring"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

// Delivery wires the live test engine to persistence: it starts sessions,
// and on completion grades the run and flushes the one-time result record.
type Delivery struct {
	Registry  *engine.Registry
	Tests     testbank.Store
	Results   results.Store
	Sessions  proctor.Store
	Scale     scoring.ScaleMapper
	Durations [testbank.ModuleCount]time.Duration

	mu   sync.Mutex
	meta map[string]attemptMeta // attemptID -> proctoring context
}

type attemptMeta struct {
	sessionCode string
	studentID   string
	studentName string
}

func NewDelivery(reg *engine.Registry, tests testbank.Store, res results.Store, sessions proctor.Store, scale scoring.ScaleMapper, durations [testbank.ModuleCount]time.Duration) *Delivery {
	return &Delivery{
		Registry:  reg,
		Tests:     tests,
		Results:   res,
		Sessions:  sessions,
		Scale:     scale,
		Durations: durations,
		meta:      map[string]attemptMeta{},
	}
}

// Start loads the test, begins a live session, and tracks its proctoring
// context. The student-safe question set is what the engine serves; answer
// keys only come back into play at completion.
func (d *Delivery) Start(ctx context.Context, testID, studentID, studentName, sessionCode string) (*engine.Session, error) {
	set, err := testbank.Load(ctx, d.Tests, testID)
	if err != nil {
		return nil, err
	}
	if sessionCode != "" {
		if err := d.Sessions.SetParticipantStatus(ctx, sessionCode, studentID, proctor.ParticipantTaking); err != nil {
			return nil, err
		}
	}

	attemptID := uuid.NewString()
	d.mu.Lock()
	d.meta[attemptID] = attemptMeta{sessionCode: sessionCode, studentID: studentID, studentName: studentName}
	d.mu.Unlock()

	return d.Registry.Start(set, engine.Options{
		ID:         attemptID,
		StudentID:  studentID,
		Durations:  d.Durations,
		OnComplete: func(snap engine.Snapshot) { d.flush(attemptID, snap) },
	})
}

// RecordExit bumps the participant's exit counter for proctored attempts.
func (d *Delivery) RecordExit(ctx context.Context, attemptID string) error {
	d.mu.Lock()
	m, ok := d.meta[attemptID]
	d.mu.Unlock()
	if !ok || m.sessionCode == "" {
		return nil
	}
	return d.Sessions.IncrementExitCount(ctx, m.sessionCode, m.studentID)
}

// Abandon discards a live attempt without persisting anything.
func (d *Delivery) Abandon(attemptID string) {
	d.Registry.Abandon(attemptID)
	d.mu.Lock()
	delete(d.meta, attemptID)
	d.mu.Unlock()
}

// flush runs once per completed attempt. It re-reads the full test (with
// answer keys) to grade the frozen answer record, snapshots the questions
// into the result, and for proctored runs marks the participant completed.
// Solo results are published immediately; proctored ones stay pending until
// the session's batch scoring and publish steps.
func (d *Delivery) flush(attemptID string, snap engine.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	d.mu.Lock()
	m := d.meta[attemptID]
	delete(d.meta, attemptID)
	d.mu.Unlock()

	full, err := d.Tests.GetTestAdmin(ctx, snap.TestID)
	if err != nil {
		log.Printf("delivery: flush %s: load test: %v", attemptID, err)
		return
	}
	set, err := testbank.Group(full)
	if err != nil {
		log.Printf("delivery: flush %s: group: %v", attemptID, err)
		return
	}
	questions := set.Flatten()
	score := scoring.Compute(questions, snap.Answers, d.Scale)

	status := results.StatusPublished
	if m.sessionCode != "" {
		status = results.StatusPending
	}
	res := results.Result{
		ID:          attemptID,
		TestID:      snap.TestID,
		StudentID:   snap.StudentID,
		StudentName: m.studentName,
		SessionCode: m.sessionCode,
		Status:      status,
		Score:       score,
		Questions:   questions,
		Answers:     snap.Answers,
		StartedAt:   snap.StartedAt.Unix(),
		CompletedAt: snap.EndedAt.Unix(),
	}
	if err := d.Results.Put(ctx, res); err != nil {
		log.Printf("delivery: flush %s: save result: %v", attemptID, err)
		return
	}
	if m.sessionCode != "" {
		raw := score.Verbal.Raw + score.Quant.Raw
		if err := d.Sessions.RecordCompletion(ctx, m.sessionCode, snap.StudentID, attemptID, raw); err != nil {
			log.Printf("delivery: flush %s: record completion: %v", attemptID, err)
		}
	}
}
