package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"

	"github.com/bluebook-labs/satprep/internal/ai"
	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/scoring"
)

// Notifier sends the one-time publication announcement.
type Notifier interface {
	Announce(ctx context.Context, text string) error
}

// EventRecorder appends durable audit events.
type EventRecorder interface {
	Append(ctx context.Context, typ, key string, payload any) error
}

var (
	ErrNotScorable    = errors.New("session is not in a scorable state")
	ErrNotPublishable = errors.New("session must be scored before publishing")
)

// Service drives proctored sessions: joining, batch AI scoring with bounded
// concurrency, and the irreversible publish step.
type Service struct {
	store    Store
	resStore results.Store
	analyzer ai.Analyzer
	scale    scoring.ScaleMapper
	notifier Notifier
	events   EventRecorder

	concurrency int
}

func NewService(store Store, resStore results.Store, analyzer ai.Analyzer, scale scoring.ScaleMapper, notifier Notifier, events EventRecorder, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		store:       store,
		resStore:    resStore,
		analyzer:    analyzer,
		scale:       scale,
		notifier:    notifier,
		events:      events,
		concurrency: concurrency,
	}
}

// codeAlphabet omits ambiguous characters so codes read aloud cleanly.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newJoinCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// Create opens a session for a test and returns its shareable join code.
func (s *Service) Create(ctx context.Context, testID string) (Session, error) {
	sess := Session{
		Code:   newJoinCode(),
		TestID: testID,
		Status: results.StatusPending,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return Session{}, err
	}
	return s.store.Get(ctx, sess.Code)
}

// ScoreAll runs every completed participant's answers through AI estimation.
// Dispatch follows fixed input order with at most s.concurrency calls in
// flight; completions may land out of order, and the progress callback sees
// monotonically increasing counts. One participant's failure is recorded and
// never aborts siblings.
func (s *Service) ScoreAll(ctx context.Context, code string, progress Progress) (Summary, error) {
	sess, err := s.store.Get(ctx, code)
	if err != nil {
		return Summary{}, err
	}
	if sess.Status != results.StatusPending && sess.Status != results.StatusProcessing {
		return Summary{}, fmt.Errorf("%w: status %s", ErrNotScorable, sess.Status)
	}
	if err := s.store.SetStatus(ctx, code, results.StatusProcessing); err != nil {
		return Summary{}, err
	}

	var scorable []Participant
	for _, p := range sess.Participants {
		if p.Status == ParticipantCompleted && p.ResultID != "" {
			scorable = append(scorable, p)
		}
	}
	total := len(scorable)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
		sum = Summary{Total: total}
	)
	report := func(msg string) {
		if progress != nil {
			progress(sum.Scored, total, msg)
		}
	}

	for _, p := range scorable {
		p := p
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			err := s.scoreParticipant(ctx, code, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Errors = append(sum.Errors, ParticipantError{StudentID: p.StudentID, Err: err.Error()})
				report(fmt.Sprintf("scoring failed for %s", p.StudentID))
				return
			}
			sum.Scored++
			report(fmt.Sprintf("scored %s", p.StudentID))
		}()
	}
	wg.Wait()

	sort.Slice(sum.Errors, func(i, j int) bool { return sum.Errors[i].StudentID < sum.Errors[j].StudentID })

	// Every participant now has a terminal outcome, so the aggregate may
	// advance even when some of them failed.
	if err := s.store.SetStatus(ctx, code, results.StatusScored); err != nil {
		return sum, err
	}
	if s.events != nil {
		_ = s.events.Append(ctx, "SessionScored", code, sum)
	}
	report("session scored")
	return sum, nil
}

func (s *Service) scoreParticipant(ctx context.Context, code string, p Participant) error {
	res, err := s.resStore.Get(ctx, p.ResultID)
	if err != nil {
		recordErr := s.store.RecordScoreError(ctx, code, p.StudentID, err.Error())
		if recordErr != nil {
			log.Printf("proctor: record error for %s: %v", p.StudentID, recordErr)
		}
		return err
	}
	if res.Status == results.StatusPending {
		_ = s.resStore.SetStatus(ctx, p.ResultID, results.StatusProcessing)
	}

	// Local grading is authoritative; the AI pass adds the narrative
	// analysis and estimated range on top of it.
	score := scoring.Compute(res.Questions, res.Answers, s.scale)
	analysis, err := s.analyzer.Analyze(ctx, ai.BuildRequest(res.Questions, score))
	if err != nil {
		_ = s.store.RecordScoreError(ctx, code, p.StudentID, err.Error())
		_ = s.resStore.SetStatus(ctx, p.ResultID, results.StatusScored)
		return err
	}

	buf, err := json.Marshal(analysis)
	if err == nil {
		if err := s.resStore.SetAnalysis(ctx, p.ResultID, string(buf)); err != nil {
			log.Printf("proctor: save analysis for %s: %v", p.ResultID, err)
		}
	}
	if err := s.resStore.SetStatus(ctx, p.ResultID, results.StatusScored); err != nil {
		return err
	}
	return nil
}

// Publish makes all participant results visible to their owners and fires
// the one-time announcement. Only valid from scored; a second call is
// rejected and sends nothing.
func (s *Service) Publish(ctx context.Context, code string) error {
	flipped, err := s.store.MarkPublished(ctx, code)
	if err != nil {
		return err
	}
	if !flipped {
		return ErrNotPublishable
	}

	resList, err := s.resStore.ListBySession(ctx, code)
	if err != nil {
		return err
	}
	for _, r := range resList {
		if r.Status == results.StatusScored {
			if err := s.resStore.SetStatus(ctx, r.ID, results.StatusPublished); err != nil {
				log.Printf("proctor: publish result %s: %v", r.ID, err)
			}
		}
	}

	if s.events != nil {
		_ = s.events.Append(ctx, "SessionPublished", code, map[string]int{"results": len(resList)})
	}
	if s.notifier != nil {
		if err := s.notifier.Announce(ctx, fmt.Sprintf("Scores for session %s are published.", code)); err != nil {
			// A lost announcement does not undo publication.
			log.Printf("proctor: announce %s: %v", code, err)
		}
	}
	return nil
}
