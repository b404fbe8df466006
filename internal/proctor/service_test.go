package proctor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bluebook-labs/satprep/internal/ai"
	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/scoring"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

/* ---------------- In-memory fakes for Store, results.Store, Analyzer ---------------- */

type fakeStore struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	participants map[string][]Participant
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]*Session{}, participants: map[string][]Participant{}}
}

func (s *fakeStore) Create(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sess
	s.sessions[sess.Code] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, code string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	if !ok {
		return Session{}, ErrNotFound
	}
	out := *sess
	out.Participants = append([]Participant(nil), s.participants[code]...)
	return out, nil
}

func (s *fakeStore) SetStatus(_ context.Context, code, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	if !ok {
		return ErrNotFound
	}
	if sess.Status == status {
		return nil
	}
	if !results.CanAdvance(sess.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, sess.Status, status)
	}
	sess.Status = status
	return nil
}

func (s *fakeStore) MarkPublished(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	if !ok {
		return false, ErrNotFound
	}
	if sess.Status != results.StatusScored {
		return false, nil
	}
	sess.Status = results.StatusPublished
	return true, nil
}

func (s *fakeStore) Join(_ context.Context, code string, p Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Status = ParticipantWaiting
	s.participants[code] = append(s.participants[code], p)
	return nil
}

func (s *fakeStore) Participants(_ context.Context, code string) ([]Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Participant(nil), s.participants[code]...), nil
}

func (s *fakeStore) edit(code, studentID string, fn func(*Participant)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.participants[code]
	for i := range ps {
		if ps[i].StudentID == studentID {
			fn(&ps[i])
			return nil
		}
	}
	return ErrNotJoined
}

func (s *fakeStore) SetParticipantStatus(_ context.Context, code, studentID, status string) error {
	return s.edit(code, studentID, func(p *Participant) { p.Status = status })
}

func (s *fakeStore) IncrementExitCount(_ context.Context, code, studentID string) error {
	return s.edit(code, studentID, func(p *Participant) { p.ExitCount++ })
}

func (s *fakeStore) RecordCompletion(_ context.Context, code, studentID, resultID string, rawScore int) error {
	return s.edit(code, studentID, func(p *Participant) {
		p.Status = ParticipantCompleted
		p.ResultID = resultID
		p.RawScore = rawScore
	})
}

func (s *fakeStore) RecordScoreError(_ context.Context, code, studentID, msg string) error {
	return s.edit(code, studentID, func(p *Participant) { p.ScoreError = msg })
}

type fakeResults struct {
	mu      sync.Mutex
	records map[string]results.Result
}

func newFakeResults() *fakeResults { return &fakeResults{records: map[string]results.Result{}} }

func (f *fakeResults) Put(_ context.Context, r results.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[r.ID] = r
	return nil
}

func (f *fakeResults) Get(_ context.Context, id string) (results.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return results.Result{}, results.ErrNotFound
	}
	return r, nil
}

func (f *fakeResults) ListByStudent(_ context.Context, studentID string) ([]results.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []results.Result
	for _, r := range f.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResults) ListBySession(_ context.Context, code string) ([]results.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []results.Result
	for _, r := range f.records {
		if r.SessionCode == code {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResults) SetStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return results.ErrNotFound
	}
	if r.Status != status && !results.CanAdvance(r.Status, status) {
		return results.ErrBadTransition
	}
	r.Status = status
	f.records[id] = r
	return nil
}

func (f *fakeResults) SetAnalysis(_ context.Context, id, analysisJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return results.ErrNotFound
	}
	r.Analysis = analysisJSON
	f.records[id] = r
	return nil
}

type fakeAnalyzer struct {
	failFor map[string]bool // question IDs whose owner's analysis should fail
	mu      sync.Mutex
	calls   int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, req ai.AnalysisRequest) (*ai.Analysis, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	for _, q := range req.Questions {
		if a.failFor[q.ID] {
			return nil, errors.New("model overloaded")
		}
	}
	return &ai.Analysis{ScoreConfidence: "medium", OverallTip: "practice"}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Announce(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

/* ---------------- Fixtures ---------------- */

func seedSession(t *testing.T, store *fakeStore, res *fakeResults, code string, n int) {
	t.Helper()
	if err := store.Create(context.Background(), Session{Code: code, TestID: "t1", Status: results.StatusPending}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		sid := fmt.Sprintf("stu%d", i)
		rid := fmt.Sprintf("res%d", i)
		_ = store.Join(context.Background(), code, Participant{StudentID: sid})
		_ = store.RecordCompletion(context.Background(), code, sid, rid, 3)
		_ = res.Put(context.Background(), results.Result{
			ID: rid, TestID: "t1", StudentID: sid, SessionCode: code,
			Status: results.StatusPending,
			Questions: []testbank.Question{
				{ID: "q-" + sid, Module: 1, Format: testbank.FormatMultipleChoice, Answer: "A", Points: 1},
			},
			Answers: map[string]string{"q-" + sid: "A"},
		})
	}
}

func newTestService(store *fakeStore, res *fakeResults, an ai.Analyzer, n *fakeNotifier) *Service {
	return NewService(store, res, an, scoring.DefaultScale(), n, nil, 3)
}

/* ---------------- Tests ---------------- */

func TestScoreAllWithOneFailure(t *testing.T) {
	store := newFakeStore()
	res := newFakeResults()
	seedSession(t, store, res, "ABC123", 5)
	analyzer := &fakeAnalyzer{failFor: map[string]bool{"q-stu2": true}}
	svc := newTestService(store, res, analyzer, &fakeNotifier{})

	var (
		mu        sync.Mutex
		lastCount = -1
		monotonic = true
		reports   int
	)
	sum, err := svc.ScoreAll(context.Background(), "ABC123", func(scored, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()
		reports++
		if scored < lastCount {
			monotonic = false
		}
		lastCount = scored
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
	})
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}
	if sum.Scored != 4 {
		t.Fatalf("scored = %d, want 4", sum.Scored)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].StudentID != "stu2" {
		t.Fatalf("errors = %+v, want one for stu2", sum.Errors)
	}
	if !monotonic {
		t.Fatalf("progress counts regressed")
	}
	if reports == 0 {
		t.Fatalf("no progress reports")
	}

	sess, _ := store.Get(context.Background(), "ABC123")
	if sess.Status != results.StatusScored {
		t.Fatalf("session status = %s, want scored", sess.Status)
	}
	// The failed participant keeps a recorded error and a terminal result.
	for _, p := range sess.Participants {
		if p.StudentID == "stu2" && p.ScoreError == "" {
			t.Fatalf("stu2 has no recorded error")
		}
	}
	r2, _ := res.Get(context.Background(), "res2")
	if r2.Status != results.StatusScored {
		t.Fatalf("failed participant's result status = %s, want scored", r2.Status)
	}
	if r2.Analysis != "" {
		t.Fatalf("failed participant unexpectedly has analysis")
	}
	r0, _ := res.Get(context.Background(), "res0")
	if r0.Analysis == "" {
		t.Fatalf("scored participant missing analysis")
	}
}

func TestScoreAllRejectsScoredSession(t *testing.T) {
	store := newFakeStore()
	res := newFakeResults()
	seedSession(t, store, res, "XYZ789", 1)
	svc := newTestService(store, res, &fakeAnalyzer{}, &fakeNotifier{})

	if _, err := svc.ScoreAll(context.Background(), "XYZ789", nil); err != nil {
		t.Fatalf("first ScoreAll: %v", err)
	}
	if _, err := svc.ScoreAll(context.Background(), "XYZ789", nil); !errors.Is(err, ErrNotScorable) {
		t.Fatalf("second ScoreAll err = %v, want ErrNotScorable", err)
	}
}

func TestPublishSingleFire(t *testing.T) {
	store := newFakeStore()
	res := newFakeResults()
	seedSession(t, store, res, "PUB111", 2)
	notifier := &fakeNotifier{}
	svc := newTestService(store, res, &fakeAnalyzer{}, notifier)

	// Publishing before scoring is rejected and sends nothing.
	if err := svc.Publish(context.Background(), "PUB111"); !errors.Is(err, ErrNotPublishable) {
		t.Fatalf("premature publish err = %v, want ErrNotPublishable", err)
	}
	if notifier.count() != 0 {
		t.Fatalf("notification sent before publish")
	}

	if _, err := svc.ScoreAll(context.Background(), "PUB111", nil); err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}
	if err := svc.Publish(context.Background(), "PUB111"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := svc.Publish(context.Background(), "PUB111"); !errors.Is(err, ErrNotPublishable) {
		t.Fatalf("second publish err = %v, want ErrNotPublishable", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifications = %d, want exactly 1", notifier.count())
	}

	sess, _ := store.Get(context.Background(), "PUB111")
	if sess.Status != results.StatusPublished {
		t.Fatalf("session status = %s, want published", sess.Status)
	}
	for _, rid := range []string{"res0", "res1"} {
		r, _ := res.Get(context.Background(), rid)
		if r.Status != results.StatusPublished {
			t.Fatalf("result %s status = %s, want published", rid, r.Status)
		}
	}
}

func TestJoinCodeShape(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeResults(), &fakeAnalyzer{}, &fakeNotifier{})
	sess, err := svc.Create(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sess.Code) != 6 {
		t.Fatalf("code %q length = %d, want 6", sess.Code, len(sess.Code))
	}
	for _, r := range sess.Code {
		switch r {
		case '0', '1', 'I', 'O':
			t.Fatalf("code %q contains ambiguous character %q", sess.Code, r)
		}
	}
	if sess.Status != results.StatusPending {
		t.Fatalf("new session status = %s, want pending", sess.Status)
	}
}
