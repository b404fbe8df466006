package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/bluebook-labs/satprep/internal/testbank"
)

// Phase of the delivery state machine.
type Phase string

const (
	PhaseQuestion Phase = "question"
	PhaseReview   Phase = "review"
	PhaseFinished Phase = "finished"
)

var (
	ErrOutOfBounds   = errors.New("question index out of bounds")
	ErrWrongPhase    = errors.New("operation not valid in current phase")
	ErrModuleExpired = errors.New("module time expired")
	ErrFinished      = errors.New("test already finished")
)

// Snapshot is the frozen outcome of a completed session, flushed into a
// persisted result exactly once.
type Snapshot struct {
	TestID    string
	StudentID string
	Questions []testbank.Question
	Answers   map[string]string
	Marked    map[string]bool
	StartedAt time.Time
	EndedAt   time.Time
}

/// Session owns one student's in-flight run of a test: navigator indices,
// answer record, review marks, and the current module timer. All state is
// private to the session and guarded by one mutex; timer callbacks take the
// same lock, so transitions never race.
type Session struct {
	mu sync.Mutex

	ID        string
	TestID    string
	StudentID string

	set       *testbank.ModuleSet
	durations [testbank.ModuleCount]time.Duration

	phase       Phase
	moduleIdx   int
	questionIdx int

	answers map[string]string
	marked  map[string]bool

	timer     *ModuleTimer
	startedAt time.Time
	endedAt   time.Time
	tornDown  bool

	// onCheckpoint runs after each confirmed module boundary; onComplete
	// runs once when the terminal phase is reached.
	onCheckpoint func(moduleIdx int)
	onComplete   func(Snapshot)
}

type Options struct {
	ID           string
	StudentID    string
	Durations    [testbank.ModuleCount]time.Duration
	OnCheckpoint func(moduleIdx int)
	OnComplete   func(Snapshot)
}

// NewSession starts a run over the grouped question set. The first non-empty
// module is entered immediately; a set with no questions anywhere is a load
// error upstream (testbank.Group), so the navigator always has somewhere to
// land.
func NewSession(set *testbank.ModuleSet, opts Options) (*Session, error) {
	first := nextNonEmpty(set, 0)
	if first < 0 {
		return nil, testbank.ErrNoQuestions
	}
	s := &Session{
		ID:           opts.ID,
		TestID:       set.TestID,
		StudentID:    opts.StudentID,
		set:          set,
		durations:    opts.Durations,
		phase:        PhaseQuestion,
		moduleIdx:    first,
		answers:      map[string]string{},
		marked:       map[string]bool{},
		startedAt:    time.Now(),
		onCheckpoint: opts.OnCheckpoint,
		onComplete:   opts.OnComplete,
	}
	s.startModuleTimer()
	return s, nil
}

func nextNonEmpty(set *testbank.ModuleSet, from int) int {
	for i := from; i < testbank.ModuleCount; i++ {
		if set.Len(i) > 0 {
			return i
		}
	}
	return -1
}

// startModuleTimer arms the countdown for the current module. Callers hold
// no lock or the session lock; the timer callback re-enters through
// expireModule which locks itself.
func (s *Session) startModuleTimer() {
	idx := s.moduleIdx
	s.timer = NewModuleTimer(s.durations[idx], func() { s.expireModule(idx) })
	s.timer.Start()
}

func (s *Session) expireModule(moduleIdx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown || s.phase != PhaseQuestion || s.moduleIdx != moduleIdx {
		return
	}
	s.finishModuleLocked()
}

// Next advances within the module, or enters review from the last question.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhase(PhaseQuestion); err != nil {
		return err
	}
	if s.questionIdx+1 < s.set.Len(s.moduleIdx) {
		s.questionIdx++
		return nil
	}
	s.finishModuleLocked()
	return nil
}

// Back moves to the previous question; at index 0 it is a no-op.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhase(PhaseQuestion); err != nil {
		return err
	}
	if s.questionIdx > 0 {
		s.questionIdx--
	}
	return nil
}

// Jump sets the question index directly within the current module. From the
// review screen it re-enters the module, which is only allowed while time
// remains.
func (s *Session) Jump(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinished {
		return ErrFinished
	}
	if i < 0 || i >= s.set.Len(s.moduleIdx) {
		return ErrOutOfBounds
	}
	if s.phase == PhaseReview {
		if s.timer.Expired() {
			return ErrModuleExpired
		}
		s.phase = PhaseQuestion
		s.timer.Start()
	}
	s.questionIdx = i
	return nil
}

// FinishModule is the student's explicit module end; identical to expiry.
func (s *Session) FinishModule() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhase(PhaseQuestion); err != nil {
		return err
	}
	s.finishModuleLocked()
	return nil
}

func (s *Session) finishModuleLocked() {
	s.timer.Pause()
	s.phase = PhaseReview
}

// ConfirmModule leaves the review screen, advancing to the next module with
// questions, or to the terminal phase when none remain.
func (s *Session) ConfirmModule() error {
	s.mu.Lock()
	if err := s.requirePhase(PhaseReview); err != nil {
		s.mu.Unlock()
		return err
	}
	s.timer.Stop()

	next := nextNonEmpty(s.set, s.moduleIdx+1)
	if next < 0 {
		s.phase = PhaseFinished
		s.endedAt = time.Now()
		snap := s.snapshotLocked()
		done := s.onComplete
		s.mu.Unlock()
		if done != nil {
			done(snap)
		}
		return nil
	}

	s.moduleIdx = next
	s.questionIdx = 0
	s.phase = PhaseQuestion
	s.startModuleTimer()
	checkpoint := s.onCheckpoint
	s.mu.Unlock()
	if checkpoint != nil {
		checkpoint(next)
	}
	return nil
}

// SetAnswer records the student's answer for a question. Writing the same
// value twice is a no-op beyond the first.
func (s *Session) SetAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhase(PhaseQuestion); err != nil {
		return err
	}
	s.answers[questionID] = value
	return nil
}

// ClearAnswer removes a question's stored answer entirely, so it reads as
// unanswered rather than an empty string. Used by option elimination.
func (s *Session) ClearAnswer(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhase(PhaseQuestion); err != nil {
		return err
	}
	delete(s.answers, questionID)
	return nil
}

// ToggleMark flips the mark-for-review flag.
func (s *Session) ToggleMark(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinished {
		return ErrFinished
	}
	if s.marked[questionID] {
		delete(s.marked, questionID)
	} else {
		s.marked[questionID] = true
	}
	return nil
}

// Teardown stops the timer and detaches callbacks. Pending expiry callbacks
// become no-ops; nothing is persisted.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tornDown = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.onCheckpoint = nil
	s.onComplete = nil
}

func (s *Session) requirePhase(p Phase) error {
	if s.phase == PhaseFinished {
		return ErrFinished
	}
	if s.phase != p {
		return ErrWrongPhase
	}
	return nil
}

func (s *Session) snapshotLocked() Snapshot {
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	marked := make(map[string]bool, len(s.marked))
	for k, v := range s.marked {
		marked[k] = v
	}
	return Snapshot{
		TestID:    s.TestID,
		StudentID: s.StudentID,
		Questions: s.set.Flatten(),
		Answers:   answers,
		Marked:    marked,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Position returns the current module and question indices.
func (s *Session) Position() (moduleIdx, questionIdx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moduleIdx, s.questionIdx
}
