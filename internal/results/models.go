package results

import (
	"github.com/bluebook-labs/satprep/internal/scoring"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

// Scoring statuses. Strictly monotonic: a record never moves backward.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusScored     = "scored"
	StatusPublished  = "published"
)

var statusRank = map[string]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusScored:     2,
	StatusPublished:  3,
}

// CanAdvance reports whether from -> to is a forward transition.
func CanAdvance(from, to string) bool {
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr > fr
}

// Result is one student's completed run of a test. Questions are a frozen
// snapshot so review pages stay stable if the bank changes later. Once
// published the record is immutable and visible to its owner; before that
// only admins see it.
type Result struct {
	ID          string              `json:"id"`
	TestID      string              `json:"test_id"`
	StudentID   string              `json:"student_id"`
	StudentName string              `json:"student_name,omitempty"`
	SessionCode string              `json:"session_code,omitempty"`
	Status      string              `json:"status"`
	Score       scoring.Score       `json:"score"`
	Questions   []testbank.Question `json:"questions"`
	Answers     map[string]string   `json:"answers"`
	Analysis    string              `json:"analysis,omitempty"` // raw AI analysis JSON, empty when unavailable
	StartedAt   int64               `json:"started_at"`
	CompletedAt int64               `json:"completed_at,omitempty"`
}
