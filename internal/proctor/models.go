package proctor

// Participant lifecycle within a session.
const (
	ParticipantWaiting   = "waiting"
	ParticipantTaking    = "taking"
	ParticipantCompleted = "completed"
)

// Session is a live, code-joined group administration of one test. Its
// status uses the results vocabulary (pending/processing/scored/published)
// and aggregates the participants' outcomes.
type Session struct {
	Code         string        `json:"code"`
	TestID       string        `json:"test_id"`
	Status       string        `json:"status"`
	CreatedAt    int64         `json:"created_at"`
	PublishedAt  int64         `json:"published_at,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

type Participant struct {
	SessionCode string `json:"-"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Status      string `json:"status"`
	ExitCount   int    `json:"exit_count"`
	RawScore    int    `json:"raw_score"`
	ResultID    string `json:"result_id,omitempty"`
	ScoreError  string `json:"score_error,omitempty"`
}

// ParticipantError records one participant's scoring failure without
// aborting the batch.
type ParticipantError struct {
	StudentID string `json:"student_id"`
	Err       string `json:"error"`
}

// Summary is the aggregate outcome of a batch scoring run.
type Summary struct {
	Scored int                `json:"scored"`
	Total  int                `json:"total"`
	Errors []ParticipantError `json:"errors,omitempty"`
}

// Progress receives (scoredCount, totalCount, statusMessage) after each
// participant reaches a terminal outcome. Counts are monotonic even though
// completions within a batch may resolve out of order.
type Progress func(scored, total int, message string)
