package engine

import (
	"github.com/bluebook-labs/satprep/internal/testbank"
)

// GridCell is one entry of the navigator grid for the current module.
type GridCell struct {
	Index    int    `json:"index"`
	Number   int    `json:"number"`
	Answered bool   `json:"answered"`
	Marked   bool   `json:"marked"`
	Current  bool   `json:"current"`
	ID       string `json:"id"`
}

// View is the full projection of session state for the client. It is a pure
// function of the session: re-rendering from identical state yields an
// identical view.
type View struct {
	Phase       Phase              `json:"phase"`
	Module      int                `json:"module"` // 1-based, 0 when finished
	Section     string             `json:"section,omitempty"`
	QuestionIdx int                `json:"question_idx"`
	Question    *testbank.Question `json:"question,omitempty"`
	Value       string             `json:"value"`          // restored answer, empty when unanswered
	Answered    bool               `json:"answered"`       // distinguishes empty value from no entry
	Marked      bool               `json:"marked"`
	Grid        []GridCell         `json:"grid"`
	Clock       string             `json:"clock"` // MM:SS
	Expired     bool               `json:"expired"`
	Calculator  bool               `json:"calculator"` // quantitative modules only
}

// View projects the current state into a renderable form.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Phase:       s.phase,
		QuestionIdx: s.questionIdx,
	}
	if s.phase == PhaseFinished {
		return v
	}

	v.Module = s.moduleIdx + 1
	v.Calculator = s.moduleIdx >= 2
	if v.Calculator {
		v.Section = "quantitative"
	} else {
		v.Section = "verbal"
	}
	v.Clock = FormatClock(s.timer.Remaining())
	v.Expired = s.timer.Expired()

	qs := s.set.Modules[s.moduleIdx]
	v.Grid = make([]GridCell, len(qs))
	for i, q := range qs {
		_, answered := s.answers[q.ID]
		v.Grid[i] = GridCell{
			Index:    i,
			Number:   q.Number,
			ID:       q.ID,
			Answered: answered,
			Marked:   s.marked[q.ID],
			Current:  s.phase == PhaseQuestion && i == s.questionIdx,
		}
	}

	if s.phase == PhaseQuestion && s.questionIdx < len(qs) {
		q := qs[s.questionIdx]
		v.Question = &q
		v.Value = s.answers[q.ID]
		_, v.Answered = s.answers[q.ID]
		v.Marked = s.marked[q.ID]
	}
	return v
}
