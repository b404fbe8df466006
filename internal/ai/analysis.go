package ai

import (
	"github.com/bluebook-labs/satprep/internal/scoring"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

// QuestionSummary is one line of the analysis request: correctness plus
// tags, never the question text, to bound payload size.
type QuestionSummary struct {
	ID      string  `json:"id"`
	Module  int     `json:"module"`
	Domain  string  `json:"domain,omitempty"`
	Skill   string  `json:"skill,omitempty"`
	Points  float64 `json:"points"`
	Correct bool    `json:"correct"`
}

// AnalysisRequest is the structured performance summary sent for analysis.
type AnalysisRequest struct {
	VerbalRaw    int               `json:"verbal_raw"`
	VerbalTotal  int               `json:"verbal_total"`
	VerbalScaled int               `json:"verbal_scaled"`
	QuantRaw     int               `json:"quant_raw"`
	QuantTotal   int               `json:"quant_total"`
	QuantScaled  int               `json:"quant_scaled"`
	Questions    []QuestionSummary `json:"questions"`
}

type SectionAnalysis struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Tip        string   `json:"tip"`
}

type ScoreRange struct {
	Low         int    `json:"low"`
	High        int    `json:"high"`
	Explanation string `json:"explanation"`
}

// Analysis is the fixed response schema. A response that fails to parse as
// this shape is treated as "analysis unavailable", not an error.
type Analysis struct {
	ScoreConfidence     string          `json:"scoreConfidence"`
	ScoreAssessment     string          `json:"scoreAssessment"`
	Verbal              SectionAnalysis `json:"verbal"`
	Quant               SectionAnalysis `json:"quant"`
	OverallTip          string          `json:"overallTip"`
	EstimatedScoreRange ScoreRange      `json:"estimatedScoreRange"`
}

// BuildRequest condenses a graded run into the wire summary.
func BuildRequest(questions []testbank.Question, score scoring.Score) AnalysisRequest {
	req := AnalysisRequest{
		VerbalRaw:    score.Verbal.Raw,
		VerbalTotal:  score.Verbal.Total,
		VerbalScaled: score.Verbal.Scaled,
		QuantRaw:     score.Quant.Raw,
		QuantTotal:   score.Quant.Total,
		QuantScaled:  score.Quant.Scaled,
	}
	for _, q := range questions {
		req.Questions = append(req.Questions, QuestionSummary{
			ID:      q.ID,
			Module:  q.Module,
			Domain:  q.Domain,
			Skill:   q.Skill,
			Points:  q.Points,
			Correct: score.PerQuestion[q.ID],
		})
	}
	return req
}
