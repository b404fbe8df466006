package scoring

import (
	"github.com/bluebook-labs/satprep/internal/testbank"
)

// Section keys used by the scale registry and score records.
const (
	SectionVerbal = "verbal"
	SectionQuant  = "quant"
)

type SectionScore struct {
	Raw    int `json:"raw"`
	Total  int `json:"total"`
	Scaled int `json:"scaled"`
}

type Score struct {
	Verbal SectionScore `json:"verbal"`
	Quant  SectionScore `json:"quant"`
	Total  int          `json:"total"` // sum of section scaled scores

	// PerQuestion records correctness keyed by question ID, in support of
	// analysis requests and report bands.
	PerQuestion map[string]bool `json:"per_question,omitempty"`
}

// Compute grades all questions against the answer record. Pure: no I/O, and
// identical inputs always produce identical output. Questions with no
// matching entry count incorrect.
func Compute(questions []testbank.Question, answers map[string]string, scale ScaleMapper) Score {
	sc := Score{PerQuestion: make(map[string]bool, len(questions))}
	for _, q := range questions {
		correct := Correct(q, answers[q.ID])
		sc.PerQuestion[q.ID] = correct
		if q.Verbal() {
			sc.Verbal.Total++
			if correct {
				sc.Verbal.Raw++
			}
		} else {
			sc.Quant.Total++
			if correct {
				sc.Quant.Raw++
			}
		}
	}
	sc.Verbal.Scaled = scale.Scale(SectionVerbal, sc.Verbal.Raw, sc.Verbal.Total)
	sc.Quant.Scaled = scale.Scale(SectionQuant, sc.Quant.Raw, sc.Quant.Total)
	sc.Total = sc.Verbal.Scaled + sc.Quant.Scaled
	return sc
}

// DomainTally aggregates correctness per content domain for report bands.
func DomainTally(questions []testbank.Question, answers map[string]string) map[string][2]int {
	out := map[string][2]int{}
	for _, q := range questions {
		if q.Domain == "" {
			continue
		}
		t := out[q.Domain]
		t[1]++
		if Correct(q, answers[q.ID]) {
			t[0]++
		}
		out[q.Domain] = t
	}
	return out
}
