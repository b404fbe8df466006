package testbank

// Question formats.
const (
	FormatMultipleChoice = "multiple-choice"
	FormatFillIn         = "fill-in"
)

// OptionLabels is the fixed ordered label set for multiple-choice questions.
var OptionLabels = []string{"A", "B", "C", "D"}

// Image positions relative to the prompt.
const (
	ImageAbove = "above"
	ImageBelow = "below"
)

type Image struct {
	Ref      string `json:"ref"` // opaque hosting reference, resolved at render time
	Width    int    `json:"width,omitempty"`
	Position string `json:"position,omitempty"` // above|below
}

type Question struct {
	ID           string            `json:"id"`
	Module       int               `json:"module"` // 1-4; 1-2 verbal, 3-4 quantitative
	Number       int               `json:"number"` // unique within module
	Format       string            `json:"format"` // multiple-choice|fill-in
	PromptHTML   string            `json:"prompt_html"`
	StimulusHTML string            `json:"stimulus_html,omitempty"`
	Image        *Image            `json:"image,omitempty"`
	Options      map[string]string `json:"options,omitempty"` // label -> text, MCQ only
	Answer       string            `json:"answer,omitempty"`  // label, or literal for fill-in
	Domain       string            `json:"domain,omitempty"`
	Skill        string            `json:"skill,omitempty"`
	Points       float64           `json:"points"`
	Explanation  string            `json:"explanation,omitempty"`
}

// Verbal reports whether the question belongs to the verbal section
// (modules 1-2). Everything else is quantitative.
func (q Question) Verbal() bool { return q.Module <= 2 }

type Test struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt int64      `json:"created_at,omitempty"`
}

type TestSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at"`
}

// UpsertQuestionInput is the authoring payload for a single question.
type UpsertQuestionInput struct {
	ID           string            `json:"id"`
	Module       int               `json:"module" validate:"required,min=1,max=4"`
	Number       int               `json:"number" validate:"required,min=1"`
	Format       string            `json:"format" validate:"required,oneof=multiple-choice fill-in"`
	PromptHTML   string            `json:"prompt_html" validate:"required"`
	StimulusHTML string            `json:"stimulus_html"`
	Image        *Image            `json:"image"`
	Options      map[string]string `json:"options"`
	Answer       string            `json:"answer" validate:"required"`
	Domain       string            `json:"domain"`
	Skill        string            `json:"skill"`
	Points       float64           `json:"points" validate:"min=0"`
	Explanation  string            `json:"explanation"`
}
