package report

import (
	"bytes"
	"testing"

	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/scoring"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

func TestFilename(t *testing.T) {
	cases := []struct {
		name    string
		student string
		total   int
		want    string
	}{
		{"plain", "Jane Doe", 1310, "SAT_1310_Jane_Doe.pdf"},
		{"strips punctuation", "O'Brien, Jr.", 980, "SAT_980_OBrien_Jr.pdf"},
		{"path characters dropped", "../etc/passwd", 400, "SAT_400_etcpasswd.pdf"},
		{"unicode letters kept", "José Nuñez", 1520, "SAT_1520_José_Nuñez.pdf"},
		{"empty falls back", "", 1000, "SAT_1000_student.pdf"},
		{"only symbols falls back", "!!!", 1000, "SAT_1000_student.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := results.Result{StudentName: tc.student, Score: scoring.Score{Total: tc.total}}
			if got := Filename(r); got != tc.want {
				t.Fatalf("Filename = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBandEdges(t *testing.T) {
	cases := []struct {
		correct, total int
		want           string
	}{
		{17, 20, "Strong"},
		{13, 20, "Proficient"},
		{8, 20, "Developing"},
		{7, 20, "Weak"},
		{0, 20, "Weak"},
		{20, 20, "Strong"},
		{0, 0, "—"},
	}
	for _, tc := range cases {
		if got := Band(tc.correct, tc.total); got != tc.want {
			t.Errorf("Band(%d, %d) = %q, want %q", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := results.Result{
		ID:          "r1",
		TestID:      "sat-practice-1",
		StudentID:   "stu1",
		StudentName: "Jane Doe",
		SessionCode: "ABC123",
		Score: scoring.Score{
			Verbal: scoring.SectionScore{Raw: 40, Total: 54, Scaled: 620},
			Quant:  scoring.SectionScore{Raw: 35, Total: 44, Scaled: 680},
			Total:  1300,
		},
		Questions: []testbank.Question{
			{ID: "q1", Module: 1, Format: testbank.FormatMultipleChoice, Answer: "A", Domain: "Craft and Structure", Points: 1},
			{ID: "q2", Module: 3, Format: testbank.FormatFillIn, Answer: "12", Domain: "Algebra", Points: 1},
		},
		Answers: map[string]string{"q1": "A", "q2": "7"},
	}

	g := &Generator{ResourceURL: "https://example.com/resources"}
	pdf, err := g.Render(r)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header")
	}
	if len(pdf) < 1000 {
		t.Fatalf("suspiciously small output: %d bytes", len(pdf))
	}
}

func TestRenderWithoutQR(t *testing.T) {
	g := &Generator{}
	pdf, err := g.Render(results.Result{StudentID: "stu1", Score: scoring.Score{Total: 800}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header")
	}
}
