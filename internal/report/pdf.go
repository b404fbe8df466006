package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/scoring"
)

// ScoreDelta is the ± band shown around each displayed score.
const ScoreDelta = 30

// Performance bands for the per-domain indicator.
var bands = []struct {
	min   float64
	label string
}{
	{0.85, "Strong"},
	{0.65, "Proficient"},
	{0.40, "Developing"},
	{0.00, "Weak"},
}

// Band discretizes a domain's correct fraction into a coarse label.
func Band(correct, total int) string {
	if total == 0 {
		return "—"
	}
	frac := float64(correct) / float64(total)
	for _, b := range bands {
		if frac >= b.min {
			return b.label
		}
	}
	return bands[len(bands)-1].label
}

// Filename derives the download name from the total score and the student's
// name with everything unsafe stripped.
func Filename(r results.Result) string {
	return fmt.Sprintf("SAT_%d_%s.pdf", r.Score.Total, sanitizeName(r.StudentName))
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "student"
	}
	return s
}

// Generator renders the one-page score report.
type Generator struct {
	ResourceURL string // encoded into the QR code
}

// Render produces the PDF bytes for a scored result.
func (g *Generator) Render(r results.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("SAT Practice Score Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "SAT Practice Score Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Student: %s", displayName(r)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Test: %s", r.TestID), "", 1, "L", false, 0, "")
	if r.SessionCode != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Session: %s", r.SessionCode), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 14, fmt.Sprintf("%d", r.Score.Total), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Score range: %d - %d",
		clampScore(r.Score.Total-2*ScoreDelta, 400, 1600),
		clampScore(r.Score.Total+2*ScoreDelta, 400, 1600)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	sectionRow(pdf, "Reading & Writing", r.Score.Verbal)
	sectionRow(pdf, "Math", r.Score.Quant)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Performance by domain", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, d := range domainRows(r) {
		pdf.CellFormat(90, 6, d.name, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d/%d", d.correct, d.total), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, d.band, "", 1, "L", false, 0, "")
	}

	if g.ResourceURL != "" {
		if err := embedQR(pdf, g.ResourceURL); err == nil {
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetY(-30)
			pdf.CellFormat(0, 5, "Scan for practice resources", "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func displayName(r results.Result) string {
	if r.StudentName != "" {
		return r.StudentName
	}
	return r.StudentID
}

func clampScore(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sectionRow(pdf *gofpdf.Fpdf, label string, s scoring.SectionScore) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(90, 8, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", s.Scaled), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("±%d  (raw %d/%d)", ScoreDelta, s.Raw, s.Total), "", 1, "L", false, 0, "")
}

type domainRow struct {
	name    string
	correct int
	total   int
	band    string
}

func domainRows(r results.Result) []domainRow {
	tally := scoring.DomainTally(r.Questions, r.Answers)
	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domainRow, 0, len(names))
	for _, name := range names {
		t := tally[name]
		out = append(out, domainRow{name: name, correct: t[0], total: t[1], band: Band(t[0], t[1])})
	}
	return out
}

func embedQR(pdf *gofpdf.Fpdf, target string) error {
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("resources-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("resources-qr", 170, 257, 25, 25, false, opts, 0, "")
	return nil
}
