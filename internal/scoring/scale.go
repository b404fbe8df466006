package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ScaleMapper converts a section's raw score to the display scale. The
// production mapping is an official table, so the mapper is configuration
// swapped in at startup, never arithmetic baked into the scorer.
type ScaleMapper interface {
	Scale(section string, raw, total int) int
}

// ScaleTable maps raw-score fractions to scaled scores per section via
// ordered breakpoints. Lookup picks the highest breakpoint whose fraction
// does not exceed the achieved fraction, which keeps the mapping monotonic.
type ScaleTable struct {
	Sections map[string][]ScalePoint `json:"sections"`
}

type ScalePoint struct {
	Fraction float64 `json:"fraction"` // raw/total, 0..1
	Scaled   int     `json:"scaled"`
}

func (t *ScaleTable) Scale(section string, raw, total int) int {
	points := t.Sections[section]
	if len(points) == 0 || total <= 0 {
		return 0
	}
	frac := float64(raw) / float64(total)
	best := points[0].Scaled
	for _, p := range points {
		if p.Fraction <= frac {
			best = p.Scaled
		} else {
			break
		}
	}
	return best
}

// LoadScaleTable reads a table from JSON and normalizes breakpoint order.
func LoadScaleTable(path string) (*ScaleTable, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t ScaleTable
	if err := json.Unmarshal(buf, &t); err != nil {
		return nil, fmt.Errorf("scale table %s: %w", path, err)
	}
	for k := range t.Sections {
		pts := t.Sections[k]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Fraction < pts[j].Fraction })
		t.Sections[k] = pts
	}
	return &t, nil
}

// DefaultScale approximates the published curve with a coarse table covering
// both sections. Deployments load the official table from SCALE_TABLE_PATH.
func DefaultScale() *ScaleTable {
	pts := []ScalePoint{
		{0.00, 200}, {0.05, 230}, {0.10, 270}, {0.15, 310}, {0.20, 350},
		{0.25, 380}, {0.30, 410}, {0.35, 440}, {0.40, 470}, {0.45, 500},
		{0.50, 530}, {0.55, 560}, {0.60, 590}, {0.65, 620}, {0.70, 650},
		{0.75, 680}, {0.80, 710}, {0.85, 740}, {0.90, 760}, {0.95, 780},
		{1.00, 800},
	}
	return &ScaleTable{Sections: map[string][]ScalePoint{
		SectionVerbal: pts,
		SectionQuant:  pts,
	}}
}
