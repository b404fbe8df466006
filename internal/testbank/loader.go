package testbank

import (
	"context"
	"errors"
	"sort"
)

// ModuleCount is the number of module slots in a test.
const ModuleCount = 4

var ErrNoQuestions = errors.New("test has no questions in any module")

// ModuleSet is a test's questions grouped by module slot (index 0 = module 1),
// each slot sorted by question number.
type ModuleSet struct {
	TestID  string
	Title   string
	Modules [ModuleCount][]Question
}

// Len returns the question count of a module slot.
func (m *ModuleSet) Len(moduleIdx int) int {
	if moduleIdx < 0 || moduleIdx >= ModuleCount {
		return 0
	}
	return len(m.Modules[moduleIdx])
}

// Flatten returns all questions in module order.
func (m *ModuleSet) Flatten() []Question {
	var out []Question
	for i := 0; i < ModuleCount; i++ {
		out = append(out, m.Modules[i]...)
	}
	return out
}

// Group arranges a test's questions into module slots. Questions with an
// out-of-range module are dropped. Every slot empty is a load error.
func Group(t Test) (*ModuleSet, error) {
	ms := &ModuleSet{TestID: t.ID, Title: t.Title}
	total := 0
	for _, q := range t.Questions {
		if q.Module < 1 || q.Module > ModuleCount {
			continue
		}
		ms.Modules[q.Module-1] = append(ms.Modules[q.Module-1], q)
		total++
	}
	if total == 0 {
		return nil, ErrNoQuestions
	}
	for i := range ms.Modules {
		sort.Slice(ms.Modules[i], func(a, b int) bool {
			return ms.Modules[i][a].Number < ms.Modules[i][b].Number
		})
	}
	return ms, nil
}

// Load fetches a test and groups it for delivery. Answer keys are kept out of
// the returned set; the scorer reloads the full test itself.
func Load(ctx context.Context, store Store, testID string) (*ModuleSet, error) {
	t, err := store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	return Group(t)
}
