package testbank

import (
	"errors"
	"testing"
)

func q(id string, module, number int) Question {
	return Question{ID: id, Module: module, Number: number, Format: FormatMultipleChoice, Points: 1}
}

func TestGroupSortsWithinModules(t *testing.T) {
	set, err := Group(Test{ID: "t1", Questions: []Question{
		q("b", 1, 2),
		q("a", 1, 1),
		q("d", 3, 5),
		q("c", 3, 1),
	}})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if got := set.Len(0); got != 2 {
		t.Fatalf("module 1 len = %d, want 2", got)
	}
	if set.Modules[0][0].ID != "a" || set.Modules[0][1].ID != "b" {
		t.Fatalf("module 1 order = %s, %s", set.Modules[0][0].ID, set.Modules[0][1].ID)
	}
	if set.Modules[2][0].ID != "c" || set.Modules[2][1].ID != "d" {
		t.Fatalf("module 3 order = %s, %s", set.Modules[2][0].ID, set.Modules[2][1].ID)
	}
}

func TestGroupDropsOutOfRangeModules(t *testing.T) {
	set, err := Group(Test{ID: "t1", Questions: []Question{
		q("ok", 2, 1),
		q("zero", 0, 1),
		q("five", 5, 1),
		q("negative", -1, 1),
	}})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if got := len(set.Flatten()); got != 1 {
		t.Fatalf("kept %d questions, want 1", got)
	}
	if set.Modules[1][0].ID != "ok" {
		t.Fatalf("surviving question = %s", set.Modules[1][0].ID)
	}
}

func TestGroupEmptyTestIsError(t *testing.T) {
	if _, err := Group(Test{ID: "t1"}); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
	// All questions out of range counts as empty too.
	if _, err := Group(Test{ID: "t1", Questions: []Question{q("x", 9, 1)}}); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestFlattenPreservesModuleOrder(t *testing.T) {
	set, err := Group(Test{ID: "t1", Questions: []Question{
		q("m4", 4, 1),
		q("m1", 1, 1),
		q("m2", 2, 1),
	}})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	flat := set.Flatten()
	want := []string{"m1", "m2", "m4"}
	for i, id := range want {
		if flat[i].ID != id {
			t.Fatalf("flat[%d] = %s, want %s", i, flat[i].ID, id)
		}
	}
}

func TestVerbalSectionSplit(t *testing.T) {
	for module := 1; module <= 4; module++ {
		got := Question{Module: module}.Verbal()
		want := module <= 2
		if got != want {
			t.Errorf("module %d Verbal() = %v, want %v", module, got, want)
		}
	}
}
