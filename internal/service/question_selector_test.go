package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
)

func TestDrawRespectsBoundAndPool(t *testing.T) {
	pool := makeQuestions(12, 2, "cse", "general")
	bank := &memQuestionBank{questions: append(pool, makeQuestions(8, 2, "aiml", "general")...)}
	sel := NewQuestionSelector(bank)

	inPool := make(map[uuid.UUID]bool)
	for _, q := range pool {
		inPool[q.ID] = true
	}

	for _, count := range []int{1, 5, 12, 50} {
		exam := &model.Exam{Year: 2, Department: "cse", Section: "general", RandomQuestionCount: count}
		got, err := sel.Draw(context.Background(), exam)
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		want := min(count, len(pool))
		if len(got) != want {
			t.Errorf("count=%d: drew %d, want %d", count, len(got), want)
		}
		seen := make(map[uuid.UUID]bool)
		for _, q := range got {
			if !inPool[q.ID] {
				t.Errorf("count=%d: %s is not a candidate", count, q.ID)
			}
			if seen[q.ID] {
				t.Errorf("count=%d: %s drawn twice", count, q.ID)
			}
			seen[q.ID] = true
		}
	}
}

func TestDrawGeneralDepartmentIsUnfiltered(t *testing.T) {
	bank := &memQuestionBank{questions: append(makeQuestions(3, 2, "cse", "s1"), makeQuestions(4, 2, "aiml", "s1")...)}
	sel := NewQuestionSelector(bank)

	got, err := sel.Draw(context.Background(), &model.Exam{Year: 2, Department: "General", Section: "S1", RandomQuestionCount: 100})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(got) != 7 {
		t.Errorf("drew %d, want all 7 questions across departments", len(got))
	}
}

func TestDrawEdgeCases(t *testing.T) {
	sel := NewQuestionSelector(&memQuestionBank{questions: makeQuestions(4, 3, "cse", "general")})

	none, err := sel.Draw(context.Background(), &model.Exam{Year: 1, Department: "cse", RandomQuestionCount: 5})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("no candidates should yield an empty, non-nil list, got %v", none)
	}

	all, err := sel.Draw(context.Background(), &model.Exam{Year: 3, Department: "cse", RandomQuestionCount: 0})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("non-positive count should take every candidate, got %d", len(all))
	}
}

func TestDrawUsesShuffle(t *testing.T) {
	qs := makeQuestions(3, 2, "cse", "general")
	sel := NewQuestionSelector(&memQuestionBank{questions: qs})
	// Reverse instead of shuffling so the sample is deterministic.
	sel.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}

	got, err := sel.Draw(context.Background(), &model.Exam{Year: 2, Department: "cse", RandomQuestionCount: 2})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got[0].ID != qs[2].ID || got[1].ID != qs[1].ID {
		t.Errorf("sample should follow the shuffled order")
	}
	if qs[0].Prompt != "cse-2-0" {
		t.Error("candidate slice returned by the bank must not be reordered")
	}
}
