package service

import (
	"testing"

	"github.com/stemsi/exstem-wizard/internal/model"
)

func orders(items []model.QuestionAssignment) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, a := range items {
		out[a.QuestionID] = a.Order
	}
	return out
}

func TestStaging_AddRejectsDuplicates(t *testing.T) {
	s := NewStaging(nil)
	if err := s.Add(model.QuestionAssignment{QuestionID: 1, SubTestID: 10, Order: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(model.QuestionAssignment{QuestionID: 1, SubTestID: 11, Order: 1}); err == nil {
		t.Error("expected an error when staging a question twice")
	}
}

func TestStaging_RemoveRenumbers(t *testing.T) {
	s := NewStaging([]model.QuestionAssignment{
		{QuestionID: 1, SubTestID: 10, Order: 1},
		{QuestionID: 2, SubTestID: 10, Order: 2},
		{QuestionID: 3, SubTestID: 10, Order: 3},
		{QuestionID: 4, SubTestID: 11, Order: 1},
	})
	if !s.Remove(2) {
		t.Fatal("Remove(2) = false")
	}
	if s.Remove(2) {
		t.Error("second Remove(2) = true")
	}
	got := orders(s.Items())
	want := map[int64]int{1: 1, 3: 2, 4: 1}
	for id, o := range want {
		if got[id] != o {
			t.Errorf("question %d order = %d, want %d", id, got[id], o)
		}
	}
}

func TestStaging_Move(t *testing.T) {
	base := []model.QuestionAssignment{
		{QuestionID: 1, SubTestID: 10, Order: 1},
		{QuestionID: 2, SubTestID: 10, Order: 2},
		{QuestionID: 3, SubTestID: 10, Order: 3},
		{QuestionID: 9, SubTestID: 11, Order: 1},
	}

	t.Run("last to first", func(t *testing.T) {
		s := NewStaging(base)
		if err := s.Move(10, 2, 0); err != nil {
			t.Fatalf("Move: %v", err)
		}
		got := orders(s.Items())
		if got[3] != 1 || got[1] != 2 || got[2] != 3 || got[9] != 1 {
			t.Errorf("orders = %v", got)
		}
	})

	t.Run("first to last", func(t *testing.T) {
		s := NewStaging(base)
		if err := s.Move(10, 0, 2); err != nil {
			t.Fatalf("Move: %v", err)
		}
		got := orders(s.Items())
		if got[2] != 1 || got[3] != 2 || got[1] != 3 {
			t.Errorf("orders = %v", got)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		s := NewStaging(base)
		if err := s.Move(10, 0, 3); err == nil {
			t.Error("expected an out of range error")
		}
		if err := s.Move(11, 1, 0); err == nil {
			t.Error("expected an out of range error for a single-item subtest")
		}
	})

	t.Run("does not touch the source slice", func(t *testing.T) {
		s := NewStaging(base)
		_ = s.Move(10, 2, 0)
		if base[0].Order != 1 || base[2].Order != 3 {
			t.Error("staging mutated its input")
		}
	})
}

func TestStaging_RenumberPerSubTest(t *testing.T) {
	s := NewStaging([]model.QuestionAssignment{
		{QuestionID: 1, SubTestID: 10, Order: 7},
		{QuestionID: 2, SubTestID: 11, Order: 4},
		{QuestionID: 3, SubTestID: 10, Order: 3},
		{QuestionID: 4, SubTestID: 10, Order: 7},
	})
	s.Renumber()
	got := orders(s.Items())
	want := map[int64]int{3: 1, 1: 2, 4: 3, 2: 1}
	for id, o := range want {
		if got[id] != o {
			t.Errorf("question %d order = %d, want %d", id, got[id], o)
		}
	}
	if got := s.MaxOrder(10); got != 3 {
		t.Errorf("MaxOrder(10) = %d, want 3", got)
	}
	if got := s.MaxOrder(99); got != 0 {
		t.Errorf("MaxOrder(99) = %d, want 0", got)
	}
}

func TestGroupByContext(t *testing.T) {
	ctxA, ctxB := int64p(1), int64p(2)
	in := []model.Question{
		{ID: 1, ContextID: ctxA},
		{ID: 2},
		{ID: 3, ContextID: ctxB},
		{ID: 4, ContextID: ctxA},
		{ID: 5},
		{ID: 6, ContextID: ctxB},
	}
	got := groupByContext(in)
	want := []int64{1, 4, 3, 6, 2, 5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, q := range got {
		if q.ID != want[i] {
			t.Errorf("position %d = %d, want %d", i, q.ID, want[i])
		}
	}
}
