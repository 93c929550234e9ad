package service

import (
	"fmt"
	"sort"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// Staging is an in-memory, not yet persisted question assignment set. It is
// the representation batch saves and reorders are computed on before a single
// write replaces the stored set.
type Staging struct {
	items []model.QuestionAssignment
}

// NewStaging copies items into a new staging area.
func NewStaging(items []model.QuestionAssignment) *Staging {
	s := &Staging{items: make([]model.QuestionAssignment, len(items))}
	copy(s.items, items)
	return s
}

// Items returns a copy of the staged assignments.
func (s *Staging) Items() []model.QuestionAssignment {
	out := make([]model.QuestionAssignment, len(s.items))
	copy(out, s.items)
	return out
}

// Has reports whether a question is staged.
func (s *Staging) Has(questionID int64) bool {
	return s.index(questionID) >= 0
}

// Add stages a question. A question can be staged once per exam.
func (s *Staging) Add(a model.QuestionAssignment) error {
	if s.Has(a.QuestionID) {
		return fmt.Errorf("question %d already staged", a.QuestionID)
	}
	s.items = append(s.items, a)
	return nil
}

// Remove drops a question and renumbers what remains.
func (s *Staging) Remove(questionID int64) bool {
	i := s.index(questionID)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.Renumber()
	return true
}

// SubTest returns the staged items of one sub-test sorted by order.
func (s *Staging) SubTest(subTestID int64) []model.QuestionAssignment {
	var out []model.QuestionAssignment
	for _, a := range s.items {
		if a.SubTestID == subTestID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// MaxOrder returns the highest order used in a sub-test, 0 when empty.
func (s *Staging) MaxOrder(subTestID int64) int {
	max := 0
	for _, a := range s.items {
		if a.SubTestID == subTestID && a.Order > max {
			max = a.Order
		}
	}
	return max
}

// Move relocates the item at position from to position to inside a single
// sub-test. Positions are zero-based over the sub-test's ordered items.
func (s *Staging) Move(subTestID int64, from, to int) error {
	list := s.SubTest(subTestID)
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return fmt.Errorf("position out of range for %d items", len(list))
	}
	moved := list[from]
	list = append(list[:from], list[from+1:]...)
	list = append(list[:to], append([]model.QuestionAssignment{moved}, list[to:]...)...)

	orders := make(map[int64]int, len(list))
	for i, a := range list {
		orders[a.QuestionID] = i + 1
	}
	for i := range s.items {
		if n, ok := orders[s.items[i].QuestionID]; ok {
			s.items[i].Order = n
		}
	}
	return nil
}

// Renumber makes every sub-test's orders contiguous from 1, keeping the
// current relative order (ties keep their staging position).
func (s *Staging) Renumber() {
	idx := make([]int, len(s.items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.items[idx[a]].Order < s.items[idx[b]].Order
	})
	next := make(map[int64]int)
	for _, i := range idx {
		st := s.items[i].SubTestID
		next[st]++
		s.items[i].Order = next[st]
	}
}

func (s *Staging) index(questionID int64) int {
	for i, a := range s.items {
		if a.QuestionID == questionID {
			return i
		}
	}
	return -1
}

// groupByContext keeps questions sharing a context contiguous: context groups
// come first in first-encountered order, context-less questions last.
func groupByContext(questions []model.Question) []model.Question {
	var groups [][]model.Question
	pos := make(map[int64]int)
	var loose []model.Question
	for _, q := range questions {
		if q.ContextID == nil {
			loose = append(loose, q)
			continue
		}
		i, ok := pos[*q.ContextID]
		if !ok {
			i = len(groups)
			pos[*q.ContextID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], q)
	}
	out := make([]model.Question, 0, len(questions))
	for _, g := range groups {
		out = append(out, g...)
	}
	return append(out, loose...)
}
