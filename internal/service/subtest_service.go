package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// SubTestService manages step 2 of the wizard.
type SubTestService struct {
	*mutator
}

// NewSubTestService creates a new SubTestService.
func NewSubTestService(m *Mutations) *SubTestService {
	return &SubTestService{mutator: m.forComponent("subtest_service")}
}

// List returns the sub-tests of an exam by order.
func (s *SubTestService) List(ctx context.Context, examID int64) ([]model.SubTest, error) {
	if _, err := s.repo.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.repo.ListSubTests(ctx, examID)
}

// Create appends a sub-test, or inserts it at a free explicit order.
func (s *SubTestService) Create(ctx context.Context, examID int64, req model.SubTestRequest) (*model.SubTest, error) {
	st := &model.SubTest{
		ExamID:            examID,
		Name:              strings.TrimSpace(req.Name),
		Order:             req.Order,
		PointsPerQuestion: req.PointsPerQuestion,
		DurationMinutes:   req.DurationMinutes,
	}
	err := s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		existing, err := s.repo.ListSubTests(ctx, exam.ID)
		if err != nil {
			return fmt.Errorf("list subtests: %w", err)
		}
		if st.Order == 0 {
			st.Order = nextSubTestOrder(existing)
		} else if orderTaken(existing, st.Order, 0) {
			return ErrDuplicateSubTestOrder
		}
		return s.repo.CreateSubTest(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Update edits a sub-test. Order 0 keeps the current order.
func (s *SubTestService) Update(ctx context.Context, examID, subTestID int64, req model.SubTestRequest) (*model.SubTest, error) {
	var st *model.SubTest
	err := s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		var err error
		if st, err = s.subTestOf(ctx, exam.ID, subTestID); err != nil {
			return err
		}
		if req.Order != 0 && req.Order != st.Order {
			existing, err := s.repo.ListSubTests(ctx, exam.ID)
			if err != nil {
				return fmt.Errorf("list subtests: %w", err)
			}
			if orderTaken(existing, req.Order, st.ID) {
				return ErrDuplicateSubTestOrder
			}
			st.Order = req.Order
		}
		st.Name = strings.TrimSpace(req.Name)
		st.PointsPerQuestion = req.PointsPerQuestion
		st.DurationMinutes = req.DurationMinutes
		return s.repo.UpdateSubTest(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes a sub-test with its rules and question links.
func (s *SubTestService) Delete(ctx context.Context, examID, subTestID int64) error {
	return s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		if _, err := s.subTestOf(ctx, exam.ID, subTestID); err != nil {
			return err
		}
		if err := s.repo.DeleteRulesForSubTest(ctx, subTestID); err != nil {
			return fmt.Errorf("delete rules: %w", err)
		}
		if err := s.repo.DeleteAssignmentsForSubTest(ctx, subTestID); err != nil {
			return fmt.Errorf("delete question links: %w", err)
		}
		return s.repo.DeleteSubTest(ctx, subTestID)
	})
}

func (s *SubTestService) subTestOf(ctx context.Context, examID, subTestID int64) (*model.SubTest, error) {
	st, err := s.repo.GetSubTest(ctx, subTestID)
	if err != nil {
		return nil, err
	}
	if st.ExamID != examID {
		return nil, model.ErrNotFound
	}
	return st, nil
}

func nextSubTestOrder(existing []model.SubTest) int {
	max := 0
	for _, st := range existing {
		if st.Order > max {
			max = st.Order
		}
	}
	return max + 1
}

func orderTaken(existing []model.SubTest, order int, exceptID int64) bool {
	for _, st := range existing {
		if st.Order == order && st.ID != exceptID {
			return true
		}
	}
	return false
}
