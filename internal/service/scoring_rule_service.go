package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// ScoringRuleService keeps one scoring rule per (track, sub-test) pair and
// keeps both ends of a rule inside the same exam.
type ScoringRuleService struct {
	*mutator
}

// NewScoringRuleService creates a new ScoringRuleService.
func NewScoringRuleService(m *Mutations) *ScoringRuleService {
	return &ScoringRuleService{mutator: m.forComponent("scoring_rule_service")}
}

// BuildRule validates a (track, sub-test) pair and returns the rule to store.
// Incorrect and blank answers are always worth zero.
func BuildRule(track *model.EligibilityTrack, subTest *model.SubTest, correct, minPassing float64) (*model.ScoringRule, error) {
	if subTest.ExamID != track.ExamID {
		return nil, violation(ErrSubTestMismatch, fmt.Sprintf("Subprueba %d, postulación %d.", subTest.ID, track.ID))
	}
	return &model.ScoringRule{
		TrackID:         track.ID,
		SubTestID:       subTest.ID,
		CorrectPoints:   correct,
		IncorrectPoints: 0,
		BlankPoints:     0,
		MinPassingScore: minPassing,
	}, nil
}

// List returns every rule of the exam.
func (s *ScoringRuleService) List(ctx context.Context, examID int64) ([]model.ScoringRule, error) {
	if _, err := s.repo.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.repo.ListRules(ctx, examID)
}

// Create adds the rule of one (track, sub-test) pair.
func (s *ScoringRuleService) Create(ctx context.Context, examID int64, req model.CreateRuleRequest) (*model.ScoringRule, error) {
	var rule *model.ScoringRule
	err := s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		track, err := s.trackOf(ctx, exam.ID, req.TrackID)
		if err != nil {
			return err
		}
		subTest, err := s.repo.GetSubTest(ctx, req.SubTestID)
		if err != nil {
			return err
		}
		rule, err = BuildRule(track, subTest, req.CorrectPoints, req.MinPassingScore)
		if err != nil {
			return err
		}
		exists, err := s.repo.RuleExists(ctx, track.ID, subTest.ID)
		if err != nil {
			return fmt.Errorf("check rule: %w", err)
		}
		if exists {
			return ErrDuplicateRule
		}
		return s.repo.CreateRule(ctx, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// Update changes the point values of a rule. The pair is immutable.
func (s *ScoringRuleService) Update(ctx context.Context, examID, ruleID int64, req model.UpdateRuleRequest) (*model.ScoringRule, error) {
	var rule *model.ScoringRule
	err := s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		var err error
		if rule, err = s.ruleOf(ctx, exam.ID, ruleID); err != nil {
			return err
		}
		rule.CorrectPoints = req.CorrectPoints
		rule.MinPassingScore = req.MinPassingScore
		rule.IncorrectPoints = 0
		rule.BlankPoints = 0
		return s.repo.UpdateRule(ctx, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// Delete removes a rule.
func (s *ScoringRuleService) Delete(ctx context.Context, examID, ruleID int64) error {
	return s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		if _, err := s.ruleOf(ctx, exam.ID, ruleID); err != nil {
			return err
		}
		return s.repo.DeleteRule(ctx, ruleID)
	})
}

func (s *ScoringRuleService) trackOf(ctx context.Context, examID, trackID int64) (*model.EligibilityTrack, error) {
	track, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track.ExamID != examID {
		return nil, model.ErrNotFound
	}
	return track, nil
}

func (s *ScoringRuleService) ruleOf(ctx context.Context, examID, ruleID int64) (*model.ScoringRule, error) {
	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.trackOf(ctx, examID, rule.TrackID); err != nil {
		return nil, err
	}
	return rule, nil
}
