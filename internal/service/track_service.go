package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// TrackService manages step 3 of the wizard.
type TrackService struct {
	*mutator
}

// NewTrackService creates a new TrackService.
func NewTrackService(m *Mutations) *TrackService {
	return &TrackService{mutator: m.forComponent("track_service")}
}

// List returns the eligibility tracks of an exam.
func (s *TrackService) List(ctx context.Context, examID int64) ([]model.EligibilityTrack, error) {
	if _, err := s.repo.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.repo.ListTracks(ctx, examID)
}

// Create adds a track with a name unique inside the exam.
func (s *TrackService) Create(ctx context.Context, examID int64, req model.TrackRequest) (*model.EligibilityTrack, error) {
	t := &model.EligibilityTrack{
		ExamID:       examID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		ApprovalMode: approvalModeOrDefault(req.ApprovalMode),
	}
	err := s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		if err := s.ensureNameFree(ctx, exam.ID, t.Name, 0); err != nil {
			return err
		}
		return s.repo.CreateTrack(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Update edits a track.
func (s *TrackService) Update(ctx context.Context, examID, trackID int64, req model.TrackRequest) (*model.EligibilityTrack, error) {
	var t *model.EligibilityTrack
	err := s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		var err error
		if t, err = s.trackOf(ctx, exam.ID, trackID); err != nil {
			return err
		}
		name := strings.TrimSpace(req.Name)
		if err := s.ensureNameFree(ctx, exam.ID, name, t.ID); err != nil {
			return err
		}
		t.Name = name
		t.Description = req.Description
		t.ApprovalMode = approvalModeOrDefault(req.ApprovalMode)
		return s.repo.UpdateTrack(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a track and its rules.
func (s *TrackService) Delete(ctx context.Context, examID, trackID int64) error {
	return s.mutate(ctx, examID, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		if _, err := s.trackOf(ctx, exam.ID, trackID); err != nil {
			return err
		}
		if err := s.repo.DeleteRulesForTrack(ctx, trackID); err != nil {
			return fmt.Errorf("delete rules: %w", err)
		}
		return s.repo.DeleteTrack(ctx, trackID)
	})
}

func (s *TrackService) ensureNameFree(ctx context.Context, examID int64, name string, exceptID int64) error {
	tracks, err := s.repo.ListTracks(ctx, examID)
	if err != nil {
		return fmt.Errorf("list tracks: %w", err)
	}
	for _, t := range tracks {
		if t.ID != exceptID && strings.EqualFold(strings.TrimSpace(t.Name), name) {
			return ErrDuplicateTrackName
		}
	}
	return nil
}

func (s *TrackService) trackOf(ctx context.Context, examID, trackID int64) (*model.EligibilityTrack, error) {
	t, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if t.ExamID != examID {
		return nil, model.ErrNotFound
	}
	return t, nil
}

func approvalModeOrDefault(m model.ApprovalMode) model.ApprovalMode {
	if m == "" {
		return model.ApprovalJoint
	}
	return m
}
