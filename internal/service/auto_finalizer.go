package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/model"
)

// FinalizeReason says why an exam was finalized automatically.
type FinalizeReason string

const (
	ReasonExpired   FinalizeReason = "vigencia_vencida"
	ReasonCompleted FinalizeReason = "participantes_completos"
)

// FinalizeOutcome describes one automatic finalization.
type FinalizeOutcome struct {
	ExamID         int64          `json:"idExamen"`
	Code           string         `json:"codigo"`
	Reason         FinalizeReason `json:"motivo"`
	ClosedAttempts int            `json:"intentos_cerrados"`
}

// SweepReport summarises one maintenance sweep.
type SweepReport struct {
	Checked   int               `json:"revisados"`
	Finalized []FinalizeOutcome `json:"finalizados"`
	Failed    map[int64]string  `json:"fallidos,omitempty"`
}

// AutoFinalizer finalizes published exams whose validity window has ended or
// whose required participants have all submitted. It runs on explicit
// triggers only and is safe to invoke repeatedly.
type AutoFinalizer struct {
	repo     Repository
	listener MutationListener
	log      zerolog.Logger
	now      func() time.Time
}

// NewAutoFinalizer creates a new AutoFinalizer.
func NewAutoFinalizer(repo Repository, listener MutationListener, log zerolog.Logger) *AutoFinalizer {
	return &AutoFinalizer{
		repo:     repo,
		listener: listenerOrNop(listener),
		log:      log.With().Str("component", "auto_finalizer").Logger(),
		now:      time.Now,
	}
}

// FinalizeIfDue evaluates a single exam in its own transaction. It returns
// nil when the exam was left as is.
func (f *AutoFinalizer) FinalizeIfDue(ctx context.Context, examID int64) (*FinalizeOutcome, error) {
	var outcome *FinalizeOutcome
	err := f.repo.InTx(ctx, func(ctx context.Context) error {
		exam, err := f.repo.LockExam(ctx, examID)
		if err != nil {
			return err
		}
		outcome, err = f.evaluate(ctx, exam)
		return err
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		f.listener.MutationCompleted(ctx, MutationEvent{ExamID: examID, Kind: MutationStateChanged})
		if outcome.ClosedAttempts > 0 {
			f.listener.MutationCompleted(ctx, MutationEvent{ExamID: examID, Kind: MutationAttemptsClosed})
		}
		f.log.Info().
			Int64("exam_id", examID).
			Str("reason", string(outcome.Reason)).
			Int("closed_attempts", outcome.ClosedAttempts).
			Msg("Exam finalized automatically")
	}
	return outcome, nil
}

// evaluate applies the two finalization branches in priority order:
// expiry first, participant completion second.
func (f *AutoFinalizer) evaluate(ctx context.Context, exam *model.Exam) (*FinalizeOutcome, error) {
	if exam.State != model.ExamStatePublished {
		return nil, nil
	}
	now := f.now()

	if exam.ValidUntil != nil && exam.ValidUntil.Before(now) {
		return f.finalize(ctx, exam, now, ReasonExpired)
	}

	required, err := f.requiredParticipants(ctx, exam)
	if err != nil {
		return nil, err
	}
	if len(required) == 0 {
		return nil, nil
	}

	submitted, err := f.repo.ListSubmittedUserIDs(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list submitted users: %w", err)
	}
	done := make(map[int64]struct{}, len(submitted))
	for _, id := range submitted {
		done[id] = struct{}{}
	}
	for _, id := range required {
		if _, ok := done[id]; !ok {
			return nil, nil
		}
	}
	return f.finalize(ctx, exam, now, ReasonCompleted)
}

func (f *AutoFinalizer) requiredParticipants(ctx context.Context, exam *model.Exam) ([]int64, error) {
	switch exam.AccessMode {
	case model.AccessPrivate:
		ids, err := f.repo.ListAssignedUserIDs(ctx, exam.ID)
		if err != nil {
			return nil, fmt.Errorf("list assigned users: %w", err)
		}
		return ids, nil
	default:
		ids, err := f.repo.ListActiveTakerIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active takers: %w", err)
		}
		return ids, nil
	}
}

// finalize closes started attempts without deleting them and finalizes the exam.
func (f *AutoFinalizer) finalize(ctx context.Context, exam *model.Exam, now time.Time, reason FinalizeReason) (*FinalizeOutcome, error) {
	closed, err := f.repo.CloseStartedAttempts(ctx, exam.ID, now)
	if err != nil {
		return nil, fmt.Errorf("close started attempts: %w", err)
	}
	exam.State = model.ExamStateFinalized
	exam.FinalizedAt = &now
	if err := f.repo.UpdateExam(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return &FinalizeOutcome{
		ExamID:         exam.ID,
		Code:           exam.Code,
		Reason:         reason,
		ClosedAttempts: closed,
	}, nil
}

// Sweep evaluates every published exam. A failure on one exam is recorded
// and the sweep continues; the returned error is non-nil if any exam failed.
func (f *AutoFinalizer) Sweep(ctx context.Context) (*SweepReport, error) {
	ids, err := f.repo.ListExamIDsByState(ctx, model.ExamStatePublished)
	if err != nil {
		return nil, fmt.Errorf("list published exams: %w", err)
	}

	report := &SweepReport{Checked: len(ids), Finalized: []FinalizeOutcome{}}
	var errs []error
	for _, id := range ids {
		outcome, err := f.FinalizeIfDue(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			f.log.Error().Err(err).Int64("exam_id", id).Msg("Auto-finalize failed, skipping")
			if report.Failed == nil {
				report.Failed = make(map[int64]string)
			}
			report.Failed[id] = err.Error()
			errs = append(errs, fmt.Errorf("exam %d: %w", id, err))
			continue
		}
		if outcome != nil {
			report.Finalized = append(report.Finalized, *outcome)
		}
	}

	f.log.Info().
		Int("checked", report.Checked).
		Int("finalized", len(report.Finalized)).
		Int("failed", len(report.Failed)).
		Msg("Finalize sweep complete")
	return report, errors.Join(errs...)
}
