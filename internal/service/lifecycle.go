package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// ExamLifecycle is the Draft → Published → Finalized state machine together
// with the guards every mutating operation goes through.
type ExamLifecycle struct {
	repo  Repository
	guard *AttemptGuard
	now   func() time.Time
}

// NewExamLifecycle creates a new ExamLifecycle.
func NewExamLifecycle(repo Repository, guard *AttemptGuard) *ExamLifecycle {
	return &ExamLifecycle{repo: repo, guard: guard, now: time.Now}
}

// CanMutateStructure allows changes to sub-tests, tracks, rules, schedule,
// basics and assigned users on draft exams only.
func (l *ExamLifecycle) CanMutateStructure(exam *model.Exam) error {
	switch exam.State {
	case model.ExamStateDraft:
		return nil
	case model.ExamStatePublished, model.ExamStateFinalized:
		return violation(ErrExamFinalized, "Estado actual: "+exam.State.Label()+".")
	default:
		return fmt.Errorf("exam %d has unknown state %d", exam.ID, exam.State)
	}
}

// CanMutateQuestions allows question add/remove and random generation on
// draft and published exams.
func (l *ExamLifecycle) CanMutateQuestions(exam *model.Exam) error {
	switch exam.State {
	case model.ExamStateDraft, model.ExamStatePublished:
		return nil
	case model.ExamStateFinalized:
		return violation(ErrExamFinalized, "Estado actual: "+exam.State.Label()+".")
	default:
		return fmt.Errorf("exam %d has unknown state %d", exam.ID, exam.State)
	}
}

// EnsureStructural runs the structural guard and the attempt guard.
func (l *ExamLifecycle) EnsureStructural(ctx context.Context, exam *model.Exam) error {
	if err := l.CanMutateStructure(exam); err != nil {
		return err
	}
	return l.guard.Ensure(ctx, exam.ID)
}

// EnsureQuestions runs the question-level guard and the attempt guard.
func (l *ExamLifecycle) EnsureQuestions(ctx context.Context, exam *model.Exam) error {
	if err := l.CanMutateQuestions(exam); err != nil {
		return err
	}
	return l.guard.Ensure(ctx, exam.ID)
}

// CheckTransition validates a state change against the transition table.
func CheckTransition(from, to model.ExamState) error {
	switch {
	case from == model.ExamStateDraft && to == model.ExamStatePublished:
		return nil
	case from == model.ExamStatePublished && to == model.ExamStateFinalized:
		return nil
	case from == model.ExamStateFinalized:
		return violation(ErrExamFinalized, "Estado actual: "+from.Label()+".")
	default:
		return violation(ErrInvalidTransition, fmt.Sprintf("De %s a %s.", from.Label(), to.Label()))
	}
}

// Publish moves a complete draft exam to Published. The exam must have been
// read with LockExam inside the transaction carried by ctx.
func (l *ExamLifecycle) Publish(ctx context.Context, exam *model.Exam) error {
	if err := CheckTransition(exam.State, model.ExamStatePublished); err != nil {
		return err
	}

	agg, err := loadAggregate(ctx, l.repo, exam)
	if err != nil {
		return fmt.Errorf("load aggregate: %w", err)
	}
	completeness := NewCompleteness(agg)
	if completeness.Overall() != 100 {
		return violation(ErrIncompleteWizard, "Pasos pendientes: "+joinSteps(completeness.IncompleteSteps())+".")
	}

	now := l.now()
	if exam.ValidFrom == nil {
		exam.ValidFrom = &now
	}
	exam.State = model.ExamStatePublished
	exam.PublishedAt = &now
	advanceWizardStep(exam, agg)
	if err := l.repo.UpdateExam(ctx, exam); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// FinalizeManually closes a published exam on an administrator's request.
// In-progress attempts are deleted together with their answers and results,
// unlike automatic finalization which keeps them as submitted.
func (l *ExamLifecycle) FinalizeManually(ctx context.Context, exam *model.Exam) (int, error) {
	if err := CheckTransition(exam.State, model.ExamStateFinalized); err != nil {
		return 0, err
	}

	deleted, err := l.repo.DeleteStartedAttempts(ctx, exam.ID)
	if err != nil {
		return 0, fmt.Errorf("delete started attempts: %w", err)
	}

	now := l.now()
	exam.State = model.ExamStateFinalized
	exam.FinalizedAt = &now
	exam.ValidUntil = &now
	if err := l.repo.UpdateExam(ctx, exam); err != nil {
		return 0, fmt.Errorf("update exam: %w", err)
	}
	return deleted, nil
}

// CanDelete allows deleting draft and finalized exams, and published exams
// without started attempts.
func (l *ExamLifecycle) CanDelete(ctx context.Context, exam *model.Exam) error {
	switch exam.State {
	case model.ExamStateDraft, model.ExamStateFinalized:
		return nil
	case model.ExamStatePublished:
		return l.guard.Ensure(ctx, exam.ID)
	default:
		return fmt.Errorf("exam %d has unknown state %d", exam.ID, exam.State)
	}
}

// Delete removes the exam and everything it owns.
func (l *ExamLifecycle) Delete(ctx context.Context, exam *model.Exam) error {
	if err := l.CanDelete(ctx, exam); err != nil {
		return err
	}

	if err := l.repo.ReplaceAssignments(ctx, exam.ID, nil); err != nil {
		return fmt.Errorf("delete question links: %w", err)
	}
	subTests, err := l.repo.ListSubTests(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list subtests: %w", err)
	}
	for _, st := range subTests {
		if err := l.repo.DeleteRulesForSubTest(ctx, st.ID); err != nil {
			return fmt.Errorf("delete rules of subtest %d: %w", st.ID, err)
		}
		if err := l.repo.DeleteSubTest(ctx, st.ID); err != nil {
			return fmt.Errorf("delete subtest %d: %w", st.ID, err)
		}
	}
	tracks, err := l.repo.ListTracks(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list tracks: %w", err)
	}
	for _, t := range tracks {
		if err := l.repo.DeleteTrack(ctx, t.ID); err != nil {
			return fmt.Errorf("delete track %d: %w", t.ID, err)
		}
	}
	if err := l.repo.ReplaceAssignedUsers(ctx, exam.ID, nil); err != nil {
		return fmt.Errorf("delete assigned users: %w", err)
	}
	if _, err := l.repo.DeleteExamFiles(ctx, exam.ID); err != nil {
		return fmt.Errorf("delete exam files: %w", err)
	}
	if err := l.repo.DeleteExam(ctx, exam.ID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

func joinSteps(steps []int) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ")
}
