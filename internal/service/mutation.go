package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/model"
)

// Mutations bundles the collaborators shared by every mutating service.
type Mutations struct {
	Repo      Repository
	Guard     *AttemptGuard
	Lifecycle *ExamLifecycle
	Finalizer *AutoFinalizer
	Listener  MutationListener
	Log       zerolog.Logger
}

// NewMutations wires the attempt guard, lifecycle and auto-finalizer over repo.
func NewMutations(repo Repository, listener MutationListener, log zerolog.Logger) *Mutations {
	listener = listenerOrNop(listener)
	guard := NewAttemptGuard(repo)
	return &Mutations{
		Repo:      repo,
		Guard:     guard,
		Lifecycle: NewExamLifecycle(repo, guard),
		Finalizer: NewAutoFinalizer(repo, listener, log),
		Listener:  listener,
		Log:       log,
	}
}

func (m *Mutations) forComponent(component string) *mutator {
	return &mutator{
		repo:      m.Repo,
		lifecycle: m.Lifecycle,
		finalizer: m.Finalizer,
		listener:  m.Listener,
		log:       m.Log.With().Str("component", component).Logger(),
	}
}

// mutator runs exam mutations the same way everywhere: opportunistic
// auto-finalization, one transaction with the exam row locked, the guard,
// the change, wizard step recomputation, then the mutation event.
type mutator struct {
	repo      Repository
	lifecycle *ExamLifecycle
	finalizer *AutoFinalizer
	listener  MutationListener
	log       zerolog.Logger
}

type guardFunc func(ctx context.Context, exam *model.Exam) error

// runOptions adjusts the steps of a mutation. The zero value runs all of them.
type runOptions struct {
	// skipFinalize leaves out the opportunistic auto-finalization, so a
	// manual finalization keeps its own semantics on an expired exam.
	skipFinalize bool
	// skipRefresh leaves the wizard step alone, for mutations that remove the exam.
	skipRefresh bool
}

func (m *mutator) mutate(ctx context.Context, examID int64, kind MutationKind, guard guardFunc, fn func(ctx context.Context, exam *model.Exam) error) error {
	return m.run(ctx, examID, kind, guard, fn, runOptions{})
}

func (m *mutator) run(ctx context.Context, examID int64, kind MutationKind, guard guardFunc, fn func(ctx context.Context, exam *model.Exam) error, opts runOptions) error {
	if !opts.skipFinalize {
		if _, err := m.finalizer.FinalizeIfDue(ctx, examID); err != nil {
			return err
		}
	}

	err := m.repo.InTx(ctx, func(ctx context.Context) error {
		exam, err := m.repo.LockExam(ctx, examID)
		if err != nil {
			return err
		}
		if err := guard(ctx, exam); err != nil {
			return err
		}
		if err := fn(ctx, exam); err != nil {
			return err
		}
		if opts.skipRefresh {
			return nil
		}
		return m.refreshWizardStep(ctx, exam)
	})
	if err != nil {
		return err
	}

	m.listener.MutationCompleted(ctx, MutationEvent{ExamID: examID, Kind: kind})
	return nil
}

// refreshWizardStep re-reads the aggregate and persists a higher wizard step.
func (m *mutator) refreshWizardStep(ctx context.Context, exam *model.Exam) error {
	current, err := m.repo.GetExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("reload exam: %w", err)
	}
	agg, err := loadAggregate(ctx, m.repo, current)
	if err != nil {
		return fmt.Errorf("load aggregate: %w", err)
	}
	if !advanceWizardStep(current, agg) {
		return nil
	}
	if err := m.repo.UpdateExam(ctx, current); err != nil {
		return fmt.Errorf("update wizard step: %w", err)
	}
	*exam = *current
	return nil
}

func (m *mutator) structural(ctx context.Context, exam *model.Exam) error {
	return m.lifecycle.EnsureStructural(ctx, exam)
}

func (m *mutator) questions(ctx context.Context, exam *model.Exam) error {
	return m.lifecycle.EnsureQuestions(ctx, exam)
}
