package service

import "context"

// MutationKind names what changed in a committed mutation.
type MutationKind string

const (
	MutationExamCreated     MutationKind = "exam_created"
	MutationExamUpdated     MutationKind = "exam_updated"
	MutationExamDeleted     MutationKind = "exam_deleted"
	MutationStateChanged    MutationKind = "state_changed"
	MutationWizardChanged   MutationKind = "wizard_changed"
	MutationQuestionsChange MutationKind = "questions_changed"
	MutationAttemptsClosed  MutationKind = "attempts_closed"
)

// MutationEvent is emitted after a mutation commits.
type MutationEvent struct {
	ExamID int64
	Kind   MutationKind
}

// MutationListener consumes committed mutation events, typically to drop
// cached read models. Listeners handle their own failures.
type MutationListener interface {
	MutationCompleted(ctx context.Context, ev MutationEvent)
}

type nopListener struct{}

func (nopListener) MutationCompleted(context.Context, MutationEvent) {}

func listenerOrNop(l MutationListener) MutationListener {
	if l == nil {
		return nopListener{}
	}
	return l
}

// Listeners delivers each event to every listener in order.
type Listeners []MutationListener

func (ls Listeners) MutationCompleted(ctx context.Context, ev MutationEvent) {
	for _, l := range ls {
		if l != nil {
			l.MutationCompleted(ctx, ev)
		}
	}
}
