package service

import (
	"context"
	"fmt"
)

// AttemptGuard decides whether in-progress attempts block changes to an exam.
// Only started attempts block; submitted attempts never do.
type AttemptGuard struct {
	attempts AttemptStore
}

// NewAttemptGuard creates a new AttemptGuard.
func NewAttemptGuard(attempts AttemptStore) *AttemptGuard {
	return &AttemptGuard{attempts: attempts}
}

// HasBlockingAttempts returns whether the exam has started attempts and how many.
// Call it with a transaction context holding the exam row lock so the answer
// cannot change before the guarded write commits.
func (g *AttemptGuard) HasBlockingAttempts(ctx context.Context, examID int64) (bool, int, error) {
	n, err := g.attempts.CountStartedAttempts(ctx, examID)
	if err != nil {
		return false, 0, fmt.Errorf("count started attempts: %w", err)
	}
	return n > 0, n, nil
}

// Ensure fails with AttemptsInProgress when any attempt is started.
func (g *AttemptGuard) Ensure(ctx context.Context, examID int64) error {
	blocked, n, err := g.HasBlockingAttempts(ctx, examID)
	if err != nil {
		return err
	}
	if blocked {
		return attemptsInProgress(n)
	}
	return nil
}
