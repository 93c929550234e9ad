package repository

import (
	"context"
	"time"
)

// CountStartedAttempts counts the in-progress attempts of an exam.
func (s *Store) CountStartedAttempts(ctx context.Context, examID int64) (int, error) {
	var n int
	err := s.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1 AND state = 'iniciado'`, examID,
	).Scan(&n)
	return n, err
}

// CloseStartedAttempts marks every in-progress attempt as submitted at at.
func (s *Store) CloseStartedAttempts(ctx context.Context, examID int64, at time.Time) (int, error) {
	tag, err := s.db(ctx).Exec(ctx,
		`UPDATE attempts SET state = 'enviado', finished_at = $2
		 WHERE exam_id = $1 AND state = 'iniciado'`, examID, at)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteStartedAttempts removes every in-progress attempt. Answers and
// per-sub-test results cascade.
func (s *Store) DeleteStartedAttempts(ctx context.Context, examID int64) (int, error) {
	tag, err := s.db(ctx).Exec(ctx,
		`DELETE FROM attempts WHERE exam_id = $1 AND state = 'iniciado'`, examID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ListSubmittedUserIDs returns the users with at least one submitted attempt.
func (s *Store) ListSubmittedUserIDs(ctx context.Context, examID int64) ([]int64, error) {
	return collectIDs(s.db(ctx).Query(ctx,
		`SELECT DISTINCT user_id FROM attempts
		 WHERE exam_id = $1 AND state = 'enviado'
		 ORDER BY user_id`, examID))
}
