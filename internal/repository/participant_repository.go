package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-wizard/internal/model"
)

// ListActiveTakerIDs returns every active user with the taker role.
func (s *Store) ListActiveTakerIDs(ctx context.Context) ([]int64, error) {
	return collectIDs(s.db(ctx).Query(ctx,
		`SELECT id FROM users WHERE active AND role = $1 ORDER BY id`, model.RoleTaker))
}

// ListAssignedUserIDs returns the users assigned to a private exam.
func (s *Store) ListAssignedUserIDs(ctx context.Context, examID int64) ([]int64, error) {
	return collectIDs(s.db(ctx).Query(ctx,
		`SELECT user_id FROM exam_users WHERE exam_id = $1 ORDER BY user_id`, examID))
}

// ReplaceAssignedUsers deletes and recreates the assigned users of an exam.
func (s *Store) ReplaceAssignedUsers(ctx context.Context, examID int64, userIDs []int64) error {
	db := s.db(ctx)
	if _, err := db.Exec(ctx, `DELETE FROM exam_users WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete assigned users: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}
	_, err := db.CopyFrom(ctx,
		pgx.Identifier{"exam_users"},
		[]string{"exam_id", "user_id"},
		pgx.CopyFromSlice(len(userIDs), func(i int) ([]any, error) {
			return []any{examID, userIDs[i]}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert assigned users: %w", err)
	}
	return nil
}

// ExistingUserIDs returns the subset of ids that exist.
func (s *Store) ExistingUserIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}
	return collectIDs(s.db(ctx).Query(ctx,
		`SELECT id FROM users WHERE id = ANY($1) ORDER BY id`, ids))
}
