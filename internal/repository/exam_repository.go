package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-wizard/internal/model"
)

const examColumns = `id, code, type_id, title, description, access_mode, state,
	valid_from, valid_until, time_limit_minutes, wizard_step,
	published_at, finalized_at, created_by, created_at, updated_at`

func scanExam(row pgx.Row) (*model.Exam, error) {
	var (
		e     model.Exam
		state string
	)
	err := row.Scan(&e.ID, &e.Code, &e.TypeID, &e.Title, &e.Description, &e.AccessMode, &state,
		&e.ValidFrom, &e.ValidUntil, &e.TimeLimitMinutes, &e.WizardStep,
		&e.PublishedAt, &e.FinalizedAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if e.State, err = model.ParseExamState(state); err != nil {
		return nil, fmt.Errorf("exam %d: %w", e.ID, err)
	}
	return &e, nil
}

// GetExam retrieves an exam by id.
func (s *Store) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	return scanExam(s.db(ctx).QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// LockExam reads an exam row FOR UPDATE when ctx carries a transaction.
func (s *Store) LockExam(ctx context.Context, id int64) (*model.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams WHERE id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return scanExam(s.db(ctx).QueryRow(ctx, query, id))
}

// ListExams returns a filtered page of exams, newest first, and the total count.
func (s *Store) ListExams(ctx context.Context, filter model.ExamFilter) ([]model.Exam, int, error) {
	where := ` WHERE TRUE`
	var args []any
	if filter.State != nil {
		args = append(args, filter.State.Code())
		where += ` AND state = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (code ILIKE $` + n + ` OR title ILIKE $` + n + `)`
	}

	var total int
	if err := s.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM exams`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + examColumns + ` FROM exams` + where +
		` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// ListExamIDsByState returns the ids of every exam in state.
func (s *Store) ListExamIDsByState(ctx context.Context, state model.ExamState) ([]int64, error) {
	return collectIDs(s.db(ctx).Query(ctx,
		`SELECT id FROM exams WHERE state = $1 ORDER BY id`, state.Code()))
}

// ExamCodeExists reports whether another exam already uses code.
func (s *Store) ExamCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exams WHERE LOWER(code) = LOWER($1) AND id <> $2)`,
		code, excludeID,
	).Scan(&exists)
	return exists, err
}

// CreateExam inserts a new exam.
func (s *Store) CreateExam(ctx context.Context, e *model.Exam) error {
	return s.db(ctx).QueryRow(ctx,
		`INSERT INTO exams (code, type_id, title, description, access_mode, state,
		                    valid_from, valid_until, time_limit_minutes, wizard_step,
		                    published_at, finalized_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		e.Code, e.TypeID, e.Title, e.Description, e.AccessMode, e.State.Code(),
		e.ValidFrom, e.ValidUntil, e.TimeLimitMinutes, e.WizardStep,
		e.PublishedAt, e.FinalizedAt, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateExam writes every mutable exam column.
func (s *Store) UpdateExam(ctx context.Context, e *model.Exam) error {
	err := s.db(ctx).QueryRow(ctx,
		`UPDATE exams SET code = $1, type_id = $2, title = $3, description = $4,
		        access_mode = $5, state = $6, valid_from = $7, valid_until = $8,
		        time_limit_minutes = $9, wizard_step = $10, published_at = $11,
		        finalized_at = $12, updated_at = NOW()
		 WHERE id = $13
		 RETURNING updated_at`,
		e.Code, e.TypeID, e.Title, e.Description, e.AccessMode, e.State.Code(),
		e.ValidFrom, e.ValidUntil, e.TimeLimitMinutes, e.WizardStep,
		e.PublishedAt, e.FinalizedAt, e.ID,
	).Scan(&e.UpdatedAt)
	return notFound(err)
}

// DeleteExam removes an exam. Attempts cascade.
func (s *Store) DeleteExam(ctx context.Context, id int64) error {
	return affected(s.db(ctx).Exec(ctx, `DELETE FROM exams WHERE id = $1`, id))
}

// DeleteExamFiles removes the file rows tagged to an exam.
func (s *Store) DeleteExamFiles(ctx context.Context, examID int64) (int, error) {
	tag, err := s.db(ctx).Exec(ctx, `DELETE FROM exam_files WHERE exam_id = $1`, examID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
