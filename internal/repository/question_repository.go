package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-wizard/internal/model"
)

// FindQuestions returns the bank questions with the given ids.
func (s *Store) FindQuestions(ctx context.Context, ids []int64) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	rows, err := s.db(ctx).Query(ctx,
		`SELECT id, code, category_id, year, context_id, statement
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// RandomQuestions picks up to filter.Limit bank questions in random order,
// skipping excluded ids and questions already linked to filter.ExcludeExamID.
func (s *Store) RandomQuestions(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	exclude := filter.ExcludeIDs
	if exclude == nil {
		exclude = []int64{}
	}
	code := ""
	if filter.Code != "" {
		code = escapeLike(filter.Code) + "%"
	}

	rows, err := s.db(ctx).Query(ctx,
		`SELECT q.id, q.code, q.category_id, q.year, q.context_id, q.statement
		 FROM questions q
		 WHERE ($1::bigint IS NULL OR q.category_id = $1)
		   AND ($2::int IS NULL OR q.year = $2)
		   AND ($3 = '' OR q.code ILIKE $3)
		   AND q.id <> ALL($4::bigint[])
		   AND NOT EXISTS (
		       SELECT 1 FROM exam_questions eq
		       WHERE eq.exam_id = $5 AND eq.question_id = q.id)
		 ORDER BY random()
		 LIMIT $6`,
		filter.CategoryID, filter.Year, code, exclude, filter.ExcludeExamID, filter.Limit)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Code, &q.CategoryID, &q.Year, &q.ContextID, &q.Statement); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListAssignments returns the question links of an exam ordered by sub-test
// order, then link order.
func (s *Store) ListAssignments(ctx context.Context, examID int64) ([]model.QuestionAssignment, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT eq.exam_id, eq.question_id, eq.subtest_id, eq.sort_order, eq.context_id
		 FROM exam_questions eq
		 JOIN subtests st ON st.id = eq.subtest_id
		 WHERE eq.exam_id = $1
		 ORDER BY st.sort_order, eq.sort_order`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.QuestionAssignment{}
	for rows.Next() {
		var a model.QuestionAssignment
		if err := rows.Scan(&a.ExamID, &a.QuestionID, &a.SubTestID, &a.Order, &a.ContextID); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ReplaceAssignments detaches every question of the exam and bulk inserts items.
func (s *Store) ReplaceAssignments(ctx context.Context, examID int64, items []model.QuestionAssignment) error {
	db := s.db(ctx)
	if _, err := db.Exec(ctx, `DELETE FROM exam_questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("detach questions: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	_, err := db.CopyFrom(ctx,
		pgx.Identifier{"exam_questions"},
		[]string{"exam_id", "question_id", "subtest_id", "sort_order", "context_id"},
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			a := items[i]
			return []any{examID, a.QuestionID, a.SubTestID, a.Order, a.ContextID}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("attach questions: %w", err)
	}
	return nil
}

// DeleteAssignment unlinks one question from an exam.
func (s *Store) DeleteAssignment(ctx context.Context, examID, questionID int64) error {
	return affected(s.db(ctx).Exec(ctx,
		`DELETE FROM exam_questions WHERE exam_id = $1 AND question_id = $2`, examID, questionID))
}

// DeleteAssignmentsForSubTest unlinks every question of a sub-test.
func (s *Store) DeleteAssignmentsForSubTest(ctx context.Context, subTestID int64) error {
	_, err := s.db(ctx).Exec(ctx, `DELETE FROM exam_questions WHERE subtest_id = $1`, subTestID)
	return err
}

// UpdateAssignmentOrders writes the sub-test and order of every item in one
// batch. The order uniqueness constraint is deferred to commit.
func (s *Store) UpdateAssignmentOrders(ctx context.Context, examID int64, items []model.QuestionAssignment) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range items {
		batch.Queue(
			`UPDATE exam_questions SET subtest_id = $1, sort_order = $2
			 WHERE exam_id = $3 AND question_id = $4`,
			a.SubTestID, a.Order, examID, a.QuestionID)
	}
	results := s.db(ctx).SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
