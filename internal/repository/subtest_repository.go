package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-wizard/internal/model"
)

const subTestColumns = `id, exam_id, name, sort_order, points_per_question, duration_minutes`

func scanSubTest(row pgx.Row) (*model.SubTest, error) {
	var st model.SubTest
	if err := row.Scan(&st.ID, &st.ExamID, &st.Name, &st.Order, &st.PointsPerQuestion, &st.DurationMinutes); err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

// ListSubTests returns the sub-tests of an exam by order.
func (s *Store) ListSubTests(ctx context.Context, examID int64) ([]model.SubTest, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT `+subTestColumns+` FROM subtests WHERE exam_id = $1 ORDER BY sort_order, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subTests := []model.SubTest{}
	for rows.Next() {
		st, err := scanSubTest(rows)
		if err != nil {
			return nil, err
		}
		subTests = append(subTests, *st)
	}
	return subTests, rows.Err()
}

// GetSubTest retrieves a sub-test by id.
func (s *Store) GetSubTest(ctx context.Context, id int64) (*model.SubTest, error) {
	return scanSubTest(s.db(ctx).QueryRow(ctx,
		`SELECT `+subTestColumns+` FROM subtests WHERE id = $1`, id))
}

// CreateSubTest inserts a sub-test.
func (s *Store) CreateSubTest(ctx context.Context, st *model.SubTest) error {
	return s.db(ctx).QueryRow(ctx,
		`INSERT INTO subtests (exam_id, name, sort_order, points_per_question, duration_minutes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		st.ExamID, st.Name, st.Order, st.PointsPerQuestion, st.DurationMinutes,
	).Scan(&st.ID)
}

// UpdateSubTest writes a sub-test.
func (s *Store) UpdateSubTest(ctx context.Context, st *model.SubTest) error {
	return affected(s.db(ctx).Exec(ctx,
		`UPDATE subtests SET name = $1, sort_order = $2, points_per_question = $3, duration_minutes = $4
		 WHERE id = $5`,
		st.Name, st.Order, st.PointsPerQuestion, st.DurationMinutes, st.ID))
}

// DeleteSubTest removes a sub-test.
func (s *Store) DeleteSubTest(ctx context.Context, id int64) error {
	return affected(s.db(ctx).Exec(ctx, `DELETE FROM subtests WHERE id = $1`, id))
}
