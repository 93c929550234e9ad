package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-wizard/internal/model"
)

const trackColumns = `id, exam_id, name, description, approval_mode`

func scanTrack(row pgx.Row) (*model.EligibilityTrack, error) {
	var t model.EligibilityTrack
	if err := row.Scan(&t.ID, &t.ExamID, &t.Name, &t.Description, &t.ApprovalMode); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ListTracks returns the eligibility tracks of an exam.
func (s *Store) ListTracks(ctx context.Context, examID int64) ([]model.EligibilityTrack, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT `+trackColumns+` FROM eligibility_tracks WHERE exam_id = $1 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := []model.EligibilityTrack{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// GetTrack retrieves a track by id.
func (s *Store) GetTrack(ctx context.Context, id int64) (*model.EligibilityTrack, error) {
	return scanTrack(s.db(ctx).QueryRow(ctx,
		`SELECT `+trackColumns+` FROM eligibility_tracks WHERE id = $1`, id))
}

// CreateTrack inserts a track.
func (s *Store) CreateTrack(ctx context.Context, t *model.EligibilityTrack) error {
	return s.db(ctx).QueryRow(ctx,
		`INSERT INTO eligibility_tracks (exam_id, name, description, approval_mode)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		t.ExamID, t.Name, t.Description, t.ApprovalMode,
	).Scan(&t.ID)
}

// UpdateTrack writes a track.
func (s *Store) UpdateTrack(ctx context.Context, t *model.EligibilityTrack) error {
	return affected(s.db(ctx).Exec(ctx,
		`UPDATE eligibility_tracks SET name = $1, description = $2, approval_mode = $3 WHERE id = $4`,
		t.Name, t.Description, t.ApprovalMode, t.ID))
}

// DeleteTrack removes a track.
func (s *Store) DeleteTrack(ctx context.Context, id int64) error {
	return affected(s.db(ctx).Exec(ctx, `DELETE FROM eligibility_tracks WHERE id = $1`, id))
}
