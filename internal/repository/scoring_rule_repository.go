package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-wizard/internal/model"
)

const ruleColumns = `r.id, r.track_id, r.subtest_id, r.correct_points, r.incorrect_points,
	r.blank_points, r.min_passing_score`

func scanRule(row pgx.Row) (*model.ScoringRule, error) {
	var r model.ScoringRule
	if err := row.Scan(&r.ID, &r.TrackID, &r.SubTestID, &r.CorrectPoints, &r.IncorrectPoints,
		&r.BlankPoints, &r.MinPassingScore); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// ListRules returns every rule whose track belongs to the exam.
func (s *Store) ListRules(ctx context.Context, examID int64) ([]model.ScoringRule, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT `+ruleColumns+`
		 FROM scoring_rules r
		 JOIN eligibility_tracks t ON t.id = r.track_id
		 WHERE t.exam_id = $1
		 ORDER BY r.track_id, r.subtest_id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []model.ScoringRule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// GetRule retrieves a rule by id.
func (s *Store) GetRule(ctx context.Context, id int64) (*model.ScoringRule, error) {
	return scanRule(s.db(ctx).QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM scoring_rules r WHERE r.id = $1`, id))
}

// RuleExists reports whether the (track, sub-test) pair already has a rule.
func (s *Store) RuleExists(ctx context.Context, trackID, subTestID int64) (bool, error) {
	var exists bool
	err := s.db(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM scoring_rules WHERE track_id = $1 AND subtest_id = $2)`,
		trackID, subTestID,
	).Scan(&exists)
	return exists, err
}

// CreateRule inserts a rule.
func (s *Store) CreateRule(ctx context.Context, r *model.ScoringRule) error {
	return s.db(ctx).QueryRow(ctx,
		`INSERT INTO scoring_rules (track_id, subtest_id, correct_points, incorrect_points,
		                            blank_points, min_passing_score)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		r.TrackID, r.SubTestID, r.CorrectPoints, r.IncorrectPoints, r.BlankPoints, r.MinPassingScore,
	).Scan(&r.ID)
}

// UpdateRule writes the point values of a rule.
func (s *Store) UpdateRule(ctx context.Context, r *model.ScoringRule) error {
	return affected(s.db(ctx).Exec(ctx,
		`UPDATE scoring_rules SET correct_points = $1, incorrect_points = $2,
		        blank_points = $3, min_passing_score = $4
		 WHERE id = $5`,
		r.CorrectPoints, r.IncorrectPoints, r.BlankPoints, r.MinPassingScore, r.ID))
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	return affected(s.db(ctx).Exec(ctx, `DELETE FROM scoring_rules WHERE id = $1`, id))
}

// DeleteRulesForSubTest removes every rule of a sub-test.
func (s *Store) DeleteRulesForSubTest(ctx context.Context, subTestID int64) error {
	_, err := s.db(ctx).Exec(ctx, `DELETE FROM scoring_rules WHERE subtest_id = $1`, subTestID)
	return err
}

// DeleteRulesForTrack removes every rule of a track.
func (s *Store) DeleteRulesForTrack(ctx context.Context, trackID int64) error {
	_, err := s.db(ctx).Exec(ctx, `DELETE FROM scoring_rules WHERE track_id = $1`, trackID)
	return err
}
