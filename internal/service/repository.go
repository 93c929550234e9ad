package service

import (
	"context"
	"time"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// Repository is the persistence port of the wizard core. Implementations
// return model.ErrNotFound for missing rows. InTx runs fn in a single
// transaction carried by the context passed to fn; every repository call made
// with that context joins the transaction, and an error from fn rolls all of
// it back.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	ExamStore
	SubTestStore
	TrackStore
	RuleStore
	AssignmentStore
	QuestionBank
	AttemptStore
	ParticipantStore
}

type ExamStore interface {
	GetExam(ctx context.Context, id int64) (*model.Exam, error)
	// LockExam reads the exam row FOR UPDATE. Outside a transaction it is a plain read.
	LockExam(ctx context.Context, id int64) (*model.Exam, error)
	ListExams(ctx context.Context, filter model.ExamFilter) ([]model.Exam, int, error)
	ListExamIDsByState(ctx context.Context, state model.ExamState) ([]int64, error)
	ExamCodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	CreateExam(ctx context.Context, e *model.Exam) error
	UpdateExam(ctx context.Context, e *model.Exam) error
	DeleteExam(ctx context.Context, id int64) error
	DeleteExamFiles(ctx context.Context, examID int64) (int, error)
}

type SubTestStore interface {
	ListSubTests(ctx context.Context, examID int64) ([]model.SubTest, error)
	GetSubTest(ctx context.Context, id int64) (*model.SubTest, error)
	CreateSubTest(ctx context.Context, st *model.SubTest) error
	UpdateSubTest(ctx context.Context, st *model.SubTest) error
	DeleteSubTest(ctx context.Context, id int64) error
}

type TrackStore interface {
	ListTracks(ctx context.Context, examID int64) ([]model.EligibilityTrack, error)
	GetTrack(ctx context.Context, id int64) (*model.EligibilityTrack, error)
	CreateTrack(ctx context.Context, t *model.EligibilityTrack) error
	UpdateTrack(ctx context.Context, t *model.EligibilityTrack) error
	DeleteTrack(ctx context.Context, id int64) error
}

type RuleStore interface {
	ListRules(ctx context.Context, examID int64) ([]model.ScoringRule, error)
	GetRule(ctx context.Context, id int64) (*model.ScoringRule, error)
	RuleExists(ctx context.Context, trackID, subTestID int64) (bool, error)
	CreateRule(ctx context.Context, r *model.ScoringRule) error
	UpdateRule(ctx context.Context, r *model.ScoringRule) error
	DeleteRule(ctx context.Context, id int64) error
	DeleteRulesForSubTest(ctx context.Context, subTestID int64) error
	DeleteRulesForTrack(ctx context.Context, trackID int64) error
}

type AssignmentStore interface {
	// ListAssignments returns links ordered by sub-test order, then link order.
	ListAssignments(ctx context.Context, examID int64) ([]model.QuestionAssignment, error)
	ReplaceAssignments(ctx context.Context, examID int64, items []model.QuestionAssignment) error
	DeleteAssignment(ctx context.Context, examID, questionID int64) error
	DeleteAssignmentsForSubTest(ctx context.Context, subTestID int64) error
	UpdateAssignmentOrders(ctx context.Context, examID int64, items []model.QuestionAssignment) error
}

type QuestionBank interface {
	FindQuestions(ctx context.Context, ids []int64) ([]model.Question, error)
	// RandomQuestions returns up to filter.Limit matching questions in random order.
	RandomQuestions(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error)
}

type AttemptStore interface {
	CountStartedAttempts(ctx context.Context, examID int64) (int, error)
	CloseStartedAttempts(ctx context.Context, examID int64, at time.Time) (int, error)
	DeleteStartedAttempts(ctx context.Context, examID int64) (int, error)
	ListSubmittedUserIDs(ctx context.Context, examID int64) ([]int64, error)
}

type ParticipantStore interface {
	ListActiveTakerIDs(ctx context.Context) ([]int64, error)
	ListAssignedUserIDs(ctx context.Context, examID int64) ([]int64, error)
	ReplaceAssignedUsers(ctx context.Context, examID int64, userIDs []int64) error
	ExistingUserIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// loadAggregate reads every wizard sub-entity of exam.
func loadAggregate(ctx context.Context, repo Repository, exam *model.Exam) (*model.ExamAggregate, error) {
	agg := &model.ExamAggregate{Exam: *exam}
	var err error
	if agg.SubTests, err = repo.ListSubTests(ctx, exam.ID); err != nil {
		return nil, err
	}
	if agg.Tracks, err = repo.ListTracks(ctx, exam.ID); err != nil {
		return nil, err
	}
	if agg.Rules, err = repo.ListRules(ctx, exam.ID); err != nil {
		return nil, err
	}
	if agg.Assignments, err = repo.ListAssignments(ctx, exam.ID); err != nil {
		return nil, err
	}
	if agg.AssignedUsers, err = repo.ListAssignedUserIDs(ctx, exam.ID); err != nil {
		return nil, err
	}
	return agg, nil
}
