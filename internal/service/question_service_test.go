package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// questionFixture stores a draft exam with two sub-tests and a bank of
// questions 1..n; questions 1 and 2 share context 77.
func questionFixture(t *testing.T, n int) (*fixture, *model.Exam, []model.SubTest) {
	t.Helper()
	f := newFixture()
	ctx := context.Background()
	exam := f.seedExam(model.Exam{Code: "Q-EXAM"})
	sts := []model.SubTest{{ExamID: exam.ID, Name: "A", Order: 1}, {ExamID: exam.ID, Name: "B", Order: 2}}
	for i := range sts {
		if err := f.repo.CreateSubTest(ctx, &sts[i]); err != nil {
			t.Fatal(err)
		}
	}
	for id := int64(1); id <= int64(n); id++ {
		q := model.Question{ID: id, Code: "P"}
		if id <= 2 {
			q.ContextID = int64p(77)
		}
		f.repo.addQuestion(q)
	}
	return f, exam, sts
}

func TestQuestionService_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults subtest and renumbers", func(t *testing.T) {
		f, exam, sts := questionFixture(t, 5)
		items, err := f.questions.Replace(ctx, exam.ID, []model.AssignmentInput{
			{QuestionID: 3, SubTestID: sts[1].ID, Order: 9},
			{QuestionID: 1},
			{QuestionID: 2, SubTestID: 12345},
			{QuestionID: 4, SubTestID: sts[1].ID, Order: 2},
		})
		if err != nil {
			t.Fatalf("Replace: %v", err)
		}
		got := map[int64]model.QuestionAssignment{}
		for _, a := range items {
			got[a.QuestionID] = a
		}
		if got[1].SubTestID != sts[0].ID || got[2].SubTestID != sts[0].ID {
			t.Errorf("questions without a valid subtest must land in the first one: %+v", items)
		}
		if got[1].Order != 1 || got[2].Order != 2 {
			t.Errorf("first subtest orders = %d, %d", got[1].Order, got[2].Order)
		}
		if got[4].Order != 1 || got[3].Order != 2 {
			t.Errorf("second subtest orders = %d, %d", got[4].Order, got[3].Order)
		}
		if got[1].ContextID == nil || *got[1].ContextID != 77 {
			t.Error("context must be copied from the bank")
		}
		if items[0].SubTestID != sts[0].ID {
			t.Error("result must be sorted by subtest order")
		}
		if len(mustList(f.repo, exam.ID)) != 4 {
			t.Error("links not stored")
		}
	})

	t.Run("advances the wizard step", func(t *testing.T) {
		f, exam, sts := questionFixture(t, 2)
		track := model.EligibilityTrack{ExamID: exam.ID, Name: "G"}
		_ = f.repo.CreateTrack(ctx, &track)
		for _, st := range sts {
			_ = f.repo.CreateRule(ctx, &model.ScoringRule{TrackID: track.ID, SubTestID: st.ID})
		}
		stored, _ := f.repo.GetExam(ctx, exam.ID)
		stored.TypeID, stored.Title, stored.Description = int64p(1), "T", "D"
		_ = f.repo.UpdateExam(ctx, stored)

		_, err := f.questions.Replace(ctx, exam.ID, []model.AssignmentInput{
			{QuestionID: 1, SubTestID: sts[0].ID},
			{QuestionID: 2, SubTestID: sts[1].ID},
		})
		if err != nil {
			t.Fatalf("Replace: %v", err)
		}
		after, _ := f.repo.GetExam(ctx, exam.ID)
		if after.WizardStep != 5 {
			t.Errorf("wizard step = %d, want 5", after.WizardStep)
		}
	})

	t.Run("rejects repeated and unknown questions", func(t *testing.T) {
		f, exam, _ := questionFixture(t, 2)
		_, err := f.questions.Replace(ctx, exam.ID, []model.AssignmentInput{{QuestionID: 1}, {QuestionID: 1}})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("repeated: err = %v, want ValidationError", err)
		}
		_, err = f.questions.Replace(ctx, exam.ID, []model.AssignmentInput{{QuestionID: 1}, {QuestionID: 99}})
		if !errors.As(err, &ve) {
			t.Errorf("unknown: err = %v, want ValidationError", err)
		}
	})

	t.Run("requires a subtest", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(model.Exam{})
		f.repo.addQuestion(model.Question{ID: 1})
		_, err := f.questions.Replace(ctx, exam.ID, []model.AssignmentInput{{QuestionID: 1}})
		if !errors.Is(err, ErrNoSubTestConfigured) {
			t.Errorf("err = %v, want NoSubTestConfigured", err)
		}
	})

	t.Run("empty set", func(t *testing.T) {
		f, exam, sts := questionFixture(t, 1)
		_ = f.repo.ReplaceAssignments(ctx, exam.ID, []model.QuestionAssignment{{QuestionID: 1, SubTestID: sts[0].ID, Order: 1}})

		if _, err := f.questions.Replace(ctx, exam.ID, nil); err != nil {
			t.Fatalf("draft empty replace: %v", err)
		}
		if len(mustList(f.repo, exam.ID)) != 0 {
			t.Error("links left after empty replace")
		}

		_ = f.repo.ReplaceAssignments(ctx, exam.ID, []model.QuestionAssignment{{QuestionID: 1, SubTestID: sts[0].ID, Order: 1}})
		stored, _ := f.repo.GetExam(ctx, exam.ID)
		stored.State = model.ExamStatePublished
		_ = f.repo.UpdateExam(ctx, stored)
		var ve *ValidationError
		if _, err := f.questions.Replace(ctx, exam.ID, nil); !errors.As(err, &ve) {
			t.Errorf("published empty replace err = %v, want ValidationError", err)
		}
		if len(mustList(f.repo, exam.ID)) != 1 {
			t.Error("a rejected replace must not touch stored links")
		}
	})

	t.Run("blocked by started attempts", func(t *testing.T) {
		f, exam, _ := questionFixture(t, 1)
		stored, _ := f.repo.GetExam(ctx, exam.ID)
		stored.State = model.ExamStatePublished
		_ = f.repo.UpdateExam(ctx, stored)
		f.repo.addAttempt(exam.ID, 1, model.AttemptStarted)

		_, err := f.questions.Replace(ctx, exam.ID, []model.AssignmentInput{{QuestionID: 1}})
		if !errors.Is(err, ErrAttemptsInProgress) {
			t.Errorf("err = %v, want AttemptsInProgress", err)
		}
		if len(f.listener.events) != 0 {
			t.Errorf("events = %v, want none", f.listener.kinds())
		}
	})
}

func TestQuestionService_RemoveAndReorder(t *testing.T) {
	ctx := context.Background()
	f, exam, sts := questionFixture(t, 4)
	_, err := f.questions.Replace(ctx, exam.ID, []model.AssignmentInput{
		{QuestionID: 1, SubTestID: sts[0].ID},
		{QuestionID: 2, SubTestID: sts[0].ID},
		{QuestionID: 3, SubTestID: sts[0].ID},
		{QuestionID: 4, SubTestID: sts[1].ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.questions.Remove(ctx, exam.ID, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got := orders(mustList(f.repo, exam.ID))
	if got[2] != 1 || got[3] != 2 || got[4] != 1 {
		t.Errorf("orders after remove = %v", got)
	}
	if err := f.questions.Remove(ctx, exam.ID, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second remove err = %v, want ErrNotFound", err)
	}

	items, err := f.questions.Reorder(ctx, exam.ID, model.ReorderQuestionRequest{SubTestID: sts[0].ID, From: 1, To: 0})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	got = orders(items)
	if got[3] != 1 || got[2] != 2 {
		t.Errorf("orders after reorder = %v", got)
	}

	var ve *ValidationError
	if _, err := f.questions.Reorder(ctx, exam.ID, model.ReorderQuestionRequest{SubTestID: sts[0].ID, From: 0, To: 5}); !errors.As(err, &ve) {
		t.Errorf("out of range err = %v, want ValidationError", err)
	}

	other := f.seedExam(model.Exam{Code: "OTHER"})
	foreign := model.SubTest{ExamID: other.ID, Order: 1}
	_ = f.repo.CreateSubTest(ctx, &foreign)
	if _, err := f.questions.Reorder(ctx, exam.ID, model.ReorderQuestionRequest{SubTestID: foreign.ID}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("foreign subtest err = %v, want ErrNotFound", err)
	}
}

func TestQuestionService_GenerateRandom(t *testing.T) {
	ctx := context.Background()

	t.Run("excludes stored and staged questions", func(t *testing.T) {
		f, exam, sts := questionFixture(t, 8)
		_ = f.repo.ReplaceAssignments(ctx, exam.ID, []model.QuestionAssignment{
			{QuestionID: 5, SubTestID: sts[1].ID, Order: 1},
			{QuestionID: 6, SubTestID: sts[1].ID, Order: 2},
		})
		res, err := f.questions.GenerateRandom(ctx, exam.ID, model.GenerateRandomRequest{
			SubTestID:        sts[1].ID,
			Count:            3,
			CurrentQuestions: []int64{3},
		})
		if err != nil {
			t.Fatalf("GenerateRandom: %v", err)
		}
		if res.Count != 3 || len(res.Candidates) != 3 {
			t.Fatalf("count = %d, want 3", res.Count)
		}
		for i, c := range res.Candidates {
			if c.QuestionID == 3 || c.QuestionID == 5 || c.QuestionID == 6 {
				t.Errorf("excluded question %d proposed", c.QuestionID)
			}
			if c.SubTestID != sts[1].ID {
				t.Errorf("candidate subtest = %d", c.SubTestID)
			}
			if c.Order != 3+i {
				t.Errorf("candidate %d order = %d, want %d", i, c.Order, 3+i)
			}
		}
		if len(mustList(f.repo, exam.ID)) != 2 {
			t.Error("random generation must not write")
		}
	})

	t.Run("keeps context groups together", func(t *testing.T) {
		f, exam, _ := questionFixture(t, 3)
		res, err := f.questions.GenerateRandom(ctx, exam.ID, model.GenerateRandomRequest{Count: 3})
		if err != nil {
			t.Fatal(err)
		}
		if res.Candidates[0].QuestionID != 1 || res.Candidates[1].QuestionID != 2 {
			t.Errorf("context group split: %+v", res.Candidates)
		}
		if res.Candidates[0].SubTestID == 0 {
			t.Error("missing subtest should default to the first one")
		}
	})

	t.Run("shortage on draft is partial", func(t *testing.T) {
		f, exam, _ := questionFixture(t, 2)
		res, err := f.questions.GenerateRandom(ctx, exam.ID, model.GenerateRandomRequest{Count: 5})
		if err != nil {
			t.Fatalf("GenerateRandom: %v", err)
		}
		if res.Count != 2 || res.Message == "" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("shortage on published fails", func(t *testing.T) {
		f, exam, _ := questionFixture(t, 2)
		stored, _ := f.repo.GetExam(ctx, exam.ID)
		stored.State = model.ExamStatePublished
		stored.ValidUntil = timep(time.Now().Add(time.Hour))
		_ = f.repo.UpdateExam(ctx, stored)

		_, err := f.questions.GenerateRandom(ctx, exam.ID, model.GenerateRandomRequest{Count: 5})
		var gv *GuardViolation
		if !errors.As(err, &gv) || gv.Code != ErrInsufficientQuestions.Code {
			t.Fatalf("err = %v, want InsufficientQuestions", err)
		}
		if gv.Available != 2 || gv.Requested != 5 {
			t.Errorf("available/requested = %d/%d", gv.Available, gv.Requested)
		}
	})

	t.Run("finalized exam", func(t *testing.T) {
		f, exam, _ := questionFixture(t, 2)
		stored, _ := f.repo.GetExam(ctx, exam.ID)
		stored.State = model.ExamStateFinalized
		_ = f.repo.UpdateExam(ctx, stored)
		if _, err := f.questions.GenerateRandom(ctx, exam.ID, model.GenerateRandomRequest{Count: 1}); !errors.Is(err, ErrExamFinalized) {
			t.Errorf("err = %v, want ExamFinalized", err)
		}
	})
}
