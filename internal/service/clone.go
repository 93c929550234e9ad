package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stemsi/exstem-wizard/internal/model"
)

const (
	copyCodeSuffix  = "-COPIA"
	copyTitleSuffix = " (copia)"
	maxCodeLength   = 50
	maxCopyAttempts = 100
)

// IDMap maps source ids to the ids of their clones.
type IDMap map[int64]int64

// CloneResult is a persisted clone together with the id maps used to build it.
type CloneResult struct {
	Aggregate *model.ExamAggregate
	SubTests  IDMap
	Tracks    IDMap
}

// CloneAggregate persists a copy of src as a fresh draft exam with the given
// code. Sub-tests and tracks are created first; rules and question links are
// then rewritten through the resulting id maps. Validity window, publish and
// finalize stamps, attempts and assigned users are not copied. Must run
// inside a transaction.
func CloneAggregate(ctx context.Context, repo Repository, src *model.ExamAggregate, code string, actorID int64) (*CloneResult, error) {
	exam := src.Exam
	exam.ID = 0
	exam.Code = code
	exam.Title = src.Exam.Title + copyTitleSuffix
	exam.State = model.ExamStateDraft
	exam.ValidFrom = nil
	exam.ValidUntil = nil
	exam.PublishedAt = nil
	exam.FinalizedAt = nil
	exam.WizardStep = 0
	exam.CreatedBy = actorID
	if err := repo.CreateExam(ctx, &exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	out := &CloneResult{
		Aggregate: &model.ExamAggregate{Exam: exam, AssignedUsers: []int64{}},
		SubTests:  make(IDMap, len(src.SubTests)),
		Tracks:    make(IDMap, len(src.Tracks)),
	}

	for _, st := range src.SubTests {
		c := st
		c.ID = 0
		c.ExamID = exam.ID
		if err := repo.CreateSubTest(ctx, &c); err != nil {
			return nil, fmt.Errorf("clone subtest %d: %w", st.ID, err)
		}
		out.SubTests[st.ID] = c.ID
		out.Aggregate.SubTests = append(out.Aggregate.SubTests, c)
	}

	for _, t := range src.Tracks {
		c := t
		c.ID = 0
		c.ExamID = exam.ID
		if err := repo.CreateTrack(ctx, &c); err != nil {
			return nil, fmt.Errorf("clone track %d: %w", t.ID, err)
		}
		out.Tracks[t.ID] = c.ID
		out.Aggregate.Tracks = append(out.Aggregate.Tracks, c)
	}

	for _, r := range src.Rules {
		trackID, okTrack := out.Tracks[r.TrackID]
		subTestID, okSubTest := out.SubTests[r.SubTestID]
		if !okTrack || !okSubTest {
			continue
		}
		c := r
		c.ID = 0
		c.TrackID = trackID
		c.SubTestID = subTestID
		if err := repo.CreateRule(ctx, &c); err != nil {
			return nil, fmt.Errorf("clone rule %d: %w", r.ID, err)
		}
		out.Aggregate.Rules = append(out.Aggregate.Rules, c)
	}

	if first := out.Aggregate.FirstSubTest(); first != nil && len(src.Assignments) > 0 {
		staging := NewStaging(nil)
		for _, a := range src.Assignments {
			subTestID, ok := out.SubTests[a.SubTestID]
			if !ok {
				subTestID = first.ID
			}
			if err := staging.Add(model.QuestionAssignment{
				ExamID:     exam.ID,
				QuestionID: a.QuestionID,
				SubTestID:  subTestID,
				Order:      a.Order,
				ContextID:  a.ContextID,
			}); err != nil {
				return nil, fmt.Errorf("clone question links: %w", err)
			}
		}
		staging.Renumber()
		items := sortAssignments(staging.Items(), out.Aggregate.SubTests)
		if err := repo.ReplaceAssignments(ctx, exam.ID, items); err != nil {
			return nil, fmt.Errorf("clone question links: %w", err)
		}
		out.Aggregate.Assignments = items
	}

	if advanceWizardStep(&out.Aggregate.Exam, out.Aggregate) {
		if err := repo.UpdateExam(ctx, &out.Aggregate.Exam); err != nil {
			return nil, fmt.Errorf("update wizard step: %w", err)
		}
	}
	return out, nil
}

// copyCode returns the n-th candidate code for a copy of base: base-COPIA,
// base-COPIA2, base-COPIA3 and so on, trimmed to the code column width.
// The width is counted in characters, like VARCHAR.
func copyCode(base string, n int) string {
	suffix := copyCodeSuffix
	if n > 1 {
		suffix = fmt.Sprintf("%s%d", copyCodeSuffix, n)
	}
	runes := []rune(strings.TrimSpace(base))
	if keep := maxCodeLength - len(suffix); len(runes) > keep {
		runes = runes[:keep]
	}
	return string(runes) + suffix
}

func uniqueCopyCode(ctx context.Context, repo Repository, base string) (string, error) {
	for n := 1; n <= maxCopyAttempts; n++ {
		code := copyCode(base, n)
		exists, err := repo.ExamCodeExists(ctx, code, 0)
		if err != nil {
			return "", fmt.Errorf("check exam code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", violation(ErrDuplicateCode, "No hay un código de copia libre para "+base+".")
}
