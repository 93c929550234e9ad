package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// RandomCandidates is the result of a random generation request.
type RandomCandidates struct {
	Candidates []model.Candidate `json:"preguntas_disponibles"`
	Count      int               `json:"cantidad"`
	Message    string            `json:"mensaje"`
}

// QuestionService assembles questions into the sub-tests of an exam.
type QuestionService struct {
	*mutator
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(m *Mutations) *QuestionService {
	return &QuestionService{mutator: m.forComponent("question_service")}
}

// List returns the exam's question links ordered by sub-test and order.
func (s *QuestionService) List(ctx context.Context, examID int64) ([]model.QuestionAssignment, error) {
	if _, err := s.repo.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.repo.ListAssignments(ctx, examID)
}

// Replace detaches every question of the exam and attaches the given set.
// An empty set is accepted on draft exams only.
func (s *QuestionService) Replace(ctx context.Context, examID int64, inputs []model.AssignmentInput) ([]model.QuestionAssignment, error) {
	var saved []model.QuestionAssignment
	err := s.mutate(ctx, examID, MutationQuestionsChange, s.questions, func(ctx context.Context, exam *model.Exam) error {
		if len(inputs) == 0 && exam.State != model.ExamStateDraft {
			return invalidField("preguntas", "un examen publicado debe conservar al menos una pregunta")
		}

		items, err := s.resolveInputs(ctx, exam, inputs)
		if err != nil {
			return err
		}
		if err := s.repo.ReplaceAssignments(ctx, exam.ID, items); err != nil {
			return fmt.Errorf("replace assignments: %w", err)
		}
		saved = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("exam_id", examID).Int("questions", len(saved)).Msg("Questions replaced")
	return saved, nil
}

// resolveInputs validates a batch, defaults missing or foreign sub-tests to
// the first sub-test and renumbers every sub-test from 1.
func (s *QuestionService) resolveInputs(ctx context.Context, exam *model.Exam, inputs []model.AssignmentInput) ([]model.QuestionAssignment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	subTests, err := s.repo.ListSubTests(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list subtests: %w", err)
	}
	agg := &model.ExamAggregate{SubTests: subTests}
	first := agg.FirstSubTest()
	if first == nil {
		return nil, ErrNoSubTestConfigured
	}

	ids := make([]int64, 0, len(inputs))
	seen := make(map[int64]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.QuestionID] {
			return nil, invalidField("preguntas", fmt.Sprintf("la pregunta %d está repetida", in.QuestionID))
		}
		seen[in.QuestionID] = true
		ids = append(ids, in.QuestionID)
	}

	questions, err := s.repo.FindQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	byID := make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		return nil, invalidField("preguntas", "preguntas inexistentes: "+strings.Join(missing, ", "))
	}

	staging := NewStaging(nil)
	for _, in := range inputs {
		subTestID := in.SubTestID
		if agg.SubTestByID(subTestID) == nil {
			subTestID = first.ID
		}
		order := in.Order
		if order <= 0 {
			order = math.MaxInt32
		}
		q := byID[in.QuestionID]
		if err := staging.Add(model.QuestionAssignment{
			ExamID:     exam.ID,
			QuestionID: in.QuestionID,
			SubTestID:  subTestID,
			Order:      order,
			ContextID:  q.ContextID,
		}); err != nil {
			return nil, fmt.Errorf("stage question: %w", err)
		}
	}
	staging.Renumber()
	return sortAssignments(staging.Items(), subTests), nil
}

// Remove unlinks one question and renumbers the remaining links.
func (s *QuestionService) Remove(ctx context.Context, examID, questionID int64) error {
	return s.mutate(ctx, examID, MutationQuestionsChange, s.questions, func(ctx context.Context, exam *model.Exam) error {
		current, err := s.repo.ListAssignments(ctx, exam.ID)
		if err != nil {
			return fmt.Errorf("list assignments: %w", err)
		}
		staging := NewStaging(current)
		if !staging.Remove(questionID) {
			return model.ErrNotFound
		}
		if err := s.repo.DeleteAssignment(ctx, exam.ID, questionID); err != nil {
			return fmt.Errorf("delete assignment: %w", err)
		}
		if err := s.repo.UpdateAssignmentOrders(ctx, exam.ID, staging.Items()); err != nil {
			return fmt.Errorf("renumber assignments: %w", err)
		}
		return nil
	})
}

// Reorder moves a question from position from to position to (zero-based)
// inside one sub-test.
func (s *QuestionService) Reorder(ctx context.Context, examID int64, req model.ReorderQuestionRequest) ([]model.QuestionAssignment, error) {
	var items []model.QuestionAssignment
	err := s.mutate(ctx, examID, MutationQuestionsChange, s.questions, func(ctx context.Context, exam *model.Exam) error {
		st, err := s.repo.GetSubTest(ctx, req.SubTestID)
		if err != nil {
			return err
		}
		if st.ExamID != exam.ID {
			return model.ErrNotFound
		}
		current, err := s.repo.ListAssignments(ctx, exam.ID)
		if err != nil {
			return fmt.Errorf("list assignments: %w", err)
		}
		staging := NewStaging(current)
		if err := staging.Move(req.SubTestID, req.From, req.To); err != nil {
			return invalidField("hasta", err.Error())
		}
		items = staging.Items()
		return s.repo.UpdateAssignmentOrders(ctx, exam.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GenerateRandom proposes random questions for client-side staging. It never
// writes. excludeIDs comes from the client's unsaved state and only widens
// the exclusion; stored links are always excluded too.
func (s *QuestionService) GenerateRandom(ctx context.Context, examID int64, req model.GenerateRandomRequest) (*RandomCandidates, error) {
	if _, err := s.finalizer.FinalizeIfDue(ctx, examID); err != nil {
		return nil, err
	}
	exam, err := s.repo.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.EnsureQuestions(ctx, exam); err != nil {
		return nil, err
	}

	subTests, err := s.repo.ListSubTests(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list subtests: %w", err)
	}
	agg := &model.ExamAggregate{SubTests: subTests}
	target := agg.SubTestByID(req.SubTestID)
	if target == nil {
		target = agg.FirstSubTest()
	}
	if target == nil {
		return nil, ErrNoSubTestConfigured
	}

	stored, err := s.repo.ListAssignments(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	exclude := make([]int64, 0, len(stored)+len(req.CurrentQuestions))
	for _, a := range stored {
		exclude = append(exclude, a.QuestionID)
	}
	exclude = append(exclude, req.CurrentQuestions...)

	pool, err := s.repo.RandomQuestions(ctx, model.QuestionFilter{
		CategoryID:    req.CategoryID,
		Year:          req.Year,
		Code:          strings.TrimSpace(req.Code),
		ExcludeIDs:    exclude,
		ExcludeExamID: examID,
		Limit:         req.Count,
	})
	if err != nil {
		return nil, fmt.Errorf("random questions: %w", err)
	}
	pool = withoutIDs(pool, exclude)
	if len(pool) > req.Count {
		pool = pool[:req.Count]
	}

	message := fmt.Sprintf("Se generaron %d preguntas.", len(pool))
	if len(pool) < req.Count {
		if exam.State == model.ExamStatePublished {
			return nil, insufficientQuestions(len(pool), req.Count)
		}
		message = fmt.Sprintf("Solo se encontraron %d de %d preguntas solicitadas.", len(pool), req.Count)
	}

	next := NewStaging(stored).MaxOrder(target.ID)
	candidates := make([]model.Candidate, 0, len(pool))
	for _, q := range groupByContext(pool) {
		next++
		candidates = append(candidates, model.Candidate{
			QuestionID: q.ID,
			Code:       q.Code,
			Statement:  q.Statement,
			ContextID:  q.ContextID,
			SubTestID:  target.ID,
			Order:      next,
		})
	}

	return &RandomCandidates{Candidates: candidates, Count: len(candidates), Message: message}, nil
}

func withoutIDs(questions []model.Question, ids []int64) []model.Question {
	skip := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := questions[:0:0]
	for _, q := range questions {
		if _, ok := skip[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out
}

// sortAssignments orders links by sub-test order, then by link order.
func sortAssignments(items []model.QuestionAssignment, subTests []model.SubTest) []model.QuestionAssignment {
	rank := make(map[int64]int, len(subTests))
	for _, st := range subTests {
		rank[st.ID] = st.Order
	}
	sort.SliceStable(items, func(i, j int) bool {
		if rank[items[i].SubTestID] != rank[items[j].SubTestID] {
			return rank[items[i].SubTestID] < rank[items[j].SubTestID]
		}
		return items[i].Order < items[j].Order
	})
	return items
}
