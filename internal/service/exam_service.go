package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/response"
)

// ExamPage is one cached page of the exam listing.
type ExamPage struct {
	Exams []model.Exam `json:"examenes"`
	Total int          `json:"total"`
}

// ListCache is a read-through cache for exam listings.
type ListCache interface {
	GetExamPage(ctx context.Context, filter model.ExamFilter) (*ExamPage, bool)
	SetExamPage(ctx context.Context, filter model.ExamFilter, page *ExamPage)
}

type nopListCache struct{}

func (nopListCache) GetExamPage(context.Context, model.ExamFilter) (*ExamPage, bool) { return nil, false }
func (nopListCache) SetExamPage(context.Context, model.ExamFilter, *ExamPage)        {}

// WizardState is the client-facing progress summary of an exam.
type WizardState struct {
	Completeness  int             `json:"completitud"`
	CurrentStep   int             `json:"paso_actual"`
	Steps         map[string]bool `json:"estado_pasos"`
	NextStep      *int            `json:"siguiente_paso"`
	CanPublish    bool            `json:"puede_publicar"`
	EnabledSteps  map[string]bool `json:"pasos_habilitados"`
	State         model.ExamState `json:"estado"`
	BlockingCount int             `json:"intentos_en_curso"`
}

// ExamService handles wizard step 1 and 6, assigned users, the state
// endpoint, deletion and duplication.
type ExamService struct {
	*mutator
	guard *AttemptGuard
	cache ListCache
}

// NewExamService creates a new ExamService. cache may be nil.
func NewExamService(m *Mutations, cache ListCache) *ExamService {
	if cache == nil {
		cache = nopListCache{}
	}
	return &ExamService{
		mutator: m.forComponent("exam_service"),
		guard:   m.Guard,
		cache:   cache,
	}
}

// List returns a page of exams, newest first.
func (s *ExamService) List(ctx context.Context, state *model.ExamState, search string, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	filter := model.ExamFilter{
		State:  state,
		Search: strings.TrimSpace(search),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}

	cached, ok := s.cache.GetExamPage(ctx, filter)
	if !ok {
		exams, total, err := s.repo.ListExams(ctx, filter)
		if err != nil {
			return nil, nil, err
		}
		if exams == nil {
			exams = []model.Exam{}
		}
		cached = &ExamPage{Exams: exams, Total: total}
		s.cache.SetExamPage(ctx, filter, cached)
	}

	return cached.Exams, response.NewPagination(page, perPage, cached.Total), nil
}

// Get returns the exam with every wizard sub-entity.
func (s *ExamService) Get(ctx context.Context, id int64) (*model.ExamAggregate, error) {
	exam, err := s.repo.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	return loadAggregate(ctx, s.repo, exam)
}

// Create inserts a new draft exam from step 1 data.
func (s *ExamService) Create(ctx context.Context, actorID int64, req model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Code:             strings.TrimSpace(req.Code),
		TypeID:           req.TypeID,
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		AccessMode:       accessModeOrDefault(req.AccessMode),
		State:            model.ExamStateDraft,
		TimeLimitMinutes: req.TimeLimitMinutes,
		CreatedBy:        actorID,
	}
	advanceWizardStep(exam, &model.ExamAggregate{Exam: *exam})

	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExamCodeExists(ctx, exam.Code, 0)
		if err != nil {
			return fmt.Errorf("check exam code: %w", err)
		}
		if exists {
			return violation(ErrDuplicateCode, "Código: "+exam.Code+".")
		}
		return s.repo.CreateExam(ctx, exam)
	})
	if err != nil {
		return nil, err
	}

	s.listener.MutationCompleted(ctx, MutationEvent{ExamID: exam.ID, Kind: MutationExamCreated})
	s.log.Info().Int64("exam_id", exam.ID).Str("code", exam.Code).Msg("Exam created")
	return exam, nil
}

// UpdateBasics edits step 1 data of a draft exam.
func (s *ExamService) UpdateBasics(ctx context.Context, id int64, req model.UpdateExamRequest) (*model.Exam, error) {
	var result *model.Exam
	err := s.mutate(ctx, id, MutationExamUpdated, s.structural, func(ctx context.Context, exam *model.Exam) error {
		code := strings.TrimSpace(req.Code)
		if code != exam.Code {
			exists, err := s.repo.ExamCodeExists(ctx, code, exam.ID)
			if err != nil {
				return fmt.Errorf("check exam code: %w", err)
			}
			if exists {
				return violation(ErrDuplicateCode, "Código: "+code+".")
			}
		}
		exam.Code = code
		exam.TypeID = req.TypeID
		exam.Title = strings.TrimSpace(req.Title)
		exam.Description = strings.TrimSpace(req.Description)
		exam.AccessMode = accessModeOrDefault(req.AccessMode)
		exam.TimeLimitMinutes = req.TimeLimitMinutes
		result = exam
		return s.repo.UpdateExam(ctx, exam)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateSchedule sets the validity window (step 6).
func (s *ExamService) UpdateSchedule(ctx context.Context, id int64, req model.UpdateScheduleRequest) (*model.Exam, error) {
	var result *model.Exam
	err := s.mutate(ctx, id, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		if err := applyWindow(exam, req.ValidFrom, req.ValidUntil); err != nil {
			return err
		}
		result = exam
		return s.repo.UpdateExam(ctx, exam)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangeState publishes or manually finalizes an exam. Optional dates are
// applied to draft exams before the publish check. A manual finalization
// skips the automatic one, so started attempts are deleted even when the
// window has already ended.
func (s *ExamService) ChangeState(ctx context.Context, id int64, req model.ChangeStateRequest) (*model.Exam, error) {
	target, err := model.ParseExamState(req.State)
	if err != nil {
		return nil, invalidField("estado", "estado desconocido")
	}

	var result *model.Exam
	opts := runOptions{skipFinalize: target == model.ExamStateFinalized}
	err = s.run(ctx, id, MutationStateChanged, noGuard, func(ctx context.Context, exam *model.Exam) error {
		switch target {
		case model.ExamStatePublished:
			if exam.State == model.ExamStateDraft && (req.ValidFrom != nil || req.ValidUntil != nil) {
				from, until := exam.ValidFrom, exam.ValidUntil
				if req.ValidFrom != nil {
					from = req.ValidFrom
				}
				if req.ValidUntil != nil {
					until = req.ValidUntil
				}
				if err := applyWindow(exam, from, until); err != nil {
					return err
				}
			}
			if err := s.lifecycle.Publish(ctx, exam); err != nil {
				return err
			}
			s.log.Info().Int64("exam_id", exam.ID).Msg("Exam published")
		case model.ExamStateFinalized:
			deleted, err := s.lifecycle.FinalizeManually(ctx, exam)
			if err != nil {
				return err
			}
			s.log.Info().Int64("exam_id", exam.ID).Int("deleted_attempts", deleted).Msg("Exam finalized manually")
		default:
			return CheckTransition(exam.State, target)
		}
		result = exam
		return nil
	}, opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an exam and everything it owns.
func (s *ExamService) Delete(ctx context.Context, id int64) error {
	err := s.run(ctx, id, MutationExamDeleted, noGuard, s.lifecycle.Delete, runOptions{skipRefresh: true})
	if err != nil {
		return err
	}
	s.log.Info().Int64("exam_id", id).Msg("Exam deleted")
	return nil
}

// Duplicate copies an exam in any state into a new draft.
func (s *ExamService) Duplicate(ctx context.Context, id, actorID int64) (*model.ExamAggregate, error) {
	var clone *CloneResult
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		exam, err := s.repo.GetExam(ctx, id)
		if err != nil {
			return err
		}
		src, err := loadAggregate(ctx, s.repo, exam)
		if err != nil {
			return fmt.Errorf("load aggregate: %w", err)
		}
		code, err := uniqueCopyCode(ctx, s.repo, exam.Code)
		if err != nil {
			return err
		}
		clone, err = CloneAggregate(ctx, s.repo, src, code, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	newID := clone.Aggregate.Exam.ID
	s.listener.MutationCompleted(ctx, MutationEvent{ExamID: newID, Kind: MutationExamCreated})
	s.log.Info().
		Int64("source_exam_id", id).
		Int64("exam_id", newID).
		Int("subtests", len(clone.SubTests)).
		Int("tracks", len(clone.Tracks)).
		Msg("Exam duplicated")
	return clone.Aggregate, nil
}

// WizardState summarises completeness and navigation for the wizard UI.
func (s *ExamService) WizardState(ctx context.Context, id int64) (*WizardState, error) {
	agg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	_, blocking, err := s.guard.HasBlockingAttempts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}

	c := NewCompleteness(agg)
	ws := &WizardState{
		Completeness:  c.Overall(),
		CurrentStep:   agg.Exam.WizardStep,
		Steps:         make(map[string]bool, WizardSteps),
		EnabledSteps:  make(map[string]bool, WizardSteps),
		State:         agg.Exam.State,
		BlockingCount: blocking,
	}
	for n, done := range c.Steps() {
		ws.Steps[strconv.Itoa(n)] = done
		ws.EnabledSteps[strconv.Itoa(n)] = c.CanEnterStep(n)
	}
	if next := c.NextIncompleteStep(); next != 0 {
		ws.NextStep = &next
	}
	ws.CanPublish = agg.Exam.State == model.ExamStateDraft && ws.Completeness == 100
	return ws, nil
}

// AssignUsers replaces the participants of a private exam.
func (s *ExamService) AssignUsers(ctx context.Context, id int64, userIDs []int64) ([]int64, error) {
	ids := uniqueIDs(userIDs)
	err := s.mutate(ctx, id, MutationWizardChanged, s.structural, func(ctx context.Context, exam *model.Exam) error {
		if exam.AccessMode != model.AccessPrivate {
			return invalidField("usuarios", "solo los exámenes privados admiten usuarios asignados")
		}
		if len(ids) > 0 {
			existing, err := s.repo.ExistingUserIDs(ctx, ids)
			if err != nil {
				return fmt.Errorf("check users: %w", err)
			}
			if missing := missingIDs(ids, existing); len(missing) > 0 {
				return invalidField("usuarios", "usuarios inexistentes: "+joinIDs(missing))
			}
		}
		return s.repo.ReplaceAssignedUsers(ctx, exam.ID, ids)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func noGuard(context.Context, *model.Exam) error { return nil }

// applyWindow sets both validity dates; the end must be after the start.
func applyWindow(exam *model.Exam, from, until *time.Time) error {
	if from == nil || until == nil {
		return invalidField("fecha_fin_vigencia", "se requieren ambas fechas de vigencia")
	}
	if !until.After(*from) {
		return invalidField("fecha_fin_vigencia", "debe ser posterior a la fecha de inicio")
	}
	f, u := from.UTC(), until.UTC()
	exam.ValidFrom = &f
	exam.ValidUntil = &u
	return nil
}

func accessModeOrDefault(m model.AccessMode) model.AccessMode {
	if m == "" {
		return model.AccessPublic
	}
	return m
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missingIDs(want, have []int64) []int64 {
	found := make(map[int64]struct{}, len(have))
	for _, id := range have {
		found[id] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
