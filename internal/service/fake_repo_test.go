package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/model"
)

// fakeData is the whole in-memory database. Every field is a value map so a
// shallow map copy is a full snapshot.
type fakeData struct {
	exams       map[int64]model.Exam
	subTests    map[int64]model.SubTest
	tracks      map[int64]model.EligibilityTrack
	rules       map[int64]model.ScoringRule
	assignments map[[2]int64]model.QuestionAssignment
	attempts    map[int64]model.Attempt
	assigned    map[int64][]int64
	files       map[int64]int
}

func (d fakeData) clone() fakeData {
	return fakeData{
		exams:       copyMap(d.exams),
		subTests:    copyMap(d.subTests),
		tracks:      copyMap(d.tracks),
		rules:       copyMap(d.rules),
		assignments: copyMap(d.assignments),
		attempts:    copyMap(d.attempts),
		assigned:    copyMap(d.assigned),
		files:       copyMap(d.files),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type txKey struct{}

// fakeRepo is an in-memory Repository. InTx restores a snapshot when fn fails.
type fakeRepo struct {
	data      fakeData
	nextID    int64
	questions map[int64]model.Question
	users     map[int64]bool
	takers    []int64

	failLock map[int64]error
	txCount  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		data: fakeData{
			exams:       map[int64]model.Exam{},
			subTests:    map[int64]model.SubTest{},
			tracks:      map[int64]model.EligibilityTrack{},
			rules:       map[int64]model.ScoringRule{},
			assignments: map[[2]int64]model.QuestionAssignment{},
			attempts:    map[int64]model.Attempt{},
			assigned:    map[int64][]int64{},
			files:       map[int64]int{},
		},
		questions: map[int64]model.Question{},
		users:     map[int64]bool{},
		failLock:  map[int64]error{},
	}
}

func (r *fakeRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	r.txCount++
	snapshot := r.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		r.data = snapshot
		return err
	}
	return nil
}

// ── exams ──

func (r *fakeRepo) GetExam(_ context.Context, id int64) (*model.Exam, error) {
	e, ok := r.data.exams[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

func (r *fakeRepo) LockExam(ctx context.Context, id int64) (*model.Exam, error) {
	if err := r.failLock[id]; err != nil {
		return nil, err
	}
	return r.GetExam(ctx, id)
}

func (r *fakeRepo) ListExams(_ context.Context, f model.ExamFilter) ([]model.Exam, int, error) {
	var all []model.Exam
	for _, e := range r.data.exams {
		if f.State != nil && e.State != *f.State {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Code), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if f.Offset >= len(all) {
		return []model.Exam{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r *fakeRepo) ListExamIDsByState(_ context.Context, state model.ExamState) ([]int64, error) {
	var ids []int64
	for id, e := range r.data.exams {
		if e.State == state {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeRepo) ExamCodeExists(_ context.Context, code string, excludeID int64) (bool, error) {
	for id, e := range r.data.exams {
		if id != excludeID && strings.EqualFold(e.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateExam(_ context.Context, e *model.Exam) error {
	e.ID = r.id()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	r.data.exams[e.ID] = *e
	return nil
}

func (r *fakeRepo) UpdateExam(_ context.Context, e *model.Exam) error {
	if _, ok := r.data.exams[e.ID]; !ok {
		return model.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	r.data.exams[e.ID] = *e
	return nil
}

func (r *fakeRepo) DeleteExam(_ context.Context, id int64) error {
	if _, ok := r.data.exams[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.data.exams, id)
	for aid, a := range r.data.attempts {
		if a.ExamID == id {
			delete(r.data.attempts, aid)
		}
	}
	return nil
}

func (r *fakeRepo) DeleteExamFiles(_ context.Context, examID int64) (int, error) {
	n := r.data.files[examID]
	delete(r.data.files, examID)
	return n, nil
}

// ── sub-tests ──

func (r *fakeRepo) ListSubTests(_ context.Context, examID int64) ([]model.SubTest, error) {
	var out []model.SubTest
	for _, st := range r.data.subTests {
		if st.ExamID == examID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *fakeRepo) GetSubTest(_ context.Context, id int64) (*model.SubTest, error) {
	st, ok := r.data.subTests[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &st, nil
}

func (r *fakeRepo) CreateSubTest(_ context.Context, st *model.SubTest) error {
	st.ID = r.id()
	r.data.subTests[st.ID] = *st
	return nil
}

func (r *fakeRepo) UpdateSubTest(_ context.Context, st *model.SubTest) error {
	r.data.subTests[st.ID] = *st
	return nil
}

func (r *fakeRepo) DeleteSubTest(_ context.Context, id int64) error {
	if _, ok := r.data.subTests[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.data.subTests, id)
	return nil
}

// ── tracks ──

func (r *fakeRepo) ListTracks(_ context.Context, examID int64) ([]model.EligibilityTrack, error) {
	var out []model.EligibilityTrack
	for _, t := range r.data.tracks {
		if t.ExamID == examID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetTrack(_ context.Context, id int64) (*model.EligibilityTrack, error) {
	t, ok := r.data.tracks[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

func (r *fakeRepo) CreateTrack(_ context.Context, t *model.EligibilityTrack) error {
	t.ID = r.id()
	r.data.tracks[t.ID] = *t
	return nil
}

func (r *fakeRepo) UpdateTrack(_ context.Context, t *model.EligibilityTrack) error {
	r.data.tracks[t.ID] = *t
	return nil
}

func (r *fakeRepo) DeleteTrack(_ context.Context, id int64) error {
	if _, ok := r.data.tracks[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.data.tracks, id)
	return nil
}

// ── rules ──

func (r *fakeRepo) ListRules(_ context.Context, examID int64) ([]model.ScoringRule, error) {
	var out []model.ScoringRule
	for _, rule := range r.data.rules {
		if t, ok := r.data.tracks[rule.TrackID]; ok && t.ExamID == examID {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetRule(_ context.Context, id int64) (*model.ScoringRule, error) {
	rule, ok := r.data.rules[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &rule, nil
}

func (r *fakeRepo) RuleExists(_ context.Context, trackID, subTestID int64) (bool, error) {
	for _, rule := range r.data.rules {
		if rule.TrackID == trackID && rule.SubTestID == subTestID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateRule(_ context.Context, rule *model.ScoringRule) error {
	rule.ID = r.id()
	r.data.rules[rule.ID] = *rule
	return nil
}

func (r *fakeRepo) UpdateRule(_ context.Context, rule *model.ScoringRule) error {
	r.data.rules[rule.ID] = *rule
	return nil
}

func (r *fakeRepo) DeleteRule(_ context.Context, id int64) error {
	if _, ok := r.data.rules[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.data.rules, id)
	return nil
}

func (r *fakeRepo) DeleteRulesForSubTest(_ context.Context, subTestID int64) error {
	for id, rule := range r.data.rules {
		if rule.SubTestID == subTestID {
			delete(r.data.rules, id)
		}
	}
	return nil
}

func (r *fakeRepo) DeleteRulesForTrack(_ context.Context, trackID int64) error {
	for id, rule := range r.data.rules {
		if rule.TrackID == trackID {
			delete(r.data.rules, id)
		}
	}
	return nil
}

// ── assignments ──

func (r *fakeRepo) ListAssignments(_ context.Context, examID int64) ([]model.QuestionAssignment, error) {
	var out []model.QuestionAssignment
	for _, a := range r.data.assignments {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := r.data.subTests[out[i].SubTestID].Order, r.data.subTests[out[j].SubTestID].Order
		if oi != oj {
			return oi < oj
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (r *fakeRepo) ReplaceAssignments(_ context.Context, examID int64, items []model.QuestionAssignment) error {
	for k, a := range r.data.assignments {
		if a.ExamID == examID {
			delete(r.data.assignments, k)
		}
	}
	for _, a := range items {
		a.ExamID = examID
		r.data.assignments[[2]int64{examID, a.QuestionID}] = a
	}
	return nil
}

func (r *fakeRepo) DeleteAssignment(_ context.Context, examID, questionID int64) error {
	k := [2]int64{examID, questionID}
	if _, ok := r.data.assignments[k]; !ok {
		return model.ErrNotFound
	}
	delete(r.data.assignments, k)
	return nil
}

func (r *fakeRepo) DeleteAssignmentsForSubTest(_ context.Context, subTestID int64) error {
	for k, a := range r.data.assignments {
		if a.SubTestID == subTestID {
			delete(r.data.assignments, k)
		}
	}
	return nil
}

func (r *fakeRepo) UpdateAssignmentOrders(_ context.Context, examID int64, items []model.QuestionAssignment) error {
	for _, a := range items {
		k := [2]int64{examID, a.QuestionID}
		cur, ok := r.data.assignments[k]
		if !ok {
			continue
		}
		cur.Order = a.Order
		r.data.assignments[k] = cur
	}
	return nil
}

// ── question bank ──

func (r *fakeRepo) addQuestion(q model.Question) {
	r.questions[q.ID] = q
}

func (r *fakeRepo) FindQuestions(_ context.Context, ids []int64) ([]model.Question, error) {
	var out []model.Question
	for _, id := range ids {
		if q, ok := r.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeRepo) RandomQuestions(_ context.Context, f model.QuestionFilter) ([]model.Question, error) {
	skip := make(map[int64]bool, len(f.ExcludeIDs))
	for _, id := range f.ExcludeIDs {
		skip[id] = true
	}
	for _, a := range r.data.assignments {
		if a.ExamID == f.ExcludeExamID {
			skip[a.QuestionID] = true
		}
	}
	ids := make([]int64, 0, len(r.questions))
	for id := range r.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []model.Question
	for _, id := range ids {
		q := r.questions[id]
		if skip[id] {
			continue
		}
		if f.CategoryID != nil && (q.CategoryID == nil || *q.CategoryID != *f.CategoryID) {
			continue
		}
		if f.Year != nil && (q.Year == nil || *q.Year != *f.Year) {
			continue
		}
		if f.Code != "" && !strings.Contains(strings.ToLower(q.Code), strings.ToLower(f.Code)) {
			continue
		}
		out = append(out, q)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// ── attempts ──

func (r *fakeRepo) addAttempt(examID, userID int64, state model.AttemptState) int64 {
	a := model.Attempt{ID: r.id(), ExamID: examID, UserID: userID, State: state, StartedAt: time.Now()}
	r.data.attempts[a.ID] = a
	return a.ID
}

func (r *fakeRepo) attemptsOf(examID int64) []model.Attempt {
	var out []model.Attempt
	for _, a := range r.data.attempts {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out
}

func (r *fakeRepo) CountStartedAttempts(_ context.Context, examID int64) (int, error) {
	n := 0
	for _, a := range r.data.attempts {
		if a.ExamID == examID && a.State == model.AttemptStarted {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CloseStartedAttempts(_ context.Context, examID int64, at time.Time) (int, error) {
	n := 0
	for id, a := range r.data.attempts {
		if a.ExamID == examID && a.State == model.AttemptStarted {
			a.State = model.AttemptSubmitted
			finished := at
			a.FinishedAt = &finished
			r.data.attempts[id] = a
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) DeleteStartedAttempts(_ context.Context, examID int64) (int, error) {
	n := 0
	for id, a := range r.data.attempts {
		if a.ExamID == examID && a.State == model.AttemptStarted {
			delete(r.data.attempts, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ListSubmittedUserIDs(_ context.Context, examID int64) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, a := range r.data.attempts {
		if a.ExamID == examID && a.State == model.AttemptSubmitted && !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	return ids, nil
}

// ── participants ──

func (r *fakeRepo) ListActiveTakerIDs(context.Context) ([]int64, error) {
	return append([]int64(nil), r.takers...), nil
}

func (r *fakeRepo) ListAssignedUserIDs(_ context.Context, examID int64) ([]int64, error) {
	return append([]int64(nil), r.data.assigned[examID]...), nil
}

func (r *fakeRepo) ReplaceAssignedUsers(_ context.Context, examID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		delete(r.data.assigned, examID)
		return nil
	}
	r.data.assigned[examID] = append([]int64(nil), userIDs...)
	return nil
}

func (r *fakeRepo) ExistingUserIDs(_ context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		if r.users[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

var _ Repository = (*fakeRepo)(nil)

// recordingListener collects committed mutation events.
type recordingListener struct {
	events []MutationEvent
}

func (l *recordingListener) MutationCompleted(_ context.Context, ev MutationEvent) {
	l.events = append(l.events, ev)
}

func (l *recordingListener) kinds() []MutationKind {
	out := make([]MutationKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

// fixture wires every service over one fake repository.
type fixture struct {
	repo      *fakeRepo
	listener  *recordingListener
	m         *Mutations
	exams     *ExamService
	subTests  *SubTestService
	tracks    *TrackService
	rules     *ScoringRuleService
	questions *QuestionService
}

func newFixture() *fixture {
	repo := newFakeRepo()
	listener := &recordingListener{}
	m := NewMutations(repo, listener, zerolog.New(io.Discard))
	return &fixture{
		repo:      repo,
		listener:  listener,
		m:         m,
		exams:     NewExamService(m, nil),
		subTests:  NewSubTestService(m),
		tracks:    NewTrackService(m),
		rules:     NewScoringRuleService(m),
		questions: NewQuestionService(m),
	}
}

// setClock pins the clock of the lifecycle and the auto-finalizer.
func (f *fixture) setClock(now time.Time) {
	clock := func() time.Time { return now }
	f.m.Lifecycle.now = clock
	f.m.Finalizer.now = clock
}

func int64p(v int64) *int64 { return &v }

func timep(t time.Time) *time.Time { return &t }

// seedExam stores an exam directly, bypassing the services.
func (f *fixture) seedExam(e model.Exam) *model.Exam {
	if e.Code == "" {
		e.Code = "EX-" + time.Now().Format("150405.000000")
	}
	if e.State == 0 {
		e.State = model.ExamStateDraft
	}
	if e.AccessMode == "" {
		e.AccessMode = model.AccessPublic
	}
	if e.TimeLimitMinutes == 0 {
		e.TimeLimitMinutes = 60
	}
	_ = f.repo.CreateExam(context.Background(), &e)
	return &e
}

// seedComplete stores a draft exam with every wizard step complete:
// two sub-tests, one track, both rules, one question per sub-test and a
// two-day window starting at from.
func (f *fixture) seedComplete(from time.Time) (*model.Exam, []model.SubTest, model.EligibilityTrack) {
	ctx := context.Background()
	exam := f.seedExam(model.Exam{
		Code:        "COMPLETE-" + time.Now().Format("150405.000000"),
		TypeID:      int64p(1),
		Title:       "Admisión",
		Description: "Examen de admisión",
		ValidFrom:   timep(from),
		ValidUntil:  timep(from.Add(48 * time.Hour)),
		WizardStep:  WizardSteps,
	})
	sts := make([]model.SubTest, 2)
	for i := range sts {
		sts[i] = model.SubTest{ExamID: exam.ID, Name: "ST", Order: i + 1}
		_ = f.repo.CreateSubTest(ctx, &sts[i])
	}
	track := model.EligibilityTrack{ExamID: exam.ID, Name: "General", ApprovalMode: model.ApprovalJoint}
	_ = f.repo.CreateTrack(ctx, &track)
	for _, st := range sts {
		_ = f.repo.CreateRule(ctx, &model.ScoringRule{TrackID: track.ID, SubTestID: st.ID, CorrectPoints: 1})
	}
	for i, st := range sts {
		q := model.Question{ID: 1000 + int64(i) + exam.ID*10, Code: "Q"}
		f.repo.addQuestion(q)
		_ = f.repo.ReplaceAssignments(ctx, exam.ID, append(mustList(f.repo, exam.ID),
			model.QuestionAssignment{ExamID: exam.ID, QuestionID: q.ID, SubTestID: st.ID, Order: 1}))
	}
	return exam, sts, track
}

func mustList(r *fakeRepo, examID int64) []model.QuestionAssignment {
	items, _ := r.ListAssignments(context.Background(), examID)
	return items
}
