package model

// ExamAggregate is an exam with every wizard sub-entity loaded.
type ExamAggregate struct {
	Exam          Exam                 `json:"examen"`
	SubTests      []SubTest            `json:"subpruebas"`
	Tracks        []EligibilityTrack   `json:"postulaciones"`
	Rules         []ScoringRule        `json:"reglas"`
	Assignments   []QuestionAssignment `json:"preguntas"`
	AssignedUsers []int64              `json:"usuarios_asignados"`
}

// FirstSubTest returns the sub-test with the lowest order, or nil.
func (a *ExamAggregate) FirstSubTest() *SubTest {
	var first *SubTest
	for i := range a.SubTests {
		if first == nil || a.SubTests[i].Order < first.Order {
			first = &a.SubTests[i]
		}
	}
	return first
}

// SubTestByID finds a sub-test of this exam.
func (a *ExamAggregate) SubTestByID(id int64) *SubTest {
	for i := range a.SubTests {
		if a.SubTests[i].ID == id {
			return &a.SubTests[i]
		}
	}
	return nil
}
