package model

// Question is a question bank item. The bank itself is maintained elsewhere;
// this service only reads it.
type Question struct {
	ID         int64  `json:"id"`
	Code       string `json:"codigo"`
	CategoryID *int64 `json:"idCategoria,omitempty"`
	Year       *int   `json:"ano,omitempty"`
	ContextID  *int64 `json:"idContexto,omitempty"`
	Statement  string `json:"enunciado"`
}

// QuestionFilter selects random candidates from the bank.
type QuestionFilter struct {
	CategoryID    *int64
	Year          *int
	Code          string
	ExcludeIDs    []int64
	ExcludeExamID int64
	Limit         int
}

// QuestionAssignment links a bank question to a sub-test of an exam.
type QuestionAssignment struct {
	ExamID     int64  `json:"idExamen"`
	QuestionID int64  `json:"idPregunta"`
	SubTestID  int64  `json:"idSubprueba"`
	Order      int    `json:"orden"`
	ContextID  *int64 `json:"idContexto,omitempty"`
}

// AssignmentInput is one item of a batch question assignment.
type AssignmentInput struct {
	QuestionID int64 `json:"idPregunta" binding:"required,min=1"`
	SubTestID  int64 `json:"idSubprueba" binding:"omitempty,min=0"`
	Order      int   `json:"orden" binding:"omitempty,min=0"`
}

// ReplaceQuestionsRequest replaces the full question set of an exam. The key
// is required; only an explicit empty list clears the set.
type ReplaceQuestionsRequest struct {
	Questions []AssignmentInput `json:"preguntas" binding:"required,dive"`
}

// ReorderQuestionRequest moves one question inside a sub-test.
type ReorderQuestionRequest struct {
	SubTestID int64 `json:"idSubprueba" binding:"required,min=1"`
	From      int   `json:"desde" binding:"min=0"`
	To        int   `json:"hasta" binding:"min=0"`
}

// GenerateRandomRequest asks for random candidate questions.
type GenerateRandomRequest struct {
	SubTestID        int64   `json:"idSubprueba" binding:"omitempty,min=1"`
	CategoryID       *int64  `json:"idCategoria" binding:"omitempty,min=1"`
	Year             *int    `json:"ano" binding:"omitempty,min=1900,max=2100"`
	Code             string  `json:"codigo" binding:"omitempty,max=50"`
	Count            int     `json:"cantidad" binding:"required,min=1,max=200"`
	CurrentQuestions []int64 `json:"preguntas_actuales" binding:"omitempty"`
}

// Candidate is a randomly proposed question, numbered for client staging.
type Candidate struct {
	QuestionID int64  `json:"idPregunta"`
	Code       string `json:"codigo"`
	Statement  string `json:"enunciado"`
	ContextID  *int64 `json:"idContexto,omitempty"`
	SubTestID  int64  `json:"idSubprueba"`
	Order      int    `json:"orden"`
}
