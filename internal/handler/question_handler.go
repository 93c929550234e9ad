package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// QuestionHandler handles question assembly endpoints (wizard step 5).
type QuestionHandler struct {
	questionService *service.QuestionService
	errs            *ErrorResponder
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, errs *ErrorResponder) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, errs: errs}
}

// ListQuestions godoc
// GET /api/v1/admin/exams/:id/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.questionService.List(c.Request.Context(), examID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"preguntas": items})
}

// ReplaceQuestions godoc
// POST /api/v1/admin/exams/:id/questions
// Replaces the full question set of an exam in one transaction.
func (h *QuestionHandler) ReplaceQuestions(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if !bind(c, &req) {
		return
	}

	items, err := h.questionService.Replace(c.Request.Context(), examID, req.Questions)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"preguntas": items})
}

// RemoveQuestion godoc
// DELETE /api/v1/admin/exams/:id/questions/:question_id
func (h *QuestionHandler) RemoveQuestion(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(c, "question_id")
	if !ok {
		return
	}

	if err := h.questionService.Remove(c.Request.Context(), examID, questionID); err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mensaje": "Pregunta desvinculada."})
}

// ReorderQuestion godoc
// POST /api/v1/admin/exams/:id/questions/reorder
// Moves one question inside a sub-test.
func (h *QuestionHandler) ReorderQuestion(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.ReorderQuestionRequest
	if !bind(c, &req) {
		return
	}

	items, err := h.questionService.Reorder(c.Request.Context(), examID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"preguntas": items})
}

// GenerateRandom godoc
// POST /api/v1/admin/exams/:id/questions/generate-random
// Proposes random bank questions for client-side staging. Nothing is saved.
func (h *QuestionHandler) GenerateRandom(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.GenerateRandomRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.questionService.GenerateRandom(c.Request.Context(), examID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
