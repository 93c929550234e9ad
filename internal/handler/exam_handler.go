package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-wizard/internal/middleware"
	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
	errs        *ErrorResponder
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, errs *ErrorResponder) *ExamHandler {
	return &ExamHandler{examService: examService, errs: errs}
}

// ListExams godoc
// GET /api/v1/admin/exams?estado=&q=&page=&per_page=
// Lists exams with pagination, newest first.
func (h *ExamHandler) ListExams(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	var state *model.ExamState
	if code := c.Query("estado"); code != "" {
		s, err := model.ParseExamState(code)
		if err != nil {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
				map[string]string{"estado": "estado desconocido"})
			return
		}
		state = &s
	}

	exams, pagination, err := h.examService.List(c.Request.Context(), state, c.Query("q"), page, perPage)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"examenes": exams}, pagination)
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Creates a new draft exam from step 1 data.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if !bind(c, &req) {
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"examen": exam})
}

// GetExam godoc
// GET /api/v1/admin/exams/:id
// Returns the exam with every wizard sub-entity.
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	agg, err := h.examService.Get(c.Request.Context(), id)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, agg)
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if !bind(c, &req) {
		return
	}

	exam, err := h.examService.UpdateBasics(c.Request.Context(), id, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"examen": exam})
}

// UpdateSchedule godoc
// PUT /api/v1/admin/exams/:id/schedule
// Sets the validity window (wizard step 6).
func (h *ExamHandler) UpdateSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateScheduleRequest
	if !bind(c, &req) {
		return
	}

	exam, err := h.examService.UpdateSchedule(c.Request.Context(), id, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"examen": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mensaje": "Examen eliminado."})
}

// ChangeState godoc
// POST /api/v1/admin/exams/:id/state
// Publishes ("1") or finalizes ("2") an exam.
func (h *ExamHandler) ChangeState(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.ChangeStateRequest
	if !bind(c, &req) {
		return
	}

	exam, err := h.examService.ChangeState(c.Request.Context(), id, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"examen": exam})
}

// DuplicateExam godoc
// POST /api/v1/admin/exams/:id/duplicate
// Copies an exam in any state into a new draft.
func (h *ExamHandler) DuplicateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	agg, err := h.examService.Duplicate(c.Request.Context(), id, claims.UserID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusCreated, agg)
}

// WizardState godoc
// GET /api/v1/admin/exams/:id/wizard-state
func (h *ExamHandler) WizardState(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	state, err := h.examService.WizardState(c.Request.Context(), id)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// AssignUsers godoc
// PUT /api/v1/admin/exams/:id/users
// Replaces the participants of a private exam.
func (h *ExamHandler) AssignUsers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.AssignUsersRequest
	if !bind(c, &req) {
		return
	}

	ids, err := h.examService.AssignUsers(c.Request.Context(), id, req.UserIDs)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"usuarios": ids})
}
