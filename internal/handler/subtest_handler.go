package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// SubTestHandler handles sub-test endpoints (wizard step 2).
type SubTestHandler struct {
	subTestService *service.SubTestService
	errs           *ErrorResponder
}

// NewSubTestHandler creates a new SubTestHandler.
func NewSubTestHandler(subTestService *service.SubTestService, errs *ErrorResponder) *SubTestHandler {
	return &SubTestHandler{subTestService: subTestService, errs: errs}
}

// ListSubTests godoc
// GET /api/v1/admin/exams/:id/subtests
func (h *SubTestHandler) ListSubTests(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	subTests, err := h.subTestService.List(c.Request.Context(), examID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subpruebas": subTests})
}

// CreateSubTest godoc
// POST /api/v1/admin/exams/:id/subtests
func (h *SubTestHandler) CreateSubTest(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.SubTestRequest
	if !bind(c, &req) {
		return
	}

	st, err := h.subTestService.Create(c.Request.Context(), examID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"subprueba": st})
}

// UpdateSubTest godoc
// PUT /api/v1/admin/exams/:id/subtests/:subtest_id
func (h *SubTestHandler) UpdateSubTest(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}
	subTestID, ok := pathID(c, "subtest_id")
	if !ok {
		return
	}

	var req model.SubTestRequest
	if !bind(c, &req) {
		return
	}

	st, err := h.subTestService.Update(c.Request.Context(), examID, subTestID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subprueba": st})
}

// DeleteSubTest godoc
// DELETE /api/v1/admin/exams/:id/subtests/:subtest_id
// Also removes the sub-test's rules and question links.
func (h *SubTestHandler) DeleteSubTest(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}
	subTestID, ok := pathID(c, "subtest_id")
	if !ok {
		return
	}

	if err := h.subTestService.Delete(c.Request.Context(), examID, subTestID); err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mensaje": "Subprueba eliminada."})
}
