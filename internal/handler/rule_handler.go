package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// RuleHandler handles scoring rule endpoints (wizard step 4).
type RuleHandler struct {
	ruleService *service.ScoringRuleService
	errs        *ErrorResponder
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleService *service.ScoringRuleService, errs *ErrorResponder) *RuleHandler {
	return &RuleHandler{ruleService: ruleService, errs: errs}
}

// ListRules godoc
// GET /api/v1/admin/exams/:id/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	rules, err := h.ruleService.List(c.Request.Context(), examID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reglas": rules})
}

// CreateRule godoc
// POST /api/v1/admin/exams/:id/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.CreateRuleRequest
	if !bind(c, &req) {
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), examID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"regla": rule})
}

// UpdateRule godoc
// PUT /api/v1/admin/exams/:id/rules/:rule_id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "rule_id")
	if !ok {
		return
	}

	var req model.UpdateRuleRequest
	if !bind(c, &req) {
		return
	}

	rule, err := h.ruleService.Update(c.Request.Context(), examID, ruleID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"regla": rule})
}

// DeleteRule godoc
// DELETE /api/v1/admin/exams/:id/rules/:rule_id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "rule_id")
	if !ok {
		return
	}

	if err := h.ruleService.Delete(c.Request.Context(), examID, ruleID); err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mensaje": "Regla eliminada."})
}
