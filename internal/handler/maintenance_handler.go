package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// MaintenanceHandler exposes operator-triggered jobs.
type MaintenanceHandler struct {
	finalizer *service.AutoFinalizer
	errs      *ErrorResponder
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(finalizer *service.AutoFinalizer, errs *ErrorResponder) *MaintenanceHandler {
	return &MaintenanceHandler{finalizer: finalizer, errs: errs}
}

// CloseFinishedAttempts godoc
// POST /api/v1/admin/maintenance/close-finished-attempts
// Finalizes every published exam that is due. Per-exam failures are reported
// in the body and do not fail the request.
func (h *MaintenanceHandler) CloseFinishedAttempts(c *gin.Context) {
	report, err := h.finalizer.Sweep(c.Request.Context())
	if report == nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}
