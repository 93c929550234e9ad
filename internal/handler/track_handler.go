package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// TrackHandler handles eligibility track endpoints (wizard step 3).
type TrackHandler struct {
	trackService *service.TrackService
	errs         *ErrorResponder
}

// NewTrackHandler creates a new TrackHandler.
func NewTrackHandler(trackService *service.TrackService, errs *ErrorResponder) *TrackHandler {
	return &TrackHandler{trackService: trackService, errs: errs}
}

// ListTracks godoc
// GET /api/v1/admin/exams/:id/tracks
func (h *TrackHandler) ListTracks(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tracks, err := h.trackService.List(c.Request.Context(), examID)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"postulaciones": tracks})
}

// CreateTrack godoc
// POST /api/v1/admin/exams/:id/tracks
func (h *TrackHandler) CreateTrack(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.TrackRequest
	if !bind(c, &req) {
		return
	}

	t, err := h.trackService.Create(c.Request.Context(), examID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"postulacion": t})
}

// UpdateTrack godoc
// PUT /api/v1/admin/exams/:id/tracks/:track_id
func (h *TrackHandler) UpdateTrack(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}
	trackID, ok := pathID(c, "track_id")
	if !ok {
		return
	}

	var req model.TrackRequest
	if !bind(c, &req) {
		return
	}

	t, err := h.trackService.Update(c.Request.Context(), examID, trackID, req)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"postulacion": t})
}

// DeleteTrack godoc
// DELETE /api/v1/admin/exams/:id/tracks/:track_id
func (h *TrackHandler) DeleteTrack(c *gin.Context) {
	examID, ok := pathID(c, "id")
	if !ok {
		return
	}
	trackID, ok := pathID(c, "track_id")
	if !ok {
		return
	}

	if err := h.trackService.Delete(c.Request.Context(), examID, trackID); err != nil {
		h.errs.Respond(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mensaje": "Postulación eliminada."})
}
