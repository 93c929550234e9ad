package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
	"github.com/stemsi/exstem-wizard/internal/validator"
)

// ErrorResponder maps service errors to the response envelope.
type ErrorResponder struct {
	log          zerolog.Logger
	exposeDetail bool
}

// NewErrorResponder creates a new ErrorResponder. exposeDetail adds the raw
// error text of unexpected failures to the response.
func NewErrorResponder(log zerolog.Logger, exposeDetail bool) *ErrorResponder {
	return &ErrorResponder{
		log:          log.With().Str("component", "http").Logger(),
		exposeDetail: exposeDetail,
	}
}

// Respond writes the response for err.
func (r *ErrorResponder) Respond(c *gin.Context, err error) {
	var (
		guard *service.GuardViolation
		vErr  *service.ValidationError
	)
	switch {
	case errors.As(err, &vErr):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, vErr.Fields)
	case errors.As(err, &guard):
		r.log.Info().
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Str("code", string(guard.Code)).
			Msg(guard.Message())
		response.FailWithMessage(c, http.StatusUnprocessableEntity, guard.Code, guard.Message(), nil)
	case errors.Is(err, model.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		r.log.Error().
			Err(err).
			Str("request_id", response.RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		var fields map[string]string
		if r.exposeDetail {
			fields = map[string]string{"detail": err.Error()}
		}
		response.FailWithMessage(c, http.StatusInternalServerError, response.ErrInternal, response.GetMessage(response.ErrInternal), fields)
	}
}

// bind decodes and validates the body; it writes the 422 response itself.
func bind(c *gin.Context, dst any) bool {
	if fields := validator.Bind(c, dst); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return false
	}
	return true
}

// pathID parses a positive id path parameter; it writes the 400 response itself.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, ok := validator.ParamID(c, name)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
	}
	return id, ok
}
