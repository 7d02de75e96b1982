package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/keysmith-io/keysmith/api"
	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/logging"
)

// sendAPIError translates err into the appropriate HTTP status code, builds
// a response body using api.Error, then sends both as a response to the
// active request.
func sendAPIError(c *gin.Context, err error) {
	resp := &api.Error{
		Code:    http.StatusInternalServerError,
		Message: "internal server error", // don't leak any info by default
	}

	var validationErrors validator.ValidationErrors

	log := logging.L.Debug()

	switch {
	case errors.Is(err, internal.ErrNotFound):
		resp.Code = http.StatusNotFound
		resp.Message = err.Error()

	case errors.Is(err, internal.ErrDuplicate):
		resp.Code = http.StatusConflict
		resp.Message = err.Error()

	case errors.As(err, &validationErrors):
		resp.Code = http.StatusBadRequest
		resp.Message = "request is invalid"
		for _, fieldError := range validationErrors {
			resp.FieldErrors = append(resp.FieldErrors, api.FieldError{
				FieldName: fieldError.Field(),
				Errors:    []string{fmt.Sprintf("failed the %q check", fieldError.Tag())},
			})
		}

	case errors.Is(err, internal.ErrBadRequest),
		errors.Is(err, internal.ErrInvalidConfiguration),
		errors.Is(err, internal.ErrInvalidKeyState):
		resp.Code = http.StatusBadRequest
		resp.Message = err.Error()

	default:
		log = logging.L.Error()
	}

	log.CallerSkipFrame(1).
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int32("statusCode", resp.Code).
		Str("remoteAddr", c.Request.RemoteAddr).
		Msg("api request error")

	c.JSON(int(resp.Code), resp)
	c.Abort()
}

// requestError classifies an error from binding the request body. Validation
// problems keep their structure; everything else becomes a bad request.
func requestError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return err
	}
	return fmt.Errorf("%w: %v", internal.ErrBadRequest, err)
}
