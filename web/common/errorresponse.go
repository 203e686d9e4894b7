package common

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"ropeaccess.com/crewtrack/worksession/core"
)

type ErrorResponse struct {
	// Field names the offending request field for validation failures.
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

func NewFieldErrorResponse(field, message string) *ErrorResponse {
	return &ErrorResponse{
		Field:   field,
		Message: message,
	}
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case core.IsConflict(err):
		return http.StatusConflict
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// WriteError renders err with the status StatusFor picks.
func WriteError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v\n", c.Request.Method, c.Request.URL.Path, err)
	}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		c.JSON(status, NewFieldErrorResponse(ve.Field, ve.Message))
		return
	}
	c.JSON(status, NewErrorResponse(err.Error()))
}
