package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

const genericFailure = "An unexpected error occurred. Please try again."

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: true, Message: message})
}

// respondError writes err as the error envelope. Internal errors keep their
// cause out of the body.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	status := appErr.StatusCode()

	body := &errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Field:   appErr.Field,
		Details: appErr.Details,
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if appErr.Kind == apperrors.KindInternal {
		body.Message = genericFailure
		body.Details = nil
	}
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: body})
}

func notFoundRoute() *apperrors.Error {
	return &apperrors.Error{Kind: apperrors.KindNotFound, Code: apperrors.CodeNotFound, Message: "Route not found."}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(c, apperrors.Validation("", "The request body is required."))
		} else {
			respondError(c, apperrors.Validation("", "The request body is invalid."))
		}
		return false
	}
	return true
}
