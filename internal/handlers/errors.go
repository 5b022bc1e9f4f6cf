package handlers

import (
	"errors"
	"net/http"

	"agora/internal/middleware"
	"agora/internal/rbac"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: APIError{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	}})
}

func badRequest(c *gin.Context, message string) {
	writeError(c, http.StatusBadRequest, "INVALID_INPUT", message)
}

// respondError translates a service error into a JSON error body. The full error is
// attached to the context for the request log; clients only see the public message.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var authErr *rbac.AuthError
	switch {
	case errors.As(err, &authErr):
		if errors.Is(authErr.Kind, rbac.ErrUnauthenticated) {
			writeError(c, http.StatusUnauthorized, "UNAUTHENTICATED", authErr.PublicMessage())
			return
		}
		writeError(c, http.StatusForbidden, "FORBIDDEN", authErr.PublicMessage())
	case errors.Is(err, rbac.ErrMalformedRole):
		writeError(c, http.StatusForbidden, "FORBIDDEN", "you do not have permission to perform this action")
	case errors.Is(err, services.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, services.ErrInvalidVoteTarget):
		writeError(c, http.StatusBadRequest, "INVALID_VOTE_TARGET", err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, services.ErrConflict):
		writeError(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, services.ErrNotEligible):
		writeError(c, http.StatusForbidden, "NOT_ELIGIBLE", err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, services.ErrGeneratorUnavailable):
		writeError(c, http.StatusBadGateway, "GENERATOR_UNAVAILABLE", "content generator unavailable")
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
