package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/roomboard/internal/application"
	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/store"
)

// respondError maps the error taxonomy onto HTTP statuses and a stable JSON
// shape: {"error": kind, "message": ..., optional "fields"/"conflicts"}.
func respondError(c *gin.Context, err error) {
	kind := application.ErrorKind(err)
	body := gin.H{"error": kind, "message": err.Error()}

	var vErr *meeting.ValidationError
	if errors.As(err, &vErr) {
		body["fields"] = vErr.FieldErrors
	}
	var cErr *store.ConflictError
	if errors.As(err, &cErr) {
		body["conflicts"] = cErr.IDs
	}

	c.JSON(statusFor(kind), body)
}

func statusFor(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "conflict":
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	case "busy":
		return http.StatusTooManyRequests
	case "timeout":
		return http.StatusGatewayTimeout
	case "network":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
