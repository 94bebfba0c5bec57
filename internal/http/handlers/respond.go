package handlers

import (
	"net/http"

	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/gin-gonic/gin"
)

// DevModeKey marks a request whose internal errors may expose their cause.
const DevModeKey = "app.dev_mode"

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError writes err using its kind. Untagged errors are internal.
func RespondAppError(ctx *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal("Internal server error", err)
	}

	status := StatusFor(e.Kind)

	if status == http.StatusInternalServerError {
		_ = ctx.Error(err)

		var details interface{}
		if devMode(ctx) && e.Err != nil {
			details = gin.H{"cause": e.Err.Error()}
		}
		RespondError(ctx, status, apperr.CodeInternal, e.Message, details)
		return
	}

	RespondError(ctx, status, e.Code, e.Message, e.Details)
}

func devMode(ctx *gin.Context) bool {
	v, ok := ctx.Get(DevModeKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
