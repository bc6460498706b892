package handlers

import (
	"errors"
	"net/http"

	"cbtportal/services"
	"cbtportal/session"
	"cbtportal/store"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidQuiz):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrDraftNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrOptionNotFound),
		errors.Is(err, services.ErrMatricRequired),
		errors.Is(err, session.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrNotPending),
		errors.Is(err, session.ErrStaleAnswer),
		errors.Is(err, session.ErrNotActive):
		return http.StatusConflict
	case errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Validation failures also carry
// the list of problems.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{"error": services.ErrInvalidQuiz.Error(), "problems": verr.Problems})
		return
	}
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	if status == http.StatusServiceUnavailable {
		c.JSON(status, gin.H{"error": "storage unavailable, try again"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
