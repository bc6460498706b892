package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cbtportal/services"
	"cbtportal/session"
	"cbtportal/store"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&services.ValidationError{Problems: []string{"title is required"}}, http.StatusUnprocessableEntity},
		{fmt.Errorf("failed to publish quiz: %w", store.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{store.ErrNotFound, http.StatusNotFound},
		{services.ErrDraftNotFound, http.StatusNotFound},
		{services.ErrSessionNotFound, http.StatusNotFound},
		{session.ErrStaleAnswer, http.StatusConflict},
		{session.ErrNotActive, http.StatusConflict},
		{services.ErrEmailTaken, http.StatusConflict},
		{session.ErrInvalidOption, http.StatusBadRequest},
		{services.ErrMatricRequired, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
