package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestHandleAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
		field  string
	}{
		{"post not found", apperrors.ErrPostNotFound, http.StatusNotFound, "POST_001", ""},
		{"already participated", apperrors.ErrAlreadyParticipated, http.StatusBadRequest, "PART_001", ""},
		{"email exists", apperrors.ErrEmailAlreadyExists, http.StatusConflict, "USER_002", ""},
		{"forbidden", apperrors.NewForbiddenError("Only the author or an admin can edit this post"), http.StatusForbidden, dto.ErrorCodeForbidden, ""},
		{"validation", apperrors.NewValidationError("content", "content is required"), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "content"},
		{"credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, ""},
		{"not verified", apperrors.ErrEmailNotVerified, http.StatusForbidden, dto.ErrorCodeEmailNotVerified, ""},
		{"wrapped store failure", fmt.Errorf("list feed: %w", errors.New("connection reset")), http.StatusInternalServerError, dto.ErrorCodeInternalServer, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.field, resp.Error.Field)
		})
	}
}

func TestHandleAPIError_HidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password authentication")
}

func TestHandleAPIError_DetailsComeFromTheError(t *testing.T) {
	respond := func(err error) dto.ErrorResponse {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		HandleAPIError(c, err)
		return decodeError(t, w)
	}

	resp := respond(apperrors.ErrProfileIncomplete)
	assert.Equal(t, dto.ErrorCode(apperrors.CodeProfileIncomplete), resp.Error.Code)
	assert.Equal(t, map[string]interface{}{"profileCompleted": false}, resp.Error.Details)

	// a later error of the same class must not inherit them
	resp = respond(apperrors.NewForbiddenError("Not authorized to update this post"))
	assert.Nil(t, resp.Error.Details)
	resp = respond(apperrors.ErrPostNotFound)
	assert.Nil(t, resp.Error.Details)
}
