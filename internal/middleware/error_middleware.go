package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/machus/backend/internal/pkg/logger"
)

// statusFor maps the taxonomy sentinel wrapped by err to an HTTP status and default code.
func statusFor(err error) (int, dto.ErrorCode) {
	switch {
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.ErrorCodeResourceNotFound
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.ErrorCodeForbidden
	case errors.Is(err, apperrors.ErrConflict):
		// only registration duplicates are 409; a duplicate participation is a bad request
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return http.StatusConflict, dto.ErrorCodeResourceAlreadyExists
		}
		return http.StatusBadRequest, dto.ErrorCodeResourceAlreadyExists
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest, dto.ErrorCodeValidationFailed
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials
	case errors.Is(err, apperrors.ErrEmailNotVerified):
		return http.StatusForbidden, dto.ErrorCodeEmailNotVerified
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusForbidden, dto.ErrorCodeExpiredToken
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusForbidden, dto.ErrorCodeInvalidToken
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, dto.ErrorCodeUnauthorized
	default:
		return http.StatusInternalServerError, dto.ErrorCodeInternalServer
	}
}

// HandleAPIError is the single place service errors become HTTP responses.
func HandleAPIError(c *gin.Context, err error) {
	status, code := statusFor(err)

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error")
		c.JSON(status, dto.NewErrorResponse(dto.NewErrorDetail(code, "Internal server error")))
		return
	}

	errorDetail := dto.NewErrorDetail(code, err.Error())
	if ce, ok := apperrors.AsCustom(err); ok {
		if ce.Code != "" {
			errorDetail.Code = dto.ErrorCode(ce.Code)
		}
		errorDetail.Message = ce.Message
		if ce.Field != "" {
			errorDetail = errorDetail.WithField(ce.Field)
		}
		if ce.Details != nil {
			errorDetail = errorDetail.WithDetails(ce.Details)
		}
	}

	c.JSON(status, dto.NewErrorResponse(errorDetail))
}
