package apperrors

import "errors"

// Taxonomy sentinels. Every error returned to the HTTP layer wraps exactly one of these.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// Error codes surfaced in dto.ErrorDetail.Code for domain failures.
const (
	CodePostNotFound        = "POST_001"
	CodeAlreadyParticipated = "PART_001"
	CodeNotParticipating    = "PART_002"
	CodeParticipantNotFound = "PART_003"
	CodeCannotJoinOwnPost   = "PART_004"
	CodeSelfKick            = "PART_005"
	CodeProfileIncomplete   = "PROF_001"
	CodeUserNotFound        = "USER_001"
	CodeEmailAlreadyExists  = "USER_002"
	CodeNoFieldsToUpdate    = "VAL_002"
	CodeInvalidEmailToken   = "AUTH_009"
	CodeInvalidResetToken   = "AUTH_010"
)

// Domain errors
var (
	ErrPostNotFound        = &CustomError{Err: ErrResourceNotFound, Message: "Post not found", Code: CodePostNotFound}
	ErrUserNotFound        = &CustomError{Err: ErrResourceNotFound, Message: "User not found", Code: CodeUserNotFound}
	ErrParticipantNotFound = &CustomError{Err: ErrResourceNotFound, Message: "Participant not found", Code: CodeParticipantNotFound}

	ErrAlreadyParticipated = &CustomError{Err: ErrConflict, Message: "Already participated in this post", Code: CodeAlreadyParticipated}
	ErrEmailAlreadyExists  = &CustomError{Err: ErrConflict, Message: "Email already registered", Code: CodeEmailAlreadyExists}

	ErrNotParticipating  = &CustomError{Err: ErrValidationFailed, Message: "Not participating in this post", Code: CodeNotParticipating}
	ErrCannotJoinOwnPost = &CustomError{Err: ErrValidationFailed, Message: "Cannot participate in your own post", Code: CodeCannotJoinOwnPost}
	ErrSelfKick          = &CustomError{Err: ErrValidationFailed, Message: "Use cancel participation to leave a post", Code: CodeSelfKick}
	ErrNoFieldsToUpdate  = &CustomError{Err: ErrValidationFailed, Message: "No fields to update", Code: CodeNoFieldsToUpdate}
	ErrInvalidEmailToken = &CustomError{Err: ErrValidationFailed, Message: "Invalid or expired verification token", Code: CodeInvalidEmailToken}
	ErrInvalidResetToken = &CustomError{Err: ErrValidationFailed, Message: "Invalid or expired password reset token", Code: CodeInvalidResetToken}

	// Details is shared by every response; treat it as read-only.
	ErrProfileIncomplete = &CustomError{
		Err:     ErrPermissionDenied,
		Message: "Profile must be completed before accessing this resource",
		Code:    CodeProfileIncomplete,
		Details: map[string]interface{}{"profileCompleted": false},
	}
)

// NewForbiddenError creates a permission denied error with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a validation error bound to a request field.
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Field:   field,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Field   string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// AsCustom returns the outermost CustomError in err's chain, if any.
func AsCustom(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
