package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents standardized error codes
type ErrorCode string

// Standard error codes for the application
const (
	// Authentication errors
	ErrorCodeInvalidCredentials ErrorCode = "AUTH_001"
	ErrorCodeInvalidToken       ErrorCode = "AUTH_005"
	ErrorCodeExpiredToken       ErrorCode = "AUTH_006"
	ErrorCodeTokenRevoked       ErrorCode = "AUTH_007"
	ErrorCodeUnauthorized       ErrorCode = "AUTH_008"
	ErrorCodeOAuthFailed        ErrorCode = "AUTH_009"

	// Resource errors
	ErrorCodeResourceNotFound      ErrorCode = "RES_001"
	ErrorCodeResourceAlreadyExists ErrorCode = "RES_002"
	ErrorCodeConflict              ErrorCode = "RES_004"
	ErrorCodeForbidden             ErrorCode = "FORBIDDEN"

	// Application workflow errors
	ErrorCodeDuplicateApplication ErrorCode = "APPLICATION_DUPLICATE"
	ErrorCodeConfirmationRequired ErrorCode = "APPLICATION_CONFIRMATION_REQUIRED"
	ErrorCodeNoDocuments          ErrorCode = "APPLICATION_NO_DOCUMENTS"
	ErrorCodeSaveInProgress       ErrorCode = "APPLICATION_SAVE_IN_PROGRESS"
	ErrorCodeAlreadySubmitted     ErrorCode = "APPLICATION_ALREADY_SUBMITTED"

	// Messaging errors
	ErrorCodeEmptyMessage   ErrorCode = "MESSAGE_EMPTY"
	ErrorCodeNotParticipant ErrorCode = "CONVERSATION_FORBIDDEN"
	ErrorCodeLinkExpired    ErrorCode = "SIGNED_URL_EXPIRED"
	ErrorCodeLinkInvalid    ErrorCode = "SIGNED_URL_INVALID"

	// Account errors
	ErrorCodeOfficialDeletion ErrorCode = "OFFICIAL_DELETION_FORBIDDEN"

	// Validation errors
	ErrorCodeValidationFailed ErrorCode = "VAL_001"
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"

	// Server errors
	ErrorCodeInternalServer ErrorCode = "SRV_001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

// Severity levels. Client mistakes are warnings; server faults are errors.
const (
	ErrorSeverityWarning ErrorSeverity = "WARNING"
	ErrorSeverityError   ErrorSeverity = "ERROR"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code     ErrorCode     `json:"code" example:"APPLICATION_DUPLICATE"`
	Message  string        `json:"message" example:"You have already applied to this program"`
	Field    string        `json:"field,omitempty" example:"programId"`
	Severity ErrorSeverity `json:"severity" example:"ERROR"`
	Details  interface{}   `json:"details,omitempty"`
}

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success   bool         `json:"success" example:"false"`
	Error     *ErrorDetail `json:"error"`
	Timestamp time.Time    `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewErrorDetail creates a new error detail
func NewErrorDetail(code ErrorCode, message string) *ErrorDetail {
	return &ErrorDetail{
		Code:     code,
		Message:  message,
		Severity: ErrorSeverityError,
	}
}

// WithDetails adds additional details to the error
func (e *ErrorDetail) WithDetails(details interface{}) *ErrorDetail {
	e.Details = details
	return e
}

// NewErrorResponse creates a standard error response
func NewErrorResponse(errorDetail *ErrorDetail) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     errorDetail,
		Timestamp: time.Now(),
	}
}

// HandleValidationError turns a binding error into an error detail. Validator
// errors list every failing field; anything else is a malformed body.
func HandleValidationError(err error) *ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewErrorDetail(ErrorCodeInvalidRequest, "Invalid request format").WithDetails(err.Error())
	}

	fields := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, ErrorDetail{
			Code:     ErrorCodeValidationFailed,
			Message:  formatValidationError(fe),
			Field:    lowerFirst(fe.Field()),
			Severity: ErrorSeverityWarning,
		})
	}
	detail := NewErrorDetail(ErrorCodeValidationFailed, "Validation failed").WithDetails(fields)
	if len(fields) == 1 {
		detail.Field = fields[0].Field
		detail.Message = fields[0].Message
	}
	return detail
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "url":
		return e.Field() + " must be a valid URL"
	case "country_code":
		return e.Field() + " must be an ISO 3166 alpha-2 country code"
	case "strong_password":
		return e.Field() + " must be at least 8 characters and mix letters and digits"
	case "degree_level":
		return e.Field() + " must be one of: high_school, bachelor, master, doctorate, diploma"
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
