package apperrors

import "errors"

// Common errors
var (
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrNoSession          = errors.New("no auth session")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrOAuthExchange      = errors.New("oauth code exchange failed")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Application workflow errors
var (
	ErrDuplicateApplication = errors.New("an application for this program already exists")
	ErrConfirmationRequired = errors.New("information accuracy must be confirmed")
	ErrNoDocumentsSelected  = errors.New("at least one document must be selected")
	ErrSaveInProgress       = errors.New("document selection is still being saved")
	ErrAlreadySubmitted     = errors.New("application has already been submitted")
	ErrInvalidTransition    = errors.New("invalid application state transition")
)

// Messaging errors
var (
	ErrPolicyViolation    = errors.New("message violates content policy")
	ErrEmptyMessage       = errors.New("message has no text or attachment")
	ErrNotAParticipant    = errors.New("not a participant in this conversation")
	ErrSignedURLExpired   = errors.New("signed url expired")
	ErrSignedURLMalformed = errors.New("signed url is invalid")
)

// Account errors
var (
	ErrOfficialDeletionForbidden = errors.New("university official accounts require administrator handling")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewDuplicateApplicationError carries the path the client should navigate to.
func NewDuplicateApplicationError(applicationID, redirectTo string) error {
	return NewCustomError(ErrDuplicateApplication, "You have already applied to this program").
		WithCode("APPLICATION_DUPLICATE").
		WithDetails(map[string]interface{}{
			"applicationId": applicationID,
			"redirectTo":    redirectTo,
		})
}

// NewPolicyViolationError wraps ErrPolicyViolation with the rule that matched.
func NewPolicyViolationError(reason string) error {
	return NewCustomError(ErrPolicyViolation, "Messages cannot contain email addresses or phone numbers").
		WithCode(reason)
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
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

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// AsCustom extracts the outermost CustomError from err, if any.
func AsCustom(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
