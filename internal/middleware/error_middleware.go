package middleware

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order; the first sentinel err wraps wins
var errorMappings = []errorMapping{
	{apperrors.ErrDuplicateApplication, http.StatusConflict, dto.ErrorCodeDuplicateApplication, "You have already applied to this program"},
	{apperrors.ErrSaveInProgress, http.StatusConflict, dto.ErrorCodeSaveInProgress, "Document selection is still being saved"},
	{apperrors.ErrAlreadySubmitted, http.StatusConflict, dto.ErrorCodeAlreadySubmitted, "Application has already been submitted"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeConflict, "Application is not in a state that allows this"},
	{apperrors.ErrConfirmationRequired, http.StatusBadRequest, dto.ErrorCodeConfirmationRequired, "Please confirm your information is accurate"},
	{apperrors.ErrNoDocumentsSelected, http.StatusBadRequest, dto.ErrorCodeNoDocuments, "Select at least one document"},
	{apperrors.ErrPolicyViolation, http.StatusUnprocessableEntity, "", "Messages cannot contain email addresses or phone numbers"},
	{apperrors.ErrEmptyMessage, http.StatusBadRequest, dto.ErrorCodeEmptyMessage, "Message has no text or attachment"},
	{apperrors.ErrNotAParticipant, http.StatusForbidden, dto.ErrorCodeNotParticipant, "You are not a participant in this conversation"},
	{apperrors.ErrSignedURLExpired, http.StatusGone, dto.ErrorCodeLinkExpired, "Download link has expired"},
	{apperrors.ErrSignedURLMalformed, http.StatusForbidden, dto.ErrorCodeLinkInvalid, "Download link is invalid"},
	{apperrors.ErrOfficialDeletionForbidden, http.StatusForbidden, dto.ErrorCodeOfficialDeletion, "University official accounts require administrator handling"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeTokenRevoked, "Token revoked"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrNoSession, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrOAuthExchange, http.StatusUnauthorized, dto.ErrorCodeOAuthFailed, "Could not complete sign-in"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeInvalidRequest, "Bad request"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
}

// ErrorStatus returns the HTTP status and error detail for err
func ErrorStatus(err error) (int, *dto.ErrorDetail) {
	ce, hasCustom := apperrors.AsCustom(err)

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		if hasCustom {
			if ce.Message != "" {
				detail.Message = ce.Message
			}
			if ce.Code != "" {
				detail.Code = dto.ErrorCode(ce.Code)
			}
			if ce.Details != nil {
				detail.Details = ce.Details
			}
		}
		if detail.Code == "" {
			detail.Code = dto.ErrorCodeInvalidRequest
		}
		if m.status < http.StatusInternalServerError {
			detail.Severity = dto.ErrorSeverityWarning
		}
		return m.status, detail
	}
	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
}

// HandleAPIError writes the error response for err. Server errors are logged
// and reported to Sentry.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).
			Msg("Request failed")
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	c.JSON(status, dto.NewErrorResponse(detail))
}

// AbortWithError writes the error response and stops the handler chain
func AbortWithError(c *gin.Context, err error) {
	HandleAPIError(c, err)
	c.Abort()
}
