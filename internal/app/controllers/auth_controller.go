package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/app/services"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService AuthService
	redirects   RedirectService
	roles       RoleService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService AuthService, redirects RedirectService, roles RoleService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		redirects:   redirects,
		roles:       roles,
		logger:      logger,
	}
}

// SignUp handles password registration
// @Summary Register a new identity
// @Description Creates a student, agent or university official account and signs it in. Students start with an incomplete profile; officials start pending review.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignUpRequest true "Registration information"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format or weak password"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/signup [post]
func (c *AuthController) SignUp(ctx *gin.Context) {
	var req dto.SignUpRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	res, err := c.authService.SignUp(ctx.Request.Context(), services.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Sign-up failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	role := c.roles.Refresh(ctx.Request.Context(), res.Identity.ID)
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(newAuthResponse(res, role.Role)))
}

// SignIn handles password sign-in
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignInRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Router /auth/signin [post]
func (c *AuthController) SignIn(ctx *gin.Context) {
	var req dto.SignInRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	res, err := c.authService.SignIn(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	role := c.roles.Refresh(ctx.Request.Context(), res.Identity.ID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(newAuthResponse(res, role.Role)))
}

// OAuthURL returns the provider authorize URL
// @Summary Start OAuth sign-in
// @Tags auth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.OAuthURLResponse}
// @Failure 401 {object} dto.ErrorResponse "OAuth sign-in is not configured"
// @Router /auth/oauth/url [get]
func (c *AuthController) OAuthURL(ctx *gin.Context) {
	url, err := c.authService.AuthorizeURL()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.OAuthURLResponse{URL: url}))
}

// Callback processes the URL the browser landed on after the provider redirect
// @Summary Complete an auth redirect
// @Description Exchanges an authorization code (at most once per code) or adopts tokens from the URL fragment, then reports the sanitized URL and where the identity belongs. The sanitized URL is returned on failure too, in the error details.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.CallbackRequest true "Callback URL"
// @Success 200 {object} dto.APIResponse{data=dto.CallbackResponse}
// @Failure 400 {object} dto.ErrorResponse "Malformed URL"
// @Failure 401 {object} dto.ErrorResponse "Code exchange failed"
// @Router /auth/callback [post]
func (c *AuthController) Callback(ctx *gin.Context) {
	var req dto.CallbackRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.redirects.HandleCallback(ctx.Request.Context(), req.URL)
	if err != nil {
		status, detail := middleware.ErrorStatus(err)
		if result != nil {
			detail.WithDetails(map[string]interface{}{"sanitizedUrl": result.SanitizedURL})
		}
		ctx.JSON(status, dto.NewErrorResponse(detail))
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CallbackResponse{
		SanitizedURL:  result.SanitizedURL,
		State:         string(result.State),
		Session:       newAuthResponse(result.Session, result.Role),
		Role:          result.Role,
		Destination:   result.Destination,
		Redirect:      result.Redirect,
		ProviderError: result.ProviderError,
	}))
}

// Refresh rotates the refresh token
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid, expired or revoked refresh token"
// @Router /auth/refresh [post]
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	res, err := c.authService.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	role := c.roles.Get(ctx.Request.Context(), res.Identity.ID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(newAuthResponse(res, role.Role)))
}

// SignOut revokes the current session
// @Summary Sign out
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /auth/signout [post]
func (c *AuthController) SignOut(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	sessionID, _ := middleware.SessionID(ctx)

	if err := c.authService.SignOut(ctx.Request.Context(), identityID, sessionID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Signed out"}))
}

// Session returns the signed-in identity, its session and role
// @Summary Current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /auth/session [get]
func (c *AuthController) Session(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	sessionID, _ := middleware.SessionID(ctx)

	identity, session, err := c.authService.Session(ctx.Request.Context(), identityID, sessionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	role := c.roles.Get(ctx.Request.Context(), identityID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SessionResponse{
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      dto.NewIdentityResponse(identity, role.Role),
		Role:      role,
	}))
}

// Role returns the role resolution of the signed-in identity
// @Summary Resolved role
// @Description Resolves the identity's role from the role tables, falling back to the role claimed in identity metadata. Results are cached and refreshed on auth events.
// @Tags session
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} dto.APIResponse{data=models.RoleResolution}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /session/role [get]
func (c *AuthController) Role(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	if ctx.Query("refresh") == "true" {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.roles.Refresh(ctx.Request.Context(), identityID)))
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.roles.Get(ctx.Request.Context(), identityID)))
}

// Redirect reports where the caller belongs given the page it is on. It works
// without a session too, for the public allow-list.
// @Summary Role-based redirect
// @Tags session
// @Produce json
// @Param path query string true "Current client path" example(/dashboard)
// @Success 200 {object} dto.APIResponse{data=dto.RedirectResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing path"
// @Router /session/redirect [get]
func (c *AuthController) Redirect(ctx *gin.Context) {
	path := ctx.Query("path")
	if path == "" {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("path is required"))
		return
	}
	identityID, ok := middleware.IdentityID(ctx)
	if !ok {
		identityID = uuid.Nil
	}

	d := c.redirects.EvaluateRedirect(ctx.Request.Context(), identityID, path)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RedirectResponse{
		Role:        d.Role,
		Destination: d.Destination,
		Redirect:    d.Redirect,
		Skipped:     d.Skipped,
	}))
}
