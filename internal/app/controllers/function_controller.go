package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
)

// FunctionController exposes the account server functions
type FunctionController struct {
	accounts AccountService
	roles    RoleService
	logger   zerolog.Logger
}

// NewFunctionController creates a new FunctionController
func NewFunctionController(accounts AccountService, roles RoleService, logger zerolog.Logger) *FunctionController {
	return &FunctionController{accounts: accounts, roles: roles, logger: logger}
}

// DeleteUserData godoc
// @Summary Delete my account
// @Description Deletes the caller's identity together with role rows, profile data and stored documents. University officials cannot delete themselves.
// @Tags functions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Officials cannot delete their own account"
// @Router /functions/delete-user-data [post]
func (c *FunctionController) DeleteUserData(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	if err := c.accounts.DeleteUserData(ctx.Request.Context(), identityID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Str("identityID", identityID.String()).Msg("Account deleted on request")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Account deleted"}))
}

// EnsureUniversityOfficialProfile godoc
// @Summary Ensure official profile
// @Description Creates the caller's pending university official row if it is missing. Idempotent.
// @Tags functions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EnsureOfficialRequest false "Optional university"
// @Success 200 {object} dto.APIResponse{data=models.UniversityOfficial}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /functions/ensure-university-official-profile [post]
func (c *FunctionController) EnsureUniversityOfficialProfile(ctx *gin.Context) {
	identityID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req dto.EnsureOfficialRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	official, err := c.accounts.EnsureUniversityOfficialProfile(ctx.Request.Context(), identityID, req.UniversityID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.roles.Refresh(ctx.Request.Context(), identityID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(official))
}
