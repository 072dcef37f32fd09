package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/apperrors"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/helpers"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminController handles administrator-only operations
type AdminController struct {
	applications ApplicationService
	accounts     AccountService
	exports      ExportService
}

// NewAdminController creates a new AdminController
func NewAdminController(applications ApplicationService, accounts AccountService, exports ExportService) *AdminController {
	return &AdminController{
		applications: applications,
		accounts:     accounts,
		exports:      exports,
	}
}

func statusQuery(ctx *gin.Context) (*models.ApplicationStatus, bool) {
	raw := ctx.Query("status")
	if raw == "" {
		return nil, true
	}
	status := models.ApplicationStatus(raw)
	switch status {
	case models.ApplicationStatusDraft, models.ApplicationStatusSubmitted:
		return &status, true
	}
	middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("status must be draft or submitted"))
	return nil, false
}

// ListApplications godoc
// @Summary List all applications
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(draft, submitted)
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.ApplicationResponse}}
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 403 {object} dto.ErrorResponse "Administrators only"
// @Router /admin/applications [get]
func (c *AdminController) ListApplications(ctx *gin.Context) {
	status, ok := statusQuery(ctx)
	if !ok {
		return
	}
	page := helpers.PageFromQuery(ctx)

	apps, total, err := c.applications.ListAll(ctx.Request.Context(), repositories.ApplicationFilter{
		Status: status,
		Offset: page.Offset(),
		Limit:  page.Size,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	items := make([]dto.ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		items = append(items, dto.NewApplicationResponse(app, c.applications.Saving(app.ID)))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      items,
		Pagination: page.Info(total),
	}))
}

// ExportApplications godoc
// @Summary Export applications
// @Description Downloads applications as an Excel workbook
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(draft, submitted)
// @Success 200 {file} binary
// @Failure 403 {object} dto.ErrorResponse "Administrators only"
// @Router /admin/applications/export [get]
func (c *AdminController) ExportApplications(ctx *gin.Context) {
	status, ok := statusQuery(ctx)
	if !ok {
		return
	}
	buf, err := c.exports.ApplicationsXLSX(ctx.Request.Context(), status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	name := fmt.Sprintf("applications-%s.xlsx", time.Now().UTC().Format("20060102"))
	ctx.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	ctx.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Deletes any identity, officials included. Administrators cannot delete themselves here.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Identity ID" Format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 403 {object} dto.ErrorResponse "Administrators only"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{id} [delete]
func (c *AdminController) DeleteUser(ctx *gin.Context) {
	adminID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	targetID, ok := uuidParam(ctx, "id", "user")
	if !ok {
		return
	}

	if err := c.accounts.AdminDeleteUser(ctx.Request.Context(), adminID, targetID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "User deleted"}))
}
