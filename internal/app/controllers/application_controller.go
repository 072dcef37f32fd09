package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
)

// ApplicationController handles the student application workflow
type ApplicationController struct {
	applications ApplicationService
}

// NewApplicationController creates a new ApplicationController
func NewApplicationController(applications ApplicationService) *ApplicationController {
	return &ApplicationController{applications: applications}
}

// ListPrograms godoc
// @Summary List programs
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param universityId query string false "Filter by university" Format(uuid)
// @Success 200 {object} dto.APIResponse{data=[]models.Program}
// @Failure 400 {object} dto.ErrorResponse "Invalid university ID"
// @Router /programs [get]
func (c *ApplicationController) ListPrograms(ctx *gin.Context) {
	universityID, ok := optionalUUIDQuery(ctx, "universityId")
	if !ok {
		return
	}
	programs, err := c.applications.Programs(ctx.Request.Context(), universityID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(programs))
}

// Apply godoc
// @Summary Apply to a program
// @Description Creates a draft application. An incomplete profile does not block the draft; the fields still missing are recorded on it as missingFields. A second application to the same program is rejected with the existing application id and where to find it.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ApplyRequest true "Program"
// @Success 201 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 403 {object} dto.ErrorResponse "Not a student"
// @Failure 404 {object} dto.ErrorResponse "Program not found"
// @Failure 409 {object} dto.ErrorResponse "Already applied"
// @Router /applications [post]
func (c *ApplicationController) Apply(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req dto.ApplyRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applications.Apply(ctx.Request.Context(), studentID, req.ProgramID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewApplicationResponse(app, false)))
}

// ListApplications godoc
// @Summary List my applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ApplicationResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /applications [get]
func (c *ApplicationController) ListApplications(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	apps, err := c.applications.List(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	out := make([]dto.ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, dto.NewApplicationResponse(app, c.applications.Saving(app.ID)))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out))
}

// GetApplication godoc
// @Summary Get an application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID" Format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /applications/{id} [get]
func (c *ApplicationController) GetApplication(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	appID, ok := uuidParam(ctx, "id", "application")
	if !ok {
		return
	}

	app, err := c.applications.Get(ctx.Request.Context(), studentID, appID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewApplicationResponse(app, c.applications.Saving(app.ID))))
}

// Confirm godoc
// @Summary Confirm application information
// @Description Moves a draft into document selection once the student confirms the information is accurate
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID" Format(uuid)
// @Param request body dto.ConfirmApplicationRequest true "Confirmation"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 400 {object} dto.ErrorResponse "Confirmation missing"
// @Failure 409 {object} dto.ErrorResponse "Already submitted"
// @Router /applications/{id}/confirm [post]
func (c *ApplicationController) Confirm(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	appID, ok := uuidParam(ctx, "id", "application")
	if !ok {
		return
	}
	var req dto.ConfirmApplicationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applications.Confirm(ctx.Request.Context(), studentID, appID, req.InformationAccurate)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewApplicationResponse(app, false)))
}

// SaveDocuments godoc
// @Summary Save document selection
// @Description Saves the current selection without submitting. Only one save per application runs at a time.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID" Format(uuid)
// @Param request body dto.DocumentSelectionRequest true "Selected documents"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 400 {object} dto.ErrorResponse "Unknown document"
// @Failure 409 {object} dto.ErrorResponse "Save in progress or already submitted"
// @Router /applications/{id}/documents [put]
func (c *ApplicationController) SaveDocuments(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	appID, ok := uuidParam(ctx, "id", "application")
	if !ok {
		return
	}
	var req dto.DocumentSelectionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.applications.SaveDocuments(ctx.Request.Context(), studentID, appID, req.DocumentIDs); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Document selection saved"}))
}

// Submit godoc
// @Summary Submit an application
// @Description Stores the final document selection and submits. Programs that require documents reject an empty selection.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID" Format(uuid)
// @Param request body dto.DocumentSelectionRequest true "Selected documents"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 400 {object} dto.ErrorResponse "No documents selected or not confirmed"
// @Failure 409 {object} dto.ErrorResponse "Save in progress or already submitted"
// @Router /applications/{id}/submit [post]
func (c *ApplicationController) Submit(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	appID, ok := uuidParam(ctx, "id", "application")
	if !ok {
		return
	}
	var req dto.DocumentSelectionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applications.Submit(ctx.Request.Context(), studentID, appID, req.DocumentIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewApplicationResponse(app, false)))
}
