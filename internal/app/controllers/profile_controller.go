package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/app/services"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
)

// ProfileController handles student onboarding and profile completeness. Writes
// that move the onboarding stage refresh the cached role before responding, so
// the next redirect check already sees the new stage.
type ProfileController struct {
	profiles ProfileService
	roles    RoleService
}

// NewProfileController creates a new ProfileController
func NewProfileController(profiles ProfileService, roles RoleService) *ProfileController {
	return &ProfileController{profiles: profiles, roles: roles}
}

// GetProfile returns the caller's student profile
// @Summary Get student profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Student profile not found"
// @Router /profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	student, err := c.profiles.GetStudent(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ProfileResponse{Student: student, Stage: student.Stage()}))
}

// Completeness scores the caller's profile
// @Summary Profile completeness
// @Description Scores six checks (full name, date of birth, country of origin, current study level, passport, at least one degree). Only students have a profile; other roles are forbidden.
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=services.Completeness}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Not a student"
// @Router /profile/completeness [get]
func (c *ProfileController) Completeness(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	res, err := c.profiles.ComputeCompleteness(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res))
}

// Nudge reports whether the dashboard should remind the student to finish the profile
// @Summary Profile completion nudge
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=services.Nudge}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /profile/nudge [get]
func (c *ProfileController) Nudge(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	sessionID, _ := middleware.SessionID(ctx)

	res, err := c.profiles.Nudge(ctx.Request.Context(), studentID, sessionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res))
}

// DismissNudge hides the reminder for the rest of the session
// @Summary Dismiss profile nudge
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /profile/nudge/dismiss [post]
func (c *ProfileController) DismissNudge(ctx *gin.Context) {
	if _, ok := currentIdentity(ctx); !ok {
		return
	}
	sessionID, _ := middleware.SessionID(ctx)

	if err := c.profiles.DismissNudge(ctx.Request.Context(), sessionID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Reminder dismissed"}))
}

// SavePersonalInfo stores the personal onboarding step
// @Summary Save personal information
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PersonalInfoRequest true "Personal information"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /profile/personal [put]
func (c *ProfileController) SavePersonalInfo(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req dto.PersonalInfoRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.profiles.SavePersonalInfo(ctx.Request.Context(), studentID, services.PersonalInfoInput{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		DateOfBirth:       req.DateOfBirth,
		CountryOfOrigin:   req.CountryOfOrigin,
		CurrentStudyLevel: req.CurrentStudyLevel,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.roles.Refresh(ctx.Request.Context(), studentID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ProfileResponse{Student: student, Stage: student.Stage()}))
}

// AddPassport records a passport
// @Summary Add passport
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PassportRequest true "Passport"
// @Success 201 {object} dto.APIResponse{data=models.Passport}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /profile/passports [post]
func (c *ProfileController) AddPassport(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req dto.PassportRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	passport := req.ToModel()
	if err := c.profiles.AddPassport(ctx.Request.Context(), studentID, passport); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(passport))
}

// ListDegrees lists the caller's degrees
// @Summary List degrees
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Degree}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /profile/degrees [get]
func (c *ProfileController) ListDegrees(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	degrees, err := c.profiles.ListDegrees(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(degrees))
}

// AddDegree records a degree
// @Summary Add degree
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.DegreeRequest true "Degree"
// @Success 201 {object} dto.APIResponse{data=models.Degree}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /profile/degrees [post]
func (c *ProfileController) AddDegree(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req dto.DegreeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	degree := req.ToModel()
	if err := c.profiles.AddDegree(ctx.Request.Context(), studentID, degree); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(degree))
}

// CompleteAcademic finishes onboarding
// @Summary Complete academic onboarding
// @Description Requires at least one degree. Marks the profile complete.
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse}
// @Failure 400 {object} dto.ErrorResponse "No degree recorded"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /profile/academic/complete [post]
func (c *ProfileController) CompleteAcademic(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	student, err := c.profiles.CompleteAcademic(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.roles.Refresh(ctx.Request.Context(), studentID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ProfileResponse{Student: student, Stage: student.Stage()}))
}
