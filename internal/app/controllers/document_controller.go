package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
	"github.com/univgates1-stack/univgates-sub001/internal/middleware"
)

// DocumentController handles student document uploads
type DocumentController struct {
	documents DocumentService
}

// NewDocumentController creates a new DocumentController
func NewDocumentController(documents DocumentService) *DocumentController {
	return &DocumentController{documents: documents}
}

// ListDocuments godoc
// @Summary List my documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.DocumentResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /documents [get]
func (c *DocumentController) ListDocuments(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	docs, err := c.documents.List(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.NewDocumentResponse(d))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out))
}

// UploadDocument godoc
// @Summary Upload a document
// @Tags documents
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Document"
// @Success 201 {object} dto.APIResponse{data=dto.DocumentResponse}
// @Failure 400 {object} dto.ErrorResponse "No file or file too large"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /documents [post]
func (c *DocumentController) UploadDocument(ctx *gin.Context) {
	studentID, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	up, closer, err := formUpload(ctx, "file")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer closer.Close()

	doc, err := c.documents.Upload(ctx.Request.Context(), studentID, *up)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewDocumentResponse(doc)))
}
