package handlers

import (
	"mime"
	"path/filepath"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/media"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// maxUploadMemory bounds the multipart form held in memory (32MB).
const maxUploadMemory = 32 << 20

type FindingsHandler struct {
	*EntityHandler[models.Finding]
	findings *services.FindingService
}

func NewFindingsHandler(findings *services.FindingService, contexts *services.ContextService) *FindingsHandler {
	return &FindingsHandler{EntityHandler: NewEntityHandler[models.Finding](findings, contexts), findings: findings}
}

func (h *FindingsHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/findings")
	g.GET("/catalog/:catalog_number", h.ByCatalogNumber)
	g.POST("/:id/media", h.UploadMedia)
	h.EntityHandler.Register(g)
}

// ByCatalogNumber godoc
// @Summary     Find a finding by catalog number
// @Tags        findings
// @Produce     json
// @Security    Bearer
// @Param       catalog_number path string true "Catalog number"
// @Success     200 {object} models.Envelope{data=models.Finding}
// @Failure     404 {object} models.Envelope
// @Router      /findings/catalog/{catalog_number} [get]
func (h *FindingsHandler) ByCatalogNumber(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	f, err := h.findings.ByCatalogNumber(c.Request.Context(), owner, c.Param("catalog_number"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, f)
}

// UploadMedia godoc
// @Summary     Upload a photo or drawing
// @Description Stores the file in object storage and appends its public URL to the finding's photos or drawings.
// @Tags        findings
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Finding ID"
// @Param       file formData file true "Image file"
// @Param       kind formData string false "photo or drawing" default(photo)
// @Success     201 {object} models.Envelope{data=models.MediaResponse}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Failure     500 {object} models.Envelope
// @Router      /findings/{id}/media [post]
func (h *FindingsHandler) UploadMedia(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		fail(c, apperr.Validation("failed to parse multipart form", map[string]string{"file": "required"}))
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.Validation("no file uploaded", map[string]string{"file": "required"}))
		return
	}
	kind := c.DefaultPostForm("kind", media.KindPhoto)

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(file.Filename)); byExt != "" {
			contentType = byExt
		}
	}

	src, err := file.Open()
	if err != nil {
		fail(c, apperr.Validation("failed to open uploaded file", map[string]string{"file": "unreadable"}))
		return
	}
	defer src.Close()

	finding, url, err := h.findings.AttachMedia(c.Request.Context(), owner, c.Param("id"), kind, file.Filename, contentType, src)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, models.MediaResponse{URL: url, Kind: kind, Finding: finding}, kind+" uploaded")
}
