package handlers

import (
	"fmt"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/forms"
	"github.com/gin-gonic/gin"
)

type SchemasHandler struct {
	schema *forms.Schema
}

func NewSchemasHandler(schema *forms.Schema) *SchemasHandler {
	return &SchemasHandler{schema: schema}
}

func (h *SchemasHandler) Register(api *gin.RouterGroup) {
	api.GET("/schemas", h.List)
	api.GET("/schemas/:form", h.Get)
}

// List godoc
// @Summary     Form schemas
// @Description Required fields, list fields and context pre-fill rules of every form.
// @Tags        schemas
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope
// @Router      /schemas [get]
func (h *SchemasHandler) List(c *gin.Context) {
	respond(c, h.schema.Forms)
}

// Get godoc
// @Summary     One form schema
// @Tags        schemas
// @Produce     json
// @Security    Bearer
// @Param       form path string true "Form name"
// @Success     200 {object} models.Envelope{data=forms.Spec}
// @Failure     404 {object} models.Envelope
// @Router      /schemas/{form} [get]
func (h *SchemasHandler) Get(c *gin.Context) {
	name := c.Param("form")
	spec, ok := h.schema.Lookup(name)
	if !ok {
		fail(c, apperr.NotFound(fmt.Sprintf("form %q not found", name)))
		return
	}
	respond(c, spec)
}
