package handlers

import (
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type ExcavationsHandler struct {
	*EntityHandler[models.Excavation]
	excavations *services.ExcavationService
}

func NewExcavationsHandler(excavations *services.ExcavationService, contexts *services.ContextService) *ExcavationsHandler {
	return &ExcavationsHandler{EntityHandler: NewEntityHandler[models.Excavation](excavations, contexts), excavations: excavations}
}

func (h *ExcavationsHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/excavations")
	g.GET("/code/:code", h.ByCode)
	g.GET("/site/:site_id", h.BySite)
	h.EntityHandler.Register(g)
}

// ByCode godoc
// @Summary     Find an excavation by code
// @Tags        excavations
// @Produce     json
// @Security    Bearer
// @Param       code path string true "Excavation code"
// @Success     200 {object} models.Envelope{data=models.Excavation}
// @Failure     404 {object} models.Envelope
// @Router      /excavations/code/{code} [get]
func (h *ExcavationsHandler) ByCode(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	e, err := h.excavations.ByCode(c.Request.Context(), owner, c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, e)
}

// BySite godoc
// @Summary     List excavations of a site
// @Tags        excavations
// @Produce     json
// @Security    Bearer
// @Param       site_id path string true "Site ID"
// @Success     200 {object} models.Envelope{data=[]models.Excavation}
// @Router      /excavations/site/{site_id} [get]
func (h *ExcavationsHandler) BySite(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	items, p, err := h.excavations.BySite(c.Request.Context(), owner, c.Param("site_id"), c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	page(c, items, p)
}

type ResearchersHandler struct {
	*EntityHandler[models.Researcher]
	researchers *services.ResearcherService
}

func NewResearchersHandler(researchers *services.ResearcherService) *ResearchersHandler {
	return &ResearchersHandler{EntityHandler: NewEntityHandler[models.Researcher](researchers, nil), researchers: researchers}
}

func (h *ResearchersHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/researchers")
	g.GET("/by-specialization", h.BySpecialization)
	g.GET("/by-institution", h.ByInstitution)
	h.EntityHandler.Register(g)
}

// BySpecialization godoc
// @Summary     Search researchers by specialization
// @Tags        researchers
// @Produce     json
// @Security    Bearer
// @Param       q query string true "Specialization"
// @Success     200 {object} models.Envelope{data=[]models.Researcher}
// @Failure     400 {object} models.Envelope
// @Router      /researchers/by-specialization [get]
func (h *ResearchersHandler) BySpecialization(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	items, err := h.researchers.BySpecialization(c.Request.Context(), owner, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, items)
}

// ByInstitution godoc
// @Summary     Search researchers by institution
// @Tags        researchers
// @Produce     json
// @Security    Bearer
// @Param       q query string true "Institution"
// @Success     200 {object} models.Envelope{data=[]models.Researcher}
// @Failure     400 {object} models.Envelope
// @Router      /researchers/by-institution [get]
func (h *ResearchersHandler) ByInstitution(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	items, err := h.researchers.ByInstitution(c.Request.Context(), owner, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, items)
}
