package handlers

import (
	"arqueo-backend/internal/activecontext"
	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// ContextResponse describes a user's selection.
type ContextResponse struct {
	State    string               `json:"state"`
	Context  activecontext.Triple `json:"context"`
	Complete bool                 `json:"complete"`
}

func contextResponse(m *activecontext.Machine) ContextResponse {
	t := m.Current()
	return ContextResponse{State: m.State().String(), Context: t, Complete: t.Complete()}
}

// ContextDetailsResponse adds the selected rows. Rows deleted since they
// were selected are null.
type ContextDetailsResponse struct {
	ContextResponse
	Project *models.Project `json:"project"`
	Area    *models.Area    `json:"area"`
	Site    *models.Site    `json:"site"`
}

type ContextHandler struct {
	contexts *services.ContextService
}

func NewContextHandler(contexts *services.ContextService) *ContextHandler {
	return &ContextHandler{contexts: contexts}
}

func (h *ContextHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/context")
	g.GET("", h.Get)
	g.DELETE("", h.Clear)
	g.GET("/check", h.Check)
	g.GET("/details", h.Details)
	g.PUT("/project", h.SelectProject)
	g.PUT("/area", h.SelectArea)
	g.PUT("/site", h.SelectSite)
}

// Get godoc
// @Summary     Current working context
// @Tags        context
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope{data=ContextResponse}
// @Router      /context [get]
func (h *ContextHandler) Get(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	m, err := h.contexts.Current(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, contextResponse(m))
}

// Check godoc
// @Summary     Require a complete context
// @Description Answers 412 unless a project, area and site are selected.
// @Tags        context
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope{data=ContextResponse}
// @Failure     412 {object} models.Envelope
// @Router      /context/check [get]
func (h *ContextHandler) Check(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	m, err := h.contexts.Current(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	if !m.Current().Complete() {
		fail(c, apperr.ContextRequired("select a project, area and site first"))
		return
	}
	respond(c, contextResponse(m))
}

// Details godoc
// @Summary     Current working context with its rows
// @Description The selected project, area and site records, null where nothing is selected.
// @Tags        context
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope{data=ContextDetailsResponse}
// @Router      /context/details [get]
func (h *ContextHandler) Details(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	d, err := h.contexts.Details(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, ContextDetailsResponse{
		ContextResponse: ContextResponse{State: d.State.String(), Context: d.Triple, Complete: d.Triple.Complete()},
		Project:         d.Project,
		Area:            d.Area,
		Site:            d.Site,
	})
}

type selectFunc func(svc *services.ContextService, c *gin.Context, owner, id string) (*activecontext.Machine, error)

func (h *ContextHandler) selectWith(c *gin.Context, fn selectFunc) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req models.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("id is required", map[string]string{"id": "required"}))
		return
	}
	m, err := fn(h.contexts, c, owner, req.ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, contextResponse(m))
}

// SelectProject godoc
// @Summary     Select the working project
// @Description Clears any area and site selection and the persisted context.
// @Tags        context
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       body body models.SelectRequest true "Project"
// @Success     200 {object} models.Envelope{data=ContextResponse}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /context/project [put]
func (h *ContextHandler) SelectProject(c *gin.Context) {
	h.selectWith(c, func(svc *services.ContextService, c *gin.Context, owner, id string) (*activecontext.Machine, error) {
		return svc.SelectProject(c.Request.Context(), owner, id)
	})
}

// SelectArea godoc
// @Summary     Select the working area
// @Description Requires a selected project that owns the area. Clears the site selection.
// @Tags        context
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       body body models.SelectRequest true "Area"
// @Success     200 {object} models.Envelope{data=ContextResponse}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /context/area [put]
func (h *ContextHandler) SelectArea(c *gin.Context) {
	h.selectWith(c, func(svc *services.ContextService, c *gin.Context, owner, id string) (*activecontext.Machine, error) {
		return svc.SelectArea(c.Request.Context(), owner, id)
	})
}

// SelectSite godoc
// @Summary     Select the working site
// @Description Requires a selected area that contains the site. Persists the complete context.
// @Tags        context
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       body body models.SelectRequest true "Site"
// @Success     200 {object} models.Envelope{data=ContextResponse}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /context/site [put]
func (h *ContextHandler) SelectSite(c *gin.Context) {
	h.selectWith(c, func(svc *services.ContextService, c *gin.Context, owner, id string) (*activecontext.Machine, error) {
		return svc.SelectSite(c.Request.Context(), owner, id)
	})
}

// Clear godoc
// @Summary     Clear the working context
// @Tags        context
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope{data=ContextResponse}
// @Router      /context [delete]
func (h *ContextHandler) Clear(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	m, err := h.contexts.Clear(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, contextResponse(m))
}
