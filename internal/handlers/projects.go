package handlers

import (
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type ProjectsHandler struct {
	*EntityHandler[models.Project]
	projects *services.ProjectService
}

func NewProjectsHandler(projects *services.ProjectService, contexts *services.ContextService) *ProjectsHandler {
	return &ProjectsHandler{
		EntityHandler: NewEntityHandler[models.Project](projects, contexts),
		projects:      projects,
	}
}

func (h *ProjectsHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/projects")
	h.EntityHandler.Register(g)
	g.GET("/:id/milestones", h.ListMilestones)
	g.POST("/:id/milestones", h.CreateMilestone)

	m := api.Group("/milestones")
	m.PUT("/:id", h.UpdateMilestone)
	m.DELETE("/:id", h.DeleteMilestone)
}

// ListMilestones godoc
// @Summary     List project milestones
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Project ID"
// @Param       limit query int false "Page size"
// @Param       offset query int false "Rows to skip"
// @Success     200 {object} models.Envelope{data=[]models.Milestone}
// @Failure     404 {object} models.Envelope
// @Router      /projects/{id}/milestones [get]
func (h *ProjectsHandler) ListMilestones(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	items, p, err := h.projects.ListMilestones(c.Request.Context(), owner, c.Param("id"), c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	page(c, items, p)
}

// CreateMilestone godoc
// @Summary     Add a milestone to a project
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Project ID"
// @Param       body body models.Milestone true "Milestone"
// @Success     201 {object} models.Envelope{data=models.Milestone}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /projects/{id}/milestones [post]
func (h *ProjectsHandler) CreateMilestone(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.projects.CreateMilestone(c.Request.Context(), owner, c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, m, "milestone created")
}

// UpdateMilestone godoc
// @Summary     Update a milestone
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Milestone ID"
// @Param       body body object true "Fields to change"
// @Success     200 {object} models.Envelope{data=models.Milestone}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /milestones/{id} [put]
func (h *ProjectsHandler) UpdateMilestone(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.projects.UpdateMilestone(c.Request.Context(), owner, c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, m)
}

// DeleteMilestone godoc
// @Summary     Delete a milestone
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Milestone ID"
// @Success     200 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /milestones/{id} [delete]
func (h *ProjectsHandler) DeleteMilestone(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	if err := h.projects.DeleteMilestone(c.Request.Context(), owner, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	message(c, "milestone deleted")
}
