package handlers

import (
	"fmt"
	"net/http"

	"arqueo-backend/internal/middleware"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// ToolsHandler serves the mapping tool. Its routes sit behind
// middleware.RequireFullContext.
type ToolsHandler struct {
	measurements *services.MeasurementService
	grid         *services.GridUnitService
	mapping      *services.MappingService
}

func NewToolsHandler(measurements *services.MeasurementService, grid *services.GridUnitService, mapping *services.MappingService) *ToolsHandler {
	return &ToolsHandler{measurements: measurements, grid: grid, mapping: mapping}
}

func (h *ToolsHandler) Register(tools *gin.RouterGroup) {
	tools.GET("/context", h.Context)
	tools.GET("/measurements", h.ListMeasurements)
	tools.POST("/measurements", h.CreateMeasurement)
	tools.GET("/measurements/:id", h.GetMeasurement)
	tools.PUT("/measurements/:id", h.UpdateMeasurement)
	tools.DELETE("/measurements/:id", h.DeleteMeasurement)

	tools.GET("/grid-units", h.ListGridUnits)
	tools.POST("/grid-units", h.CreateGridUnit)
	tools.GET("/grid-units/:id", h.GetGridUnit)
	tools.PUT("/grid-units/:id", h.UpdateGridUnit)
	tools.DELETE("/grid-units/:id", h.DeleteGridUnit)

	tools.GET("/mapping/stats", h.MappingStats)
	tools.GET("/mapping/export", h.ExportMapping)
}

// Context godoc
// @Summary     Active context of the tools
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope
// @Failure     412 {object} models.Envelope
// @Router      /tools/context [get]
func (h *ToolsHandler) Context(c *gin.Context) {
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, t)
}

// ListMeasurements godoc
// @Summary     Measurements of the active site
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Param       limit query int false "Page size"
// @Param       offset query int false "Rows to skip"
// @Success     200 {object} models.Envelope{data=[]models.Measurement}
// @Failure     412 {object} models.Envelope
// @Router      /tools/measurements [get]
func (h *ToolsHandler) ListMeasurements(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	items, p, err := h.measurements.ListInContext(c.Request.Context(), owner, t, c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	page(c, items, p)
}

// CreateMeasurement godoc
// @Summary     Record a measurement
// @Description The measurement is stamped with the active project, area and site.
// @Tags        tools
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       body body models.Measurement true "Measurement"
// @Success     201 {object} models.Envelope{data=models.Measurement}
// @Failure     400 {object} models.Envelope
// @Failure     412 {object} models.Envelope
// @Router      /tools/measurements [post]
func (h *ToolsHandler) CreateMeasurement(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.measurements.CreateInContext(c.Request.Context(), owner, t, body)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, m, "measurement created")
}

// GetMeasurement godoc
// @Summary     Get a measurement of the active site
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Measurement ID"
// @Success     200 {object} models.Envelope{data=models.Measurement}
// @Failure     404 {object} models.Envelope
// @Failure     412 {object} models.Envelope
// @Router      /tools/measurements/{id} [get]
func (h *ToolsHandler) GetMeasurement(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.measurements.GetInContext(c.Request.Context(), owner, t, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, m)
}

// UpdateMeasurement godoc
// @Summary     Update a measurement of the active site
// @Tags        tools
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Measurement ID"
// @Param       body body object true "Fields to change"
// @Success     200 {object} models.Envelope{data=models.Measurement}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /tools/measurements/{id} [put]
func (h *ToolsHandler) UpdateMeasurement(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.measurements.UpdateInContext(c.Request.Context(), owner, t, c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, m)
}

// DeleteMeasurement godoc
// @Summary     Delete a measurement of the active site
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Measurement ID"
// @Success     200 {object} models.Envelope
// @Failure     412 {object} models.Envelope
// @Router      /tools/measurements/{id} [delete]
func (h *ToolsHandler) DeleteMeasurement(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.measurements.DeleteInContext(c.Request.Context(), owner, t, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	message(c, "measurement deleted")
}

// ListGridUnits godoc
// @Summary     Grid units of the active site
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Param       limit query int false "Page size"
// @Param       offset query int false "Rows to skip"
// @Param       status query string false "active, completed or paused"
// @Success     200 {object} models.Envelope{data=[]models.GridUnit}
// @Failure     412 {object} models.Envelope
// @Router      /tools/grid-units [get]
func (h *ToolsHandler) ListGridUnits(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	items, p, err := h.grid.ListInContext(c.Request.Context(), owner, t, c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	page(c, items, p)
}

// CreateGridUnit godoc
// @Summary     Record a grid unit
// @Description The unit is stamped with the active project, area and site. An excavation_id must name one of the caller's excavations.
// @Tags        tools
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       body body models.GridUnit true "Grid unit"
// @Success     201 {object} models.Envelope{data=models.GridUnit}
// @Failure     400 {object} models.Envelope
// @Failure     412 {object} models.Envelope
// @Router      /tools/grid-units [post]
func (h *ToolsHandler) CreateGridUnit(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	g, err := h.grid.CreateInContext(c.Request.Context(), owner, t, body)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, g, "grid unit created")
}

// GetGridUnit godoc
// @Summary     Get a grid unit of the active site
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Grid unit ID"
// @Success     200 {object} models.Envelope{data=models.GridUnit}
// @Failure     404 {object} models.Envelope
// @Failure     412 {object} models.Envelope
// @Router      /tools/grid-units/{id} [get]
func (h *ToolsHandler) GetGridUnit(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	g, err := h.grid.GetInContext(c.Request.Context(), owner, t, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, g)
}

// UpdateGridUnit godoc
// @Summary     Update a grid unit of the active site
// @Tags        tools
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Grid unit ID"
// @Param       body body object true "Fields to change"
// @Success     200 {object} models.Envelope{data=models.GridUnit}
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /tools/grid-units/{id} [put]
func (h *ToolsHandler) UpdateGridUnit(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	g, err := h.grid.UpdateInContext(c.Request.Context(), owner, t, c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, g)
}

// DeleteGridUnit godoc
// @Summary     Delete a grid unit of the active site
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Grid unit ID"
// @Success     200 {object} models.Envelope
// @Failure     412 {object} models.Envelope
// @Router      /tools/grid-units/{id} [delete]
func (h *ToolsHandler) DeleteGridUnit(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.grid.DeleteInContext(c.Request.Context(), owner, t, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	message(c, "grid unit deleted")
}

// MappingStats godoc
// @Summary     Mapping statistics of the active site
// @Description Counts grid units, measurements and findings of the site and sums the grid surface.
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope{data=models.MappingStats}
// @Failure     412 {object} models.Envelope
// @Router      /tools/mapping/stats [get]
func (h *ToolsHandler) MappingStats(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	stats, err := h.mapping.Stats(c.Request.Context(), owner, t)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, stats)
}

// ExportMapping godoc
// @Summary     Download the mapping data of the active site
// @Description A JSON attachment with every grid unit, every measurement and the statistics.
// @Tags        tools
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.MappingExport
// @Failure     412 {object} models.Envelope
// @Router      /tools/mapping/export [get]
func (h *ToolsHandler) ExportMapping(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	t, err := middleware.ActiveContext(c)
	if err != nil {
		fail(c, err)
		return
	}
	doc, err := h.mapping.Export(c.Request.Context(), owner, t)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="mapping-data-%s.json"`, doc.ExportedAt.Format("2006-01-02")))
	c.IndentedJSON(http.StatusOK, doc)
}
