package handlers

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// Resource is the generic entity contract every services.EntityService
// (and the services embedding one) satisfies.
type Resource[T any] interface {
	Definition() services.Definition
	Create(ctx context.Context, owner string, body map[string]interface{}, parts map[string]string) (*T, error)
	Get(ctx context.Context, owner, id string) (*T, error)
	List(ctx context.Context, owner string, q url.Values, fixed ...repository.Filter) ([]T, models.Pagination, error)
	Update(ctx context.Context, owner, id string, body map[string]interface{}) (*T, error)
	Delete(ctx context.Context, owner, id string) error
	Search(ctx context.Context, owner, q string) ([]T, error)
	Statistics(ctx context.Context, owner string) (models.Statistics, error)
	CheckFormat(format string) error
	Export(ctx context.Context, owner, format string, w io.Writer) error
	Import(ctx context.Context, owner string, items []map[string]interface{}) ([]T, error)
	AddListItem(ctx context.Context, owner, id, field string, value interface{}) (*T, error)
	UpdateListItem(ctx context.Context, owner, id, field string, idx int, value interface{}) (*T, error)
	RemoveListItem(ctx context.Context, owner, id, field string, idx int) (*T, error)
}

// EntityHandler serves the CRUD, search, stats, export, import and
// list-field routes of one entity.
type EntityHandler[T any] struct {
	svc      Resource[T]
	contexts *services.ContextService
}

// NewEntityHandler pre-fills parent ids on create from the caller's context
// when contexts is non-nil.
func NewEntityHandler[T any](svc Resource[T], contexts *services.ContextService) *EntityHandler[T] {
	return &EntityHandler[T]{svc: svc, contexts: contexts}
}

// Register mounts the generic routes on g. Entity-specific routes must be
// registered on the same group.
func (h *EntityHandler[T]) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/search", h.Search)
	g.GET("/stats", h.Stats)
	g.GET("/export", h.Export)
	g.POST("/import", h.Import)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/lists/:field", h.AddListItem)
	g.PUT("/:id/lists/:field/:index", h.UpdateListItem)
	g.DELETE("/:id/lists/:field/:index", h.RemoveListItem)
}

func (h *EntityHandler[T]) parts(c *gin.Context, owner string) (map[string]string, error) {
	if h.contexts == nil {
		return nil, nil
	}
	m, err := h.contexts.Current(c.Request.Context(), owner)
	if err != nil {
		return nil, err
	}
	return services.Parts(m.Current()), nil
}

// Create godoc
// @Summary     Create a record
// @Description Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.
// @Tags        entities
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "projects, areas, sites, excavations, findings, researchers or fieldwork-sessions"
// @Param       body body object true "Record fields"
// @Success     201 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Failure     401 {object} models.Envelope
// @Failure     409 {object} models.Envelope
// @Failure     500 {object} models.Envelope
// @Router      /{entity} [post]
func (h *EntityHandler[T]) Create(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	parts, err := h.parts(c, owner)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := h.svc.Create(c.Request.Context(), owner, body, parts)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, v, h.svc.Definition().Entity+" created")
}

// List godoc
// @Summary     List records
// @Description Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.
// @Tags        entities
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       limit query int false "Page size (default 10, max 100)"
// @Param       offset query int false "Rows to skip"
// @Success     200 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Failure     401 {object} models.Envelope
// @Router      /{entity} [get]
func (h *EntityHandler[T]) List(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	items, p, err := h.svc.List(c.Request.Context(), owner, c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	page(c, items, p)
}

// Get godoc
// @Summary     Get a record
// @Tags        entities
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       id path string true "Record ID"
// @Success     200 {object} models.Envelope
// @Failure     401 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /{entity}/{id} [get]
func (h *EntityHandler[T]) Get(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, v)
}

// Update godoc
// @Summary     Update a record
// @Description Merges the allow-listed fields of the body. Ownership and identity fields are ignored.
// @Tags        entities
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       id path string true "Record ID"
// @Param       body body object true "Fields to change"
// @Success     200 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Failure     409 {object} models.Envelope
// @Router      /{entity}/{id} [put]
func (h *EntityHandler[T]) Update(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := h.svc.Update(c.Request.Context(), owner, c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, v)
}

// Delete godoc
// @Summary     Delete a record
// @Tags        entities
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       id path string true "Record ID"
// @Success     200 {object} models.Envelope
// @Failure     401 {object} models.Envelope
// @Failure     500 {object} models.Envelope
// @Router      /{entity}/{id} [delete]
func (h *EntityHandler[T]) Delete(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), owner, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	message(c, h.svc.Definition().Entity+" deleted")
}

// Search godoc
// @Summary     Search records
// @Description Case-insensitive substring match over the entity's text columns.
// @Tags        entities
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       q query string true "Search term"
// @Success     200 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Router      /{entity}/search [get]
func (h *EntityHandler[T]) Search(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	items, err := h.svc.Search(c.Request.Context(), owner, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, items)
}

// Stats godoc
// @Summary     Record statistics
// @Description Total plus counts for every value of the entity's fixed enums.
// @Tags        entities
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Success     200 {object} models.Envelope{data=models.Statistics}
// @Router      /{entity}/stats [get]
func (h *EntityHandler[T]) Stats(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	stats, err := h.svc.Statistics(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, stats)
}

// Export godoc
// @Summary     Export records
// @Description Streams every record of the caller as csv, json or geojson (entities with coordinates only).
// @Tags        entities
// @Produce     json
// @Produce     text/csv
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       format query string false "csv, json or geojson" default(json)
// @Success     200 {file} file
// @Failure     400 {object} models.Envelope
// @Router      /{entity}/export [get]
func (h *EntityHandler[T]) Export(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", services.FormatJSON)
	if err := h.svc.CheckFormat(format); err != nil {
		fail(c, err)
		return
	}
	def := h.svc.Definition()
	w := attachment(c, services.ContentType(format), fmt.Sprintf("%s.%s", def.Collection, format))
	if err := h.svc.Export(c.Request.Context(), owner, format, w); err != nil {
		fail(c, err)
	}
}

// Import godoc
// @Summary     Import records
// @Description Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.
// @Tags        entities
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       body body []object true "Records"
// @Success     201 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Failure     409 {object} models.Envelope
// @Router      /{entity}/import [post]
func (h *EntityHandler[T]) Import(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var items []map[string]interface{}
	if err := c.ShouldBindJSON(&items); err != nil {
		fail(c, badBody())
		return
	}
	out, err := h.svc.Import(c.Request.Context(), owner, items)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, out, fmt.Sprintf("imported %d records", len(out)))
}

// AddListItem godoc
// @Summary     Append to a list field
// @Tags        entities
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       id path string true "Record ID"
// @Param       field path string true "List field"
// @Param       body body models.ListItemRequest true "Item"
// @Success     200 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Failure     404 {object} models.Envelope
// @Router      /{entity}/{id}/lists/{field} [post]
func (h *EntityHandler[T]) AddListItem(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req models.ListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badBody())
		return
	}
	v, err := h.svc.AddListItem(c.Request.Context(), owner, c.Param("id"), c.Param("field"), req.Value)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, v)
}

// UpdateListItem godoc
// @Summary     Replace a list item
// @Tags        entities
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       id path string true "Record ID"
// @Param       field path string true "List field"
// @Param       index path int true "Item index"
// @Param       body body models.ListItemRequest true "Item"
// @Success     200 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Router      /{entity}/{id}/lists/{field}/{index} [put]
func (h *EntityHandler[T]) UpdateListItem(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	idx, err := indexParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req models.ListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badBody())
		return
	}
	v, err := h.svc.UpdateListItem(c.Request.Context(), owner, c.Param("id"), c.Param("field"), idx, req.Value)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, v)
}

// RemoveListItem godoc
// @Summary     Remove a list item
// @Tags        entities
// @Produce     json
// @Security    Bearer
// @Param       entity path string true "Entity collection"
// @Param       id path string true "Record ID"
// @Param       field path string true "List field"
// @Param       index path int true "Item index"
// @Success     200 {object} models.Envelope
// @Failure     400 {object} models.Envelope
// @Router      /{entity}/{id}/lists/{field}/{index} [delete]
func (h *EntityHandler[T]) RemoveListItem(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	idx, err := indexParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := h.svc.RemoveListItem(c.Request.Context(), owner, c.Param("id"), c.Param("field"), idx)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, v)
}
