package handlers

import (
	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type SitesHandler struct {
	*EntityHandler[models.Site]
	sites *services.SiteService
}

func NewSitesHandler(sites *services.SiteService, contexts *services.ContextService) *SitesHandler {
	return &SitesHandler{EntityHandler: NewEntityHandler[models.Site](sites, contexts), sites: sites}
}

func (h *SitesHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/sites")
	g.GET("/nearby", h.Nearby)
	h.EntityHandler.Register(g)
}

// Nearby godoc
// @Summary     Sites near a point
// @Description Returns the caller's sites within radius_km (default 10) of lat/lon, nearest first.
// @Tags        sites
// @Produce     json
// @Security    Bearer
// @Param       lat query number true "Latitude"
// @Param       lon query number true "Longitude"
// @Param       radius_km query number false "Radius in kilometres"
// @Success     200 {object} models.Envelope{data=[]services.NearbySite}
// @Failure     400 {object} models.Envelope
// @Router      /sites/nearby [get]
func (h *SitesHandler) Nearby(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var q models.NearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, apperr.Validation("lat and lon are required numbers", map[string]string{"lat": "required", "lon": "required"}))
		return
	}
	sites, err := h.sites.Nearby(c.Request.Context(), owner, *q.Lat, *q.Lon, q.RadiusKm)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, sites)
}
