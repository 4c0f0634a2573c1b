package handlers

import (
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type ProfilesHandler struct {
	profiles *services.ProfileService
}

func NewProfilesHandler(profiles *services.ProfileService) *ProfilesHandler {
	return &ProfilesHandler{profiles: profiles}
}

func (h *ProfilesHandler) Register(api *gin.RouterGroup) {
	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.UpdateProfile)
}

// GetProfile godoc
// @Summary     Get own public profile
// @Description Returns the caller's profile, or an empty private one when none has been saved.
// @Tags        profiles
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Envelope{data=models.PublicProfile}
// @Failure     401 {object} models.Envelope
// @Router      /profile [get]
func (h *ProfilesHandler) GetProfile(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.profiles.Get(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, p)
}

// UpdateProfile godoc
// @Summary     Update own public profile
// @Tags        profiles
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       body body models.PublicProfile true "Profile fields"
// @Success     200 {object} models.Envelope{data=models.PublicProfile}
// @Failure     400 {object} models.Envelope
// @Router      /profile [put]
func (h *ProfilesHandler) UpdateProfile(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	body, err := bindBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), owner, body)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, p)
}

// GetPublicProfile godoc
// @Summary     Public researcher profile
// @Description Served without authentication. Private and missing profiles both answer 404.
// @Tags        profiles
// @Produce     json
// @Param       user_id path string true "Researcher user ID"
// @Success     200 {object} models.Envelope{data=models.PublicProfile}
// @Failure     404 {object} models.Envelope
// @Router      /public/researchers/{user_id} [get]
func (h *ProfilesHandler) GetPublicProfile(c *gin.Context) {
	p, err := h.profiles.GetPublic(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, p)
}
