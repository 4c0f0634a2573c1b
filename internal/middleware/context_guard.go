package middleware

import (
	"context"

	"arqueo-backend/internal/activecontext"
	"arqueo-backend/internal/apperr"
	"github.com/gin-gonic/gin"
)

const ContextKey = "active_context"

// ContextSource resolves the caller's context machine.
type ContextSource interface {
	Current(ctx context.Context, owner string) (*activecontext.Machine, error)
}

// RequireFullContext rejects requests from callers without a complete
// project/area/site selection with 412, and stores the triple under
// ContextKey otherwise. Must run after AuthMiddleware.
func RequireFullContext(src ContextSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, err := UserID(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		m, err := src.Current(c.Request.Context(), owner)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		t := m.Current()
		if !t.Complete() {
			_ = c.Error(apperr.ContextRequired("select a project, area and site first"))
			c.Abort()
			return
		}
		c.Set(ContextKey, t)
		c.Next()
	}
}

// ActiveContext returns the triple stored by RequireFullContext.
func ActiveContext(c *gin.Context) (activecontext.Triple, error) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return activecontext.Triple{}, apperr.ContextRequired("select a project, area and site first")
	}
	t, ok := v.(activecontext.Triple)
	if !ok || !t.Complete() {
		return activecontext.Triple{}, apperr.ContextRequired("select a project, area and site first")
	}
	return t, nil
}
