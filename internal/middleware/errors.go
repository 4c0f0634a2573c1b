package middleware

import (
	"fmt"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns the last error attached with c.Error into the response
// envelope. Handlers never write error bodies themselves. Underlying causes
// are only disclosed in the `detail` field when exposeDetail is set.
func ErrorHandler(log *zap.Logger, exposeDetail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		e := apperr.From(c.Errors.Last().Err)

		body := models.Envelope{
			Success: false,
			Message: e.Message,
			Errors:  e.Fields,
		}
		if e.Kind == apperr.KindPersistence {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(e.Err),
			)
			if exposeDetail && e.Err != nil {
				body.Detail = fmt.Sprintf("%+v", e.Err)
			}
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(e.Status(), body)
	}
}
