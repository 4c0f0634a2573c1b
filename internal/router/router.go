package router

import (
	"arqueo-backend/internal/config"
	"arqueo-backend/internal/handlers"
	"arqueo-backend/internal/middleware"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/services"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "arqueo-backend/docs"
)

type RouterDeps struct {
	Config   *config.Config
	Log      *zap.Logger
	Contexts *services.ContextService

	Health      *handlers.HealthHandler
	Projects    *handlers.ProjectsHandler
	Areas       *handlers.EntityHandler[models.Area]
	Sites       *handlers.SitesHandler
	Excavations *handlers.ExcavationsHandler
	Findings    *handlers.FindingsHandler
	Researchers *handlers.ResearchersHandler
	Sessions    *handlers.EntityHandler[models.FieldworkSession]
	Context     *handlers.ContextHandler
	Profiles    *handlers.ProfilesHandler
	Schemas     *handlers.SchemasHandler
	Tools       *handlers.ToolsHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ZapLogger(d.Log))
	r.Use(middleware.ErrorHandler(d.Log, !d.Config.IsProduction()))

	r.GET("/health", d.Health.Health)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public researcher profiles (no auth)
	r.GET("/api/v1/public/researchers/:user_id", d.Profiles.GetPublicProfile)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(d.Config.SupabaseJWTSecret))
	{
		d.Projects.Register(v1)
		d.Areas.Register(v1.Group("/areas"))
		d.Sites.Register(v1)
		d.Excavations.Register(v1)
		d.Findings.Register(v1)
		d.Researchers.Register(v1)
		d.Sessions.Register(v1.Group("/fieldwork-sessions"))

		d.Context.Register(v1)
		d.Profiles.Register(v1)
		d.Schemas.Register(v1)

		tools := v1.Group("/tools")
		tools.Use(middleware.RequireFullContext(d.Contexts))
		d.Tools.Register(tools)
	}

	return r
}
