package bootstrap

import (
	"context"
	"fmt"

	"arqueo-backend/internal/activecontext"
	"arqueo-backend/internal/config"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/handlers"
	"arqueo-backend/internal/logger"
	"arqueo-backend/internal/media"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"arqueo-backend/internal/router"
	"arqueo-backend/internal/services"
	"arqueo-backend/internal/supabase"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.LogLevel, cfg.IsProduction())
	})

	Provide(inj)
	return inj
}

// Provide registers everything below config and logger, so tests can supply
// their own.
func Provide(inj *do.Injector) {
	// Direct Postgres, nil when DATABASE_URL is unset
	do.Provide(inj, func(i *do.Injector) (*supabase.Database, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		if cfg.StoreDriver != config.StoreSupabase || cfg.DatabaseURL == "" {
			log.Info("DATABASE_URL not set; statistics, export and cascades use PostgREST only")
			return nil, nil
		}
		db, err := supabase.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Warn("direct database unavailable, continuing with PostgREST only", zap.Error(err))
			return nil, nil
		}
		return db, nil
	})

	// Store
	do.Provide(inj, func(i *do.Injector) (repository.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		if cfg.StoreDriver == config.StoreMemory {
			log.Warn("using in-memory store; data is lost on restart")
			return repository.NewMemoryStore(), nil
		}
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return nil, fmt.Errorf("init supabase client: %w", err)
		}
		return supabase.NewStore(client, do.MustInvoke[*supabase.Database](i), log), nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return rdb, nil
	})

	// Context persistence
	do.Provide(inj, func(i *do.Injector) (activecontext.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.ContextStore {
		case config.ContextStoreRedis:
			rdb, err := do.Invoke[*redis.Client](i)
			if err != nil {
				return nil, err
			}
			return activecontext.NewRedisStore(rdb), nil
		case config.ContextStoreSupabase:
			return activecontext.NewTableStore(do.MustInvoke[repository.Store](i)), nil
		default:
			return activecontext.NewMemoryStore(), nil
		}
	})
	do.Provide(inj, func(i *do.Injector) (*activecontext.Registry, error) {
		return activecontext.NewRegistry(do.MustInvoke[activecontext.Store](i), do.MustInvoke[*zap.Logger](i)), nil
	})

	// RabbitMQ events, a no-op without AMQP_URL
	do.Provide(inj, func(i *do.Injector) (events.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		if cfg.AMQPURL == "" {
			return events.NopPublisher{}, nil
		}
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Warn("event publishing disabled", zap.Error(err))
			return events.NopPublisher{}, nil
		}
		return pub, nil
	})

	// Media, nil when no backend is configured
	do.Provide(inj, func(i *do.Injector) (media.Blob, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.BlobDriver {
		case config.BlobS3:
			return media.NewS3Blob(context.Background(), cfg.S3)
		default:
			if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
				do.MustInvoke[*zap.Logger](i).Warn("media uploads disabled: no storage backend configured")
				return nil, nil
			}
			return supabase.NewStorageBlob(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket), nil
		}
	})

	do.Provide(inj, func(i *do.Injector) (*forms.Schema, error) {
		return forms.Default(), nil
	})

	provideServices(inj)
	provideHandlers(inj)

	do.Provide(inj, func(i *do.Injector) (*gin.Engine, error) {
		return router.NewRouter(router.RouterDeps{
			Config:      do.MustInvoke[*config.Config](i),
			Log:         do.MustInvoke[*zap.Logger](i),
			Contexts:    do.MustInvoke[*services.ContextService](i),
			Health:      do.MustInvoke[*handlers.HealthHandler](i),
			Projects:    do.MustInvoke[*handlers.ProjectsHandler](i),
			Areas:       do.MustInvoke[*handlers.EntityHandler[models.Area]](i),
			Sites:       do.MustInvoke[*handlers.SitesHandler](i),
			Excavations: do.MustInvoke[*handlers.ExcavationsHandler](i),
			Findings:    do.MustInvoke[*handlers.FindingsHandler](i),
			Researchers: do.MustInvoke[*handlers.ResearchersHandler](i),
			Sessions:    do.MustInvoke[*handlers.EntityHandler[models.FieldworkSession]](i),
			Context:     do.MustInvoke[*handlers.ContextHandler](i),
			Profiles:    do.MustInvoke[*handlers.ProfilesHandler](i),
			Schemas:     do.MustInvoke[*handlers.SchemasHandler](i),
			Tools:       do.MustInvoke[*handlers.ToolsHandler](i),
		}), nil
	})
}

type serviceDeps struct {
	store  repository.Store
	schema *forms.Schema
	pub    events.Publisher
	log    *zap.Logger
}

func depsOf(i *do.Injector) serviceDeps {
	return serviceDeps{
		store:  do.MustInvoke[repository.Store](i),
		schema: do.MustInvoke[*forms.Schema](i),
		pub:    do.MustInvoke[events.Publisher](i),
		log:    do.MustInvoke[*zap.Logger](i),
	}
}

func provideServices(inj *do.Injector) {
	do.Provide(inj, func(i *do.Injector) (*services.ProjectService, error) {
		d := depsOf(i)
		return services.NewProjectService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.AreaService, error) {
		d := depsOf(i)
		return services.NewAreaService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.SiteService, error) {
		d := depsOf(i)
		return services.NewSiteService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.ExcavationService, error) {
		d := depsOf(i)
		return services.NewExcavationService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.FindingService, error) {
		d := depsOf(i)
		return services.NewFindingService(d.store, d.schema, d.pub, do.MustInvoke[media.Blob](i), d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.ResearcherService, error) {
		d := depsOf(i)
		return services.NewResearcherService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.FieldworkSessionService, error) {
		d := depsOf(i)
		return services.NewFieldworkSessionService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.MeasurementService, error) {
		d := depsOf(i)
		return services.NewMeasurementService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.GridUnitService, error) {
		d := depsOf(i)
		return services.NewGridUnitService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.MappingService, error) {
		return services.NewMappingService(
			do.MustInvoke[*services.GridUnitService](i),
			do.MustInvoke[*services.MeasurementService](i),
			do.MustInvoke[*services.FindingService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.ProfileService, error) {
		d := depsOf(i)
		return services.NewProfileService(d.store, d.schema, d.pub, d.log), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.ContextService, error) {
		return services.NewContextService(do.MustInvoke[*activecontext.Registry](i), do.MustInvoke[repository.Store](i)), nil
	})
}

func provideHandlers(inj *do.Injector) {
	do.Provide(inj, func(i *do.Injector) (*handlers.HealthHandler, error) {
		checks := map[string]handlers.Pinger{}
		if db := do.MustInvoke[*supabase.Database](i); db != nil {
			checks["database"] = db
		}
		if do.MustInvoke[*config.Config](i).ContextStore == config.ContextStoreRedis {
			rdb := do.MustInvoke[*redis.Client](i)
			checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}
		return handlers.NewHealthHandler(do.MustInvoke[*zap.Logger](i), checks), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.ProjectsHandler, error) {
		return handlers.NewProjectsHandler(do.MustInvoke[*services.ProjectService](i), do.MustInvoke[*services.ContextService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.EntityHandler[models.Area], error) {
		return handlers.NewEntityHandler[models.Area](do.MustInvoke[*services.AreaService](i), do.MustInvoke[*services.ContextService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.SitesHandler, error) {
		return handlers.NewSitesHandler(do.MustInvoke[*services.SiteService](i), do.MustInvoke[*services.ContextService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.ExcavationsHandler, error) {
		return handlers.NewExcavationsHandler(do.MustInvoke[*services.ExcavationService](i), do.MustInvoke[*services.ContextService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.FindingsHandler, error) {
		return handlers.NewFindingsHandler(do.MustInvoke[*services.FindingService](i), do.MustInvoke[*services.ContextService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.ResearchersHandler, error) {
		return handlers.NewResearchersHandler(do.MustInvoke[*services.ResearcherService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.EntityHandler[models.FieldworkSession], error) {
		return handlers.NewEntityHandler[models.FieldworkSession](do.MustInvoke[*services.FieldworkSessionService](i), do.MustInvoke[*services.ContextService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.ContextHandler, error) {
		return handlers.NewContextHandler(do.MustInvoke[*services.ContextService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.ProfilesHandler, error) {
		return handlers.NewProfilesHandler(do.MustInvoke[*services.ProfileService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.SchemasHandler, error) {
		return handlers.NewSchemasHandler(do.MustInvoke[*forms.Schema](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handlers.ToolsHandler, error) {
		return handlers.NewToolsHandler(
			do.MustInvoke[*services.MeasurementService](i),
			do.MustInvoke[*services.GridUnitService](i),
			do.MustInvoke[*services.MappingService](i),
		), nil
	})
}
