// @title           Arqueo Backend API
// @version         1.0.0
// @description     Backend API for archaeological research data: projects, areas, sites, excavations, findings, researchers and field sessions, with a per-user working context, mapping tools and csv/json/geojson export.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arqueo-backend/docs"
	"arqueo-backend/internal/bootstrap"
	"arqueo-backend/internal/config"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/supabase"

	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	"go.uber.org/zap"
)

func main() {
	inj := bootstrap.BuildContainer()

	cfg, err := do.Invoke[*config.Config](inj)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := do.MustInvoke[*zap.Logger](inj)
	defer logger.Sync()

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(cfg.BaseURL)
		if err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	engine, err := do.Invoke[*gin.Engine](inj)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: engine}

	go func() {
		logger.Info("server starting", zap.String("port", port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if pub, err := do.Invoke[events.Publisher](inj); err == nil {
		if err := pub.Close(); err != nil {
			logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}
	if db := do.MustInvoke[*supabase.Database](inj); db != nil {
		db.Close()
	}
	logger.Info("server exited")
}
