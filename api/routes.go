package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/opendesk/mailroom/api/handlers"
	"github.com/opendesk/mailroom/api/middleware"
	"github.com/opendesk/mailroom/internal/repository"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	mailboxHandler := handlers.NewMailboxHandler(repos, s.Orchestrator)

	// Health endpoint stays unauthenticated
	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILROOM-API-KEY",
		ValidAPIKey: apikey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TracingMiddleware())
	{
		mailboxes := api.Group("/mailboxes")
		{
			mailboxes.GET("", mailboxHandler.List)
			mailboxes.POST("/:id/test", mailboxHandler.Test)
			mailboxes.GET("/:id/folders", mailboxHandler.Folders)
			mailboxes.POST("/:id/fetch", mailboxHandler.Fetch)
		}
	}
}
