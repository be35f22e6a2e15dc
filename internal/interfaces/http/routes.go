package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paysync.backend/internal/interfaces/http/handlers"
	"paysync.backend/internal/interfaces/http/middleware"
	"paysync.backend/internal/usecases"
)

// Deps bundles everything routes.go needs to wire the router. It's
// assembled by cmd/server/main.go after constructing the repository
// and usecase layers.
type Deps struct {
	WebhookHandler         *handlers.WebhookHandler
	OperatorHandler        *handlers.OperatorHandler
	OperatorSessionHandler *handlers.OperatorSessionHandler
	HealthHandler          *handlers.HealthHandler
	OperatorUsecase        *usecases.OperatorUsecase
	RateLimit              int
	RateLimitWindow        time.Duration
}

// NewRouter assembles the gin engine for the whole service: webhook
// intake, the operator console, health, and metrics.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	r.GET("/healthz", d.HealthHandler.HandleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhookGroup := r.Group("/webhook")
	if d.RateLimit > 0 {
		webhookGroup.Use(middleware.RateLimitMiddleware(d.RateLimit, d.RateLimitWindow))
	}
	webhookGroup.POST("", d.WebhookHandler.HandleWebhook)

	r.POST("/operator/session", d.OperatorSessionHandler.CreateSession)

	operatorGroup := r.Group("/operator")
	operatorGroup.Use(middleware.OperatorAuthMiddleware(d.OperatorUsecase))
	{
		operatorGroup.GET("/jobs", d.OperatorHandler.ListJobs)
		operatorGroup.POST("/jobs/:id/requeue", d.OperatorHandler.RequeueJob)
		operatorGroup.GET("/payments/:external_id/audit", d.OperatorHandler.GetAuditTrail)
	}

	return r
}
