// internal/app/router.go
package app

import (
	"time"

	authHandler "bundl-service/internal/handlers/auth"
	bundleHandler "bundl-service/internal/handlers/bundle"
	catalogHandler "bundl-service/internal/handlers/catalog"
	paymentHandler "bundl-service/internal/handlers/payment"
	subscriptionHandler "bundl-service/internal/handlers/subscription"
	"bundl-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	CatalogHandler      *catalogHandler.CatalogHandler
	BundleHandler       *bundleHandler.BundleHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	PaymentHandler      *paymentHandler.PaymentHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimit           *middleware.RateLimitMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Public Auth Routes ====================
	auth := api.Group("/auth")
	{
		auth.GET("/verification-message", h.AuthHandler.VerificationMessage)
		auth.POST("/login", h.AuthHandler.Login)
		auth.GET("/me", h.AuthMiddleware.Auth(), h.AuthHandler.GetMe)
	}

	// ==================== Public Catalog Routes ====================
	services := api.Group("/services")
	{
		services.GET("", h.CatalogHandler.ListServices)
		services.GET("/:id", h.CatalogHandler.GetService)
	}

	// ==================== Admin Catalog Routes ====================
	servicesAdmin := api.Group("/services")
	servicesAdmin.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireAdmin())
	{
		servicesAdmin.GET("/all", h.CatalogHandler.ListAllServices)
		servicesAdmin.POST("", h.CatalogHandler.CreateService)
		servicesAdmin.PATCH("/:id", h.CatalogHandler.UpdateService)
		servicesAdmin.DELETE("/:id", h.CatalogHandler.DeactivateService)
	}

	// ==================== Bundle Routes ====================
	api.POST("/bundles/preview", h.BundleHandler.Preview)
	api.GET("/bundles/presets", h.BundleHandler.ListPresets)

	bundles := api.Group("/bundles")
	bundles.Use(h.AuthMiddleware.Auth())
	{
		bundles.POST("", h.BundleHandler.Create)
		bundles.GET("", h.BundleHandler.List)
		bundles.GET("/:id", h.BundleHandler.Get)
		bundles.DELETE("/:id", h.BundleHandler.Deactivate)
	}

	// ==================== Subscription Routes ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMiddleware.Auth())
	{
		subscriptions.POST("/prepare",
			h.RateLimit.Limit("subscriptions:prepare", 30, time.Minute), h.SubscriptionHandler.Prepare)
		subscriptions.POST("/initiate",
			h.RateLimit.Limit("subscriptions:initiate", 10, time.Minute), h.SubscriptionHandler.Initiate)
		subscriptions.GET("", h.SubscriptionHandler.List)
		subscriptions.GET("/:id", h.SubscriptionHandler.Get)
		subscriptions.POST("/:id/claim", h.SubscriptionHandler.Claim)
		subscriptions.POST("/:id/cancel", h.SubscriptionHandler.Cancel)
		subscriptions.POST("/:id/pause", h.SubscriptionHandler.Pause)
		subscriptions.POST("/:id/resume", h.SubscriptionHandler.Resume)
	}

	// ==================== Payment Routes ====================
	payments := api.Group("/payments")
	payments.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireAdmin())
	{
		payments.POST("/subscriptions/:id/trigger",
			h.RateLimit.Limit("payments:trigger", 60, time.Minute), h.PaymentHandler.Trigger)
		payments.POST("/due/trigger", h.PaymentHandler.TriggerDue)
	}
}
