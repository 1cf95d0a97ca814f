package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"equipment-monitor-backend/config"
	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/mw"
	"equipment-monitor-backend/internal/store"
	"equipment-monitor-backend/internal/telemetry"

	"go.uber.org/zap"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, pipeline *telemetry.Pipeline, logger *zap.Logger) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, pipeline, cfg, logger)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	authed := mw.Auth([]byte(cfg.Auth.JWTSecret))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", handler.Signup)
			auth.POST("/login", handler.Login)
			auth.POST("/refresh", handler.Refresh)
			auth.POST("/logout", authed, handler.Logout)
		}

		equipment := api.Group("/equipment", authed)
		{
			equipment.GET("", handler.ListEquipment)
			equipment.GET("/stats", caching, handler.EquipmentStats)
			equipment.GET("/:id", handler.GetEquipment)
			equipment.POST("", mw.RequireRoles(model.RolePolicyMaker, model.RoleLabManager), handler.CreateEquipment)
			equipment.PUT("/:id", mw.RequireRoles(model.RolePolicyMaker, model.RoleLabManager), handler.UpdateEquipment)
			equipment.DELETE("/:id", mw.RequireRoles(model.RolePolicyMaker, model.RoleLabManager), handler.DeleteEquipment)
		}

		monitoring := api.Group("/monitoring", authed)
		{
			monitoring.GET("/realtime", handler.RealtimeStatus)
			monitoring.GET("/equipment/:code/history", handler.SensorHistory)
			monitoring.POST("/equipment/:code/status", handler.IngestStatus)
			monitoring.GET("/dashboard", caching, handler.Dashboard)
		}

		alerts := api.Group("/alerts", authed)
		{
			alerts.GET("", handler.ListAlerts)
			alerts.PATCH("/:id/resolve", handler.ResolveAlert)
		}

		notifications := api.Group("/notifications", authed)
		{
			notifications.GET("", handler.ListNotifications)
			notifications.PATCH("/:id/read", handler.MarkNotificationRead)
		}

		users := api.Group("/users", authed)
		{
			users.GET("", handler.ListUsers)
			users.GET("/institute/:institute", handler.ListUsersByInstitute)
			users.GET("/:id", handler.GetUser)
			users.PATCH("/:id/status", mw.RequireRoles(model.RolePolicyMaker), handler.SetUserActive)
		}

		reports := api.Group("/reports", authed)
		{
			reports.GET("/equipment-performance", handler.EquipmentPerformanceReport)
		}

		api.PUT("/subscriptions", authed, handler.PutSubscription)
		api.GET("/subscriptions", authed, handler.GetSubscriptions)
		api.DELETE("/subscriptions", authed, handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
