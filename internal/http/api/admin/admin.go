// Package admin registers the administration API routes.
package admin

import (
	"github.com/FreeVigilance/HappyBarrier/internal/accessrequests"
	"github.com/FreeVigilance/HappyBarrier/internal/barriers"
	"github.com/FreeVigilance/HappyBarrier/internal/config"
	apihttp "github.com/FreeVigilance/HappyBarrier/internal/http"
	"github.com/FreeVigilance/HappyBarrier/internal/http/api/admin/handlers"
	"github.com/FreeVigilance/HappyBarrier/internal/sms"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes registers public and authenticated admin routes.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, jwtCfg config.JWTConfig, engine *accessrequests.Engine, registry *barriers.Registry, smsService *sms.Service) {
	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(conn, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(apihttp.AuthMiddleware(conn, jwtCfg.Secret), apihttp.AdminOnly())

	barrierHandler := handlers.NewBarrierHandler(registry)
	authed.POST("/barriers", barrierHandler.Create)
	authed.GET("/barriers", barrierHandler.List)
	authed.GET("/barriers/:id", barrierHandler.Get)
	authed.PATCH("/barriers/:id", barrierHandler.Update)
	authed.DELETE("/barriers/:id", barrierHandler.Delete)
	authed.PATCH("/barriers/:id/limits", barrierHandler.UpdateLimit)
	authed.GET("/barriers/:id/users", barrierHandler.ListMembers)
	authed.DELETE("/barriers/:id/users/:user_id", barrierHandler.RemoveUser)

	settingsHandler := handlers.NewSettingsHandler(conn, registry, smsService)
	authed.GET("/barriers/:id/settings", settingsHandler.Available)
	authed.POST("/barriers/:id/settings", settingsHandler.Send)
	authed.GET("/barriers/:id/actions", settingsHandler.Actions)
	authed.POST("/balance-check", settingsHandler.BalanceCheck)

	requestHandler := handlers.NewAccessRequestHandler(engine)
	authed.POST("/access-requests", requestHandler.Create)
	authed.GET("/access-requests", requestHandler.List)
	authed.GET("/access-requests/:id", requestHandler.Get)
	authed.PATCH("/access-requests/:id", requestHandler.Transition)
}
