// Package front registers the user-facing API routes.
package front

import (
	"github.com/FreeVigilance/HappyBarrier/internal/accessrequests"
	"github.com/FreeVigilance/HappyBarrier/internal/barriers"
	"github.com/FreeVigilance/HappyBarrier/internal/config"
	apihttp "github.com/FreeVigilance/HappyBarrier/internal/http"
	"github.com/FreeVigilance/HappyBarrier/internal/http/api/front/handlers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes registers public and authenticated front routes.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, jwtCfg config.JWTConfig, engine *accessrequests.Engine, registry *barriers.Registry) {
	front := r.Group("/v0/front")

	authHandler := handlers.NewAuthHandler(conn, jwtCfg)
	front.POST("/register", authHandler.Register)
	front.POST("/login", authHandler.Login)

	authed := front.Group("")
	authed.Use(apihttp.AuthMiddleware(conn, jwtCfg.Secret))

	profileHandler := handlers.NewProfileHandler()
	authed.GET("/profile", profileHandler.Get)

	barrierHandler := handlers.NewBarrierHandler(registry)
	authed.GET("/barriers", barrierHandler.List)

	requestHandler := handlers.NewAccessRequestHandler(engine)
	authed.POST("/access-requests", requestHandler.Create)
	authed.GET("/access-requests", requestHandler.List)
	authed.GET("/access-requests/:id", requestHandler.Get)
	authed.PATCH("/access-requests/:id", requestHandler.Transition)
}
