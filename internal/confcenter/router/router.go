// Package router registers the confcenter HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/confcenter/internal/confcenter/handler"
	"github.com/kart-io/confcenter/pkg/authz"
	"github.com/kart-io/confcenter/pkg/middleware"
	"github.com/kart-io/confcenter/pkg/security/jwt"
)

// Handlers bundles the handlers wired by Register.
type Handlers struct {
	App     *handler.AppHandler
	Config  *handler.ConfigHandler
	Item    *handler.ItemHandler
	Publish *handler.PublishHandler
	WS      *handler.WSHandler
}

// Register wires all routes onto the engine. The data plane (resolved config
// reads, liveness, registration, the push hub) is anonymous; the management
// plane requires a bearer token plus the matching permission code.
func Register(engine *gin.Engine, jwtMgr *jwt.Manager, h Handlers) {
	engine.Use(middleware.Recovery(), middleware.Logger())

	// Data plane.
	engine.POST("/apps/register", h.App.Register)
	engine.GET("/config/ping", h.Config.Ping)
	engine.GET("/config/:appId/:env", h.Config.Resolve)
	engine.GET("/ws", h.WS.Connect)

	// Management plane.
	admin := engine.Group("/admin")
	admin.Use(middleware.Auth(jwtMgr))
	{
		admin.GET("/apps",
			middleware.RequirePermission(authz.PermConfigRead), h.App.List)
		admin.POST("/apps",
			middleware.RequirePermission(authz.PermAppWrite), h.App.Create)
		admin.GET("/apps/:appId",
			middleware.RequirePermission(authz.PermConfigRead), h.App.Get)
		admin.PUT("/apps/:appId",
			middleware.RequirePermission(authz.PermAppWrite), h.App.Update)
		admin.GET("/apps/:appId/items",
			middleware.RequirePermission(authz.PermConfigRead), h.Item.List)
		admin.GET("/apps/:appId/histories",
			middleware.RequirePermission(authz.PermConfigRead), h.Publish.HistoryList)

		admin.POST("/items",
			middleware.RequirePermission(authz.PermItemWrite), h.Item.Create)
		admin.GET("/items/:itemId",
			middleware.RequirePermission(authz.PermConfigRead), h.Item.Get)
		admin.PUT("/items/:itemId",
			middleware.RequirePermission(authz.PermItemWrite), h.Item.Update)
		admin.DELETE("/items/:itemId",
			middleware.RequirePermission(authz.PermItemWrite), h.Item.Delete)

		admin.POST("/publish",
			middleware.RequirePermission(authz.PermPublishWrite), h.Publish.Publish)
		admin.POST("/rollback",
			middleware.RequirePermission(authz.PermPublishRollback), h.Publish.Rollback)
		admin.GET("/histories/:historyId",
			middleware.RequirePermission(authz.PermConfigRead), h.Publish.HistoryDetail)

		admin.GET("/connections",
			middleware.RequirePermission(authz.PermConfigRead), h.WS.Connections)
	}
}
