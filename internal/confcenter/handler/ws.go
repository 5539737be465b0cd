package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kart-io/logger"

	"github.com/kart-io/confcenter/internal/confcenter/biz"
	"github.com/kart-io/confcenter/internal/confcenter/notifier"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
	"github.com/kart-io/confcenter/pkg/response"
)

// WSHandler upgrades client connections into hub sessions.
type WSHandler struct {
	hub  *notifier.Hub
	apps *biz.AppService

	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *notifier.Hub, apps *biz.AppService) *WSHandler {
	return &WSHandler{
		hub:  hub,
		apps: apps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients are non-browser SDK processes; no origin policy applies.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Connect upgrades the request and serves the push protocol until the
// connection closes. Identity comes from query parameters; a disabled or
// unknown app is rejected before the upgrade.
func (h *WSHandler) Connect(c *gin.Context) {
	appID := c.Query("appId")
	env := model.Environment(c.Query("env"))
	if appID == "" || !env.Valid() {
		response.Fail(c, errors.ErrValidationFailed.WithMessage("appId and env query parameters are required"))
		return
	}

	app, err := h.apps.Get(c.Request.Context(), appID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if !app.Enabled {
		response.Fail(c, errors.ErrAppDisabled)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnw("websocket upgrade failed", "app_id", appID, "error", err)
		return
	}

	h.hub.Serve(conn, notifier.ClientConnection{
		ClientID:    c.Query("clientId"),
		AppID:       appID,
		Environment: env,
		HostName:    c.Query("hostName"),
		Version:     c.Query("version"),
	})
}

// Connections lists live client connections, optionally filtered by appId
// and environment query parameters.
func (h *WSHandler) Connections(c *gin.Context) {
	response.Success(c, h.hub.Registry().List(
		c.Query("appId"), model.Environment(c.Query("environment"))))
}
