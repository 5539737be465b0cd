package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/confcenter/internal/confcenter/biz"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
	"github.com/kart-io/confcenter/pkg/response"
)

// ConfigResolver computes the effective mapping for an (app, environment).
// Satisfied by biz.ResolverService and biz.CachedResolver.
type ConfigResolver interface {
	Resolve(ctx context.Context, appID string, env model.Environment) (map[string]biz.ResolvedValue, error)
}

// ConfigHandler serves the anonymous runtime data plane: resolved config
// reads and the liveness probe.
type ConfigHandler struct {
	resolver ConfigResolver
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(resolver ConfigResolver) *ConfigHandler {
	return &ConfigHandler{resolver: resolver}
}

// Resolve returns the merged, Released-only key/value mapping for an
// (app, environment) pair.
func (h *ConfigHandler) Resolve(c *gin.Context) {
	appID := c.Param("appId")
	env := model.Environment(c.Param("env"))
	if !env.Valid() {
		response.Fail(c, errors.ErrValidationFailed.WithMessagef("invalid environment %q", env))
		return
	}

	configs, err := h.resolver.Resolve(c.Request.Context(), appID, env)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, configs)
}

// PingResponse is the liveness probe payload.
type PingResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Ping reports service liveness.
func (h *ConfigHandler) Ping(c *gin.Context) {
	response.Success(c, &PingResponse{
		Status:    "Connected",
		Timestamp: time.Now().UnixMilli(),
	})
}
