// Package handler provides the HTTP handlers of the confcenter service.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/confcenter/internal/confcenter/biz"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
	"github.com/kart-io/confcenter/pkg/response"
)

// AppHandler handles application registration and management requests.
type AppHandler struct {
	svc *biz.AppService
}

// NewAppHandler creates a new AppHandler.
func NewAppHandler(svc *biz.AppService) *AppHandler {
	return &AppHandler{svc: svc}
}

// RegisterAppRequest is the body of the self-registration endpoint.
type RegisterAppRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisterAppResponse is returned to self-registering clients.
type RegisterAppResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// Register handles client self-registration. An existing id is reported as
// an error status but still returns the stored secret, so a client that
// registered earlier keeps working.
func (h *AppHandler) Register(c *gin.Context) {
	var req RegisterAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	result, err := h.svc.Register(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		response.Fail(c, err)
		return
	}

	data := &RegisterAppResponse{ID: result.ID, Secret: result.Secret}
	if result.Existed {
		response.FailData(c, errors.ErrAppExists, data)
		return
	}
	response.Success(c, data)
}

// UpsertAppRequest is the management-plane app create/update body.
type UpsertAppRequest struct {
	ID             string `json:"id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Enabled        bool   `json:"enabled"`
	AutoPublish    bool   `json:"auto_publish"`
	InheritedAppID string `json:"inherited_app_id"`
	Tag            string `json:"tag"`
}

// Create handles management-plane app creation.
func (h *AppHandler) Create(c *gin.Context) {
	var req UpsertAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	app := &model.App{
		ID:             req.ID,
		Name:           req.Name,
		Enabled:        req.Enabled,
		AutoPublish:    req.AutoPublish,
		InheritedAppID: req.InheritedAppID,
		Tag:            req.Tag,
	}
	if err := h.svc.Create(c.Request.Context(), app); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, app)
}

// Update handles management-plane app updates.
func (h *AppHandler) Update(c *gin.Context) {
	id := c.Param("appId")

	var req UpsertAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	app := &model.App{
		ID:             id,
		Name:           req.Name,
		Enabled:        req.Enabled,
		AutoPublish:    req.AutoPublish,
		InheritedAppID: req.InheritedAppID,
		Tag:            req.Tag,
	}
	if err := h.svc.Update(c.Request.Context(), app); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, app)
}

// Get retrieves one application.
func (h *AppHandler) Get(c *gin.Context) {
	app, err := h.svc.Get(c.Request.Context(), c.Param("appId"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, app)
}

// List lists applications with pagination.
func (h *AppHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	list, err := h.svc.List(c.Request.Context(), offset, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

// pagination reads offset/limit query params with sane defaults.
func pagination(c *gin.Context) (int, int) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return offset, limit
}
