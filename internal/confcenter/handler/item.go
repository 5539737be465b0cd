package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/confcenter/internal/confcenter/biz"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
	"github.com/kart-io/confcenter/pkg/middleware"
	"github.com/kart-io/confcenter/pkg/response"
)

// ItemHandler handles config item authoring requests.
type ItemHandler struct {
	svc *biz.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(svc *biz.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// CreateItemRequest is the item creation body.
type CreateItemRequest struct {
	AppID       string `json:"app_id" binding:"required"`
	Environment string `json:"environment" binding:"required"`
	Key         string `json:"key" binding:"required"`
	Group       string `json:"group"`
	Value       string `json:"value"`
	ValueType   string `json:"value_type"`
}

// Create creates a config item.
func (h *ItemHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	item := &model.ConfigItem{
		AppID:       req.AppID,
		Environment: model.Environment(req.Environment),
		Key:         req.Key,
		Group:       req.Group,
		Value:       req.Value,
		ValueType:   model.ValueType(req.ValueType),
	}
	if err := h.svc.Create(c.Request.Context(), item); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, item)
}

// UpdateItemRequest is the item value edit body.
type UpdateItemRequest struct {
	Value string `json:"value"`
}

// Update edits an item's value.
func (h *ItemHandler) Update(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	id := c.Param("itemId")
	by := middleware.SubjectFrom(c)
	if err := h.svc.UpdateValue(c.Request.Context(), id, req.Value, by); err != nil {
		response.Fail(c, err)
		return
	}

	item, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, item)
}

// Delete removes a config item.
func (h *ItemHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("itemId")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Get retrieves a config item.
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, item)
}

// List lists items for an (app, environment), filtered by group and key prefix.
func (h *ItemHandler) List(c *gin.Context) {
	env := model.Environment(c.Query("environment"))
	if !env.Valid() {
		response.Fail(c, errors.ErrValidationFailed.WithMessagef("invalid environment %q", env))
		return
	}

	offset, limit := pagination(c)
	list, err := h.svc.Search(c.Request.Context(), c.Param("appId"), env,
		c.Query("group"), c.Query("keyPrefix"), offset, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}
