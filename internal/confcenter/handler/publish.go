package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/confcenter/internal/confcenter/biz"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
	"github.com/kart-io/confcenter/pkg/middleware"
	"github.com/kart-io/confcenter/pkg/response"
)

// PublishHandler handles publish, rollback and history requests.
type PublishHandler struct {
	svc *biz.PublishService
}

// NewPublishHandler creates a new PublishHandler.
func NewPublishHandler(svc *biz.PublishService) *PublishHandler {
	return &PublishHandler{svc: svc}
}

// PublishRequest names a batch of edited items with their expected versions.
type PublishRequest struct {
	AppID       string `json:"app_id" binding:"required"`
	Environment string `json:"environment" binding:"required"`
	Description string `json:"description"`
	Items       []struct {
		ItemID          string `json:"item_id" binding:"required"`
		NewValue        string `json:"new_value"`
		ExpectedVersion int64  `json:"expected_version"`
	} `json:"items" binding:"required"`
}

// Publish commits a publish batch.
func (h *PublishHandler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	batch := make([]biz.PublishItem, 0, len(req.Items))
	for _, it := range req.Items {
		batch = append(batch, biz.PublishItem{
			ItemID:          it.ItemID,
			NewValue:        it.NewValue,
			ExpectedVersion: it.ExpectedVersion,
		})
	}

	history, err := h.svc.Publish(c.Request.Context(),
		req.AppID, model.Environment(req.Environment), req.Description,
		middleware.SubjectFrom(c), batch)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, history)
}

// RollbackRequest names the historical snapshot to replay forward.
type RollbackRequest struct {
	HistoryID string `json:"history_id" binding:"required"`
}

// Rollback replays a historical snapshot as a new forward publish.
func (h *PublishHandler) Rollback(c *gin.Context) {
	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	history, err := h.svc.Rollback(c.Request.Context(), req.HistoryID, middleware.SubjectFrom(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, history)
}

// HistoryList lists publish history for an (app, environment), newest first.
func (h *PublishHandler) HistoryList(c *gin.Context) {
	env := model.Environment(c.Query("environment"))
	if !env.Valid() {
		response.Fail(c, errors.ErrValidationFailed.WithMessagef("invalid environment %q", env))
		return
	}

	offset, limit := pagination(c)
	list, err := h.svc.HistoryList(c.Request.Context(), c.Param("appId"), env, offset, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

// HistoryDetail returns the per-item diff rows of one publish snapshot.
func (h *PublishHandler) HistoryDetail(c *gin.Context) {
	rows, err := h.svc.HistoryDetail(c.Request.Context(), c.Param("historyId"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, rows)
}
