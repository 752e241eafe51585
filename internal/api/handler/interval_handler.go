package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// IntervalHandler 阶段间隔 HTTP 处理器
type IntervalHandler struct {
	intervalSvc service.IntervalService
}

// NewIntervalHandler 创建 IntervalHandler
func NewIntervalHandler(intervalSvc service.IntervalService) *IntervalHandler {
	return &IntervalHandler{intervalSvc: intervalSvc}
}

// ListIntervals 阶段间隔列表
// GET /api/v1/intervals
func (h *IntervalHandler) ListIntervals(c *gin.Context) {
	var req dto.IntervalListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.intervalSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleIntervalError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// GetInterval 阶段间隔详情
// GET /api/v1/intervals/:id
func (h *IntervalHandler) GetInterval(c *gin.Context) {
	id, ok := parseID(c, "阶段间隔")
	if !ok {
		return
	}

	item, err := h.intervalSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleIntervalError(c, err)
		return
	}

	response.OK(c, item)
}

// CreateInterval 创建阶段间隔
// POST /api/v1/intervals
func (h *IntervalHandler) CreateInterval(c *gin.Context) {
	var req dto.IntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.intervalSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleIntervalError(c, err)
		return
	}

	response.Created(c, item)
}

// UpdateInterval 更新阶段间隔
// PUT /api/v1/intervals/:id
func (h *IntervalHandler) UpdateInterval(c *gin.Context) {
	id, ok := parseID(c, "阶段间隔")
	if !ok {
		return
	}

	var req dto.IntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.intervalSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleIntervalError(c, err)
		return
	}

	response.OK(c, item)
}

// DeleteInterval 删除阶段间隔
// DELETE /api/v1/intervals/:id
func (h *IntervalHandler) DeleteInterval(c *gin.Context) {
	id, ok := parseID(c, "阶段间隔")
	if !ok {
		return
	}

	if err := h.intervalSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleIntervalError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *IntervalHandler) handleIntervalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrIntervalNotFound):
		response.NotFound(c, 16001, "阶段间隔不存在")
	case errors.Is(err, service.ErrIntervalExists):
		response.Conflict(c, 16002, "该阶段组合的间隔已存在")
	case errors.Is(err, service.ErrIntervalSameStage):
		response.BadRequest(c, 16003, "前后阶段不能相同")
	case errors.Is(err, service.ErrIntervalStageUnset):
		response.BadRequest(c, 16004, "前置或后续阶段不存在")
	case errors.Is(err, service.ErrIntervalMonths):
		response.BadRequest(c, 16005, "间隔月数必须大于 0")
	default:
		response.InternalError(c)
	}
}
