package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// LifecycleHandler 生命周期分析 HTTP 处理器
type LifecycleHandler struct {
	lifecycleSvc service.LifecycleService
}

// NewLifecycleHandler 创建 LifecycleHandler
func NewLifecycleHandler(lifecycleSvc service.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycleSvc: lifecycleSvc}
}

// TransitionMatrix 阶段 × 细分市场矩阵
// GET /api/v1/lifecycle/transition-matrix?stage=&segment=
func (h *LifecycleHandler) TransitionMatrix(c *gin.Context) {
	var req dto.MatrixFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	m, err := h.lifecycleSvc.TransitionMatrix(c.Request.Context(), &req)
	if err != nil {
		handleLifecycleError(c, err)
		return
	}

	response.OK(c, m)
}

// MatrixProducts 矩阵单元格内的产品
// GET /api/v1/lifecycle/transition-matrix/products?stage=&segment=
func (h *LifecycleHandler) MatrixProducts(c *gin.Context) {
	var req dto.MatrixCellRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.lifecycleSvc.MatrixProducts(c.Request.Context(), &req)
	if err != nil {
		handleLifecycleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Timeline 各细分市场的阶段时间线
// GET /api/v1/lifecycle/timeline
func (h *LifecycleHandler) Timeline(c *gin.Context) {
	segments, err := h.lifecycleSvc.Timeline(c.Request.Context())
	if err != nil {
		handleLifecycleError(c, err)
		return
	}

	response.OK(c, gin.H{"segments": segments})
}

// TransitionSpeed 阶段转换速度
// GET /api/v1/lifecycle/transition-speed?unit=days|months
func (h *LifecycleHandler) TransitionSpeed(c *gin.Context) {
	var req dto.TransitionSpeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	speed, err := h.lifecycleSvc.TransitionSpeed(c.Request.Context(), &req)
	if err != nil {
		handleLifecycleError(c, err)
		return
	}

	response.OK(c, speed)
}

// Distribution 阶段分布
// GET /api/v1/lifecycle/distribution
func (h *LifecycleHandler) Distribution(c *gin.Context) {
	d, err := h.lifecycleSvc.Distribution(c.Request.Context())
	if err != nil {
		handleLifecycleError(c, err)
		return
	}

	response.OK(c, d)
}

// handleLifecycleError 生命周期分析与其导出共用
func handleLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownStageFilter):
		response.BadRequest(c, 20001, "筛选的阶段不存在")
	case errors.Is(err, service.ErrUnknownSegmentFilter):
		response.BadRequest(c, 20002, "筛选的细分市场不存在")
	default:
		response.InternalError(c)
	}
}
