package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// PositionHandler 职位（jabatan）HTTP 处理器
type PositionHandler struct {
	positionSvc service.PositionService
}

// NewPositionHandler 创建 PositionHandler
func NewPositionHandler(positionSvc service.PositionService) *PositionHandler {
	return &PositionHandler{positionSvc: positionSvc}
}

// ListPositions 职位列表
// GET /api/v1/positions
func (h *PositionHandler) ListPositions(c *gin.Context) {
	var req dto.NameListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.positionSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handlePositionError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// GetPosition 职位详情
// GET /api/v1/positions/:id
func (h *PositionHandler) GetPosition(c *gin.Context) {
	id, ok := parseID(c, "职位")
	if !ok {
		return
	}

	pos, err := h.positionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handlePositionError(c, err)
		return
	}

	response.OK(c, pos)
}

// CreatePosition 创建职位
// POST /api/v1/positions
func (h *PositionHandler) CreatePosition(c *gin.Context) {
	var req dto.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	pos, err := h.positionSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handlePositionError(c, err)
		return
	}

	response.Created(c, pos)
}

// UpdatePosition 更新职位
// PUT /api/v1/positions/:id
func (h *PositionHandler) UpdatePosition(c *gin.Context) {
	id, ok := parseID(c, "职位")
	if !ok {
		return
	}

	var req dto.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	pos, err := h.positionSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handlePositionError(c, err)
		return
	}

	response.OK(c, pos)
}

// DeletePosition 删除职位
// DELETE /api/v1/positions/:id
func (h *PositionHandler) DeletePosition(c *gin.Context) {
	id, ok := parseID(c, "职位")
	if !ok {
		return
	}

	if err := h.positionSvc.Delete(c.Request.Context(), id); err != nil {
		h.handlePositionError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *PositionHandler) handlePositionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPositionNotFound):
		response.NotFound(c, 14001, "职位不存在")
	case errors.Is(err, service.ErrPositionNameExists):
		response.Conflict(c, 14002, "职位名称已存在")
	case errors.Is(err, service.ErrPositionInUse):
		response.BadRequest(c, 14003, "职位下仍有用户，无法删除")
	default:
		response.InternalError(c)
	}
}
