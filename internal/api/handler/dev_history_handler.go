package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// DevHistoryHandler 开发历史 HTTP 处理器
type DevHistoryHandler struct {
	devSvc service.DevHistoryService
}

// NewDevHistoryHandler 创建 DevHistoryHandler
func NewDevHistoryHandler(devSvc service.DevHistoryService) *DevHistoryHandler {
	return &DevHistoryHandler{devSvc: devSvc}
}

// List 开发历史列表
// GET /api/v1/dev-histories
func (h *DevHistoryHandler) List(c *gin.Context) {
	var req dto.DevHistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.devSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// ProductOptions 产品下拉选项
// GET /api/v1/dev-histories/products
func (h *DevHistoryHandler) ProductOptions(c *gin.Context) {
	items, err := h.devSvc.ProductOptions(c.Request.Context())
	if err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// Get 开发历史详情
// GET /api/v1/dev-histories/:id
func (h *DevHistoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "开发历史")
	if !ok {
		return
	}

	item, err := h.devSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	response.OK(c, item)
}

// Create 创建开发历史
// POST /api/v1/dev-histories
func (h *DevHistoryHandler) Create(c *gin.Context) {
	var req dto.DevHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.devSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	response.Created(c, item)
}

// Update 更新开发历史
// PUT /api/v1/dev-histories/:id
func (h *DevHistoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "开发历史")
	if !ok {
		return
	}

	var req dto.DevHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.devSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	response.OK(c, item)
}

// Delete 删除开发历史
// DELETE /api/v1/dev-histories/:id
func (h *DevHistoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "开发历史")
	if !ok {
		return
	}

	if err := h.devSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	response.OK(c, nil)
}

// Import 从 Excel 导入开发历史
// POST /api/v1/dev-histories/import
func (h *DevHistoryHandler) Import(c *gin.Context) {
	reader, ok := openUpload(c)
	if !ok {
		return
	}

	result, err := h.devSvc.Import(c.Request.Context(), reader)
	if err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	response.OK(c, result)
}

// Template 下载导入模板
// GET /api/v1/dev-histories/template
func (h *DevHistoryHandler) Template(c *gin.Context) {
	buf, filename, err := h.devSvc.Template(c.Request.Context())
	if err != nil {
		h.handleDevHistoryError(c, err)
		return
	}

	sendFile(c, buf, filename, mimeXLSX)
}

func (h *DevHistoryHandler) handleDevHistoryError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrDevHistoryNotFound):
		response.NotFound(c, 18001, "开发历史不存在")
	case errors.Is(err, service.ErrProductNotFound):
		response.BadRequest(c, 18002, "产品不存在")
	case errors.Is(err, service.ErrDevDateOrder):
		response.BadRequest(c, 18003, "结束日期不能早于开始日期")
	case errors.Is(err, service.ErrDevStatusInvalid):
		response.BadRequest(c, 18004, err.Error())
	default:
		response.InternalError(c)
	}
}
