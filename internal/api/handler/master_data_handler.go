package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// MasterDataHandler 类别、细分市场、阶段共用的 HTTP 处理器
type MasterDataHandler struct {
	svc   service.MasterDataService
	label string
}

// NewMasterDataHandler 创建 MasterDataHandler；label 用于参数错误提示
func NewMasterDataHandler(svc service.MasterDataService, label string) *MasterDataHandler {
	return &MasterDataHandler{svc: svc, label: label}
}

// List 列表
// GET /api/v1/{categories|segments|stages}
func (h *MasterDataHandler) List(c *gin.Context) {
	var req dto.NameListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.svc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleMasterDataError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// Options 下拉选项
// GET /api/v1/{categories|segments|stages}/options
func (h *MasterDataHandler) Options(c *gin.Context) {
	items, err := h.svc.Options(c.Request.Context())
	if err != nil {
		h.handleMasterDataError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// Get 详情
// GET /api/v1/{categories|segments|stages}/:id
func (h *MasterDataHandler) Get(c *gin.Context) {
	id, ok := parseID(c, h.label)
	if !ok {
		return
	}

	item, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleMasterDataError(c, err)
		return
	}

	response.OK(c, item)
}

// Create 创建
// POST /api/v1/{categories|segments|stages}
func (h *MasterDataHandler) Create(c *gin.Context) {
	var req dto.MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleMasterDataError(c, err)
		return
	}

	response.Created(c, item)
}

// Update 更新
// PUT /api/v1/{categories|segments|stages}/:id
func (h *MasterDataHandler) Update(c *gin.Context) {
	id, ok := parseID(c, h.label)
	if !ok {
		return
	}

	var req dto.MasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleMasterDataError(c, err)
		return
	}

	response.OK(c, item)
}

// Delete 删除
// DELETE /api/v1/{categories|segments|stages}/:id
func (h *MasterDataHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, h.label)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.handleMasterDataError(c, err)
		return
	}

	response.OK(c, nil)
}

// UploadIcon 上传图标（multipart: file + type=light|dark）
// POST /api/v1/{categories|segments|stages}/icon
func (h *MasterDataHandler) UploadIcon(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请选择图标文件")
		return
	}

	result, err := h.svc.UploadIcon(c.Request.Context(), c.PostForm("type"), fh)
	if err != nil {
		h.handleMasterDataError(c, err)
		return
	}

	response.Created(c, result)
}

// handleMasterDataError 三类主数据的哨兵错误互不重叠，共用一个映射
func (h *MasterDataHandler) handleMasterDataError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrSegmentNotFound),
		errors.Is(err, service.ErrStageNotFound):
		response.NotFound(c, 15001, err.Error())
	case errors.Is(err, service.ErrCategoryNameExists),
		errors.Is(err, service.ErrSegmentNameExists),
		errors.Is(err, service.ErrStageNameExists):
		response.Conflict(c, 15002, err.Error())
	case errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, service.ErrSegmentInUse),
		errors.Is(err, service.ErrStageInUse):
		response.BadRequest(c, 15003, err.Error())
	case errors.Is(err, service.ErrInvalidIconType):
		response.BadRequest(c, 15004, "图标类型必须为 light 或 dark")
	default:
		response.InternalError(c)
	}
}
