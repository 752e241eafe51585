package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// CRJRHandler CR/JR 监控 HTTP 处理器
type CRJRHandler struct {
	crjrSvc service.CRJRService
}

// NewCRJRHandler 创建 CRJRHandler
func NewCRJRHandler(crjrSvc service.CRJRService) *CRJRHandler {
	return &CRJRHandler{crjrSvc: crjrSvc}
}

// List GET /api/v1/monitoring-crjr
func (h *CRJRHandler) List(c *gin.Context) {
	var req dto.CRJRListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.crjrSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleCRJRError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// Get GET /api/v1/monitoring-crjr/:id
func (h *CRJRHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "CR/JR ")
	if !ok {
		return
	}

	item, err := h.crjrSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleCRJRError(c, err)
		return
	}

	response.OK(c, item)
}

// Create POST /api/v1/monitoring-crjr
func (h *CRJRHandler) Create(c *gin.Context) {
	var req dto.CRJRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.crjrSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleCRJRError(c, err)
		return
	}

	response.Created(c, item)
}

// Update PUT /api/v1/monitoring-crjr/:id
func (h *CRJRHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "CR/JR ")
	if !ok {
		return
	}

	var req dto.CRJRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.crjrSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleCRJRError(c, err)
		return
	}

	response.OK(c, item)
}

// Delete DELETE /api/v1/monitoring-crjr/:id
func (h *CRJRHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "CR/JR ")
	if !ok {
		return
	}

	if err := h.crjrSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleCRJRError(c, err)
		return
	}

	response.OK(c, nil)
}

// Statistics GET /api/v1/monitoring-crjr/statistics
func (h *CRJRHandler) Statistics(c *gin.Context) {
	stats, err := h.crjrSvc.Statistics(c.Request.Context())
	if err != nil {
		h.handleCRJRError(c, err)
		return
	}
	response.OK(c, stats)
}

// Filters GET /api/v1/monitoring-crjr/filters
func (h *CRJRHandler) Filters(c *gin.Context) {
	f, err := h.crjrSvc.Filters(c.Request.Context())
	if err != nil {
		h.handleCRJRError(c, err)
		return
	}
	response.OK(c, f)
}

func (h *CRJRHandler) handleCRJRError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrCRJRNotFound):
		response.NotFound(c, 22001, "CR/JR 记录不存在")
	default:
		response.InternalError(c)
	}
}
