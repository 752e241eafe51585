package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// RunProgramHandler 运营任务（run program）监控 HTTP 处理器
type RunProgramHandler struct {
	runSvc service.RunProgramService
}

// NewRunProgramHandler 创建 RunProgramHandler
func NewRunProgramHandler(runSvc service.RunProgramService) *RunProgramHandler {
	return &RunProgramHandler{runSvc: runSvc}
}

// List 任务列表
// GET /api/v1/monitoring-run-program
func (h *RunProgramHandler) List(c *gin.Context) {
	var req dto.RunProgramListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.runSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleRunProgramError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// Get 任务详情（含周进度）
// GET /api/v1/monitoring-run-program/:id
func (h *RunProgramHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "任务")
	if !ok {
		return
	}

	item, err := h.runSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleRunProgramError(c, err)
		return
	}

	response.OK(c, item)
}

// Create 创建任务
// POST /api/v1/monitoring-run-program
func (h *RunProgramHandler) Create(c *gin.Context) {
	var req dto.RunProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.runSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleRunProgramError(c, err)
		return
	}

	response.Created(c, item)
}

// Update 更新任务，周进度整体替换
// PUT /api/v1/monitoring-run-program/:id
func (h *RunProgramHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "任务")
	if !ok {
		return
	}

	var req dto.RunProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.runSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleRunProgramError(c, err)
		return
	}

	response.OK(c, item)
}

// Delete 删除任务
// DELETE /api/v1/monitoring-run-program/:id
func (h *RunProgramHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "任务")
	if !ok {
		return
	}

	if err := h.runSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleRunProgramError(c, err)
		return
	}

	response.OK(c, nil)
}

// Statistics GET /api/v1/monitoring-run-program/statistics
func (h *RunProgramHandler) Statistics(c *gin.Context) {
	stats, err := h.runSvc.Statistics(c.Request.Context())
	if err != nil {
		h.handleRunProgramError(c, err)
		return
	}
	response.OK(c, stats)
}

// Filters GET /api/v1/monitoring-run-program/filters
func (h *RunProgramHandler) Filters(c *gin.Context) {
	f, err := h.runSvc.Filters(c.Request.Context())
	if err != nil {
		h.handleRunProgramError(c, err)
		return
	}
	response.OK(c, f)
}

// Import 以 Excel 全量替换任务
// POST /api/v1/monitoring-run-program/import
func (h *RunProgramHandler) Import(c *gin.Context) {
	reader, ok := openUpload(c)
	if !ok {
		return
	}

	result, err := h.runSvc.Import(c.Request.Context(), reader)
	if err != nil {
		h.handleRunProgramError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *RunProgramHandler) handleRunProgramError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrRunProgramNotFound):
		response.NotFound(c, 23001, "运营任务不存在")
	case errors.Is(err, service.ErrRunProgramDateOrder):
		response.BadRequest(c, 23002, "结束日期不能早于开始日期")
	default:
		response.InternalError(c)
	}
}
