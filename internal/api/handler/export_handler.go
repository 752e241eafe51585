package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器（xlsx / pdf）
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// LifecycleMatrix 导出阶段矩阵
// GET /api/v1/lifecycle/transition-matrix/export
func (h *ExportHandler) LifecycleMatrix(c *gin.Context) {
	var req dto.MatrixFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.LifecycleMatrix(c.Request.Context(), &req)
	h.send(c, buf, filename, mimeXLSX, err)
}

// LifecycleTimeline GET /api/v1/lifecycle/timeline/export
func (h *ExportHandler) LifecycleTimeline(c *gin.Context) {
	h.sendWith(c, h.exportSvc.LifecycleTimeline, mimeXLSX)
}

// LifecycleSpeed 导出转换速度
// GET /api/v1/lifecycle/transition-speed/export?unit=days|months
func (h *ExportHandler) LifecycleSpeed(c *gin.Context) {
	var req dto.TransitionSpeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.LifecycleSpeed(c.Request.Context(), &req)
	h.send(c, buf, filename, mimeXLSX, err)
}

// LifecycleDistribution GET /api/v1/lifecycle/distribution/export
func (h *ExportHandler) LifecycleDistribution(c *gin.Context) {
	h.sendWith(c, h.exportSvc.LifecycleDistribution, mimeXLSX)
}

// LifecyclePDF GET /api/v1/lifecycle/export-pdf
func (h *ExportHandler) LifecyclePDF(c *gin.Context) {
	h.sendWith(c, h.exportSvc.LifecyclePDF, mimePDF)
}

// DashboardPDF GET /api/v1/dashboard/export-pdf
func (h *ExportHandler) DashboardPDF(c *gin.Context) {
	h.sendWith(c, h.exportSvc.DashboardPDF, mimePDF)
}

// Licenses 按列表筛选条件导出许可证
// GET /api/v1/monitoring-license/export
func (h *ExportHandler) Licenses(c *gin.Context) {
	var req dto.LicenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.Licenses(c.Request.Context(), &req)
	h.send(c, buf, filename, mimeXLSX, err)
}

// CRJR 按列表筛选条件导出 CR/JR
// GET /api/v1/monitoring-crjr/export
func (h *ExportHandler) CRJR(c *gin.Context) {
	var req dto.CRJRListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.CRJR(c.Request.Context(), &req)
	h.send(c, buf, filename, mimeXLSX, err)
}

func (h *ExportHandler) sendWith(c *gin.Context, fn func(context.Context) (*bytes.Buffer, string, error), contentType string) {
	buf, filename, err := fn(c.Request.Context())
	h.send(c, buf, filename, contentType, err)
}

func (h *ExportHandler) send(c *gin.Context, buf *bytes.Buffer, filename, contentType string, err error) {
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	sendFile(c, buf, filename, contentType)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownStageFilter),
		errors.Is(err, service.ErrUnknownSegmentFilter):
		handleLifecycleError(c, err)
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 24001, "生成导出文件失败")
	default:
		response.InternalError(c)
	}
}
