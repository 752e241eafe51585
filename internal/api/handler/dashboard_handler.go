package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// DashboardHandler 首页仪表盘 HTTP 处理器
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// Stats 各阶段产品统计
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboardSvc.Stats(c.Request.Context())
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, stats)
}

// Segments GET /api/v1/dashboard/segments
func (h *DashboardHandler) Segments(c *gin.Context) {
	list, err := h.dashboardSvc.Segments(c.Request.Context())
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// ByStage GET /api/v1/dashboard/by-stage/:id
func (h *DashboardHandler) ByStage(c *gin.Context) {
	id, ok := parseID(c, "阶段")
	if !ok {
		return
	}
	list, err := h.dashboardSvc.ByStage(c.Request.Context(), id)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// BySegment GET /api/v1/dashboard/by-segment/:id
func (h *DashboardHandler) BySegment(c *gin.Context) {
	id, ok := parseID(c, "细分市场")
	if !ok {
		return
	}
	list, err := h.dashboardSvc.BySegment(c.Request.Context(), id)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// AllProducts GET /api/v1/dashboard/all-products
func (h *DashboardHandler) AllProducts(c *gin.Context) {
	list, err := h.dashboardSvc.AllProducts(c.Request.Context())
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// LicenseStats GET /api/v1/dashboard/license-stats
func (h *DashboardHandler) LicenseStats(c *gin.Context) {
	stats, err := h.dashboardSvc.LicenseStats(c.Request.Context())
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, stats)
}

// CRJRStats GET /api/v1/dashboard/crjr-stats
func (h *DashboardHandler) CRJRStats(c *gin.Context) {
	stats, err := h.dashboardSvc.CRJRStats(c.Request.Context())
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, stats)
}

// RunInsights GET /api/v1/dashboard/run-insights
func (h *DashboardHandler) RunInsights(c *gin.Context) {
	insights, err := h.dashboardSvc.RunInsights(c.Request.Context())
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, insights)
}

func (h *DashboardHandler) handleDashboardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStageNotFound):
		response.NotFound(c, 19001, "阶段不存在")
	case errors.Is(err, service.ErrSegmentNotFound):
		response.NotFound(c, 19002, "细分市场不存在")
	default:
		response.InternalError(c)
	}
}
