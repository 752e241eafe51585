package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// LicenseHandler 许可证监控 HTTP 处理器
type LicenseHandler struct {
	licenseSvc service.LicenseService
}

// NewLicenseHandler 创建 LicenseHandler
func NewLicenseHandler(licenseSvc service.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenseSvc: licenseSvc}
}

// List 许可证列表
// GET /api/v1/monitoring-license
func (h *LicenseHandler) List(c *gin.Context) {
	var req dto.LicenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.licenseSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// Get 许可证详情
// GET /api/v1/monitoring-license/:id
func (h *LicenseHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "许可证")
	if !ok {
		return
	}

	item, err := h.licenseSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OK(c, item)
}

// Create 创建许可证
// POST /api/v1/monitoring-license
func (h *LicenseHandler) Create(c *gin.Context) {
	var req dto.LicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.licenseSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.Created(c, item)
}

// Update 更新许可证
// PUT /api/v1/monitoring-license/:id
func (h *LicenseHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "许可证")
	if !ok {
		return
	}

	var req dto.LicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	item, err := h.licenseSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OK(c, item)
}

// Delete 删除许可证
// DELETE /api/v1/monitoring-license/:id
func (h *LicenseHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "许可证")
	if !ok {
		return
	}

	if err := h.licenseSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OK(c, nil)
}

// Statistics GET /api/v1/monitoring-license/statistics
func (h *LicenseHandler) Statistics(c *gin.Context) {
	stats, err := h.licenseSvc.Statistics(c.Request.Context())
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}
	response.OK(c, stats)
}

// Filters GET /api/v1/monitoring-license/filters
func (h *LicenseHandler) Filters(c *gin.Context) {
	f, err := h.licenseSvc.Filters(c.Request.Context())
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}
	response.OK(c, f)
}

// Notifications 即将到期提醒
// GET /api/v1/monitoring-license/notifications
func (h *LicenseHandler) Notifications(c *gin.Context) {
	resp, err := h.licenseSvc.Notifications(c.Request.Context())
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}
	response.OK(c, resp)
}

// Calendar 到期日 iCalendar 订阅
// GET /api/v1/monitoring-license/calendar.ics
func (h *LicenseHandler) Calendar(c *gin.Context) {
	body, err := h.licenseSvc.Calendar(c.Request.Context())
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=license_expiry.ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func (h *LicenseHandler) handleLicenseError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrLicenseNotFound):
		response.NotFound(c, 21001, "许可证不存在")
	case errors.Is(err, service.ErrLicenseDateOrder):
		response.BadRequest(c, 21002, "许可证结束日期不能早于开始日期")
	default:
		response.InternalError(c)
	}
}
