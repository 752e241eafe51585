package handler

import (
	"errors"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// ProductHandler 产品模块 HTTP 处理器
type ProductHandler struct {
	productSvc service.ProductService
}

// NewProductHandler 创建 ProductHandler
func NewProductHandler(productSvc service.ProductService) *ProductHandler {
	return &ProductHandler{productSvc: productSvc}
}

// ListProducts 产品列表
// GET /api/v1/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var req dto.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.productSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// Options 表单下拉选项
// GET /api/v1/products/options
func (h *ProductHandler) Options(c *gin.Context) {
	opts, err := h.productSvc.Options(c.Request.Context())
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OK(c, opts)
}

// GetProduct 产品详情（含附件与阶段历史）
// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "产品")
	if !ok {
		return
	}

	p, err := h.productSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OK(c, p)
}

// CreateProduct 创建产品（multipart，附件字段 files 可多个）
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req dto.ProductFormRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	p, err := h.productSvc.Create(c.Request.Context(), &req, formFiles(c, "files"))
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.Created(c, p)
}

// UpdateProduct 更新产品，新附件追加
// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "产品")
	if !ok {
		return
	}

	var req dto.ProductFormRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	p, err := h.productSvc.Update(c.Request.Context(), id, &req, formFiles(c, "files"))
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OK(c, p)
}

// DeleteProduct 删除产品及其附件、阶段历史、开发历史
// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "产品")
	if !ok {
		return
	}

	if err := h.productSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListAttachments 产品附件列表
// GET /api/v1/products/:id/attachments
func (h *ProductHandler) ListAttachments(c *gin.Context) {
	id, ok := parseID(c, "产品")
	if !ok {
		return
	}

	list, err := h.productSvc.ListAttachments(c.Request.Context(), id)
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// AddAttachment 上传单个附件（字段 attachment）
// POST /api/v1/products/:id/attachments
func (h *ProductHandler) AddAttachment(c *gin.Context) {
	id, ok := parseID(c, "产品")
	if !ok {
		return
	}

	att, err := h.productSvc.AddAttachment(c.Request.Context(), id, optionalFile(c, "attachment"))
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.Created(c, att)
}

// DeleteAttachment 删除附件
// DELETE /api/v1/attachments/:id
func (h *ProductHandler) DeleteAttachment(c *gin.Context) {
	id, ok := parseID(c, "附件")
	if !ok {
		return
	}

	if err := h.productSvc.DeleteAttachment(c.Request.Context(), id); err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportProducts 从 Excel 导入产品
// POST /api/v1/products/import
func (h *ProductHandler) ImportProducts(c *gin.Context) {
	reader, ok := openUpload(c)
	if !ok {
		return
	}

	result, err := h.productSvc.Import(c.Request.Context(), reader)
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	response.OK(c, result)
}

// Template 下载导入模板
// GET /api/v1/products/template
func (h *ProductHandler) Template(c *gin.Context) {
	buf, filename, err := h.productSvc.Template(c.Request.Context())
	if err != nil {
		h.handleProductError(c, err)
		return
	}

	sendFile(c, buf, filename, mimeXLSX)
}

// formFiles 读取 multipart 中同名的多个文件字段
func formFiles(c *gin.Context, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

func (h *ProductHandler) handleProductError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		response.NotFound(c, 17001, "产品不存在")
	case errors.Is(err, service.ErrProductNameExists):
		response.Conflict(c, 17002, "产品名称已存在")
	case errors.Is(err, service.ErrProductRefNotFound):
		response.BadRequest(c, 17003, "类别、细分市场或阶段不存在")
	case errors.Is(err, service.ErrAttachmentNotFound):
		response.NotFound(c, 17004, "附件不存在")
	case errors.Is(err, service.ErrStageDateOrder):
		response.BadRequest(c, 17005, "阶段结束日期不能早于开始日期")
	case errors.Is(err, service.ErrAttachmentMissing):
		response.BadRequest(c, 17006, "请选择要上传的附件")
	default:
		response.InternalError(c)
	}
}
