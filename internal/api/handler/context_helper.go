package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
	"github.com/Tahatra21/solarhub-sub000/pkg/storage"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetRoleID 从 Gin 上下文中安全提取 role_id。
func MustGetRoleID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("role_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// clientMeta 活动日志所需的请求来源
func clientMeta(c *gin.Context) dto.ClientMeta {
	return dto.ClientMeta{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// parseID 解析路径参数 :id，非法时写入 400
func parseID(c *gin.Context, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, label+"ID不合法")
		return 0, false
	}
	return id, true
}

// tokenExpiry 当前 Access Token 的 jti 与过期时间（由 JWTAuth 注入）
func tokenExpiry(c *gin.Context) (string, time.Time) {
	jti := c.GetString("jti")
	exp, _ := c.Get("token_exp")
	t, _ := exp.(time.Time)
	return jti, t
}

// sendFile 以附件形式返回生成的文件
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// handleCommonError 处理各模块共用的错误（文件上传、Excel 导入、日期格式）。
// 已处理时返回 true。
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		response.BadRequest(c, 10006, "文件大小超出限制")
	case errors.Is(err, storage.ErrFileTypeNotAllowed):
		response.BadRequest(c, 10007, "文件类型不允许")
	case errors.Is(err, storage.ErrEmptyFile):
		response.BadRequest(c, 10008, "文件为空")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10009, "日期格式错误，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrImportFile),
		errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportBadHeader),
		errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 10010, err.Error())
	default:
		return false
	}
	return true
}

// openUpload 读取 multipart 中的 Excel 文件字段 file
func openUpload(c *gin.Context) (*bytes.Reader, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请选择要导入的 Excel 文件")
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10010, "无法读取上传文件")
		return nil, false
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		response.BadRequest(c, 10010, "无法读取上传文件")
		return nil, false
	}
	return bytes.NewReader(buf.Bytes()), true
}
