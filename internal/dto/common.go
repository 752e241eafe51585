package dto

import "strings"

// ── 分页请求 ──

// DefaultPageSize 未指定时的每页数量
const DefaultPageSize = 10

// MaxPageSize 每页数量上限
const MaxPageSize = 100

// PaginationRequest 通用分页参数
// 越界值不报错：page < 1 按 1 处理，page_size 超过上限按 MaxPageSize 处理
type PaginationRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量，未指定时使用 def
func (p *PaginationRequest) GetPageSize(def int) int {
	switch {
	case p.PageSize <= 0:
		return def
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset(def int) int {
	return (p.GetPage() - 1) * p.GetPageSize(def)
}

// ── 排序请求 ──

// SortRequest 通用排序参数；sort_by 由各模块白名单校验
type SortRequest struct {
	SortBy    string `form:"sort_by"    binding:"omitempty,max=50"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// IsDesc 是否降序
func (s *SortRequest) IsDesc() bool {
	return strings.EqualFold(s.SortOrder, "desc")
}

// ── 分页结果 ──

// PageResult 分页查询结果，由 Handler 转为 response.OKPage
type PageResult[T any] struct {
	List     []T
	Total    int64
	Page     int
	PageSize int
}

// ── 通用结构 ──

// OptionItem 下拉选项
type OptionItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CountItem 分组计数
type CountItem struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ImportRowError 导入逐行错误
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult Excel 导入结果
type ImportResult struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ClientMeta 请求来源信息（活动日志用）
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// TrimSearch 去除搜索词首尾空白，空白串视为无搜索
func TrimSearch(s string) string {
	return strings.TrimSpace(s)
}
