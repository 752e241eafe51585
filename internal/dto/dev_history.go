package dto

// ── 开发历史 DTO ──

// DevHistoryListRequest 开发历史列表参数
type DevHistoryListRequest struct {
	PaginationRequest
	SortRequest
	Search    string `form:"search"     binding:"omitempty,max=100"`
	ProductID int64  `form:"product_id" binding:"omitempty,min=1"`
	Status    string `form:"status"     binding:"omitempty,oneof=Development Testing Released Deprecated"`
}

// DevHistoryRequest 开发历史创建/更新
type DevHistoryRequest struct {
	ProductID   int64  `json:"product_id"  binding:"required,min=1"`
	WorkType    string `json:"work_type"   binding:"required,max=100"`
	StartDate   string `json:"start_date"  binding:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date"    binding:"omitempty,datetime=2006-01-02"`
	Version     string `json:"version"     binding:"omitempty,max=50"`
	Description string `json:"description" binding:"omitempty,max=5000"`
	Status      string `json:"status"      binding:"required,oneof=Development Testing Released Deprecated"`
}

// DevHistoryResponse 开发历史
type DevHistoryResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	WorkType    string `json:"work_type"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
