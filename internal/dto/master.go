package dto

// ── 类别 / 细分 / 阶段 / 阶段间隔 DTO ──

// MasterDataRequest 类别、细分、阶段共用的创建/更新请求
type MasterDataRequest struct {
	Name      string `json:"name"       binding:"required,min=1,max=100"`
	IconLight string `json:"icon_light" binding:"omitempty,max=255"`
	IconDark  string `json:"icon_dark"  binding:"omitempty,max=255"`
}

// MasterDataResponse 类别、细分、阶段共用响应
type MasterDataResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IconLight    string `json:"icon_light"`
	IconDark     string `json:"icon_dark"`
	ProductCount int64  `json:"product_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// IconUploadResponse 图标上传结果
type IconUploadResponse struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// IntervalRequest 阶段间隔创建/更新
type IntervalRequest struct {
	PreviousStageID int64  `json:"previous_stage_id" binding:"required,min=1"`
	NextStageID     int64  `json:"next_stage_id"     binding:"required,min=1"`
	IntervalMonths  int    `json:"interval_months"   binding:"required,min=1,max=600"`
	Description     string `json:"description"       binding:"omitempty,max=500"`
}

// IntervalListRequest 阶段间隔列表参数
type IntervalListRequest struct {
	PaginationRequest
	SortRequest
	Search string `form:"search" binding:"omitempty,max=100"`
}

// IntervalResponse 阶段间隔
type IntervalResponse struct {
	ID                int64  `json:"id"`
	PreviousStageID   int64  `json:"previous_stage_id"`
	PreviousStageName string `json:"previous_stage_name"`
	NextStageID       int64  `json:"next_stage_id"`
	NextStageName     string `json:"next_stage_name"`
	IntervalMonths    int    `json:"interval_months"`
	Description       string `json:"description"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}
