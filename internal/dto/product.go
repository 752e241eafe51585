package dto

// ── 产品模块 DTO ──

// ProductListRequest 产品列表参数
type ProductListRequest struct {
	PaginationRequest
	SortRequest
	Search     string `form:"search"      binding:"omitempty,max=100"`
	CategoryID int64  `form:"category_id" binding:"omitempty,min=1"`
	SegmentID  int64  `form:"segment_id"  binding:"omitempty,min=1"`
	StageID    int64  `form:"stage_id"    binding:"omitempty,min=1"`
}

// ProductFormRequest 产品创建/更新（multipart 表单，附件字段为 files）
// 日期字段格式 YYYY-MM-DD，空串表示未设置
type ProductFormRequest struct {
	Name           string  `form:"name"             binding:"required,max=200"`
	Description    string  `form:"description"      binding:"omitempty,max=5000"`
	CategoryID     int64   `form:"category_id"      binding:"required,min=1"`
	SegmentID      int64   `form:"segment_id"       binding:"required,min=1"`
	StageID        int64   `form:"stage_id"         binding:"required,min=1"`
	Price          float64 `form:"price"            binding:"omitempty,min=0"`
	LaunchDate     string  `form:"launch_date"      binding:"omitempty,datetime=2006-01-02"`
	Customer       string  `form:"customer"         binding:"omitempty,max=200"`
	StageStartDate string  `form:"stage_start_date" binding:"omitempty,datetime=2006-01-02"`
	StageEndDate   string  `form:"stage_end_date"   binding:"omitempty,datetime=2006-01-02"`
}

// AttachmentResponse 附件
type AttachmentResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at"`
}

// ProductResponse 产品
type ProductResponse struct {
	ID             int64                `json:"id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	CategoryID     int64                `json:"category_id"`
	Category       string               `json:"category"`
	SegmentID      int64                `json:"segment_id"`
	Segment        string               `json:"segment"`
	StageID        int64                `json:"stage_id"`
	Stage          string               `json:"stage"`
	Price          float64              `json:"price"`
	LaunchDate     string               `json:"launch_date"`
	Customer       string               `json:"customer"`
	StageStartDate string               `json:"stage_start_date"`
	StageEndDate   string               `json:"stage_end_date"`
	Attachments    []AttachmentResponse `json:"attachments"`
	CreatedAt      string               `json:"created_at"`
	UpdatedAt      string               `json:"updated_at"`
}

// StageHistoryResponse 阶段变更记录
type StageHistoryResponse struct {
	ID            int64  `json:"id"`
	PreviousStage string `json:"previous_stage"`
	CurrentStage  string `json:"current_stage"`
	ChangedAt     string `json:"changed_at"`
}

// ProductDetailResponse 产品详情（含阶段历史）
type ProductDetailResponse struct {
	ProductResponse
	StageHistory []StageHistoryResponse `json:"stage_history"`
}

// ProductOptionsResponse 产品表单下拉数据
type ProductOptionsResponse struct {
	Categories []OptionItem `json:"categories"`
	Segments   []OptionItem `json:"segments"`
	Stages     []OptionItem `json:"stages"`
}
