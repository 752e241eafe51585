package dto

// ── Dashboard 聚合 DTO ──

// StageCount 阶段产品数
type StageCount struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	IconLight  string  `json:"icon_light"`
	IconDark   string  `json:"icon_dark"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DashboardStats 首页阶段统计卡片
type DashboardStats struct {
	Introduction int64        `json:"introduction"`
	Growth       int64        `json:"growth"`
	Maturity     int64        `json:"maturity"`
	Decline      int64        `json:"decline"`
	Total        int64        `json:"total"`
	Stages       []StageCount `json:"stages"`
}

// SegmentCount 细分产品数
type SegmentCount struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	IconLight  string  `json:"icon_light"`
	IconDark   string  `json:"icon_dark"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DashboardProduct 首页产品卡片
type DashboardProduct struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Segment     string  `json:"segment"`
	Stage       string  `json:"stage"`
	Price       float64 `json:"price"`
	LaunchDate  string  `json:"launch_date"`
	Customer    string  `json:"customer"`
}

// LicenseDashboardStats 首页许可证卡片
type LicenseDashboardStats struct {
	Total         int64   `json:"total"`
	Active        int64   `json:"active"`
	ExpiringSoon  int64   `json:"expiring_soon"`
	Expired       int64   `json:"expired"`
	TotalPurchase float64 `json:"total_purchase"`
}

// CRJRDashboardStats 首页 CR/JR 卡片
type CRJRDashboardStats struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	InProgress int64 `json:"in_progress"`
	Pending    int64 `json:"pending"`
}

// RunInsights 首页运营任务概览
type RunInsights struct {
	Total         int64       `json:"total"`
	AvgCompletion float64     `json:"avg_completion"`
	ByStatus      []CountItem `json:"by_status"`
	ByPriority    []CountItem `json:"by_priority"`
}
