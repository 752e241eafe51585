package dto

// ════════════════════ License 监控 ════════════════════

// LicenseListRequest 许可证列表参数；status 取 All/Active/Expiring/Expired
type LicenseListRequest struct {
	PaginationRequest
	SortRequest
	Search  string `form:"search"  binding:"omitempty,max=100"`
	Type    string `form:"type"    binding:"omitempty,max=100"`
	Company string `form:"company" binding:"omitempty,max=100"`
	BPO     string `form:"bpo"     binding:"omitempty,max=100"`
	Period  string `form:"period"  binding:"omitempty,max=50"`
	Status  string `form:"status"  binding:"omitempty,oneof=All Active Expiring Expired"`
}

// LicenseRequest 许可证创建/更新；total_price 为空时按 qty × unit_price 计算
type LicenseRequest struct {
	Name                  string   `json:"name"                    binding:"required,max=200"`
	Company               string   `json:"company"                 binding:"required,max=100"`
	BPO                   string   `json:"bpo"                     binding:"required,max=100"`
	Type                  string   `json:"type"                    binding:"required,max=100"`
	Period                string   `json:"period"                  binding:"required,max=50"`
	Qty                   int      `json:"qty"                     binding:"required,min=1"`
	Symbol                string   `json:"symbol"                  binding:"omitempty,max=10"`
	UnitPrice             *float64 `json:"unit_price"              binding:"required,min=0"`
	TotalPrice            *float64 `json:"total_price"             binding:"omitempty,min=0"`
	SellingPrice          *float64 `json:"selling_price"           binding:"omitempty,min=0"`
	ContractServiceMonths *int     `json:"contract_service_months" binding:"omitempty,min=0"`
	ContractPeriod        string   `json:"contract_period"         binding:"omitempty,max=100"`
	StartDate             string   `json:"start_date"              binding:"omitempty,datetime=2006-01-02"`
	EndDate               string   `json:"end_date"                binding:"omitempty,datetime=2006-01-02"`
	PurchaseMethod        string   `json:"purchase_method"         binding:"omitempty,max=100"`
}

// LicenseResponse 许可证
type LicenseResponse struct {
	ID                    int64    `json:"id"`
	Name                  string   `json:"name"`
	Company               string   `json:"company"`
	BPO                   string   `json:"bpo"`
	Type                  string   `json:"type"`
	Period                string   `json:"period"`
	Qty                   int      `json:"qty"`
	Symbol                string   `json:"symbol"`
	UnitPrice             float64  `json:"unit_price"`
	TotalPrice            float64  `json:"total_price"`
	SellingPrice          *float64 `json:"selling_price"`
	ContractServiceMonths *int     `json:"contract_service_months"`
	ContractPeriod        string   `json:"contract_period"`
	StartDate             string   `json:"start_date"`
	EndDate               string   `json:"end_date"`
	PurchaseMethod        string   `json:"purchase_method"`
	Status                string   `json:"status"`
	DaysUntilExpiry       *int     `json:"days_until_expiry"`
	CreatedAt             string   `json:"created_at"`
	UpdatedAt             string   `json:"updated_at"`
}

// LicenseStatistics 许可证统计
type LicenseStatistics struct {
	Total      int64   `json:"total"`
	Active     int64   `json:"active"`
	Expiring   int64   `json:"expiring"`
	Expired    int64   `json:"expired"`
	TotalValue float64 `json:"total_value"`
}

// LicenseFilters 许可证筛选项
type LicenseFilters struct {
	Types     []string `json:"types"`
	Companies []string `json:"companies"`
	BPOs      []string `json:"bpos"`
	Periods   []string `json:"periods"`
}

// LicenseNotification 即将到期提醒
type LicenseNotification struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Company         string `json:"company"`
	BPO             string `json:"bpo"`
	EndDate         string `json:"end_date"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}

// LicenseNotificationsResponse 提醒列表
type LicenseNotificationsResponse struct {
	Items       []LicenseNotification `json:"items"`
	Count       int                   `json:"count"`
	GeneratedAt string                `json:"generated_at"`
}

// ════════════════════ CR/JR 监控 ════════════════════

// CRJRListRequest CR/JR 列表参数
type CRJRListRequest struct {
	PaginationRequest
	SortRequest
	Search       string `form:"search"       binding:"omitempty,max=100"`
	Type         string `form:"type"         binding:"omitempty,max=10"`
	Corp         string `form:"corp"         binding:"omitempty,max=100"`
	Stage        string `form:"stage"        binding:"omitempty,max=100"`
	Organization string `form:"organization" binding:"omitempty,max=100"`
	Year         int    `form:"year"         binding:"omitempty,min=2000,max=2100"`
}

// MonthlyCountsDTO 十二个月计数
type MonthlyCountsDTO struct {
	January   int `json:"january"   binding:"min=0"`
	February  int `json:"february"  binding:"min=0"`
	March     int `json:"march"     binding:"min=0"`
	April     int `json:"april"     binding:"min=0"`
	May       int `json:"may"       binding:"min=0"`
	June      int `json:"june"      binding:"min=0"`
	July      int `json:"july"      binding:"min=0"`
	August    int `json:"august"    binding:"min=0"`
	September int `json:"september" binding:"min=0"`
	October   int `json:"october"   binding:"min=0"`
	November  int `json:"november"  binding:"min=0"`
	December  int `json:"december"  binding:"min=0"`
}

// CRJRRequest CR/JR 创建/更新；year 为空时取当年
type CRJRRequest struct {
	No                 *int   `json:"no"                   binding:"omitempty,min=0"`
	Type               string `json:"type"                 binding:"required,oneof=CR JR"`
	Corp               string `json:"corp"                 binding:"omitempty,max=100"`
	SubField           string `json:"sub_field"            binding:"omitempty,max=100"`
	ApplicationName    string `json:"application_name"     binding:"required,max=200"`
	RequestTitle       string `json:"request_title"        binding:"required,max=2000"`
	AssignmentLetterNo string `json:"assignment_letter_no" binding:"omitempty,max=100"`
	ManagerPIC         string `json:"manager_pic"          binding:"omitempty,max=100"`
	STILetterDate      string `json:"sti_letter_date"      binding:"omitempty,datetime=2006-01-02"`
	Stage              string `json:"stage"                binding:"omitempty,max=100"`
	Organization       string `json:"organization"         binding:"omitempty,max=100"`
	Year               int    `json:"year"                 binding:"omitempty,min=2000,max=2100"`
	MonthlyCountsDTO
}

// CRJRResponse CR/JR
type CRJRResponse struct {
	ID                 int64  `json:"id"`
	No                 *int   `json:"no"`
	Type               string `json:"type"`
	Corp               string `json:"corp"`
	SubField           string `json:"sub_field"`
	ApplicationName    string `json:"application_name"`
	RequestTitle       string `json:"request_title"`
	AssignmentLetterNo string `json:"assignment_letter_no"`
	ManagerPIC         string `json:"manager_pic"`
	STILetterDate      string `json:"sti_letter_date"`
	Stage              string `json:"stage"`
	Organization       string `json:"organization"`
	Year               int    `json:"year"`
	MonthlyCountsDTO
	MonthlyTotal int    `json:"monthly_total"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// CRJRStatistics CR/JR 统计
type CRJRStatistics struct {
	Total   int64       `json:"total"`
	ByType  []CountItem `json:"by_type"`
	ByStage []CountItem `json:"by_stage"`
	ByYear  []CountItem `json:"by_year"`
}

// CRJRFilters CR/JR 筛选项
type CRJRFilters struct {
	Types         []string `json:"types"`
	Corps         []string `json:"corps"`
	Stages        []string `json:"stages"`
	Organizations []string `json:"organizations"`
	Years         []int    `json:"years"`
}

// ════════════════════ Run Program 监控 ════════════════════

// RunProgramListRequest 任务列表参数
type RunProgramListRequest struct {
	PaginationRequest
	SortRequest
	Search   string `form:"search"   binding:"omitempty,max=100"`
	Type     string `form:"type"     binding:"omitempty,max=100"`
	BPO      string `form:"bpo"      binding:"omitempty,max=100"`
	Priority string `form:"priority" binding:"omitempty,oneof=HIGH MEDIUM LOW"`
	Status   string `form:"status"   binding:"omitempty,max=50"`
}

// RunProgramProgressInput 周进度
type RunProgramProgressInput struct {
	Period     string `json:"period"      binding:"required,max=50"`
	Progress   string `json:"progress"    binding:"omitempty,max=5000"`
	NextAction string `json:"next_action" binding:"omitempty,max=5000"`
	Status     string `json:"status"      binding:"omitempty,max=50"`
	Target     string `json:"target"      binding:"omitempty,max=5000"`
}

// RunProgramRequest 任务创建/更新；progresses 在更新时整体替换
type RunProgramRequest struct {
	TaskNo           string                    `json:"task_no"            binding:"omitempty,max=50"`
	TaskName         string                    `json:"task_name"          binding:"required,max=255"`
	Type             string                    `json:"type"               binding:"omitempty,max=100"`
	BPO              string                    `json:"bpo"                binding:"omitempty,max=100"`
	Holding          string                    `json:"holding"            binding:"omitempty,max=100"`
	RevenuePotential float64                   `json:"revenue_potential"  binding:"omitempty,min=0"`
	PICTeam          string                    `json:"pic_team"           binding:"omitempty,max=200"`
	Priority         string                    `json:"priority"           binding:"omitempty,oneof=HIGH MEDIUM LOW"`
	PercentComplete  float64                   `json:"percent_complete"   binding:"omitempty,min=0,max=100"`
	LetterNo         string                    `json:"letter_no"          binding:"omitempty,max=100"`
	LetterDate       string                    `json:"letter_date"        binding:"omitempty,datetime=2006-01-02"`
	LetterSubject    string                    `json:"letter_subject"     binding:"omitempty,max=2000"`
	StartDate        string                    `json:"start_date"         binding:"omitempty,datetime=2006-01-02"`
	EndDate          string                    `json:"end_date"           binding:"omitempty,datetime=2006-01-02"`
	PICIcon          string                    `json:"pic_icon"           binding:"omitempty,max=100"`
	ThisWeekProgress string                    `json:"this_week_progress" binding:"omitempty,max=5000"`
	NextWeekTarget   string                    `json:"next_week_target"   binding:"omitempty,max=5000"`
	OverallStatus    string                    `json:"overall_status"     binding:"omitempty,max=50"`
	Progresses       []RunProgramProgressInput `json:"progresses"         binding:"omitempty,dive"`
}

// RunProgramProgressResponse 周进度
type RunProgramProgressResponse struct {
	ID         int64  `json:"id"`
	Period     string `json:"period"`
	Progress   string `json:"progress"`
	NextAction string `json:"next_action"`
	Status     string `json:"status"`
	Target     string `json:"target"`
}

// RunProgramResponse 任务
type RunProgramResponse struct {
	ID               int64                        `json:"id"`
	TaskNo           string                       `json:"task_no"`
	TaskName         string                       `json:"task_name"`
	Type             string                       `json:"type"`
	BPO              string                       `json:"bpo"`
	Holding          string                       `json:"holding"`
	RevenuePotential float64                      `json:"revenue_potential"`
	PICTeam          string                       `json:"pic_team"`
	Priority         string                       `json:"priority"`
	PercentComplete  float64                      `json:"percent_complete"`
	LetterNo         string                       `json:"letter_no"`
	LetterDate       string                       `json:"letter_date"`
	LetterSubject    string                       `json:"letter_subject"`
	StartDate        string                       `json:"start_date"`
	EndDate          string                       `json:"end_date"`
	PICIcon          string                       `json:"pic_icon"`
	ThisWeekProgress string                       `json:"this_week_progress"`
	NextWeekTarget   string                       `json:"next_week_target"`
	OverallStatus    string                       `json:"overall_status"`
	Progresses       []RunProgramProgressResponse `json:"progresses"`
	CreatedAt        string                       `json:"created_at"`
	UpdatedAt        string                       `json:"updated_at"`
}

// RunProgramStatistics 任务统计
type RunProgramStatistics struct {
	Total         int64       `json:"total"`
	AvgCompletion float64     `json:"avg_completion"`
	TotalRevenue  float64     `json:"total_revenue"`
	AvgRevenue    float64     `json:"avg_revenue"`
	MaxRevenue    float64     `json:"max_revenue"`
	ByStatus      []CountItem `json:"by_status"`
	ByPriority    []CountItem `json:"by_priority"`
	ByType        []CountItem `json:"by_type"`
	ByBPO         []CountItem `json:"by_bpo"`
}

// RunProgramFilters 任务筛选项
type RunProgramFilters struct {
	Types      []string `json:"types"`
	BPOs       []string `json:"bpos"`
	Priorities []string `json:"priorities"`
	Statuses   []string `json:"statuses"`
}
