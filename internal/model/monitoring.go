package model

import "time"

// ── License 监控 ──

// 许可证状态（由 end_date 推导，不落库）
const (
	LicenseStatusActive   = "Active"
	LicenseStatusExpiring = "Expiring"
	LicenseStatusExpired  = "Expired"
)

// License 许可证台账 — 对应 licenses
type License struct {
	ID                    int64      `gorm:"primaryKey"                 json:"id"`
	Name                  string     `gorm:"type:varchar(200);not null" json:"name"`
	Company               string     `gorm:"type:varchar(100);not null" json:"company"`
	BPO                   string     `gorm:"column:bpo;type:varchar(100);not null" json:"bpo"`
	Type                  string     `gorm:"type:varchar(100);not null" json:"type"`
	Period                string     `gorm:"type:varchar(50);not null"  json:"period"`
	Qty                   int        `gorm:"not null;default:0"         json:"qty"`
	Symbol                string     `gorm:"type:varchar(10);not null;default:'Rp'" json:"symbol"`
	UnitPrice             float64    `gorm:"type:numeric(18,2);not null" json:"unit_price"`
	TotalPrice            float64    `gorm:"type:numeric(18,2);not null" json:"total_price"`
	SellingPrice          *float64   `gorm:"type:numeric(18,2)"          json:"selling_price"`
	ContractServiceMonths *int       `gorm:""                            json:"contract_service_months"`
	ContractPeriod        string     `gorm:"type:varchar(100);not null;default:''" json:"contract_period"`
	StartDate             *time.Time `gorm:"type:date"                   json:"start_date"`
	EndDate               *time.Time `gorm:"type:date"                   json:"end_date"`
	PurchaseMethod        string     `gorm:"type:varchar(100);not null;default:''" json:"purchase_method"`
	Timestamps
}

func (License) TableName() string { return "licenses" }

// LicenseStatus 按到期日计算状态；window 为"即将到期"天数窗口，无到期日返回空串
func LicenseStatus(endDate *time.Time, today time.Time, windowDays int) string {
	if endDate == nil {
		return ""
	}
	today = truncateDay(today)
	end := truncateDay(*endDate)
	switch {
	case end.Before(today):
		return LicenseStatusExpired
	case !end.After(today.AddDate(0, 0, windowDays)):
		return LicenseStatusExpiring
	default:
		return LicenseStatusActive
	}
}

// DaysUntil 距离 end 的天数（按日历日）
func DaysUntil(end, today time.Time) int {
	return int(truncateDay(end).Sub(truncateDay(today)).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ── CR/JR 监控 ──

// CRJR Change Request / Job Request — 对应 crjr_requests
type CRJR struct {
	ID                 int64      `gorm:"primaryKey"                json:"id"`
	No                 *int       `gorm:"column:no"                 json:"no"`
	Type               string     `gorm:"type:varchar(10);not null" json:"type"`
	Corp               string     `gorm:"type:varchar(100);not null;default:''" json:"corp"`
	SubField           string     `gorm:"type:varchar(100);not null;default:''" json:"sub_field"`
	ApplicationName    string     `gorm:"type:varchar(200);not null" json:"application_name"`
	RequestTitle       string     `gorm:"type:text;not null"         json:"request_title"`
	AssignmentLetterNo string     `gorm:"type:varchar(100);not null;default:''" json:"assignment_letter_no"`
	ManagerPIC         string     `gorm:"column:manager_pic;type:varchar(100);not null;default:''" json:"manager_pic"`
	STILetterDate      *time.Time `gorm:"column:sti_letter_date;type:date" json:"sti_letter_date"`
	Stage              string     `gorm:"type:varchar(100);not null;default:''" json:"stage"`
	Organization       string     `gorm:"type:varchar(100);not null;default:''" json:"organization"`
	Year               int        `gorm:"not null"                   json:"year"`
	MonthlyCounts
	Timestamps
}

func (CRJR) TableName() string { return "crjr_requests" }

// MonthlyCounts 十二个月的计数列
type MonthlyCounts struct {
	January   int `gorm:"not null;default:0" json:"january"`
	February  int `gorm:"not null;default:0" json:"february"`
	March     int `gorm:"not null;default:0" json:"march"`
	April     int `gorm:"not null;default:0" json:"april"`
	May       int `gorm:"not null;default:0" json:"may"`
	June      int `gorm:"not null;default:0" json:"june"`
	July      int `gorm:"not null;default:0" json:"july"`
	August    int `gorm:"not null;default:0" json:"august"`
	September int `gorm:"not null;default:0" json:"september"`
	October   int `gorm:"not null;default:0" json:"october"`
	November  int `gorm:"not null;default:0" json:"november"`
	December  int `gorm:"not null;default:0" json:"december"`
}

// Values 按月份顺序返回
func (m MonthlyCounts) Values() [12]int {
	return [12]int{m.January, m.February, m.March, m.April, m.May, m.June,
		m.July, m.August, m.September, m.October, m.November, m.December}
}

// Total 全年合计
func (m MonthlyCounts) Total() int {
	total := 0
	for _, v := range m.Values() {
		total += v
	}
	return total
}

// ── Run Program 监控 ──

// 任务优先级
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// PriorityRank HIGH < MEDIUM < LOW，未知优先级排最后
func PriorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// RunProgram 运营项目任务 — 对应 run_programs
type RunProgram struct {
	ID               int64      `gorm:"primaryKey"                 json:"id"`
	TaskNo           string     `gorm:"type:varchar(50);not null;default:''" json:"task_no"`
	TaskName         string     `gorm:"type:varchar(255);not null" json:"task_name"`
	Type             string     `gorm:"type:varchar(100);not null;default:''" json:"type"`
	BPO              string     `gorm:"column:bpo;type:varchar(100);not null;default:''" json:"bpo"`
	Holding          string     `gorm:"type:varchar(100);not null;default:''" json:"holding"`
	RevenuePotential float64    `gorm:"type:numeric(18,2);not null;default:0" json:"revenue_potential"`
	PICTeam          string     `gorm:"column:pic_team;type:varchar(200);not null;default:''" json:"pic_team"`
	Priority         string     `gorm:"type:varchar(10);not null"  json:"priority"`
	PercentComplete  float64    `gorm:"type:numeric(5,2);not null;default:0" json:"percent_complete"`
	LetterNo         string     `gorm:"type:varchar(100);not null;default:''" json:"letter_no"`
	LetterDate       *time.Time `gorm:"type:date"                  json:"letter_date"`
	LetterSubject    string     `gorm:"type:text;not null;default:''" json:"letter_subject"`
	StartDate        *time.Time `gorm:"type:date"                  json:"start_date"`
	EndDate          *time.Time `gorm:"type:date"                  json:"end_date"`
	PICIcon          string     `gorm:"column:pic_icon;type:varchar(100);not null;default:''" json:"pic_icon"`
	ThisWeekProgress string     `gorm:"type:text;not null;default:''" json:"this_week_progress"`
	NextWeekTarget   string     `gorm:"type:text;not null;default:''" json:"next_week_target"`
	OverallStatus    string     `gorm:"type:varchar(50);not null;default:''" json:"overall_status"`

	Progresses []RunProgramProgress `gorm:"foreignKey:RunProgramID" json:"progresses,omitempty"`
	Timestamps
}

func (RunProgram) TableName() string { return "run_programs" }

// RunProgramProgress 周进度记录 — 对应 run_program_progresses
type RunProgramProgress struct {
	ID           int64     `gorm:"primaryKey"                json:"id"`
	RunProgramID int64     `gorm:"not null;index"            json:"run_program_id"`
	Period       string    `gorm:"type:varchar(50);not null" json:"period"`
	Progress     string    `gorm:"type:text;not null;default:''" json:"progress"`
	NextAction   string    `gorm:"type:text;not null;default:''" json:"next_action"`
	Status       string    `gorm:"type:varchar(50);not null;default:''" json:"status"`
	Target       string    `gorm:"type:text;not null;default:''" json:"target"`
	SortOrder    int       `gorm:"not null;default:0"        json:"sort_order"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RunProgramProgress) TableName() string { return "run_program_progresses" }
