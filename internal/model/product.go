package model

import "time"

// Product 产品表 — 对应 products
type Product struct {
	ID             int64      `gorm:"primaryKey"                          json:"id"`
	Name           string     `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`
	Description    string     `gorm:"type:text;not null;default:''"       json:"description"`
	CategoryID     int64      `gorm:"not null"                            json:"category_id"`
	SegmentID      int64      `gorm:"not null"                            json:"segment_id"`
	StageID        int64      `gorm:"not null"                            json:"stage_id"`
	Price          float64    `gorm:"type:numeric(18,2);not null;default:0" json:"price"`
	LaunchDate     *time.Time `gorm:"type:date"                           json:"launch_date"`
	Customer       string     `gorm:"type:varchar(200);not null;default:''" json:"customer"`
	StageStartDate *time.Time `gorm:"type:date"                           json:"stage_start_date"`
	StageEndDate   *time.Time `gorm:"type:date"                           json:"stage_end_date"`

	Category    *Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Segment     *Segment            `gorm:"foreignKey:SegmentID"  json:"segment,omitempty"`
	Stage       *Stage              `gorm:"foreignKey:StageID"    json:"stage,omitempty"`
	Attachments []ProductAttachment `gorm:"foreignKey:ProductID"  json:"attachments,omitempty"`
	Timestamps
}

func (Product) TableName() string { return "products" }

// ProductAttachment 产品附件 — 对应 product_attachments
type ProductAttachment struct {
	ID        int64     `gorm:"primaryKey"                 json:"id"`
	ProductID int64     `gorm:"not null;index"             json:"product_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	URL       string    `gorm:"type:varchar(500);not null" json:"url"`
	Size      int64     `gorm:"not null;default:0"         json:"size"`
	MimeType  string    `gorm:"type:varchar(100);not null;default:''" json:"mime_type"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ProductAttachment) TableName() string { return "product_attachments" }

// StageHistory 产品阶段变更历史 — 对应 stage_histories
type StageHistory struct {
	ID              int64     `gorm:"primaryKey"     json:"id"`
	ProductID       int64     `gorm:"not null;index" json:"product_id"`
	PreviousStageID *int64    `gorm:""               json:"previous_stage_id"`
	CurrentStageID  int64     `gorm:"not null"       json:"current_stage_id"`
	ChangedAt       time.Time `gorm:"not null"       json:"changed_at"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	PreviousStage *Stage `gorm:"foreignKey:PreviousStageID" json:"previous_stage,omitempty"`
	CurrentStage  *Stage `gorm:"foreignKey:CurrentStageID"  json:"current_stage,omitempty"`
}

func (StageHistory) TableName() string { return "stage_histories" }

// 开发历史状态
const (
	DevStatusDevelopment = "Development"
	DevStatusTesting     = "Testing"
	DevStatusReleased    = "Released"
	DevStatusDeprecated  = "Deprecated"
)

// DevStatuses 合法的开发历史状态
var DevStatuses = []string{DevStatusDevelopment, DevStatusTesting, DevStatusReleased, DevStatusDeprecated}

// DevHistory 产品开发历史 — 对应 dev_histories
type DevHistory struct {
	ID          int64      `gorm:"primaryKey"                 json:"id"`
	ProductID   int64      `gorm:"not null;index"             json:"product_id"`
	WorkType    string     `gorm:"type:varchar(100);not null" json:"work_type"`
	StartDate   time.Time  `gorm:"type:date;not null"         json:"start_date"`
	EndDate     *time.Time `gorm:"type:date"                  json:"end_date"`
	Version     string     `gorm:"type:varchar(50);not null;default:''" json:"version"`
	Description string     `gorm:"type:text;not null;default:''"        json:"description"`
	Status      string     `gorm:"type:varchar(20);not null"  json:"status"`
	Product     *Product   `gorm:"foreignKey:ProductID"       json:"product,omitempty"`
	Timestamps
}

func (DevHistory) TableName() string { return "dev_histories" }
