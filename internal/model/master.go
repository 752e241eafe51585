package model

import "strings"

// MasterData 类别、细分、阶段三张表的公共结构；仓储层通过 Table() 指定表名复用
type MasterData struct {
	ID        int64  `gorm:"primaryKey"                 json:"id"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	IconLight string `gorm:"type:varchar(255);not null;default:''" json:"icon_light"`
	IconDark  string `gorm:"type:varchar(255);not null;default:''" json:"icon_dark"`
	Timestamps
}

// 主数据表名
const (
	TableCategories = "categories"
	TableSegments   = "segments"
	TableStages     = "stages"
)

// Category 产品类别 — 对应 categories
type Category MasterData

func (Category) TableName() string { return TableCategories }

// Segment 产品细分市场 — 对应 segments
type Segment MasterData

func (Segment) TableName() string { return TableSegments }

// Stage 生命周期阶段 — 对应 stages
type Stage MasterData

func (Stage) TableName() string { return TableStages }

// 标准生命周期阶段
const (
	StageIntroduction = "Introduction"
	StageGrowth       = "Growth"
	StageMaturity     = "Maturity"
	StageDecline      = "Decline"
)

// StageOrder 阶段在生命周期中的排序：Introduction=1 … Decline=4，其他阶段排在最后
func StageOrder(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "introduction":
		return 1
	case "growth":
		return 2
	case "maturity":
		return 3
	case "decline":
		return 4
	default:
		return 5
	}
}

// StageInterval 阶段间计划间隔 — 对应 stage_intervals
type StageInterval struct {
	ID              int64  `gorm:"primaryKey"          json:"id"`
	PreviousStageID int64  `gorm:"not null"            json:"previous_stage_id"`
	NextStageID     int64  `gorm:"not null"            json:"next_stage_id"`
	IntervalMonths  int    `gorm:"not null"            json:"interval_months"`
	Description     string `gorm:"type:text;not null;default:''" json:"description"`
	PreviousStage   *Stage `gorm:"foreignKey:PreviousStageID" json:"previous_stage,omitempty"`
	NextStage       *Stage `gorm:"foreignKey:NextStageID"     json:"next_stage,omitempty"`
	Timestamps
}

func (StageInterval) TableName() string { return "stage_intervals" }
