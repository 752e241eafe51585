package dto

// ── 生命周期分析 DTO ──

// MatrixFilterRequest 矩阵筛选；stage / segment 为名称（不区分大小写），空表示不筛选
type MatrixFilterRequest struct {
	Stage   string `form:"stage"   binding:"omitempty,max=100"`
	Segment string `form:"segment" binding:"omitempty,max=100"`
}

// MatrixCellRequest 单元格产品查询
type MatrixCellRequest struct {
	Stage   string `form:"stage"   binding:"required,max=100"`
	Segment string `form:"segment" binding:"required,max=100"`
}

// TransitionMatrix 阶段 × 细分 产品数矩阵（稠密，空单元格为 0）
type TransitionMatrix struct {
	Stages        []string                    `json:"stages"`
	Segments      []string                    `json:"segments"`
	Matrix        map[string]map[string]int64 `json:"matrix"`
	StageTotals   map[string]int64            `json:"stage_totals"`
	SegmentTotals map[string]int64            `json:"segment_totals"`
	Total         int64                       `json:"total"`
	LastUpdated   string                      `json:"last_updated"`
}

// TimelinePoint 某细分在某年月进入某阶段的产品
type TimelinePoint struct {
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Stage        string   `json:"stage"`
	ProductCount int      `json:"product_count"`
	Products     []string `json:"products"`
}

// TimelineSegment 细分时间线
type TimelineSegment struct {
	Segment string          `json:"segment"`
	Points  []TimelinePoint `json:"points"`
}

// TransitionSpeedRequest 阶段转换速度参数
type TransitionSpeedRequest struct {
	Unit string `form:"unit" binding:"omitempty,oneof=days months"`
}

// TransitionStat 某一转换（from → to）的耗时统计
type TransitionStat struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Count      int     `json:"count"`
	Avg        float64 `json:"avg"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Median     float64 `json:"median"`
	Planned    float64 `json:"planned"`
	Efficiency float64 `json:"efficiency"`
}

// SegmentSpeed 细分的转换速度
type SegmentSpeed struct {
	Segment     string           `json:"segment"`
	Transitions []TransitionStat `json:"transitions"`
}

// TransitionSpeed 转换速度报表
type TransitionSpeed struct {
	Unit     string         `json:"unit"`
	Segments []SegmentSpeed `json:"segments"`
}

// StageDistribution 阶段分布
type StageDistribution struct {
	Stage      string   `json:"stage"`
	Count      int64    `json:"count"`
	Percentage float64  `json:"percentage"`
	Products   []string `json:"products"`
}

// Distribution 阶段分布报表
type Distribution struct {
	Total  int64               `json:"total"`
	Stages []StageDistribution `json:"stages"`
}
