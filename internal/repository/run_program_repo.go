package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// RunProgramListFilter 运营任务筛选
type RunProgramListFilter struct {
	Search   string
	Type     string
	BPO      string
	Priority string
	Status   string
	Sort     SortSpec
}

// RunProgramAggregate 运营任务数值聚合
type RunProgramAggregate struct {
	Total         int64
	AvgCompletion float64
	TotalRevenue  float64
	AvgRevenue    float64
	MaxRevenue    float64
}

// RunProgramRepository 运营任务数据访问接口
type RunProgramRepository interface {
	Create(ctx context.Context, p *model.RunProgram) error
	GetByID(ctx context.Context, id int64) (*model.RunProgram, error)
	List(ctx context.Context, filter RunProgramListFilter, offset, limit int) ([]model.RunProgram, int64, error)
	Update(ctx context.Context, p *model.RunProgram) error
	Delete(ctx context.Context, id int64) error
	// ReplaceProgresses 删除任务现有周进度后写入新列表；调用方负责事务
	ReplaceProgresses(ctx context.Context, programID int64, rows []model.RunProgramProgress) error
	// ReplaceAll 清空全部任务后批量写入（Excel 导入）；调用方负责事务
	ReplaceAll(ctx context.Context, programs []model.RunProgram) error
	Aggregate(ctx context.Context) (*RunProgramAggregate, error)
	// CountBy 按文本列分组计数，limit > 0 时仅取前 N 项
	CountBy(ctx context.Context, column string, limit int) ([]LabelCount, error)
	Distinct(ctx context.Context, column string) ([]string, error)
}

type runProgramRepo struct {
	db *gorm.DB
}

// NewRunProgramRepo 创建 RunProgramRepository 实例
func NewRunProgramRepo(db *gorm.DB) RunProgramRepository {
	return &runProgramRepo{db: db}
}

var runProgramSortColumns = map[string]string{
	"id":                "id",
	"task_no":           "task_no",
	"task_name":         "task_name",
	"type":              "type",
	"bpo":               "bpo",
	"priority":          "CASE priority WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 3 ELSE 4 END",
	"percent_complete":  "percent_complete",
	"revenue_potential": "revenue_potential",
	"start_date":        "start_date",
	"end_date":          "end_date",
	"created_at":        "created_at",
}

var runProgramGroupColumns = map[string]bool{
	"type": true, "bpo": true, "priority": true, "overall_status": true, "holding": true,
}

func progressesOrdered(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

func (r *runProgramRepo) Create(ctx context.Context, p *model.RunProgram) error {
	// 周进度随任务一并写入
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *runProgramRepo) GetByID(ctx context.Context, id int64) (*model.RunProgram, error) {
	var p model.RunProgram
	err := r.db.WithContext(ctx).
		Preload("Progresses", progressesOrdered).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *runProgramRepo) List(ctx context.Context, filter RunProgramListFilter, offset, limit int) ([]model.RunProgram, int64, error) {
	var rows []model.RunProgram
	var total int64

	db := r.db.WithContext(ctx).Model(&model.RunProgram{})
	db = searchAny(db, filter.Search, "task_no", "task_name", "bpo", "pic_team", "holding")
	db = eqIfSet(db, "type", filter.Type)
	db = eqIfSet(db, "bpo", filter.BPO)
	db = eqIfSet(db, "priority", filter.Priority)
	db = eqIfSet(db, "overall_status", filter.Status)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, runProgramSortColumns, "id", "id").
		Preload("Progresses", progressesOrdered).
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *runProgramRepo) Update(ctx context.Context, p *model.RunProgram) error {
	return r.db.WithContext(ctx).Omit("Progresses", "CreatedAt").Save(p).Error
}

func (r *runProgramRepo) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("run_program_id = ?", id).Delete(&model.RunProgramProgress{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.RunProgram{}, id).Error
}

func (r *runProgramRepo) ReplaceProgresses(ctx context.Context, programID int64, rows []model.RunProgramProgress) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("run_program_id = ?", programID).Delete(&model.RunProgramProgress{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].ID = 0
		rows[i].RunProgramID = programID
	}
	return db.Create(&rows).Error
}

func (r *runProgramRepo) ReplaceAll(ctx context.Context, programs []model.RunProgram) error {
	db := r.db.WithContext(ctx)
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.RunProgramProgress{}).Error; err != nil {
		return err
	}
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.RunProgram{}).Error; err != nil {
		return err
	}
	if len(programs) == 0 {
		return nil
	}
	return db.CreateInBatches(programs, 100).Error
}

func (r *runProgramRepo) Aggregate(ctx context.Context) (*RunProgramAggregate, error) {
	var agg RunProgramAggregate
	err := r.db.WithContext(ctx).
		Model(&model.RunProgram{}).
		Select(`COUNT(*) AS total,
			COALESCE(AVG(percent_complete), 0) AS avg_completion,
			COALESCE(SUM(revenue_potential), 0) AS total_revenue,
			COALESCE(AVG(revenue_potential), 0) AS avg_revenue,
			COALESCE(MAX(revenue_potential), 0) AS max_revenue`).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *runProgramRepo) CountBy(ctx context.Context, column string, limit int) ([]LabelCount, error) {
	if !runProgramGroupColumns[column] {
		return nil, fmt.Errorf("不支持的分组列: %s", column)
	}
	var rows []LabelCount
	db := r.db.WithContext(ctx).
		Model(&model.RunProgram{}).
		Select(column + " AS label, COUNT(*) AS count").
		Where(column + " <> ''").
		Group(column).
		Order("count DESC, label ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Scan(&rows).Error
	return rows, err
}

func (r *runProgramRepo) Distinct(ctx context.Context, column string) ([]string, error) {
	if !runProgramGroupColumns[column] {
		return nil, fmt.Errorf("不支持的筛选列: %s", column)
	}
	var values []string
	err := r.db.WithContext(ctx).
		Model(&model.RunProgram{}).
		Where(column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	return values, err
}
