package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// IntervalRepository 阶段间隔数据访问接口
type IntervalRepository interface {
	Create(ctx context.Context, item *model.StageInterval) error
	GetByID(ctx context.Context, id int64) (*model.StageInterval, error)
	// GetByPair 查找 (prev, next) 组合，excludeID > 0 时排除该记录
	GetByPair(ctx context.Context, prevID, nextID, excludeID int64) (*model.StageInterval, error)
	List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.StageInterval, int64, error)
	ListAll(ctx context.Context) ([]model.StageInterval, error)
	Update(ctx context.Context, item *model.StageInterval) error
	Delete(ctx context.Context, id int64) error
	CountByStage(ctx context.Context, stageID int64) (int64, error)
}

type intervalRepo struct {
	db *gorm.DB
}

// NewIntervalRepo 创建 IntervalRepository 实例
func NewIntervalRepo(db *gorm.DB) IntervalRepository {
	return &intervalRepo{db: db}
}

var intervalSortColumns = map[string]string{
	"id":              "stage_intervals.id",
	"previous_stage":  "ps.name",
	"next_stage":      "ns.name",
	"interval_months": "stage_intervals.interval_months",
	"created_at":      "stage_intervals.created_at",
}

func (r *intervalRepo) Create(ctx context.Context, item *model.StageInterval) error {
	return r.db.WithContext(ctx).Omit("PreviousStage", "NextStage").Create(item).Error
}

func (r *intervalRepo) GetByID(ctx context.Context, id int64) (*model.StageInterval, error) {
	var item model.StageInterval
	err := r.db.WithContext(ctx).
		Preload("PreviousStage").
		Preload("NextStage").
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *intervalRepo) GetByPair(ctx context.Context, prevID, nextID, excludeID int64) (*model.StageInterval, error) {
	var item model.StageInterval
	db := r.db.WithContext(ctx).Where("previous_stage_id = ? AND next_stage_id = ?", prevID, nextID)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *intervalRepo) List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.StageInterval, int64, error) {
	var items []model.StageInterval
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.StageInterval{}).
		Joins("JOIN stages ps ON ps.id = stage_intervals.previous_stage_id").
		Joins("JOIN stages ns ON ns.id = stage_intervals.next_stage_id")
	db = searchAny(db, filter.Search, "ps.name", "ns.name", "stage_intervals.description")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, intervalSortColumns, "id", "stage_intervals.id").
		Select("stage_intervals.*").
		Preload("PreviousStage").
		Preload("NextStage").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *intervalRepo) ListAll(ctx context.Context) ([]model.StageInterval, error) {
	var items []model.StageInterval
	err := r.db.WithContext(ctx).
		Preload("PreviousStage").
		Preload("NextStage").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *intervalRepo) Update(ctx context.Context, item *model.StageInterval) error {
	return r.db.WithContext(ctx).Omit("PreviousStage", "NextStage", "CreatedAt").Save(item).Error
}

func (r *intervalRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.StageInterval{}, id).Error
}

func (r *intervalRepo) CountByStage(ctx context.Context, stageID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.StageInterval{}).
		Where("previous_stage_id = ? OR next_stage_id = ?", stageID, stageID).
		Count(&count).Error
	return count, err
}
