package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// DevHistoryListFilter 开发历史筛选
type DevHistoryListFilter struct {
	Search    string
	ProductID int64
	Status    string
	Sort      SortSpec
}

// DevHistoryRepository 开发历史数据访问接口
type DevHistoryRepository interface {
	Create(ctx context.Context, h *model.DevHistory) error
	CreateBatch(ctx context.Context, rows []model.DevHistory) error
	GetByID(ctx context.Context, id int64) (*model.DevHistory, error)
	List(ctx context.Context, filter DevHistoryListFilter, offset, limit int) ([]model.DevHistory, int64, error)
	Update(ctx context.Context, h *model.DevHistory) error
	Delete(ctx context.Context, id int64) error
}

type devHistoryRepo struct {
	db *gorm.DB
}

// NewDevHistoryRepo 创建 DevHistoryRepository 实例
func NewDevHistoryRepo(db *gorm.DB) DevHistoryRepository {
	return &devHistoryRepo{db: db}
}

var devHistorySortColumns = map[string]string{
	"id":         "dev_histories.id",
	"product":    "products.name",
	"work_type":  "dev_histories.work_type",
	"start_date": "dev_histories.start_date",
	"end_date":   "dev_histories.end_date",
	"version":    "dev_histories.version",
	"status":     "dev_histories.status",
	"created_at": "dev_histories.created_at",
}

func (r *devHistoryRepo) Create(ctx context.Context, h *model.DevHistory) error {
	return r.db.WithContext(ctx).Omit("Product").Create(h).Error
}

func (r *devHistoryRepo) CreateBatch(ctx context.Context, rows []model.DevHistory) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Product").CreateInBatches(rows, 100).Error
}

func (r *devHistoryRepo) GetByID(ctx context.Context, id int64) (*model.DevHistory, error) {
	var h model.DevHistory
	err := r.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Where("id = ?", id).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *devHistoryRepo) List(ctx context.Context, filter DevHistoryListFilter, offset, limit int) ([]model.DevHistory, int64, error) {
	var rows []model.DevHistory
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.DevHistory{}).
		Joins("LEFT JOIN products ON products.id = dev_histories.product_id")
	db = searchAny(db, filter.Search,
		"products.name", "dev_histories.work_type", "dev_histories.version", "dev_histories.description")
	db = eqIfSet(db, "dev_histories.product_id", filter.ProductID)
	db = eqIfSet(db, "dev_histories.status", filter.Status)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, devHistorySortColumns, "start_date", "dev_histories.id").
		Select("dev_histories.*").
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *devHistoryRepo) Update(ctx context.Context, h *model.DevHistory) error {
	return r.db.WithContext(ctx).Omit("Product", "CreatedAt").Save(h).Error
}

func (r *devHistoryRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.DevHistory{}, id).Error
}
