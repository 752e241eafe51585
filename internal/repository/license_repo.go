package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// LicenseListFilter 许可证筛选；Status 依赖 Today 与 WindowDays 计算日期边界
type LicenseListFilter struct {
	Search     string
	Type       string
	Company    string
	BPO        string
	Period     string
	Status     string
	Today      time.Time
	WindowDays int
	Sort       SortSpec
}

// LicenseStats 许可证聚合
type LicenseStats struct {
	Total      int64
	Active     int64
	Expiring   int64
	Expired    int64
	TotalValue float64
}

// LicenseRepository 许可证数据访问接口
type LicenseRepository interface {
	Create(ctx context.Context, l *model.License) error
	GetByID(ctx context.Context, id int64) (*model.License, error)
	List(ctx context.Context, filter LicenseListFilter, offset, limit int) ([]model.License, int64, error)
	ListAll(ctx context.Context, filter LicenseListFilter) ([]model.License, error)
	Update(ctx context.Context, l *model.License) error
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context, today time.Time, windowDays int) (*LicenseStats, error)
	// Distinct 返回某列去重后的非空值；column 仅限白名单
	Distinct(ctx context.Context, column string) ([]string, error)
	// ListExpiring 到期日落在 [from, to] 内的许可证，按到期日升序
	ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]model.License, error)
}

type licenseRepo struct {
	db *gorm.DB
}

// NewLicenseRepo 创建 LicenseRepository 实例
func NewLicenseRepo(db *gorm.DB) LicenseRepository {
	return &licenseRepo{db: db}
}

var licenseSortColumns = map[string]string{
	"id":          "id",
	"name":        "name",
	"company":     "company",
	"bpo":         "bpo",
	"type":        "type",
	"period":      "period",
	"qty":         "qty",
	"unit_price":  "unit_price",
	"total_price": "total_price",
	"start_date":  "start_date",
	"end_date":    "end_date",
	"created_at":  "created_at",
}

var licenseDistinctColumns = map[string]bool{
	"type": true, "company": true, "bpo": true, "period": true,
}

func dateOnly(t time.Time) string {
	return t.Format(model.DateLayout)
}

// applyLicenseStatus 将派生状态转换为 end_date 区间条件
func applyLicenseStatus(db *gorm.DB, status string, today time.Time, windowDays int) *gorm.DB {
	limit := today.AddDate(0, 0, windowDays)
	switch status {
	case model.LicenseStatusExpired:
		return db.Where("end_date < ?", dateOnly(today))
	case model.LicenseStatusExpiring:
		return db.Where("end_date >= ? AND end_date <= ?", dateOnly(today), dateOnly(limit))
	case model.LicenseStatusActive:
		return db.Where("end_date > ?", dateOnly(limit))
	default:
		return db
	}
}

func (r *licenseRepo) filtered(ctx context.Context, f LicenseListFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.License{})
	db = searchAny(db, f.Search, "name", "company", "bpo")
	db = eqIfSet(db, "type", f.Type)
	db = eqIfSet(db, "company", f.Company)
	db = eqIfSet(db, "bpo", f.BPO)
	db = eqIfSet(db, "period", f.Period)
	return applyLicenseStatus(db, f.Status, f.Today, f.WindowDays)
}

func (r *licenseRepo) Create(ctx context.Context, l *model.License) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *licenseRepo) GetByID(ctx context.Context, id int64) (*model.License, error) {
	var l model.License
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *licenseRepo) List(ctx context.Context, filter LicenseListFilter, offset, limit int) ([]model.License, int64, error) {
	var rows []model.License
	var total int64

	db := r.filtered(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, licenseSortColumns, "id", "id").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *licenseRepo) ListAll(ctx context.Context, filter LicenseListFilter) ([]model.License, error) {
	var rows []model.License
	err := orderBy(r.filtered(ctx, filter), filter.Sort, licenseSortColumns, "id", "id").
		Find(&rows).Error
	return rows, err
}

func (r *licenseRepo) Update(ctx context.Context, l *model.License) error {
	return r.db.WithContext(ctx).Omit("CreatedAt").Save(l).Error
}

func (r *licenseRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.License{}, id).Error
}

func (r *licenseRepo) Statistics(ctx context.Context, today time.Time, windowDays int) (*LicenseStats, error) {
	var stats LicenseStats
	t, limit := dateOnly(today), dateOnly(today.AddDate(0, 0, windowDays))
	err := r.db.WithContext(ctx).
		Model(&model.License{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE end_date > ?) AS active,
			COUNT(*) FILTER (WHERE end_date >= ? AND end_date <= ?) AS expiring,
			COUNT(*) FILTER (WHERE end_date < ?) AS expired,
			COALESCE(SUM(total_price), 0) AS total_value`,
			limit, t, limit, t).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *licenseRepo) Distinct(ctx context.Context, column string) ([]string, error) {
	if !licenseDistinctColumns[column] {
		return nil, fmt.Errorf("不支持的筛选列: %s", column)
	}
	var values []string
	err := r.db.WithContext(ctx).
		Model(&model.License{}).
		Where(column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	return values, err
}

func (r *licenseRepo) ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]model.License, error) {
	var rows []model.License
	db := r.db.WithContext(ctx).
		Where("end_date >= ? AND end_date <= ?", dateOnly(from), dateOnly(to)).
		Order("end_date ASC, id ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&rows).Error
	return rows, err
}
