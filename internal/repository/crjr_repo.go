package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// CRJRListFilter CR/JR 筛选
type CRJRListFilter struct {
	Search       string
	Type         string
	Corp         string
	Stage        string
	Organization string
	Year         int
	Sort         SortSpec
}

// CRJRRepository CR/JR 数据访问接口
type CRJRRepository interface {
	Create(ctx context.Context, c *model.CRJR) error
	GetByID(ctx context.Context, id int64) (*model.CRJR, error)
	List(ctx context.Context, filter CRJRListFilter, offset, limit int) ([]model.CRJR, int64, error)
	ListAll(ctx context.Context, filter CRJRListFilter) ([]model.CRJR, error)
	Update(ctx context.Context, c *model.CRJR) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	// CountBy 按文本列分组计数；column 仅限白名单
	CountBy(ctx context.Context, column string) ([]LabelCount, error)
	Distinct(ctx context.Context, column string) ([]string, error)
	DistinctYears(ctx context.Context) ([]int, error)
}

type crjrRepo struct {
	db *gorm.DB
}

// NewCRJRRepo 创建 CRJRRepository 实例
func NewCRJRRepo(db *gorm.DB) CRJRRepository {
	return &crjrRepo{db: db}
}

var crjrSortColumns = map[string]string{
	"id":               "id",
	"no":               "no",
	"type":             "type",
	"corp":             "corp",
	"application_name": "application_name",
	"stage":            "stage",
	"organization":     "organization",
	"year":             "year",
	"sti_letter_date":  "sti_letter_date",
	"created_at":       "created_at",
}

var crjrGroupColumns = map[string]bool{
	"type": true, "corp": true, "stage": true, "organization": true, "year": true,
}

func (r *crjrRepo) filtered(ctx context.Context, f CRJRListFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.CRJR{})
	db = searchAny(db, f.Search, "application_name", "request_title", "manager_pic")
	db = eqIfSet(db, "type", f.Type)
	db = eqIfSet(db, "corp", f.Corp)
	db = eqIfSet(db, "stage", f.Stage)
	db = eqIfSet(db, "organization", f.Organization)
	return eqIfSet(db, "year", f.Year)
}

func (r *crjrRepo) Create(ctx context.Context, c *model.CRJR) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *crjrRepo) GetByID(ctx context.Context, id int64) (*model.CRJR, error) {
	var c model.CRJR
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *crjrRepo) List(ctx context.Context, filter CRJRListFilter, offset, limit int) ([]model.CRJR, int64, error) {
	var rows []model.CRJR
	var total int64

	db := r.filtered(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, crjrSortColumns, "id", "id").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *crjrRepo) ListAll(ctx context.Context, filter CRJRListFilter) ([]model.CRJR, error) {
	var rows []model.CRJR
	err := orderBy(r.filtered(ctx, filter), filter.Sort, crjrSortColumns, "id", "id").
		Find(&rows).Error
	return rows, err
}

func (r *crjrRepo) Update(ctx context.Context, c *model.CRJR) error {
	return r.db.WithContext(ctx).Omit("CreatedAt").Save(c).Error
}

func (r *crjrRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.CRJR{}, id).Error
}

func (r *crjrRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CRJR{}).Count(&count).Error
	return count, err
}

func (r *crjrRepo) CountBy(ctx context.Context, column string) ([]LabelCount, error) {
	if !crjrGroupColumns[column] {
		return nil, fmt.Errorf("不支持的分组列: %s", column)
	}
	var rows []LabelCount
	err := r.db.WithContext(ctx).
		Model(&model.CRJR{}).
		Select(fmt.Sprintf("CAST(%s AS TEXT) AS label, COUNT(*) AS count", column)).
		Group(column).
		Order("count DESC, label ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *crjrRepo) Distinct(ctx context.Context, column string) ([]string, error) {
	if !crjrGroupColumns[column] || column == "year" {
		return nil, fmt.Errorf("不支持的筛选列: %s", column)
	}
	var values []string
	err := r.db.WithContext(ctx).
		Model(&model.CRJR{}).
		Where(column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	return values, err
}

func (r *crjrRepo) DistinctYears(ctx context.Context) ([]int, error) {
	var years []int
	err := r.db.WithContext(ctx).
		Model(&model.CRJR{}).
		Distinct("year").
		Order("year DESC").
		Pluck("year", &years).Error
	return years, err
}
