package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// MasterDataRepository 类别 / 细分 / 阶段共用的数据访问接口
//
// 三张表结构一致（name + 明暗两套图标），实现通过 Table() 绑定具体表名，
// fkColumn 为 products 表中引用本表的外键列，用于占用检查与分组计数。
type MasterDataRepository interface {
	Create(ctx context.Context, item *model.MasterData) error
	GetByID(ctx context.Context, id int64) (*model.MasterData, error)
	// GetByName 不区分大小写匹配，excludeID > 0 时排除该记录
	GetByName(ctx context.Context, name string, excludeID int64) (*model.MasterData, error)
	List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.MasterData, int64, error)
	ListAll(ctx context.Context) ([]model.MasterData, error)
	Update(ctx context.Context, item *model.MasterData) error
	Delete(ctx context.Context, id int64) error
	CountProducts(ctx context.Context, id int64) (int64, error)
	// CountProductsGrouped 返回 id → 产品数（无产品的记录不出现）
	CountProductsGrouped(ctx context.Context) (map[int64]int64, error)
}

// masterSortColumns 在通用名称排序上增加生命周期顺序（阶段表默认使用）
var masterSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"lifecycle": "CASE LOWER(name) WHEN 'introduction' THEN 1 WHEN 'growth' THEN 2 " +
		"WHEN 'maturity' THEN 3 WHEN 'decline' THEN 4 ELSE 5 END",
}

type masterDataRepo struct {
	db       *gorm.DB
	table    string
	fkColumn string
}

// NewMasterDataRepo 创建绑定到 table 的 MasterDataRepository
func NewMasterDataRepo(db *gorm.DB, table, fkColumn string) MasterDataRepository {
	return &masterDataRepo{db: db, table: table, fkColumn: fkColumn}
}

func (r *masterDataRepo) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

func (r *masterDataRepo) Create(ctx context.Context, item *model.MasterData) error {
	return r.query(ctx).Create(item).Error
}

func (r *masterDataRepo) GetByID(ctx context.Context, id int64) (*model.MasterData, error) {
	var item model.MasterData
	if err := r.query(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *masterDataRepo) GetByName(ctx context.Context, name string, excludeID int64) (*model.MasterData, error) {
	var item model.MasterData
	db := r.query(ctx).Where("LOWER(name) = LOWER(?)", name)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *masterDataRepo) List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.MasterData, int64, error) {
	var items []model.MasterData
	var total int64

	db := searchAny(r.query(ctx), filter.Search, "name")
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, masterSortColumns, "id", "id").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *masterDataRepo) ListAll(ctx context.Context) ([]model.MasterData, error) {
	var items []model.MasterData
	err := r.query(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *masterDataRepo) Update(ctx context.Context, item *model.MasterData) error {
	return r.query(ctx).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":       item.Name,
			"icon_light": item.IconLight,
			"icon_dark":  item.IconDark,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *masterDataRepo) Delete(ctx context.Context, id int64) error {
	return r.query(ctx).Where("id = ?", id).Delete(&model.MasterData{}).Error
}

func (r *masterDataRepo) CountProducts(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where(r.fkColumn+" = ?", id).
		Count(&count).Error
	return count, err
}

func (r *masterDataRepo) CountProductsGrouped(ctx context.Context) (map[int64]int64, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select(r.fkColumn + " AS id, COUNT(*) AS count").
		Group(r.fkColumn).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}
