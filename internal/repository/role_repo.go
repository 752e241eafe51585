package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// NameListFilter 名称类主数据列表筛选
type NameListFilter struct {
	Search string
	Sort   SortSpec
}

var nameSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// RoleRepository 角色数据访问接口
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	GetByID(ctx context.Context, id int64) (*model.Role, error)
	// GetByName 不区分大小写匹配，excludeID > 0 时排除该记录（更新时查重）
	GetByName(ctx context.Context, name string, excludeID int64) (*model.Role, error)
	List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.Role, int64, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id int64) error
}

type roleRepo struct {
	db *gorm.DB
}

// NewRoleRepo 创建 RoleRepository 实例
func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepo) GetByID(ctx context.Context, id int64) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) GetByName(ctx context.Context, name string, excludeID int64) (*model.Role, error) {
	var role model.Role
	db := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.Role, int64, error) {
	var roles []model.Role
	var total int64

	db := searchAny(r.db.WithContext(ctx).Model(&model.Role{}), filter.Search, "name", "description")
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, nameSortColumns, "id", "id").
		Offset(offset).Limit(limit).
		Find(&roles).Error
	return roles, total, err
}

func (r *roleRepo) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Order("id ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) Update(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Omit("CreatedAt").Save(role).Error
}

func (r *roleRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Role{}, id).Error
}

// ── 职位 ──

// PositionRepository 职位数据访问接口
type PositionRepository interface {
	Create(ctx context.Context, pos *model.Position) error
	GetByID(ctx context.Context, id int64) (*model.Position, error)
	GetByName(ctx context.Context, name string, excludeID int64) (*model.Position, error)
	List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.Position, int64, error)
	ListAll(ctx context.Context) ([]model.Position, error)
	Update(ctx context.Context, pos *model.Position) error
	Delete(ctx context.Context, id int64) error
}

type positionRepo struct {
	db *gorm.DB
}

// NewPositionRepo 创建 PositionRepository 实例
func NewPositionRepo(db *gorm.DB) PositionRepository {
	return &positionRepo{db: db}
}

func (r *positionRepo) Create(ctx context.Context, pos *model.Position) error {
	return r.db.WithContext(ctx).Create(pos).Error
}

func (r *positionRepo) GetByID(ctx context.Context, id int64) (*model.Position, error) {
	var pos model.Position
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pos).Error; err != nil {
		return nil, err
	}
	return &pos, nil
}

func (r *positionRepo) GetByName(ctx context.Context, name string, excludeID int64) (*model.Position, error) {
	var pos model.Position
	db := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.First(&pos).Error; err != nil {
		return nil, err
	}
	return &pos, nil
}

func (r *positionRepo) List(ctx context.Context, filter NameListFilter, offset, limit int) ([]model.Position, int64, error) {
	var positions []model.Position
	var total int64

	db := searchAny(r.db.WithContext(ctx).Model(&model.Position{}), filter.Search, "name")
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := orderBy(db, filter.Sort, nameSortColumns, "name", "id").
		Offset(offset).Limit(limit).
		Find(&positions).Error
	return positions, total, err
}

func (r *positionRepo) ListAll(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := r.db.WithContext(ctx).Order("name ASC").Find(&positions).Error
	return positions, err
}

func (r *positionRepo) Update(ctx context.Context, pos *model.Position) error {
	return r.db.WithContext(ctx).Omit("CreatedAt").Save(pos).Error
}

func (r *positionRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Position{}, id).Error
}
