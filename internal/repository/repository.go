package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User        UserRepository
	Role        RoleRepository
	Position    PositionRepository
	Menu        MenuRepository
	ActivityLog ActivityLogRepository

	Category MasterDataRepository
	Segment  MasterDataRepository
	Stage    MasterDataRepository
	Interval IntervalRepository

	Product    ProductRepository
	DevHistory DevHistoryRepository

	License    LicenseRepository
	CRJR       CRJRRepository
	RunProgram RunProgramRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		User:        NewUserRepo(db),
		Role:        NewRoleRepo(db),
		Position:    NewPositionRepo(db),
		Menu:        NewMenuRepo(db),
		ActivityLog: NewActivityLogRepo(db),
		Category:    NewMasterDataRepo(db, model.TableCategories, "category_id"),
		Segment:     NewMasterDataRepo(db, model.TableSegments, "segment_id"),
		Stage:       NewMasterDataRepo(db, model.TableStages, "stage_id"),
		Interval:    NewIntervalRepo(db),
		Product:     NewProductRepo(db),
		DevHistory:  NewDevHistoryRepo(db),
		License:     NewLicenseRepo(db),
		CRJR:        NewCRJRRepo(db),
		RunProgram:  NewRunProgramRepo(db),
	}
}

// Transaction 在同一数据库事务中执行 fn，fn 内通过 txRepo 访问的所有仓储共享该事务。
// 未绑定数据库（单元测试中手工组装的聚合）时直接以自身执行。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
