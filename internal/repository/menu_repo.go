package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// MenuRepository 菜单与角色权限数据访问接口
type MenuRepository interface {
	ListActive(ctx context.Context) ([]model.MenuItem, error)
	ListPermissionsByRole(ctx context.Context, roleID int64) ([]model.RoleMenuPermission, error)
	// ReplacePermissions 删除角色现有权限后批量写入；调用方负责事务
	ReplacePermissions(ctx context.Context, roleID int64, perms []model.RoleMenuPermission) error
}

type menuRepo struct {
	db *gorm.DB
}

// NewMenuRepo 创建 MenuRepository 实例
func NewMenuRepo(db *gorm.DB) MenuRepository {
	return &menuRepo{db: db}
}

func (r *menuRepo) ListActive(ctx context.Context) ([]model.MenuItem, error) {
	var items []model.MenuItem
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *menuRepo) ListPermissionsByRole(ctx context.Context, roleID int64) ([]model.RoleMenuPermission, error) {
	var perms []model.RoleMenuPermission
	err := r.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Find(&perms).Error
	return perms, err
}

func (r *menuRepo) ReplacePermissions(ctx context.Context, roleID int64, perms []model.RoleMenuPermission) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("role_id = ?", roleID).Delete(&model.RoleMenuPermission{}).Error; err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	for i := range perms {
		perms[i].RoleID = roleID
	}
	return db.Create(&perms).Error
}

// ── 活动日志 ──

// ActivityLogRepository 活动日志数据访问接口
type ActivityLogRepository interface {
	Create(ctx context.Context, log *model.ActivityLog) error
	ListByUser(ctx context.Context, userID int64, activityType string, offset, limit int) ([]model.ActivityLog, int64, error)
}

type activityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepo 创建 ActivityLogRepository 实例
func NewActivityLogRepo(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, log *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *activityLogRepo) ListByUser(ctx context.Context, userID int64, activityType string, offset, limit int) ([]model.ActivityLog, int64, error) {
	var logs []model.ActivityLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ActivityLog{}).Where("user_id = ?", userID)
	db = eqIfSet(db, "activity_type", activityType)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	return logs, total, err
}
