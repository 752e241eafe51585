package model

import "time"

// MenuItem 导航菜单项 — 对应 menu_items
type MenuItem struct {
	ID        int64  `gorm:"primaryKey"                        json:"id"`
	MenuKey   string `gorm:"type:varchar(50);uniqueIndex;not null" json:"menu_key"`
	MenuLabel string `gorm:"type:varchar(100);not null"        json:"menu_label"`
	MenuPath  string `gorm:"type:varchar(255);not null;default:''" json:"menu_path"`
	ParentID  *int64 `gorm:""                                  json:"parent_id"`
	IconName  string `gorm:"type:varchar(50);not null;default:''" json:"icon_name"`
	SortOrder int    `gorm:"not null;default:0"                json:"sort_order"`
	IsActive  bool   `gorm:"not null;default:true"             json:"is_active"`
	Timestamps
}

func (MenuItem) TableName() string { return "menu_items" }

// RoleMenuPermission 角色-菜单权限 — 对应 role_menu_permissions，(role_id, menu_item_id) 唯一
type RoleMenuPermission struct {
	ID         int64 `gorm:"primaryKey"                 json:"id"`
	RoleID     int64 `gorm:"not null;uniqueIndex:uq_role_menu" json:"role_id"`
	MenuItemID int64 `gorm:"not null;uniqueIndex:uq_role_menu" json:"menu_item_id"`
	CanView    bool  `gorm:"not null;default:false"     json:"can_view"`
	CanCreate  bool  `gorm:"not null;default:false"     json:"can_create"`
	CanUpdate  bool  `gorm:"not null;default:false"     json:"can_update"`
	CanDelete  bool  `gorm:"not null;default:false"     json:"can_delete"`
	Timestamps
}

func (RoleMenuPermission) TableName() string { return "role_menu_permissions" }

// 活动类型
const (
	ActivityLogin          = "login"
	ActivityLogout         = "logout"
	ActivityChangePassword = "change_password"
)

// ActivityLog 用户活动日志 — 对应 activity_logs（只追加）
type ActivityLog struct {
	ID           int64     `gorm:"primaryKey"                   json:"id"`
	UserID       *int64    `gorm:""                             json:"user_id"`
	Username     string    `gorm:"type:varchar(50);not null"    json:"username"`
	ActivityType string    `gorm:"type:varchar(50);not null"    json:"activity_type"`
	Description  string    `gorm:"type:text;not null;default:''" json:"description"`
	IPAddress    string    `gorm:"type:varchar(64);not null;default:''" json:"ip_address"`
	UserAgent    string    `gorm:"type:text;not null;default:''" json:"user_agent"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
