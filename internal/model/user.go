package model

// 预置角色名
const (
	RoleAdmin       = "Admin"
	RoleContributor = "Contributor"
	RoleUser        = "User"
)

// Role 角色表 — 对应 roles
type Role struct {
	ID          int64  `gorm:"primaryKey"                  json:"id"`
	Name        string `gorm:"type:varchar(50);not null"   json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	Timestamps
}

func (Role) TableName() string { return "roles" }

// Position 职位（Jabatan）表 — 对应 positions
type Position struct {
	ID   int64  `gorm:"primaryKey"                 json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
	Timestamps
}

func (Position) TableName() string { return "positions" }

// User 用户表 — 对应 users
type User struct {
	ID           int64     `gorm:"primaryKey"                          json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Fullname     string    `gorm:"type:varchar(100);not null"          json:"fullname"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Photo        string    `gorm:"type:varchar(255);not null;default:''" json:"photo"`
	PasswordHash string    `gorm:"type:varchar(255);not null"          json:"-"`
	RoleID       int64     `gorm:"not null"                            json:"role_id"`
	PositionID   *int64    `gorm:""                                    json:"position_id"`
	Role         *Role     `gorm:"foreignKey:RoleID"                   json:"role,omitempty"`
	Position     *Position `gorm:"foreignKey:PositionID"               json:"position,omitempty"`
	Timestamps
}

func (User) TableName() string { return "users" }
