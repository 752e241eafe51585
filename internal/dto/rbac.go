package dto

// ── 角色 / 职位 / 菜单权限 DTO ──

// RoleRequest 创建/更新角色
type RoleRequest struct {
	Name        string `json:"name"        binding:"required,min=2,max=50"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// RoleResponse 角色
type RoleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserCount   int64  `json:"user_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// PositionRequest 创建/更新职位
type PositionRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// PositionResponse 职位
type PositionResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UserCount int64  `json:"user_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NameListRequest 名称类主数据列表参数
type NameListRequest struct {
	PaginationRequest
	SortRequest
	Search string `form:"search" binding:"omitempty,max=100"`
}

// Permission 四类操作权限
type Permission struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanUpdate bool `json:"can_update"`
	CanDelete bool `json:"can_delete"`
}

// RolePermissionItem 角色在某菜单上的权限
type RolePermissionItem struct {
	MenuItemID int64  `json:"menu_item_id"`
	MenuKey    string `json:"menu_key"`
	MenuLabel  string `json:"menu_label"`
	ParentID   *int64 `json:"parent_id"`
	Permission
}

// PermissionInput 单条权限设置
type PermissionInput struct {
	MenuItemID int64 `json:"menu_item_id" binding:"required,min=1"`
	Permission
}

// UpdatePermissionsRequest 全量替换角色权限
type UpdatePermissionsRequest struct {
	Permissions []PermissionInput `json:"permissions" binding:"dive"`
}

// MenuNode 当前用户可见的导航树节点
type MenuNode struct {
	ID         int64      `json:"id"`
	Key        string     `json:"key"`
	Label      string     `json:"label"`
	Path       string     `json:"path"`
	Icon       string     `json:"icon"`
	SortOrder  int        `json:"sort_order"`
	Permission Permission `json:"permission"`
	Children   []MenuNode `json:"children,omitempty"`
}
