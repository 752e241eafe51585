package dto

// ── 用户模块 DTO ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Fullname   string `json:"fullname"`
	Email      string `json:"email"`
	Photo      string `json:"photo"`
	RoleID     int64  `json:"role_id"`
	Role       string `json:"role"`
	PositionID *int64 `json:"position_id"`
	Position   string `json:"position"`
	CreatedAt  string `json:"created_at"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	SortRequest
	Search string `form:"search" binding:"omitempty,max=100"`
}

// CreateUserRequest 创建用户（multipart 表单，photo 为可选文件字段）
type CreateUserRequest struct {
	Fullname   string `form:"fullname"    binding:"required,max=100"`
	Username   string `form:"username"    binding:"required,min=3,max=50"`
	Email      string `form:"email"       binding:"required,email,max=100"`
	Password   string `form:"password"    binding:"required,min=8,max=64"`
	RoleID     int64  `form:"role_id"     binding:"required,min=1"`
	PositionID *int64 `form:"position_id" binding:"omitempty,min=1"`
}

// UpdateUserRequest 更新用户；password 为空表示不修改
type UpdateUserRequest struct {
	Fullname   string `form:"fullname"    binding:"required,max=100"`
	Username   string `form:"username"    binding:"required,min=3,max=50"`
	Email      string `form:"email"       binding:"required,email,max=100"`
	Password   string `form:"password"    binding:"omitempty,min=8,max=64"`
	RoleID     int64  `form:"role_id"     binding:"required,min=1"`
	PositionID *int64 `form:"position_id" binding:"omitempty,min=1"`
}

// UserOptionsResponse 用户表单下拉数据
type UserOptionsResponse struct {
	Roles     []OptionItem `json:"roles"`
	Positions []OptionItem `json:"positions"`
}
