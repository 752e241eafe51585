package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// RoleHandler 角色与权限 HTTP 处理器
type RoleHandler struct {
	roleSvc service.RoleService
}

// NewRoleHandler 创建 RoleHandler
func NewRoleHandler(roleSvc service.RoleService) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc}
}

// ListRoles 角色列表
// GET /api/v1/roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	var req dto.NameListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	r, err := h.roleSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OKPage(c, r.List, r.Total, r.Page, r.PageSize)
}

// GetRole 角色详情
// GET /api/v1/roles/:id
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, ok := parseID(c, "角色")
	if !ok {
		return
	}

	role, err := h.roleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, role)
}

// CreateRole 创建角色
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	role, err := h.roleSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.Created(c, role)
}

// UpdateRole 更新角色
// PUT /api/v1/roles/:id
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := parseID(c, "角色")
	if !ok {
		return
	}

	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	role, err := h.roleSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, role)
}

// DeleteRole 删除角色
// DELETE /api/v1/roles/:id
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := parseID(c, "角色")
	if !ok {
		return
	}

	if err := h.roleSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetPermissions 角色权限矩阵
// GET /api/v1/roles/:id/permissions
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	id, ok := parseID(c, "角色")
	if !ok {
		return
	}

	items, err := h.roleSvc.Permissions(c.Request.Context(), id)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// UpdatePermissions 全量替换角色权限
// PUT /api/v1/roles/:id/permissions
func (h *RoleHandler) UpdatePermissions(c *gin.Context) {
	id, ok := parseID(c, "角色")
	if !ok {
		return
	}

	var req dto.UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, err := h.roleSvc.UpdatePermissions(c.Request.Context(), id, &req)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// Menu 当前用户可见的导航菜单
// GET /api/v1/menu-items
func (h *RoleHandler) Menu(c *gin.Context) {
	roleID, ok := MustGetRoleID(c)
	if !ok {
		return
	}

	nodes, err := h.roleSvc.Menu(c.Request.Context(), roleID)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": nodes})
}

func (h *RoleHandler) handleRoleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoleNotFound):
		response.NotFound(c, 13001, "角色不存在")
	case errors.Is(err, service.ErrRoleNameExists):
		response.Conflict(c, 13002, "角色名称已存在")
	case errors.Is(err, service.ErrRoleInUse):
		response.BadRequest(c, 13003, "角色下仍有用户，无法删除")
	case errors.Is(err, service.ErrMenuItemNotFound):
		response.BadRequest(c, 13004, "菜单项不存在")
	default:
		response.InternalError(c)
	}
}
