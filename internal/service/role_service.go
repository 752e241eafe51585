package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	pkgerrors "github.com/Tahatra21/solarhub-sub000/pkg/errors"
)

// ── 角色 / 权限模块业务错误 ──

var (
	ErrRoleNameExists   = errors.New("角色名称已存在")
	ErrRoleInUse        = errors.New("角色下仍有用户，无法删除")
	ErrMenuItemNotFound = errors.New("菜单项不存在")
)

// RoleService 角色与菜单权限业务接口
type RoleService interface {
	List(ctx context.Context, req *dto.NameListRequest) (*dto.PageResult[dto.RoleResponse], error)
	GetByID(ctx context.Context, id int64) (*dto.RoleResponse, error)
	Create(ctx context.Context, req *dto.RoleRequest) (*dto.RoleResponse, error)
	Update(ctx context.Context, id int64, req *dto.RoleRequest) (*dto.RoleResponse, error)
	Delete(ctx context.Context, id int64) error

	// Permissions 全部启用菜单 × 该角色权限（未配置的菜单四项均为 false）
	Permissions(ctx context.Context, roleID int64) ([]dto.RolePermissionItem, error)
	// UpdatePermissions 在事务中全量替换角色权限
	UpdatePermissions(ctx context.Context, roleID int64, req *dto.UpdatePermissionsRequest) ([]dto.RolePermissionItem, error)
	// Menu 返回角色可见的导航树
	Menu(ctx context.Context, roleID int64) ([]dto.MenuNode, error)
}

type roleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRoleService 创建 RoleService 实例
func NewRoleService(repo *repository.Repository, logger *zap.Logger) RoleService {
	return &roleService{repo: repo, logger: logger}
}

// ────────────────────── CRUD ──────────────────────

func (s *roleService) List(ctx context.Context, req *dto.NameListRequest) (*dto.PageResult[dto.RoleResponse], error) {
	filter := repository.NameListFilter{Search: dto.TrimSearch(req.Search), Sort: toSortSpec(req.SortRequest)}
	roles, total, err := s.repo.Role.List(ctx, filter,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出角色失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		resp, err := s.toResponse(ctx, &roles[i])
		if err != nil {
			return nil, err
		}
		list = append(list, *resp)
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *roleService) GetByID(ctx context.Context, id int64) (*dto.RoleResponse, error) {
	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, role)
}

func (s *roleService) Create(ctx context.Context, req *dto.RoleRequest) (*dto.RoleResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, 0); err != nil {
		return nil, err
	}

	role := &model.Role{Name: name, Description: strings.TrimSpace(req.Description)}
	if err := s.repo.Role.Create(ctx, role); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrRoleNameExists
		}
		s.logger.Error("创建角色失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return s.toResponse(ctx, role)
}

func (s *roleService) Update(ctx context.Context, id int64, req *dto.RoleRequest) (*dto.RoleResponse, error) {
	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, id); err != nil {
		return nil, err
	}

	role.Name = name
	role.Description = strings.TrimSpace(req.Description)
	if err := s.repo.Role.Update(ctx, role); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrRoleNameExists
		}
		s.logger.Error("更新角色失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return s.toResponse(ctx, role)
}

func (s *roleService) Delete(ctx context.Context, id int64) error {
	if _, err := s.getRole(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.User.CountByRole(ctx, id)
	if err != nil {
		s.logger.Error("统计角色用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrRoleInUse
	}

	if err := s.repo.Role.Delete(ctx, id); err != nil {
		if pkgerrors.IsForeignKeyViolation(err) {
			return ErrRoleInUse
		}
		s.logger.Error("删除角色失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 权限 ──────────────────────

func (s *roleService) Permissions(ctx context.Context, roleID int64) ([]dto.RolePermissionItem, error) {
	if _, err := s.getRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.permissionItems(ctx, s.repo, roleID)
}

func (s *roleService) UpdatePermissions(ctx context.Context, roleID int64, req *dto.UpdatePermissionsRequest) ([]dto.RolePermissionItem, error) {
	if _, err := s.getRole(ctx, roleID); err != nil {
		return nil, err
	}

	items, err := s.repo.Menu.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询菜单失败", zap.Error(err))
		return nil, err
	}
	valid := make(map[int64]bool, len(items))
	for _, it := range items {
		valid[it.ID] = true
	}

	// 同一菜单重复提交时以最后一条为准
	byMenu := make(map[int64]model.RoleMenuPermission, len(req.Permissions))
	order := make([]int64, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		if !valid[p.MenuItemID] {
			return nil, ErrMenuItemNotFound
		}
		if _, seen := byMenu[p.MenuItemID]; !seen {
			order = append(order, p.MenuItemID)
		}
		byMenu[p.MenuItemID] = model.RoleMenuPermission{
			MenuItemID: p.MenuItemID,
			CanView:    p.CanView,
			CanCreate:  p.CanCreate,
			CanUpdate:  p.CanUpdate,
			CanDelete:  p.CanDelete,
		}
	}
	perms := make([]model.RoleMenuPermission, 0, len(order))
	for _, id := range order {
		perms = append(perms, byMenu[id])
	}

	var result []dto.RolePermissionItem
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Menu.ReplacePermissions(ctx, roleID, perms); err != nil {
			return err
		}
		var err error
		result, err = s.permissionItems(ctx, tx, roleID)
		return err
	})
	if err != nil {
		s.logger.Error("更新角色权限失败", zap.Int64("role_id", roleID), zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (s *roleService) Menu(ctx context.Context, roleID int64) ([]dto.MenuNode, error) {
	items, err := s.repo.Menu.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询菜单失败", zap.Error(err))
		return nil, err
	}
	perms, err := s.repo.Menu.ListPermissionsByRole(ctx, roleID)
	if err != nil {
		s.logger.Error("查询角色权限失败", zap.Int64("role_id", roleID), zap.Error(err))
		return nil, err
	}
	return buildMenuTree(items, perms), nil
}

// buildMenuTree 仅保留可查看的菜单；父菜单不可见时子菜单提升到顶层
func buildMenuTree(items []model.MenuItem, perms []model.RoleMenuPermission) []dto.MenuNode {
	permByMenu := make(map[int64]model.RoleMenuPermission, len(perms))
	for _, p := range perms {
		permByMenu[p.MenuItemID] = p
	}

	visible := make(map[int64]bool)
	for _, it := range items {
		if permByMenu[it.ID].CanView {
			visible[it.ID] = true
		}
	}

	children := make(map[int64][]dto.MenuNode)
	var roots []dto.MenuNode
	for _, it := range items {
		if !visible[it.ID] {
			continue
		}
		p := permByMenu[it.ID]
		node := dto.MenuNode{
			ID:        it.ID,
			Key:       it.MenuKey,
			Label:     it.MenuLabel,
			Path:      it.MenuPath,
			Icon:      it.IconName,
			SortOrder: it.SortOrder,
			Permission: dto.Permission{
				CanView:   p.CanView,
				CanCreate: p.CanCreate,
				CanUpdate: p.CanUpdate,
				CanDelete: p.CanDelete,
			},
		}
		if it.ParentID != nil && visible[*it.ParentID] {
			children[*it.ParentID] = append(children[*it.ParentID], node)
			continue
		}
		roots = append(roots, node)
	}

	var attach func(nodes []dto.MenuNode) []dto.MenuNode
	attach = func(nodes []dto.MenuNode) []dto.MenuNode {
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].SortOrder < nodes[j].SortOrder })
		for i := range nodes {
			if kids, ok := children[nodes[i].ID]; ok {
				nodes[i].Children = attach(kids)
			}
		}
		return nodes
	}
	if roots == nil {
		return []dto.MenuNode{}
	}
	return attach(roots)
}

// ── 内部辅助方法 ──

func (s *roleService) getRole(ctx context.Context, id int64) (*model.Role, error) {
	role, err := s.repo.Role.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRoleNotFound
		}
		s.logger.Error("查询角色失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return role, nil
}

func (s *roleService) checkName(ctx context.Context, name string, excludeID int64) error {
	if _, err := s.repo.Role.GetByName(ctx, name, excludeID); err == nil {
		return ErrRoleNameExists
	} else if !isNotFound(err) {
		return err
	}
	return nil
}

func (s *roleService) toResponse(ctx context.Context, role *model.Role) (*dto.RoleResponse, error) {
	count, err := s.repo.User.CountByRole(ctx, role.ID)
	if err != nil {
		s.logger.Error("统计角色用户失败", zap.Int64("id", role.ID), zap.Error(err))
		return nil, err
	}
	return &dto.RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		UserCount:   count,
		CreatedAt:   formatTime(role.CreatedAt),
		UpdatedAt:   formatTime(role.UpdatedAt),
	}, nil
}

func (s *roleService) permissionItems(ctx context.Context, repo *repository.Repository, roleID int64) ([]dto.RolePermissionItem, error) {
	items, err := repo.Menu.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	perms, err := repo.Menu.ListPermissionsByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	permByMenu := make(map[int64]model.RoleMenuPermission, len(perms))
	for _, p := range perms {
		permByMenu[p.MenuItemID] = p
	}

	result := make([]dto.RolePermissionItem, 0, len(items))
	for _, it := range items {
		p := permByMenu[it.ID]
		result = append(result, dto.RolePermissionItem{
			MenuItemID: it.ID,
			MenuKey:    it.MenuKey,
			MenuLabel:  it.MenuLabel,
			ParentID:   it.ParentID,
			Permission: dto.Permission{
				CanView:   p.CanView,
				CanCreate: p.CanCreate,
				CanUpdate: p.CanUpdate,
				CanDelete: p.CanDelete,
			},
		})
	}
	return result, nil
}
