package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	pkgerrors "github.com/Tahatra21/solarhub-sub000/pkg/errors"
	"github.com/Tahatra21/solarhub-sub000/pkg/storage"
)

// ── 用户模块业务错误 ──

var (
	ErrUsernameExists   = errors.New("用户名已存在")
	ErrEmailExists      = errors.New("邮箱已被使用")
	ErrUserSelfDelete   = errors.New("不能删除自己")
	ErrRoleNotFound     = errors.New("角色不存在")
	ErrPositionNotFound = errors.New("职位不存在")
)

// UserService 用户管理业务接口
type UserService interface {
	List(ctx context.Context, req *dto.UserListRequest) (*dto.PageResult[dto.UserResponse], error)
	Options(ctx context.Context) (*dto.UserOptionsResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.UserResponse, error)
	Create(ctx context.Context, req *dto.CreateUserRequest, photo *multipart.FileHeader) (*dto.UserResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateUserRequest, photo *multipart.FileHeader) (*dto.UserResponse, error)
	Delete(ctx context.Context, id int64, callerID int64) error
}

type userService struct {
	repo   *repository.Repository
	files  FileStore
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, files FileStore, logger *zap.Logger) UserService {
	return &userService{repo: repo, files: files, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) (*dto.PageResult[dto.UserResponse], error) {
	filter := repository.UserListFilter{
		Search: dto.TrimSearch(req.Search),
		Sort:   toSortSpec(req.SortRequest),
	}
	users, total, err := s.repo.User.List(ctx, filter,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		list = append(list, *toUserResponse(&users[i]))
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

// ────────────────────── Options ──────────────────────

func (s *userService) Options(ctx context.Context) (*dto.UserOptionsResponse, error) {
	roles, err := s.repo.Role.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询角色列表失败", zap.Error(err))
		return nil, err
	}
	positions, err := s.repo.Position.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询职位列表失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.UserOptionsResponse{
		Roles:     make([]dto.OptionItem, 0, len(roles)),
		Positions: make([]dto.OptionItem, 0, len(positions)),
	}
	for _, r := range roles {
		resp.Roles = append(resp.Roles, dto.OptionItem{ID: r.ID, Name: r.Name})
	}
	for _, p := range positions {
		resp.Positions = append(resp.Positions, dto.OptionItem{ID: p.ID, Name: p.Name})
	}
	return resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id int64) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest, photo *multipart.FileHeader) (*dto.UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if err := s.checkUnique(ctx, username, email, 0); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, req.RoleID, req.PositionID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Fullname:     strings.TrimSpace(req.Fullname),
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       req.RoleID,
		PositionID:   req.PositionID,
	}

	if photo != nil {
		f, err := s.files.Save("photos", photo, storage.PhotoRule)
		if err != nil {
			return nil, err
		}
		user.Photo = f.URL
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		_ = s.files.Remove(user.Photo)
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("创建用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, user.ID)
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id int64, req *dto.UpdateUserRequest, photo *multipart.FileHeader) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if err := s.checkUnique(ctx, username, email, id); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, req.RoleID, req.PositionID); err != nil {
		return nil, err
	}

	user.Username = username
	user.Fullname = strings.TrimSpace(req.Fullname)
	user.Email = email
	user.RoleID = req.RoleID
	user.PositionID = req.PositionID

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	oldPhoto := ""
	if photo != nil {
		f, err := s.files.Save("photos", photo, storage.PhotoRule)
		if err != nil {
			return nil, err
		}
		oldPhoto, user.Photo = user.Photo, f.URL
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		if photo != nil {
			_ = s.files.Remove(user.Photo)
		}
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("更新用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	if oldPhoto != "" {
		if err := s.files.Remove(oldPhoto); err != nil {
			s.logger.Warn("删除旧头像失败", zap.String("url", oldPhoto), zap.Error(err))
		}
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, id int64, callerID int64) error {
	if id == callerID {
		return ErrUserSelfDelete
	}

	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	if err := s.repo.User.Delete(ctx, id); err != nil {
		s.logger.Error("删除用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	if err := s.files.Remove(user.Photo); err != nil {
		s.logger.Warn("删除头像失败", zap.String("url", user.Photo), zap.Error(err))
	}
	return nil
}

// ── 内部辅助方法 ──

// checkUnique 检查用户名与邮箱唯一性，excludeID 为当前用户（更新时）
func (s *userService) checkUnique(ctx context.Context, username, email string, excludeID int64) error {
	if existing, err := s.repo.User.GetByUsername(ctx, username); err == nil {
		if existing.ID != excludeID {
			return ErrUsernameExists
		}
	} else if !isNotFound(err) {
		return err
	}

	if existing, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		if existing.ID != excludeID {
			return ErrEmailExists
		}
	} else if !isNotFound(err) {
		return err
	}
	return nil
}

// checkRefs 检查角色与职位存在
func (s *userService) checkRefs(ctx context.Context, roleID int64, positionID *int64) error {
	if _, err := s.repo.Role.GetByID(ctx, roleID); err != nil {
		if isNotFound(err) {
			return ErrRoleNotFound
		}
		return err
	}
	if positionID != nil {
		if _, err := s.repo.Position.GetByID(ctx, *positionID); err != nil {
			if isNotFound(err) {
				return ErrPositionNotFound
			}
			return err
		}
	}
	return nil
}

// toUserResponse 将 model.User 转换为 dto.UserResponse
func toUserResponse(user *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		Fullname:   user.Fullname,
		Email:      user.Email,
		Photo:      user.Photo,
		RoleID:     user.RoleID,
		PositionID: user.PositionID,
		CreatedAt:  formatTime(user.CreatedAt),
	}
	if user.Role != nil {
		resp.Role = user.Role.Name
	}
	if user.Position != nil {
		resp.Position = user.Position.Name
	}
	return resp
}
