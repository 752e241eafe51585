package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/pkg/jwt"
)

var (
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrInvalidRefreshToken = errors.New("Refresh Token 无效或已过期")
	ErrOldPasswordWrong    = errors.New("原密码错误")
	ErrPasswordUnchanged   = errors.New("新密码不能与原密码相同")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest, meta dto.ClientMeta) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	// Logout 吊销当前 Access Token（jti 在剩余有效期内进入黑名单）
	Logout(ctx context.Context, userID int64, jti string, expiresAt time.Time, meta dto.ClientMeta) error
	Me(ctx context.Context, userID int64) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest, meta dto.ClientMeta) error
	ActivityLog(ctx context.Context, userID int64, req *dto.ActivityLogListRequest) (*dto.PageResult[dto.ActivityLogResponse], error)
}

type authService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func identityOf(user *model.User) jwt.Identity {
	id := jwt.Identity{UserID: user.ID, Username: user.Username, RoleID: user.RoleID}
	if user.Role != nil {
		id.Role = user.Role.Name
	}
	return id
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, meta dto.ClientMeta) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByUsername(ctx, req.Username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	identity := identityOf(user)
	accessToken, err := s.jwtMgr.GenerateAccessToken(identity)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(identity)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	s.recordActivity(ctx, user, model.ActivityLogin, "用户登录", meta)

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         *toUserResponse(user),
	}, nil
}

// ────────────────────── RefreshToken ──────────────────────

func (s *authService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	// 重新加载用户，角色变更后新 Token 立即生效
	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("查询用户失败", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(identityOf(user))
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:        *toUserResponse(user),
	}, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, userID int64, jti string, expiresAt time.Time, meta dto.ClientMeta) error {
	if jti != "" {
		if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
			s.logger.Error("写入 Token 黑名单失败", zap.Int64("user_id", userID), zap.Error(err))
			return err
		}
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	s.recordActivity(ctx, user, model.ActivityLogout, "用户登出", meta)
	return nil
}

// ────────────────────── Me ──────────────────────

func (s *authService) Me(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest, meta dto.ClientMeta) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrOldPasswordWrong
	}
	if req.OldPassword == req.NewPassword {
		return ErrPasswordUnchanged
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdatePassword(ctx, userID, string(hash)); err != nil {
		s.logger.Error("更新密码失败", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}

	s.recordActivity(ctx, user, model.ActivityChangePassword, "修改密码", meta)
	return nil
}

// ────────────────────── ActivityLog ──────────────────────

func (s *authService) ActivityLog(ctx context.Context, userID int64, req *dto.ActivityLogListRequest) (*dto.PageResult[dto.ActivityLogResponse], error) {
	logs, total, err := s.repo.ActivityLog.ListByUser(ctx, userID, req.ActivityType,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("查询活动日志失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		list = append(list, dto.ActivityLogResponse{
			ID:           l.ID,
			Username:     l.Username,
			ActivityType: l.ActivityType,
			Description:  l.Description,
			IPAddress:    l.IPAddress,
			UserAgent:    l.UserAgent,
			CreatedAt:    formatTime(l.CreatedAt),
		})
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

// recordActivity 写入活动日志；失败仅记录告警，不影响主流程
func (s *authService) recordActivity(ctx context.Context, user *model.User, activity, desc string, meta dto.ClientMeta) {
	uid := user.ID
	entry := &model.ActivityLog{
		UserID:       &uid,
		Username:     user.Username,
		ActivityType: activity,
		Description:  desc,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if err := s.repo.ActivityLog.Create(ctx, entry); err != nil {
		s.logger.Warn("写入活动日志失败",
			zap.Int64("user_id", user.ID), zap.String("activity", activity), zap.Error(err))
	}
}
