package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	pkgerrors "github.com/Tahatra21/solarhub-sub000/pkg/errors"
)

var (
	ErrPositionNameExists = errors.New("职位名称已存在")
	ErrPositionInUse      = errors.New("职位下仍有用户，无法删除")
)

// PositionService 职位业务接口
type PositionService interface {
	List(ctx context.Context, req *dto.NameListRequest) (*dto.PageResult[dto.PositionResponse], error)
	Options(ctx context.Context) ([]dto.OptionItem, error)
	GetByID(ctx context.Context, id int64) (*dto.PositionResponse, error)
	Create(ctx context.Context, req *dto.PositionRequest) (*dto.PositionResponse, error)
	Update(ctx context.Context, id int64, req *dto.PositionRequest) (*dto.PositionResponse, error)
	Delete(ctx context.Context, id int64) error
}

type positionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPositionService 创建 PositionService 实例
func NewPositionService(repo *repository.Repository, logger *zap.Logger) PositionService {
	return &positionService{repo: repo, logger: logger}
}

func (s *positionService) List(ctx context.Context, req *dto.NameListRequest) (*dto.PageResult[dto.PositionResponse], error) {
	filter := repository.NameListFilter{Search: dto.TrimSearch(req.Search), Sort: toSortSpec(req.SortRequest)}
	positions, total, err := s.repo.Position.List(ctx, filter,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出职位失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.PositionResponse, 0, len(positions))
	for i := range positions {
		resp, err := s.toResponse(ctx, &positions[i])
		if err != nil {
			return nil, err
		}
		list = append(list, *resp)
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *positionService) Options(ctx context.Context) ([]dto.OptionItem, error) {
	positions, err := s.repo.Position.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询职位选项失败", zap.Error(err))
		return nil, err
	}
	items := make([]dto.OptionItem, 0, len(positions))
	for _, p := range positions {
		items = append(items, dto.OptionItem{ID: p.ID, Name: p.Name})
	}
	return items, nil
}

func (s *positionService) GetByID(ctx context.Context, id int64) (*dto.PositionResponse, error) {
	pos, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, pos)
}

func (s *positionService) Create(ctx context.Context, req *dto.PositionRequest) (*dto.PositionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, 0); err != nil {
		return nil, err
	}

	pos := &model.Position{Name: name}
	if err := s.repo.Position.Create(ctx, pos); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrPositionNameExists
		}
		s.logger.Error("创建职位失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return s.toResponse(ctx, pos)
}

func (s *positionService) Update(ctx context.Context, id int64, req *dto.PositionRequest) (*dto.PositionResponse, error) {
	pos, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, id); err != nil {
		return nil, err
	}

	pos.Name = name
	if err := s.repo.Position.Update(ctx, pos); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrPositionNameExists
		}
		s.logger.Error("更新职位失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return s.toResponse(ctx, pos)
}

func (s *positionService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.User.CountByPosition(ctx, id)
	if err != nil {
		s.logger.Error("统计职位用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrPositionInUse
	}

	if err := s.repo.Position.Delete(ctx, id); err != nil {
		if pkgerrors.IsForeignKeyViolation(err) {
			return ErrPositionInUse
		}
		s.logger.Error("删除职位失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *positionService) get(ctx context.Context, id int64) (*model.Position, error) {
	pos, err := s.repo.Position.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPositionNotFound
		}
		s.logger.Error("查询职位失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return pos, nil
}

func (s *positionService) checkName(ctx context.Context, name string, excludeID int64) error {
	if _, err := s.repo.Position.GetByName(ctx, name, excludeID); err == nil {
		return ErrPositionNameExists
	} else if !isNotFound(err) {
		return err
	}
	return nil
}

func (s *positionService) toResponse(ctx context.Context, pos *model.Position) (*dto.PositionResponse, error) {
	count, err := s.repo.User.CountByPosition(ctx, pos.ID)
	if err != nil {
		s.logger.Error("统计职位用户失败", zap.Int64("id", pos.ID), zap.Error(err))
		return nil, err
	}
	return &dto.PositionResponse{
		ID:        pos.ID,
		Name:      pos.Name,
		UserCount: count,
		CreatedAt: formatTime(pos.CreatedAt),
		UpdatedAt: formatTime(pos.UpdatedAt),
	}, nil
}
