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
	ErrIntervalNotFound   = errors.New("阶段间隔不存在")
	ErrIntervalExists     = errors.New("该阶段组合的间隔已存在")
	ErrIntervalSameStage  = errors.New("前后阶段不能相同")
	ErrIntervalStageUnset = errors.New("前置或后续阶段不存在")
	ErrIntervalMonths     = errors.New("间隔月数必须大于 0")
)

// IntervalService 阶段间计划间隔业务接口
type IntervalService interface {
	List(ctx context.Context, req *dto.IntervalListRequest) (*dto.PageResult[dto.IntervalResponse], error)
	GetByID(ctx context.Context, id int64) (*dto.IntervalResponse, error)
	Create(ctx context.Context, req *dto.IntervalRequest) (*dto.IntervalResponse, error)
	Update(ctx context.Context, id int64, req *dto.IntervalRequest) (*dto.IntervalResponse, error)
	Delete(ctx context.Context, id int64) error
}

type intervalService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewIntervalService 创建 IntervalService 实例
func NewIntervalService(repo *repository.Repository, logger *zap.Logger) IntervalService {
	return &intervalService{repo: repo, logger: logger}
}

func (s *intervalService) List(ctx context.Context, req *dto.IntervalListRequest) (*dto.PageResult[dto.IntervalResponse], error) {
	filter := repository.NameListFilter{Search: dto.TrimSearch(req.Search), Sort: toSortSpec(req.SortRequest)}
	items, total, err := s.repo.Interval.List(ctx, filter,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出阶段间隔失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.IntervalResponse, 0, len(items))
	for i := range items {
		list = append(list, *toIntervalResponse(&items[i]))
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *intervalService) GetByID(ctx context.Context, id int64) (*dto.IntervalResponse, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toIntervalResponse(item), nil
}

func (s *intervalService) Create(ctx context.Context, req *dto.IntervalRequest) (*dto.IntervalResponse, error) {
	if err := s.validate(ctx, req, 0); err != nil {
		return nil, err
	}

	item := &model.StageInterval{
		PreviousStageID: req.PreviousStageID,
		NextStageID:     req.NextStageID,
		IntervalMonths:  req.IntervalMonths,
		Description:     strings.TrimSpace(req.Description),
	}
	if err := s.repo.Interval.Create(ctx, item); err != nil {
		return nil, s.mapWriteError(err, "创建阶段间隔失败", 0)
	}
	return s.GetByID(ctx, item.ID)
}

func (s *intervalService) Update(ctx context.Context, id int64, req *dto.IntervalRequest) (*dto.IntervalResponse, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}

	item.PreviousStageID = req.PreviousStageID
	item.NextStageID = req.NextStageID
	item.IntervalMonths = req.IntervalMonths
	item.Description = strings.TrimSpace(req.Description)
	item.PreviousStage, item.NextStage = nil, nil
	if err := s.repo.Interval.Update(ctx, item); err != nil {
		return nil, s.mapWriteError(err, "更新阶段间隔失败", id)
	}
	return s.GetByID(ctx, id)
}

func (s *intervalService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Interval.Delete(ctx, id); err != nil {
		s.logger.Error("删除阶段间隔失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *intervalService) get(ctx context.Context, id int64) (*model.StageInterval, error) {
	item, err := s.repo.Interval.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrIntervalNotFound
		}
		s.logger.Error("查询阶段间隔失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (s *intervalService) validate(ctx context.Context, req *dto.IntervalRequest, excludeID int64) error {
	if req.PreviousStageID == req.NextStageID {
		return ErrIntervalSameStage
	}
	if req.IntervalMonths <= 0 {
		return ErrIntervalMonths
	}
	for _, id := range []int64{req.PreviousStageID, req.NextStageID} {
		if _, err := s.repo.Stage.GetByID(ctx, id); err != nil {
			if isNotFound(err) {
				return ErrIntervalStageUnset
			}
			return err
		}
	}
	if _, err := s.repo.Interval.GetByPair(ctx, req.PreviousStageID, req.NextStageID, excludeID); err == nil {
		return ErrIntervalExists
	} else if !isNotFound(err) {
		return err
	}
	return nil
}

func (s *intervalService) mapWriteError(err error, msg string, id int64) error {
	switch {
	case pkgerrors.IsUniqueViolation(err):
		return ErrIntervalExists
	case pkgerrors.IsForeignKeyViolation(err):
		return ErrIntervalStageUnset
	}
	s.logger.Error(msg, zap.Int64("id", id), zap.Error(err))
	return err
}

func toIntervalResponse(item *model.StageInterval) *dto.IntervalResponse {
	resp := &dto.IntervalResponse{
		ID:              item.ID,
		PreviousStageID: item.PreviousStageID,
		NextStageID:     item.NextStageID,
		IntervalMonths:  item.IntervalMonths,
		Description:     item.Description,
		CreatedAt:       formatTime(item.CreatedAt),
		UpdatedAt:       formatTime(item.UpdatedAt),
	}
	if item.PreviousStage != nil {
		resp.PreviousStageName = item.PreviousStage.Name
	}
	if item.NextStage != nil {
		resp.NextStageName = item.NextStage.Name
	}
	return resp
}
