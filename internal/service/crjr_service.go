package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
)

var ErrCRJRNotFound = errors.New("CR/JR 记录不存在")

// CRJRService CR/JR 监控业务接口
type CRJRService interface {
	List(ctx context.Context, req *dto.CRJRListRequest) (*dto.PageResult[dto.CRJRResponse], error)
	// ListAll 与 List 相同的筛选条件，不分页（导出用）
	ListAll(ctx context.Context, req *dto.CRJRListRequest) ([]dto.CRJRResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.CRJRResponse, error)
	Create(ctx context.Context, req *dto.CRJRRequest) (*dto.CRJRResponse, error)
	Update(ctx context.Context, id int64, req *dto.CRJRRequest) (*dto.CRJRResponse, error)
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*dto.CRJRStatistics, error)
	Filters(ctx context.Context) (*dto.CRJRFilters, error)
}

type crjrService struct {
	repo   *repository.Repository
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewCRJRService 创建 CRJRService 实例
func NewCRJRService(repo *repository.Repository, cache Cache, logger *zap.Logger) CRJRService {
	return &crjrService{repo: repo, cache: cache, logger: logger, now: time.Now}
}

func crjrFilter(req *dto.CRJRListRequest) repository.CRJRListFilter {
	return repository.CRJRListFilter{
		Search:       dto.TrimSearch(req.Search),
		Type:         strings.TrimSpace(req.Type),
		Corp:         strings.TrimSpace(req.Corp),
		Stage:        strings.TrimSpace(req.Stage),
		Organization: strings.TrimSpace(req.Organization),
		Year:         req.Year,
		Sort:         toSortSpec(req.SortRequest),
	}
}

func (s *crjrService) List(ctx context.Context, req *dto.CRJRListRequest) (*dto.PageResult[dto.CRJRResponse], error) {
	rows, total, err := s.repo.CRJR.List(ctx, crjrFilter(req),
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出 CR/JR 失败", zap.Error(err))
		return nil, err
	}
	return newPage(toCRJRResponses(rows), total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *crjrService) ListAll(ctx context.Context, req *dto.CRJRListRequest) ([]dto.CRJRResponse, error) {
	rows, err := s.repo.CRJR.ListAll(ctx, crjrFilter(req))
	if err != nil {
		s.logger.Error("查询 CR/JR 失败", zap.Error(err))
		return nil, err
	}
	return toCRJRResponses(rows), nil
}

func (s *crjrService) GetByID(ctx context.Context, id int64) (*dto.CRJRResponse, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCRJRResponse(c), nil
}

func (s *crjrService) Create(ctx context.Context, req *dto.CRJRRequest) (*dto.CRJRResponse, error) {
	c := &model.CRJR{}
	if err := s.apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.CRJR.Create(ctx, c); err != nil {
		s.logger.Error("创建 CR/JR 失败", zap.String("application", c.ApplicationName), zap.Error(err))
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return toCRJRResponse(c), nil
}

func (s *crjrService) Update(ctx context.Context, id int64, req *dto.CRJRRequest) (*dto.CRJRResponse, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.CRJR.Update(ctx, c); err != nil {
		s.logger.Error("更新 CR/JR 失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return toCRJRResponse(c), nil
}

func (s *crjrService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.CRJR.Delete(ctx, id); err != nil {
		s.logger.Error("删除 CR/JR 失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *crjrService) Statistics(ctx context.Context) (*dto.CRJRStatistics, error) {
	total, err := s.repo.CRJR.Count(ctx)
	if err != nil {
		s.logger.Error("统计 CR/JR 失败", zap.Error(err))
		return nil, err
	}
	stats := &dto.CRJRStatistics{Total: total}
	groups := []struct {
		column string
		dst    *[]dto.CountItem
	}{
		{"type", &stats.ByType},
		{"stage", &stats.ByStage},
		{"year", &stats.ByYear},
	}
	for _, g := range groups {
		rows, err := s.repo.CRJR.CountBy(ctx, g.column)
		if err != nil {
			s.logger.Error("分组统计 CR/JR 失败", zap.String("column", g.column), zap.Error(err))
			return nil, err
		}
		*g.dst = toCountItems(rows)
	}
	return stats, nil
}

func (s *crjrService) Filters(ctx context.Context) (*dto.CRJRFilters, error) {
	f := &dto.CRJRFilters{}
	targets := []struct {
		column string
		dst    *[]string
	}{
		{"type", &f.Types},
		{"corp", &f.Corps},
		{"stage", &f.Stages},
		{"organization", &f.Organizations},
	}
	for _, t := range targets {
		values, err := s.repo.CRJR.Distinct(ctx, t.column)
		if err != nil {
			s.logger.Error("查询 CR/JR 筛选项失败", zap.String("column", t.column), zap.Error(err))
			return nil, err
		}
		*t.dst = nonNilStrings(values)
	}

	years, err := s.repo.CRJR.DistinctYears(ctx)
	if err != nil {
		s.logger.Error("查询 CR/JR 年份失败", zap.Error(err))
		return nil, err
	}
	if years == nil {
		years = []int{}
	}
	f.Years = years
	return f, nil
}

// ── 内部辅助方法 ──

func (s *crjrService) get(ctx context.Context, id int64) (*model.CRJR, error) {
	c, err := s.repo.CRJR.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCRJRNotFound
		}
		s.logger.Error("查询 CR/JR 失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return c, nil
}

// apply 将请求写入 c；year 为 0 时取当年
func (s *crjrService) apply(c *model.CRJR, req *dto.CRJRRequest) error {
	letterDate, err := parseOptionalDate(req.STILetterDate)
	if err != nil {
		return err
	}
	year := req.Year
	if year == 0 {
		year = s.now().Year()
	}

	c.No = req.No
	c.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	c.Corp = strings.TrimSpace(req.Corp)
	c.SubField = strings.TrimSpace(req.SubField)
	c.ApplicationName = strings.TrimSpace(req.ApplicationName)
	c.RequestTitle = strings.TrimSpace(req.RequestTitle)
	c.AssignmentLetterNo = strings.TrimSpace(req.AssignmentLetterNo)
	c.ManagerPIC = strings.TrimSpace(req.ManagerPIC)
	c.STILetterDate = letterDate
	c.Stage = strings.TrimSpace(req.Stage)
	c.Organization = strings.TrimSpace(req.Organization)
	c.Year = year
	c.MonthlyCounts = model.MonthlyCounts(req.MonthlyCountsDTO)
	return nil
}

// invalidateDashboard CR/JR 变更后仪表盘统计失效
func (s *crjrService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, dashboardCachePrefix); err != nil {
		s.logger.Warn("清理仪表盘缓存失败", zap.Error(err))
	}
}

func toCRJRResponses(rows []model.CRJR) []dto.CRJRResponse {
	list := make([]dto.CRJRResponse, 0, len(rows))
	for i := range rows {
		list = append(list, *toCRJRResponse(&rows[i]))
	}
	return list
}

func toCRJRResponse(c *model.CRJR) *dto.CRJRResponse {
	return &dto.CRJRResponse{
		ID:                 c.ID,
		No:                 c.No,
		Type:               c.Type,
		Corp:               c.Corp,
		SubField:           c.SubField,
		ApplicationName:    c.ApplicationName,
		RequestTitle:       c.RequestTitle,
		AssignmentLetterNo: c.AssignmentLetterNo,
		ManagerPIC:         c.ManagerPIC,
		STILetterDate:      model.FormatDate(c.STILetterDate),
		Stage:              c.Stage,
		Organization:       c.Organization,
		Year:               c.Year,
		MonthlyCountsDTO:   dto.MonthlyCountsDTO(c.MonthlyCounts),
		MonthlyTotal:       c.MonthlyCounts.Total(),
		CreatedAt:          formatTime(c.CreatedAt),
		UpdatedAt:          formatTime(c.UpdatedAt),
	}
}
