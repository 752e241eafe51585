package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
)

// topBPOLimit 统计中 BPO 排行的条数
const topBPOLimit = 10

var (
	ErrRunProgramNotFound  = errors.New("运营任务不存在")
	ErrRunProgramDateOrder = errors.New("结束日期不能早于开始日期")
)

// RunProgramService 运营任务监控业务接口
type RunProgramService interface {
	List(ctx context.Context, req *dto.RunProgramListRequest) (*dto.PageResult[dto.RunProgramResponse], error)
	GetByID(ctx context.Context, id int64) (*dto.RunProgramResponse, error)
	Create(ctx context.Context, req *dto.RunProgramRequest) (*dto.RunProgramResponse, error)
	// Update 更新任务字段并整体替换周进度
	Update(ctx context.Context, id int64, req *dto.RunProgramRequest) (*dto.RunProgramResponse, error)
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*dto.RunProgramStatistics, error)
	Filters(ctx context.Context) (*dto.RunProgramFilters, error)
	// Import 以 Excel 全量替换任务数据；任一行校验失败则不写库
	Import(ctx context.Context, reader io.Reader) (*dto.ImportResult, error)
}

type runProgramService struct {
	repo    *repository.Repository
	cache   Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRunProgramService 创建 RunProgramService 实例
func NewRunProgramService(repo *repository.Repository, cache Cache, m *metrics.Metrics, logger *zap.Logger) RunProgramService {
	return &runProgramService{repo: repo, cache: cache, metrics: m, logger: logger}
}

func (s *runProgramService) List(ctx context.Context, req *dto.RunProgramListRequest) (*dto.PageResult[dto.RunProgramResponse], error) {
	filter := repository.RunProgramListFilter{
		Search:   dto.TrimSearch(req.Search),
		Type:     strings.TrimSpace(req.Type),
		BPO:      strings.TrimSpace(req.BPO),
		Priority: req.Priority,
		Status:   strings.TrimSpace(req.Status),
		Sort:     toSortSpec(req.SortRequest),
	}
	rows, total, err := s.repo.RunProgram.List(ctx, filter,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出运营任务失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.RunProgramResponse, 0, len(rows))
	for i := range rows {
		list = append(list, *toRunProgramResponse(&rows[i]))
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *runProgramService) GetByID(ctx context.Context, id int64) (*dto.RunProgramResponse, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRunProgramResponse(p), nil
}

func (s *runProgramService) Create(ctx context.Context, req *dto.RunProgramRequest) (*dto.RunProgramResponse, error) {
	p := &model.RunProgram{}
	if err := applyRunProgram(p, req); err != nil {
		return nil, err
	}
	p.Progresses = toProgressRows(req.Progresses)

	if err := s.repo.RunProgram.Create(ctx, p); err != nil {
		s.logger.Error("创建运营任务失败", zap.String("task", p.TaskName), zap.Error(err))
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return toRunProgramResponse(p), nil
}

func (s *runProgramService) Update(ctx context.Context, id int64, req *dto.RunProgramRequest) (*dto.RunProgramResponse, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyRunProgram(p, req); err != nil {
		return nil, err
	}
	progresses := toProgressRows(req.Progresses)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.RunProgram.Update(ctx, p); err != nil {
			return err
		}
		return tx.RunProgram.ReplaceProgresses(ctx, id, progresses)
	})
	if err != nil {
		s.logger.Error("更新运营任务失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	p.Progresses = progresses
	s.invalidateDashboard(ctx)
	return toRunProgramResponse(p), nil
}

func (s *runProgramService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.RunProgram.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除运营任务失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	s.invalidateDashboard(ctx)
	return nil
}

// ────────────────────── 统计 / 筛选项 ──────────────────────

func (s *runProgramService) Statistics(ctx context.Context) (*dto.RunProgramStatistics, error) {
	agg, err := s.repo.RunProgram.Aggregate(ctx)
	if err != nil {
		s.logger.Error("统计运营任务失败", zap.Error(err))
		return nil, err
	}
	stats := &dto.RunProgramStatistics{
		Total:         agg.Total,
		AvgCompletion: round1(agg.AvgCompletion),
		TotalRevenue:  agg.TotalRevenue,
		AvgRevenue:    round1(agg.AvgRevenue),
		MaxRevenue:    agg.MaxRevenue,
	}

	groups := []struct {
		column string
		limit  int
		dst    *[]dto.CountItem
	}{
		{"overall_status", 0, &stats.ByStatus},
		{"priority", 0, &stats.ByPriority},
		{"type", 0, &stats.ByType},
		{"bpo", topBPOLimit, &stats.ByBPO},
	}
	for _, g := range groups {
		rows, err := s.repo.RunProgram.CountBy(ctx, g.column, g.limit)
		if err != nil {
			s.logger.Error("分组统计运营任务失败", zap.String("column", g.column), zap.Error(err))
			return nil, err
		}
		*g.dst = toCountItems(rows)
	}
	sortByPriority(stats.ByPriority)
	return stats, nil
}

func (s *runProgramService) Filters(ctx context.Context) (*dto.RunProgramFilters, error) {
	f := &dto.RunProgramFilters{}
	targets := []struct {
		column string
		dst    *[]string
	}{
		{"type", &f.Types},
		{"bpo", &f.BPOs},
		{"priority", &f.Priorities},
		{"overall_status", &f.Statuses},
	}
	for _, t := range targets {
		values, err := s.repo.RunProgram.Distinct(ctx, t.column)
		if err != nil {
			s.logger.Error("查询运营任务筛选项失败", zap.String("column", t.column), zap.Error(err))
			return nil, err
		}
		*t.dst = nonNilStrings(values)
	}
	sort.SliceStable(f.Priorities, func(i, j int) bool {
		return model.PriorityRank(f.Priorities[i]) < model.PriorityRank(f.Priorities[j])
	})
	return f, nil
}

// ── 内部辅助方法 ──

func (s *runProgramService) get(ctx context.Context, id int64) (*model.RunProgram, error) {
	p, err := s.repo.RunProgram.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRunProgramNotFound
		}
		s.logger.Error("查询运营任务失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (s *runProgramService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, dashboardCachePrefix); err != nil {
		s.logger.Warn("清理仪表盘缓存失败", zap.Error(err))
	}
}

// applyRunProgram 将请求写入 p；priority 缺省为 MEDIUM
func applyRunProgram(p *model.RunProgram, req *dto.RunProgramRequest) error {
	letterDate, err := parseOptionalDate(req.LetterDate)
	if err != nil {
		return err
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return err
	}
	if start != nil && end != nil && end.Before(*start) {
		return ErrRunProgramDateOrder
	}
	priority := strings.ToUpper(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = model.PriorityMedium
	}

	p.TaskNo = strings.TrimSpace(req.TaskNo)
	p.TaskName = strings.TrimSpace(req.TaskName)
	p.Type = strings.TrimSpace(req.Type)
	p.BPO = strings.TrimSpace(req.BPO)
	p.Holding = strings.TrimSpace(req.Holding)
	p.RevenuePotential = req.RevenuePotential
	p.PICTeam = strings.TrimSpace(req.PICTeam)
	p.Priority = priority
	p.PercentComplete = req.PercentComplete
	p.LetterNo = strings.TrimSpace(req.LetterNo)
	p.LetterDate = letterDate
	p.LetterSubject = strings.TrimSpace(req.LetterSubject)
	p.StartDate = start
	p.EndDate = end
	p.PICIcon = strings.TrimSpace(req.PICIcon)
	p.ThisWeekProgress = strings.TrimSpace(req.ThisWeekProgress)
	p.NextWeekTarget = strings.TrimSpace(req.NextWeekTarget)
	p.OverallStatus = strings.TrimSpace(req.OverallStatus)
	return nil
}

func toProgressRows(in []dto.RunProgramProgressInput) []model.RunProgramProgress {
	rows := make([]model.RunProgramProgress, 0, len(in))
	for i, p := range in {
		rows = append(rows, model.RunProgramProgress{
			Period:     strings.TrimSpace(p.Period),
			Progress:   strings.TrimSpace(p.Progress),
			NextAction: strings.TrimSpace(p.NextAction),
			Status:     strings.TrimSpace(p.Status),
			Target:     strings.TrimSpace(p.Target),
			SortOrder:  i + 1,
		})
	}
	return rows
}

func toRunProgramResponse(p *model.RunProgram) *dto.RunProgramResponse {
	progresses := make([]dto.RunProgramProgressResponse, 0, len(p.Progresses))
	for _, pg := range p.Progresses {
		progresses = append(progresses, dto.RunProgramProgressResponse{
			ID:         pg.ID,
			Period:     pg.Period,
			Progress:   pg.Progress,
			NextAction: pg.NextAction,
			Status:     pg.Status,
			Target:     pg.Target,
		})
	}
	return &dto.RunProgramResponse{
		ID:               p.ID,
		TaskNo:           p.TaskNo,
		TaskName:         p.TaskName,
		Type:             p.Type,
		BPO:              p.BPO,
		Holding:          p.Holding,
		RevenuePotential: p.RevenuePotential,
		PICTeam:          p.PICTeam,
		Priority:         p.Priority,
		PercentComplete:  p.PercentComplete,
		LetterNo:         p.LetterNo,
		LetterDate:       model.FormatDate(p.LetterDate),
		LetterSubject:    p.LetterSubject,
		StartDate:        model.FormatDate(p.StartDate),
		EndDate:          model.FormatDate(p.EndDate),
		PICIcon:          p.PICIcon,
		ThisWeekProgress: p.ThisWeekProgress,
		NextWeekTarget:   p.NextWeekTarget,
		OverallStatus:    p.OverallStatus,
		Progresses:       progresses,
		CreatedAt:        formatTime(p.CreatedAt),
		UpdatedAt:        formatTime(p.UpdatedAt),
	}
}
