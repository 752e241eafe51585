package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
)

// ═══════════════════════════════════════════════════════════════
// 生命周期分析
//
// 设计说明：
//   - 转换矩阵为稠密矩阵：阶段按生命周期顺序、细分按名称排序，空单元格为 0
//   - stage / segment 筛选按名称匹配（不区分大小写），未知名称返回参数错误
//   - 转换速度只统计相邻阶段（Introduction→Growth 等）的前进转换；
//     实际耗时为同一产品相邻两条阶段历史的时间差，首条历史无前序记录时按计划值计
//   - 计划耗时取阶段间隔配置，未配置时默认 6 个月（按每月 30 天换算天数）
// ═══════════════════════════════════════════════════════════════

var (
	ErrUnknownStageFilter   = errors.New("筛选的阶段不存在")
	ErrUnknownSegmentFilter = errors.New("筛选的细分市场不存在")
)

// 转换速度单位
const (
	UnitDays   = "days"
	UnitMonths = "months"
)

// defaultPlannedMonths 未配置阶段间隔时的计划月数
const defaultPlannedMonths = 6

const daysPerMonth = 30

// LifecycleService 生命周期分析业务接口
type LifecycleService interface {
	TransitionMatrix(ctx context.Context, req *dto.MatrixFilterRequest) (*dto.TransitionMatrix, error)
	MatrixProducts(ctx context.Context, req *dto.MatrixCellRequest) ([]dto.DashboardProduct, error)
	Timeline(ctx context.Context) ([]dto.TimelineSegment, error)
	TransitionSpeed(ctx context.Context, req *dto.TransitionSpeedRequest) (*dto.TransitionSpeed, error)
	Distribution(ctx context.Context) (*dto.Distribution, error)
}

type lifecycleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLifecycleService 创建 LifecycleService 实例
func NewLifecycleService(repo *repository.Repository, logger *zap.Logger) LifecycleService {
	return &lifecycleService{repo: repo, logger: logger}
}

// ────────────────────── 转换矩阵 ──────────────────────

func (s *lifecycleService) TransitionMatrix(ctx context.Context, req *dto.MatrixFilterRequest) (*dto.TransitionMatrix, error) {
	stages, segments, err := s.axes(ctx)
	if err != nil {
		return nil, err
	}
	if stages, err = filterByName(stages, req.Stage, ErrUnknownStageFilter); err != nil {
		return nil, err
	}
	if segments, err = filterByName(segments, req.Segment, ErrUnknownSegmentFilter); err != nil {
		return nil, err
	}

	counts, err := s.repo.Product.CountByStageAndSegment(ctx)
	if err != nil {
		s.logger.Error("统计阶段×细分产品数失败", zap.Error(err))
		return nil, err
	}
	type cell struct{ stage, segment int64 }
	byCell := make(map[cell]int64, len(counts))
	for _, c := range counts {
		byCell[cell{c.StageID, c.SegmentID}] = c.Count
	}

	m := &dto.TransitionMatrix{
		Stages:        make([]string, 0, len(stages)),
		Segments:      make([]string, 0, len(segments)),
		Matrix:        make(map[string]map[string]int64, len(stages)),
		StageTotals:   make(map[string]int64, len(stages)),
		SegmentTotals: make(map[string]int64, len(segments)),
	}
	for _, seg := range segments {
		m.Segments = append(m.Segments, seg.Name)
		m.SegmentTotals[seg.Name] = 0
	}
	for _, st := range stages {
		m.Stages = append(m.Stages, st.Name)
		row := make(map[string]int64, len(segments))
		for _, seg := range segments {
			n := byCell[cell{st.ID, seg.ID}]
			row[seg.Name] = n
			m.StageTotals[st.Name] += n
			m.SegmentTotals[seg.Name] += n
			m.Total += n
		}
		m.Matrix[st.Name] = row
	}

	latest, err := s.repo.Product.LatestUpdate(ctx)
	if err != nil {
		s.logger.Error("查询产品最近更新时间失败", zap.Error(err))
		return nil, err
	}
	if latest != nil {
		m.LastUpdated = latest.Format(time.RFC3339)
	}
	return m, nil
}

func (s *lifecycleService) MatrixProducts(ctx context.Context, req *dto.MatrixCellRequest) ([]dto.DashboardProduct, error) {
	stages, segments, err := s.axes(ctx)
	if err != nil {
		return nil, err
	}
	stage, err := findByName(stages, req.Stage, ErrUnknownStageFilter)
	if err != nil {
		return nil, err
	}
	segment, err := findByName(segments, req.Segment, ErrUnknownSegmentFilter)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.Product.ListAll(ctx, repository.ProductListFilter{
		StageID:   stage.ID,
		SegmentID: segment.ID,
	})
	if err != nil {
		s.logger.Error("查询单元格产品失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.DashboardProduct, 0, len(products))
	for i := range products {
		list = append(list, toDashboardProduct(&products[i]))
	}
	return list, nil
}

// axes 矩阵坐标轴：阶段按生命周期顺序，细分按名称
func (s *lifecycleService) axes(ctx context.Context) ([]model.MasterData, []model.MasterData, error) {
	stages, err := s.repo.Stage.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询阶段失败", zap.Error(err))
		return nil, nil, err
	}
	segments, err := s.repo.Segment.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询细分市场失败", zap.Error(err))
		return nil, nil, err
	}
	sortByLifecycle(stages)
	sort.SliceStable(segments, func(i, j int) bool {
		return strings.ToLower(segments[i].Name) < strings.ToLower(segments[j].Name)
	})
	return stages, segments, nil
}

// filterByName name 为空时原样返回；否则只保留同名项，找不到返回 notFound
func filterByName(items []model.MasterData, name string, notFound error) ([]model.MasterData, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return items, nil
	}
	for _, it := range items {
		if strings.EqualFold(it.Name, name) {
			return []model.MasterData{it}, nil
		}
	}
	return nil, notFound
}

// findByName 单元格查询必须命中唯一一项，空白名称视为不存在
func findByName(items []model.MasterData, name string, notFound error) (*model.MasterData, error) {
	if strings.TrimSpace(name) == "" {
		return nil, notFound
	}
	found, err := filterByName(items, name, notFound)
	if err != nil {
		return nil, err
	}
	if len(found) != 1 {
		return nil, notFound
	}
	return &found[0], nil
}

// ────────────────────── 时间线 ──────────────────────

func (s *lifecycleService) Timeline(ctx context.Context) ([]dto.TimelineSegment, error) {
	products, err := s.repo.Product.ListAll(ctx, repository.ProductListFilter{})
	if err != nil {
		s.logger.Error("查询产品失败", zap.Error(err))
		return nil, err
	}
	histories, err := s.repo.Product.ListAllStageHistories(ctx)
	if err != nil {
		s.logger.Error("查询阶段历史失败", zap.Error(err))
		return nil, err
	}

	// 产品进入当前阶段的最近一次历史时间
	type entryKey struct{ product, stage int64 }
	entered := make(map[entryKey]time.Time)
	for _, h := range histories {
		k := entryKey{h.ProductID, h.CurrentStageID}
		if h.ChangedAt.After(entered[k]) {
			entered[k] = h.ChangedAt
		}
	}

	type pointKey struct {
		segment     string
		year, month int
		stage       string
	}
	points := make(map[pointKey]*dto.TimelinePoint)
	for i := range products {
		p := &products[i]
		var date time.Time
		switch {
		case p.StageStartDate != nil:
			date = *p.StageStartDate
		case !entered[entryKey{p.ID, p.StageID}].IsZero():
			date = entered[entryKey{p.ID, p.StageID}]
		default:
			date = p.CreatedAt
		}
		if date.IsZero() {
			continue
		}

		r := toProductResponse(p)
		k := pointKey{segment: r.Segment, year: date.Year(), month: int(date.Month()), stage: r.Stage}
		pt, ok := points[k]
		if !ok {
			pt = &dto.TimelinePoint{Year: k.year, Month: k.month, Stage: k.stage, Products: []string{}}
			points[k] = pt
		}
		pt.ProductCount++
		pt.Products = append(pt.Products, p.Name)
	}

	bySegment := make(map[string][]dto.TimelinePoint)
	for k, pt := range points {
		bySegment[k.segment] = append(bySegment[k.segment], *pt)
	}

	result := make([]dto.TimelineSegment, 0, len(bySegment))
	for seg, pts := range bySegment {
		sort.Slice(pts, func(i, j int) bool {
			a, b := pts[i], pts[j]
			if a.Year != b.Year {
				return a.Year < b.Year
			}
			if a.Month != b.Month {
				return a.Month < b.Month
			}
			return model.StageOrder(a.Stage) < model.StageOrder(b.Stage)
		})
		result = append(result, dto.TimelineSegment{Segment: seg, Points: pts})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Segment < result[j].Segment })
	return result, nil
}

// ────────────────────── 转换速度 ──────────────────────

type transitionKey struct {
	segment  string
	from, to string
}

type transitionSample struct {
	actual, planned, efficiency float64
}

func (s *lifecycleService) TransitionSpeed(ctx context.Context, req *dto.TransitionSpeedRequest) (*dto.TransitionSpeed, error) {
	unit := req.Unit
	if unit != UnitDays {
		unit = UnitMonths
	}

	products, err := s.repo.Product.ListAll(ctx, repository.ProductListFilter{})
	if err != nil {
		s.logger.Error("查询产品失败", zap.Error(err))
		return nil, err
	}
	histories, err := s.repo.Product.ListAllStageHistories(ctx)
	if err != nil {
		s.logger.Error("查询阶段历史失败", zap.Error(err))
		return nil, err
	}
	intervals, err := s.repo.Interval.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询阶段间隔失败", zap.Error(err))
		return nil, err
	}

	segmentOf := make(map[int64]string, len(products))
	for i := range products {
		segmentOf[products[i].ID] = toProductResponse(&products[i]).Segment
	}
	type pair struct{ prev, next int64 }
	plannedMonths := make(map[pair]int, len(intervals))
	for _, iv := range intervals {
		plannedMonths[pair{iv.PreviousStageID, iv.NextStageID}] = iv.IntervalMonths
	}

	samples := make(map[transitionKey][]transitionSample)
	// histories 已按 product_id, changed_at 升序
	for i, h := range histories {
		if h.PreviousStage == nil || h.CurrentStage == nil {
			continue
		}
		fromOrder, toOrder := model.StageOrder(h.PreviousStage.Name), model.StageOrder(h.CurrentStage.Name)
		if toOrder != fromOrder+1 || toOrder > 4 {
			continue
		}
		seg, ok := segmentOf[h.ProductID]
		if !ok {
			continue
		}

		months, ok := plannedMonths[pair{*h.PreviousStageID, h.CurrentStageID}]
		if !ok {
			months = defaultPlannedMonths
		}
		planned := float64(months)
		if unit == UnitDays {
			planned *= daysPerMonth
		}

		actual := planned
		if i > 0 && histories[i-1].ProductID == h.ProductID {
			days := h.ChangedAt.Sub(histories[i-1].ChangedAt).Hours() / 24
			actual = days
			if unit == UnitMonths {
				actual = days / daysPerMonth
			}
		}
		efficiency := 100.0
		if actual > 0 {
			efficiency = planned / actual * 100
		}

		k := transitionKey{segment: seg, from: h.PreviousStage.Name, to: h.CurrentStage.Name}
		samples[k] = append(samples[k], transitionSample{actual: actual, planned: planned, efficiency: efficiency})
	}

	bySegment := make(map[string][]dto.TransitionStat)
	for k, list := range samples {
		bySegment[k.segment] = append(bySegment[k.segment], summarizeTransition(k, list))
	}

	result := &dto.TransitionSpeed{Unit: unit, Segments: make([]dto.SegmentSpeed, 0, len(bySegment))}
	for seg, stats := range bySegment {
		sort.Slice(stats, func(i, j int) bool {
			return model.StageOrder(stats[i].To) < model.StageOrder(stats[j].To)
		})
		result.Segments = append(result.Segments, dto.SegmentSpeed{Segment: seg, Transitions: stats})
	}
	sort.Slice(result.Segments, func(i, j int) bool { return result.Segments[i].Segment < result.Segments[j].Segment })
	return result, nil
}

func summarizeTransition(k transitionKey, list []transitionSample) dto.TransitionStat {
	actuals := make([]float64, 0, len(list))
	var sumActual, sumPlanned, sumEff float64
	for _, smp := range list {
		actuals = append(actuals, smp.actual)
		sumActual += smp.actual
		sumPlanned += smp.planned
		sumEff += smp.efficiency
	}
	sort.Float64s(actuals)
	n := float64(len(list))
	return dto.TransitionStat{
		From:       k.from,
		To:         k.to,
		Count:      len(list),
		Avg:        round1(sumActual / n),
		Min:        round1(actuals[0]),
		Max:        round1(actuals[len(actuals)-1]),
		Median:     round1(median(actuals)),
		Planned:    round1(sumPlanned / n),
		Efficiency: round1(sumEff / n),
	}
}

// median 已排序切片的中位数
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ────────────────────── 阶段分布 ──────────────────────

func (s *lifecycleService) Distribution(ctx context.Context) (*dto.Distribution, error) {
	stages, err := s.repo.Stage.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询阶段失败", zap.Error(err))
		return nil, err
	}
	sortByLifecycle(stages)

	products, err := s.repo.Product.ListAll(ctx, repository.ProductListFilter{})
	if err != nil {
		s.logger.Error("查询产品失败", zap.Error(err))
		return nil, err
	}

	names := make(map[int64][]string, len(stages))
	for _, p := range products {
		names[p.StageID] = append(names[p.StageID], p.Name)
	}

	d := &dto.Distribution{Total: int64(len(products)), Stages: make([]dto.StageDistribution, 0, len(stages))}
	for _, st := range stages {
		n := int64(len(names[st.ID]))
		d.Stages = append(d.Stages, dto.StageDistribution{
			Stage:      st.Name,
			Count:      n,
			Percentage: percentage(n, d.Total),
			Products:   nonNilStrings(names[st.ID]),
		})
	}
	return d, nil
}
