package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
)

// ═══════════════════════════════════════════════════════════════
// Dashboard 聚合服务
//
// 设计说明：
//   - 计数在 SQL 中按外键分组完成，名称/图标与百分比在内存中拼装
//   - 统计类结果写入 Redis 缓存 60 秒；产品写操作会清理该前缀
//   - Redis 不可用时直接查库，不影响功能
// ═══════════════════════════════════════════════════════════════

const (
	dashboardCachePrefix = "plc:dashboard:"
	dashboardCacheTTL    = 60 * time.Second
)

// DashboardService 首页仪表盘业务接口
type DashboardService interface {
	Stats(ctx context.Context) (*dto.DashboardStats, error)
	Segments(ctx context.Context) ([]dto.SegmentCount, error)
	ByStage(ctx context.Context, stageID int64) ([]dto.DashboardProduct, error)
	BySegment(ctx context.Context, segmentID int64) ([]dto.DashboardProduct, error)
	AllProducts(ctx context.Context) ([]dto.DashboardProduct, error)
	LicenseStats(ctx context.Context) (*dto.LicenseDashboardStats, error)
	CRJRStats(ctx context.Context) (*dto.CRJRDashboardStats, error)
	RunInsights(ctx context.Context) (*dto.RunInsights, error)
}

type dashboardService struct {
	repo          *repository.Repository
	cache         Cache
	licenseWindow int
	logger        *zap.Logger
	now           func() time.Time
}

// NewDashboardService 创建 DashboardService；licenseWindow 为"即将到期"天数
func NewDashboardService(repo *repository.Repository, cache Cache, licenseWindow int, logger *zap.Logger) DashboardService {
	if licenseWindow <= 0 {
		licenseWindow = DefaultLicenseWindowDays
	}
	return &dashboardService{repo: repo, cache: cache, licenseWindow: licenseWindow, logger: logger, now: time.Now}
}

// cached 先读缓存，未命中时执行 load 并回写；缓存错误只记录日志
func cached[T any](ctx context.Context, c Cache, logger *zap.Logger, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var v T
	if c != nil {
		hit, err := c.GetJSON(ctx, key, &v)
		if err != nil {
			logger.Warn("读取缓存失败", zap.String("key", key), zap.Error(err))
		} else if hit {
			return v, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if c != nil {
		if err := c.SetJSON(ctx, key, v, ttl); err != nil {
			logger.Warn("写入缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

// ────────────────────── 产品统计 ──────────────────────

func (s *dashboardService) Stats(ctx context.Context) (*dto.DashboardStats, error) {
	return cached(ctx, s.cache, s.logger, dashboardCachePrefix+"stats", dashboardCacheTTL, func() (*dto.DashboardStats, error) {
		stages, err := s.repo.Stage.ListAll(ctx)
		if err != nil {
			s.logger.Error("查询阶段失败", zap.Error(err))
			return nil, err
		}
		counts, err := s.repo.Stage.CountProductsGrouped(ctx)
		if err != nil {
			s.logger.Error("按阶段统计产品失败", zap.Error(err))
			return nil, err
		}
		sortByLifecycle(stages)

		stats := &dto.DashboardStats{Stages: make([]dto.StageCount, 0, len(stages))}
		for _, c := range counts {
			stats.Total += c
		}
		for _, st := range stages {
			n := counts[st.ID]
			switch model.StageOrder(st.Name) {
			case 1:
				stats.Introduction += n
			case 2:
				stats.Growth += n
			case 3:
				stats.Maturity += n
			case 4:
				stats.Decline += n
			}
			stats.Stages = append(stats.Stages, dto.StageCount{
				ID:         st.ID,
				Name:       st.Name,
				IconLight:  st.IconLight,
				IconDark:   st.IconDark,
				Count:      n,
				Percentage: percentage(n, stats.Total),
			})
		}
		return stats, nil
	})
}

func (s *dashboardService) Segments(ctx context.Context) ([]dto.SegmentCount, error) {
	return cached(ctx, s.cache, s.logger, dashboardCachePrefix+"segments", dashboardCacheTTL, func() ([]dto.SegmentCount, error) {
		segments, err := s.repo.Segment.ListAll(ctx)
		if err != nil {
			s.logger.Error("查询细分市场失败", zap.Error(err))
			return nil, err
		}
		counts, err := s.repo.Segment.CountProductsGrouped(ctx)
		if err != nil {
			s.logger.Error("按细分统计产品失败", zap.Error(err))
			return nil, err
		}

		var total int64
		for _, c := range counts {
			total += c
		}
		list := make([]dto.SegmentCount, 0, len(segments))
		for _, seg := range segments {
			list = append(list, dto.SegmentCount{
				ID:         seg.ID,
				Name:       seg.Name,
				IconLight:  seg.IconLight,
				IconDark:   seg.IconDark,
				Count:      counts[seg.ID],
				Percentage: percentage(counts[seg.ID], total),
			})
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Count > list[j].Count })
		return list, nil
	})
}

func (s *dashboardService) ByStage(ctx context.Context, stageID int64) ([]dto.DashboardProduct, error) {
	if _, err := s.repo.Stage.GetByID(ctx, stageID); err != nil {
		if isNotFound(err) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	return s.products(ctx, repository.ProductListFilter{StageID: stageID})
}

func (s *dashboardService) BySegment(ctx context.Context, segmentID int64) ([]dto.DashboardProduct, error) {
	if _, err := s.repo.Segment.GetByID(ctx, segmentID); err != nil {
		if isNotFound(err) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}
	return s.products(ctx, repository.ProductListFilter{SegmentID: segmentID})
}

func (s *dashboardService) AllProducts(ctx context.Context) ([]dto.DashboardProduct, error) {
	return s.products(ctx, repository.ProductListFilter{})
}

func (s *dashboardService) products(ctx context.Context, filter repository.ProductListFilter) ([]dto.DashboardProduct, error) {
	products, err := s.repo.Product.ListAll(ctx, filter)
	if err != nil {
		s.logger.Error("查询产品失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.DashboardProduct, 0, len(products))
	for i := range products {
		list = append(list, toDashboardProduct(&products[i]))
	}
	return list, nil
}

func toDashboardProduct(p *model.Product) dto.DashboardProduct {
	r := toProductResponse(p)
	return dto.DashboardProduct{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Segment:     r.Segment,
		Stage:       r.Stage,
		Price:       r.Price,
		LaunchDate:  r.LaunchDate,
		Customer:    r.Customer,
	}
}

// ────────────────────── 监控统计 ──────────────────────

func (s *dashboardService) LicenseStats(ctx context.Context) (*dto.LicenseDashboardStats, error) {
	return cached(ctx, s.cache, s.logger, dashboardCachePrefix+"license", dashboardCacheTTL, func() (*dto.LicenseDashboardStats, error) {
		st, err := s.repo.License.Statistics(ctx, s.now(), s.licenseWindow)
		if err != nil {
			s.logger.Error("统计许可证失败", zap.Error(err))
			return nil, err
		}
		return &dto.LicenseDashboardStats{
			Total:         st.Total,
			Active:        st.Active,
			ExpiringSoon:  st.Expiring,
			Expired:       st.Expired,
			TotalPurchase: st.TotalValue,
		}, nil
	})
}

// CR/JR 阶段关键字（大小写不敏感，匹配子串）
var (
	crjrCompletedKeywords  = []string{"completed", "done", "selesai"}
	crjrInProgressKeywords = []string{"progress", "development", "testing"}
	crjrPendingKeywords    = []string{"pending", "menunggu", "waiting"}
)

// classifyCRJRStage 按阶段文本归类；未匹配任何关键字返回空串
func classifyCRJRStage(stage string) string {
	lower := strings.ToLower(stage)
	containsAny := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case containsAny(crjrCompletedKeywords):
		return "completed"
	case containsAny(crjrInProgressKeywords):
		return "in_progress"
	case containsAny(crjrPendingKeywords):
		return "pending"
	default:
		return ""
	}
}

func (s *dashboardService) CRJRStats(ctx context.Context) (*dto.CRJRDashboardStats, error) {
	return cached(ctx, s.cache, s.logger, dashboardCachePrefix+"crjr", dashboardCacheTTL, func() (*dto.CRJRDashboardStats, error) {
		total, err := s.repo.CRJR.Count(ctx)
		if err != nil {
			s.logger.Error("统计 CR/JR 失败", zap.Error(err))
			return nil, err
		}
		byStage, err := s.repo.CRJR.CountBy(ctx, "stage")
		if err != nil {
			s.logger.Error("按阶段统计 CR/JR 失败", zap.Error(err))
			return nil, err
		}

		stats := &dto.CRJRDashboardStats{Total: total}
		for _, row := range byStage {
			switch classifyCRJRStage(row.Label) {
			case "completed":
				stats.Completed += row.Count
			case "in_progress":
				stats.InProgress += row.Count
			case "pending":
				stats.Pending += row.Count
			}
		}
		return stats, nil
	})
}

func (s *dashboardService) RunInsights(ctx context.Context) (*dto.RunInsights, error) {
	return cached(ctx, s.cache, s.logger, dashboardCachePrefix+"run", dashboardCacheTTL, func() (*dto.RunInsights, error) {
		agg, err := s.repo.RunProgram.Aggregate(ctx)
		if err != nil {
			s.logger.Error("统计运营任务失败", zap.Error(err))
			return nil, err
		}
		byStatus, err := s.repo.RunProgram.CountBy(ctx, "overall_status", 0)
		if err != nil {
			return nil, err
		}
		byPriority, err := s.repo.RunProgram.CountBy(ctx, "priority", 0)
		if err != nil {
			return nil, err
		}
		return &dto.RunInsights{
			Total:         agg.Total,
			AvgCompletion: round1(agg.AvgCompletion),
			ByStatus:      toCountItems(byStatus),
			ByPriority:    sortByPriority(toCountItems(byPriority)),
		}, nil
	})
}

// sortByPriority HIGH、MEDIUM、LOW 顺序
func sortByPriority(items []dto.CountItem) []dto.CountItem {
	sort.SliceStable(items, func(i, j int) bool {
		return model.PriorityRank(items[i].Label) < model.PriorityRank(items[j].Label)
	})
	return items
}
