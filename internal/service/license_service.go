package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
)

const (
	// DefaultLicenseWindowDays "即将到期"窗口天数
	DefaultLicenseWindowDays = 30
	// maxLicenseNotifications 提醒列表上限
	maxLicenseNotifications = 20
	// defaultLicenseSymbol 未填写时的货币符号
	defaultLicenseSymbol = "Rp"

	licenseNotificationsKey = "plc:license:notifications"
)

var (
	ErrLicenseNotFound  = errors.New("许可证不存在")
	ErrLicenseDateOrder = errors.New("许可证结束日期不能早于开始日期")
)

// LicenseOptions 许可证提醒相关配置
type LicenseOptions struct {
	WindowDays     int
	NotifyCacheTTL time.Duration
}

// LicenseService 许可证台账业务接口
type LicenseService interface {
	List(ctx context.Context, req *dto.LicenseListRequest) (*dto.PageResult[dto.LicenseResponse], error)
	// ListAll 与 List 相同的筛选条件，不分页（导出用）
	ListAll(ctx context.Context, req *dto.LicenseListRequest) ([]dto.LicenseResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.LicenseResponse, error)
	Create(ctx context.Context, req *dto.LicenseRequest) (*dto.LicenseResponse, error)
	Update(ctx context.Context, id int64, req *dto.LicenseRequest) (*dto.LicenseResponse, error)
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*dto.LicenseStatistics, error)
	Filters(ctx context.Context) (*dto.LicenseFilters, error)

	// Notifications 即将到期提醒：优先读缓存，未命中时查库并回写
	Notifications(ctx context.Context) (*dto.LicenseNotificationsResponse, error)
	// RefreshNotifications 重新计算提醒并写入缓存（定时任务调用）
	RefreshNotifications(ctx context.Context) (*dto.LicenseNotificationsResponse, error)
	// Calendar 生成到期日 iCalendar
	Calendar(ctx context.Context) (string, error)
}

type licenseService struct {
	repo   *repository.Repository
	cache  Cache
	opts   LicenseOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewLicenseService 创建 LicenseService 实例
func NewLicenseService(repo *repository.Repository, cache Cache, opts LicenseOptions, logger *zap.Logger) LicenseService {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultLicenseWindowDays
	}
	if opts.NotifyCacheTTL <= 0 {
		opts.NotifyCacheTTL = 5 * time.Minute
	}
	return &licenseService{repo: repo, cache: cache, opts: opts, logger: logger, now: time.Now}
}

// ────────────────────── 查询 ──────────────────────

func (s *licenseService) filter(req *dto.LicenseListRequest) repository.LicenseListFilter {
	return repository.LicenseListFilter{
		Search:     dto.TrimSearch(req.Search),
		Type:       strings.TrimSpace(req.Type),
		Company:    strings.TrimSpace(req.Company),
		BPO:        strings.TrimSpace(req.BPO),
		Period:     strings.TrimSpace(req.Period),
		Status:     req.Status,
		Today:      s.now(),
		WindowDays: s.opts.WindowDays,
		Sort:       toSortSpec(req.SortRequest),
	}
}

func (s *licenseService) List(ctx context.Context, req *dto.LicenseListRequest) (*dto.PageResult[dto.LicenseResponse], error) {
	rows, total, err := s.repo.License.List(ctx, s.filter(req),
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出许可证失败", zap.Error(err))
		return nil, err
	}
	return newPage(s.toResponses(rows), total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *licenseService) ListAll(ctx context.Context, req *dto.LicenseListRequest) ([]dto.LicenseResponse, error) {
	rows, err := s.repo.License.ListAll(ctx, s.filter(req))
	if err != nil {
		s.logger.Error("查询许可证失败", zap.Error(err))
		return nil, err
	}
	return s.toResponses(rows), nil
}

func (s *licenseService) GetByID(ctx context.Context, id int64) (*dto.LicenseResponse, error) {
	l, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(l), nil
}

// ────────────────────── 写操作 ──────────────────────

func (s *licenseService) Create(ctx context.Context, req *dto.LicenseRequest) (*dto.LicenseResponse, error) {
	l := &model.License{}
	if err := applyLicense(l, req); err != nil {
		return nil, err
	}
	if err := s.repo.License.Create(ctx, l); err != nil {
		s.logger.Error("创建许可证失败", zap.String("name", l.Name), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx)
	return s.toResponse(l), nil
}

func (s *licenseService) Update(ctx context.Context, id int64, req *dto.LicenseRequest) (*dto.LicenseResponse, error) {
	l, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyLicense(l, req); err != nil {
		return nil, err
	}
	if err := s.repo.License.Update(ctx, l); err != nil {
		s.logger.Error("更新许可证失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx)
	return s.toResponse(l), nil
}

func (s *licenseService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.License.Delete(ctx, id); err != nil {
		s.logger.Error("删除许可证失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	s.invalidate(ctx)
	return nil
}

// applyLicense 将请求写入 l；total_price 缺省为 qty × unit_price，symbol 缺省为 Rp
func applyLicense(l *model.License, req *dto.LicenseRequest) error {
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return err
	}
	if start != nil && end != nil && end.Before(*start) {
		return ErrLicenseDateOrder
	}

	var unitPrice float64
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	total := float64(req.Qty) * unitPrice
	if req.TotalPrice != nil {
		total = *req.TotalPrice
	}
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		symbol = defaultLicenseSymbol
	}

	l.Name = strings.TrimSpace(req.Name)
	l.Company = strings.TrimSpace(req.Company)
	l.BPO = strings.TrimSpace(req.BPO)
	l.Type = strings.TrimSpace(req.Type)
	l.Period = strings.TrimSpace(req.Period)
	l.Qty = req.Qty
	l.Symbol = symbol
	l.UnitPrice = unitPrice
	l.TotalPrice = total
	l.SellingPrice = req.SellingPrice
	l.ContractServiceMonths = req.ContractServiceMonths
	l.ContractPeriod = strings.TrimSpace(req.ContractPeriod)
	l.StartDate = start
	l.EndDate = end
	l.PurchaseMethod = strings.TrimSpace(req.PurchaseMethod)
	return nil
}

// ────────────────────── 统计 / 筛选项 ──────────────────────

func (s *licenseService) Statistics(ctx context.Context) (*dto.LicenseStatistics, error) {
	st, err := s.repo.License.Statistics(ctx, s.now(), s.opts.WindowDays)
	if err != nil {
		s.logger.Error("统计许可证失败", zap.Error(err))
		return nil, err
	}
	return &dto.LicenseStatistics{
		Total:      st.Total,
		Active:     st.Active,
		Expiring:   st.Expiring,
		Expired:    st.Expired,
		TotalValue: st.TotalValue,
	}, nil
}

func (s *licenseService) Filters(ctx context.Context) (*dto.LicenseFilters, error) {
	f := &dto.LicenseFilters{}
	targets := []struct {
		column string
		dst    *[]string
	}{
		{"type", &f.Types},
		{"company", &f.Companies},
		{"bpo", &f.BPOs},
		{"period", &f.Periods},
	}
	for _, t := range targets {
		values, err := s.repo.License.Distinct(ctx, t.column)
		if err != nil {
			s.logger.Error("查询许可证筛选项失败", zap.String("column", t.column), zap.Error(err))
			return nil, err
		}
		*t.dst = nonNilStrings(values)
	}
	return f, nil
}

// ────────────────────── 到期提醒 ──────────────────────

func (s *licenseService) Notifications(ctx context.Context) (*dto.LicenseNotificationsResponse, error) {
	if s.cache != nil {
		var resp dto.LicenseNotificationsResponse
		hit, err := s.cache.GetJSON(ctx, licenseNotificationsKey, &resp)
		if err != nil {
			s.logger.Warn("读取许可证提醒缓存失败", zap.Error(err))
		} else if hit {
			return &resp, nil
		}
	}
	return s.RefreshNotifications(ctx)
}

func (s *licenseService) RefreshNotifications(ctx context.Context) (*dto.LicenseNotificationsResponse, error) {
	now := s.now()
	rows, err := s.repo.License.ListExpiring(ctx, now, now.AddDate(0, 0, s.opts.WindowDays), maxLicenseNotifications)
	if err != nil {
		s.logger.Error("查询即将到期许可证失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.LicenseNotificationsResponse{
		Items:       make([]dto.LicenseNotification, 0, len(rows)),
		GeneratedAt: formatTime(now),
	}
	for _, l := range rows {
		resp.Items = append(resp.Items, dto.LicenseNotification{
			ID:              l.ID,
			Name:            l.Name,
			Company:         l.Company,
			BPO:             l.BPO,
			EndDate:         model.FormatDate(l.EndDate),
			DaysUntilExpiry: model.DaysUntil(*l.EndDate, now),
		})
	}
	resp.Count = len(resp.Items)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, licenseNotificationsKey, resp, s.opts.NotifyCacheTTL); err != nil {
			s.logger.Warn("写入许可证提醒缓存失败", zap.Error(err))
		}
	}
	return resp, nil
}

// invalidate 许可证变更后清理提醒与仪表盘缓存
func (s *licenseService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, prefix := range []string{licenseNotificationsKey, dashboardCachePrefix} {
		if err := s.cache.DeleteByPrefix(ctx, prefix); err != nil {
			s.logger.Warn("清理缓存失败", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

// ────────────────────── iCalendar ──────────────────────

// Calendar 每个有到期日的许可证生成一个全天事件
func (s *licenseService) Calendar(ctx context.Context) (string, error) {
	rows, err := s.repo.License.ListAll(ctx, repository.LicenseListFilter{
		Sort: repository.SortSpec{Field: "end_date"},
	})
	if err != nil {
		s.logger.Error("查询许可证失败", zap.Error(err))
		return "", err
	}

	now := s.now().UTC()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//PLC Monitoring//License Expiry//ID")
	cal.SetXWRCalName("License Expiry")

	for _, l := range rows {
		if l.EndDate == nil {
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("license-%d@plc-monitoring", l.ID))
		ev.SetDtStampTime(now)
		ev.SetAllDayStartAt(*l.EndDate)
		ev.SetAllDayEndAt(l.EndDate.AddDate(0, 0, 1))
		ev.SetSummary(fmt.Sprintf("License expiry: %s (%s)", l.Name, l.Company))
		ev.SetDescription(fmt.Sprintf("BPO: %s\nType: %s\nPeriod: %s\nQty: %d", l.BPO, l.Type, l.Period, l.Qty))
	}
	return cal.Serialize(), nil
}

// ── 内部辅助方法 ──

func (s *licenseService) get(ctx context.Context, id int64) (*model.License, error) {
	l, err := s.repo.License.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrLicenseNotFound
		}
		s.logger.Error("查询许可证失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return l, nil
}

func (s *licenseService) toResponses(rows []model.License) []dto.LicenseResponse {
	list := make([]dto.LicenseResponse, 0, len(rows))
	for i := range rows {
		list = append(list, *s.toResponse(&rows[i]))
	}
	return list
}

func (s *licenseService) toResponse(l *model.License) *dto.LicenseResponse {
	now := s.now()
	resp := &dto.LicenseResponse{
		ID:                    l.ID,
		Name:                  l.Name,
		Company:               l.Company,
		BPO:                   l.BPO,
		Type:                  l.Type,
		Period:                l.Period,
		Qty:                   l.Qty,
		Symbol:                l.Symbol,
		UnitPrice:             l.UnitPrice,
		TotalPrice:            l.TotalPrice,
		SellingPrice:          l.SellingPrice,
		ContractServiceMonths: l.ContractServiceMonths,
		ContractPeriod:        l.ContractPeriod,
		StartDate:             model.FormatDate(l.StartDate),
		EndDate:               model.FormatDate(l.EndDate),
		PurchaseMethod:        l.PurchaseMethod,
		Status:                model.LicenseStatus(l.EndDate, now, s.opts.WindowDays),
		CreatedAt:             formatTime(l.CreatedAt),
		UpdatedAt:             formatTime(l.UpdatedAt),
	}
	if l.EndDate != nil {
		days := model.DaysUntil(*l.EndDate, now)
		resp.DaysUntilExpiry = &days
	}
	return resp
}
