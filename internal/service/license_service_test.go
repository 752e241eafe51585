package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
)

func setupTestLicenseService() (*licenseService, *mockStore, *mockCache) {
	repo, st := newMockStore()
	cache := newMockCache()
	svc := NewLicenseService(repo, cache, LicenseOptions{}, zap.NewNop()).(*licenseService)
	svc.now = func() time.Time { return fixedNow }
	return svc, st, cache
}

func floatPtr(v float64) *float64 { return &v }

func licenseForm(name, end string) *dto.LicenseRequest {
	return &dto.LicenseRequest{
		Name:      name,
		Company:   "PT Telkom",
		BPO:       "BPO-1",
		Type:      "Subscription",
		Period:    "Yearly",
		Qty:       3,
		UnitPrice: floatPtr(1500),
		StartDate: "2025-01-01",
		EndDate:   end,
	}
}

func TestLicense_CreateDefaults(t *testing.T) {
	svc, _, cache := setupTestLicenseService()
	resp, err := svc.Create(context.Background(), licenseForm(" Office 365 ", "2026-03-20"))
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Name != "Office 365" {
		t.Errorf("名称应去除首尾空格，实际 %q", resp.Name)
	}
	if resp.TotalPrice != 4500 {
		t.Errorf("total_price 缺省应为 qty × unit_price = 4500，实际 %v", resp.TotalPrice)
	}
	if resp.Symbol != "Rp" {
		t.Errorf("symbol 缺省应为 Rp，实际 %q", resp.Symbol)
	}
	if resp.Status != model.LicenseStatusExpiring {
		t.Errorf("10 天后到期应为 Expiring，实际 %s", resp.Status)
	}
	if resp.DaysUntilExpiry == nil || *resp.DaysUntilExpiry != 10 {
		t.Errorf("剩余天数错误: %v", resp.DaysUntilExpiry)
	}
	if len(cache.deleted) != 2 {
		t.Errorf("写操作应清理提醒与仪表盘缓存，实际 %v", cache.deleted)
	}
}

func TestLicense_ExplicitTotalAndDateOrder(t *testing.T) {
	svc, _, _ := setupTestLicenseService()
	ctx := context.Background()

	req := licenseForm("A", "2027-01-01")
	req.TotalPrice = floatPtr(999)
	resp, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.TotalPrice != 999 || resp.Status != model.LicenseStatusActive {
		t.Errorf("结果错误: %+v", resp)
	}

	bad := licenseForm("B", "2024-12-31")
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrLicenseDateOrder) {
		t.Errorf("期望 ErrLicenseDateOrder，实际: %v", err)
	}
	if _, err := svc.Update(ctx, 999, req); !errors.Is(err, ErrLicenseNotFound) {
		t.Errorf("期望 ErrLicenseNotFound，实际: %v", err)
	}
	if err := svc.Delete(ctx, 999); !errors.Is(err, ErrLicenseNotFound) {
		t.Errorf("期望 ErrLicenseNotFound，实际: %v", err)
	}
}

func TestLicense_StatisticsAndFilters(t *testing.T) {
	svc, st, _ := setupTestLicenseService()
	ctx := context.Background()
	_ = st.licenses.Create(ctx, &model.License{Name: "A", Type: "Perpetual", Company: "X", TotalPrice: 10, EndDate: datePtr(2026, 1, 1)})
	_ = st.licenses.Create(ctx, &model.License{Name: "B", Type: "Subscription", Company: "Y", TotalPrice: 20, EndDate: datePtr(2026, 4, 1)})
	_ = st.licenses.Create(ctx, &model.License{Name: "C", Type: "Subscription", Company: "X", TotalPrice: 30, EndDate: datePtr(2028, 1, 1)})

	stats, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics 应成功: %v", err)
	}
	if stats.Total != 3 || stats.Expired != 1 || stats.Expiring != 1 || stats.Active != 1 || stats.TotalValue != 60 {
		t.Errorf("统计错误: %+v", stats)
	}

	f, err := svc.Filters(ctx)
	if err != nil {
		t.Fatalf("Filters 应成功: %v", err)
	}
	if len(f.Types) != 2 || len(f.Companies) != 2 || f.BPOs == nil || f.Periods == nil {
		t.Errorf("筛选项错误: %+v", f)
	}

	page, err := svc.List(ctx, &dto.LicenseListRequest{Status: model.LicenseStatusExpired})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if page.Total != 1 || page.List[0].Name != "A" {
		t.Errorf("按状态筛选错误: %+v", page)
	}
}

func TestLicense_NotificationsCached(t *testing.T) {
	svc, st, _ := setupTestLicenseService()
	ctx := context.Background()
	_ = st.licenses.Create(ctx, &model.License{Name: "late", EndDate: datePtr(2026, 4, 5)})
	_ = st.licenses.Create(ctx, &model.License{Name: "soon", EndDate: datePtr(2026, 3, 12)})
	_ = st.licenses.Create(ctx, &model.License{Name: "gone", EndDate: datePtr(2026, 3, 1)})
	_ = st.licenses.Create(ctx, &model.License{Name: "far", EndDate: datePtr(2027, 3, 1)})

	resp, err := svc.Notifications(ctx)
	if err != nil {
		t.Fatalf("Notifications 应成功: %v", err)
	}
	if resp.Count != 2 || resp.Items[0].Name != "soon" || resp.Items[0].DaysUntilExpiry != 2 {
		t.Errorf("提醒列表错误: %+v", resp)
	}

	if _, err := svc.Notifications(ctx); err != nil {
		t.Fatalf("Notifications 应成功: %v", err)
	}
	if st.licenses.expiringCalls != 1 {
		t.Errorf("第二次应命中缓存，实际查库 %d 次", st.licenses.expiringCalls)
	}

	// 写操作后缓存失效
	if _, err := svc.Create(ctx, licenseForm("new", "2026-03-15")); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	resp, _ = svc.Notifications(ctx)
	if st.licenses.expiringCalls != 2 || resp.Count != 3 {
		t.Errorf("缓存失效后应重新计算: calls=%d count=%d", st.licenses.expiringCalls, resp.Count)
	}
}

func TestLicense_Calendar(t *testing.T) {
	svc, st, _ := setupTestLicenseService()
	ctx := context.Background()
	_ = st.licenses.Create(ctx, &model.License{Name: "Office", Company: "PT A", EndDate: datePtr(2026, 6, 30)})
	_ = st.licenses.Create(ctx, &model.License{Name: "NoEnd", Company: "PT B"})

	out, err := svc.Calendar(ctx)
	if err != nil {
		t.Fatalf("Calendar 应成功: %v", err)
	}
	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("生成的日历无法解析: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("只有带到期日的许可证生成事件，期望 1，实际 %d", len(events))
	}
	summary := events[0].GetProperty(ics.ComponentPropertySummary)
	if summary == nil || !strings.Contains(summary.Value, "Office") {
		t.Errorf("事件标题错误: %+v", summary)
	}
}

// ── 定时任务 ──

type countingLicenseService struct {
	LicenseService
	calls chan struct{}
}

func (c *countingLicenseService) RefreshNotifications(context.Context) (*dto.LicenseNotificationsResponse, error) {
	c.calls <- struct{}{}
	return &dto.LicenseNotificationsResponse{Count: 1}, nil
}

func TestLicenseNotifier_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := &countingLicenseService{calls: make(chan struct{}, 4)}
	n := NewLicenseNotifier(svc, "", metrics.New("test"), zap.NewNop())
	if err := n.Start(); err != nil {
		t.Fatalf("Start 应成功: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("重复 Start 应无副作用: %v", err)
	}

	select {
	case <-svc.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("启动后应立即预热一次")
	}
	n.Stop()
	n.Stop()
}

func TestLicenseNotifier_InvalidSpec(t *testing.T) {
	n := NewLicenseNotifier(&countingLicenseService{}, "not a cron", nil, zap.NewNop())
	if err := n.Start(); err == nil {
		t.Error("无效 cron 表达式应返回错误")
	}
}
