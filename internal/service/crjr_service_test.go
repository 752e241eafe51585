package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

func setupTestCRJRService() (*crjrService, *mockStore, *mockCache) {
	repo, st := newMockStore()
	cache := newMockCache()
	svc := NewCRJRService(repo, cache, zap.NewNop()).(*crjrService)
	svc.now = func() time.Time { return fixedNow }
	return svc, st, cache
}

func TestCRJR_CreateDefaultsYear(t *testing.T) {
	svc, _, cache := setupTestCRJRService()
	req := &dto.CRJRRequest{
		Type:            "cr",
		ApplicationName: " SIMPEL ",
		RequestTitle:    "Penambahan menu laporan",
		STILetterDate:   "2026-02-14",
		Stage:           "On Progress",
	}
	req.January = 2
	req.March = 5

	resp, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Year != 2026 {
		t.Errorf("year 缺省应为当年 2026，实际 %d", resp.Year)
	}
	if resp.Type != "CR" || resp.ApplicationName != "SIMPEL" {
		t.Errorf("字段规范化错误: %+v", resp)
	}
	if resp.MonthlyTotal != 7 || resp.STILetterDate != "2026-02-14" {
		t.Errorf("月度合计或日期错误: total=%d date=%s", resp.MonthlyTotal, resp.STILetterDate)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != dashboardCachePrefix {
		t.Errorf("写操作应清理仪表盘缓存，实际 %v", cache.deleted)
	}
}

func TestCRJR_UpdateDeleteNotFound(t *testing.T) {
	svc, st, _ := setupTestCRJRService()
	ctx := context.Background()
	req := &dto.CRJRRequest{Type: "JR", ApplicationName: "A", RequestTitle: "B", Year: 2024}

	if _, err := svc.Update(ctx, 42, req); !errors.Is(err, ErrCRJRNotFound) {
		t.Errorf("期望 ErrCRJRNotFound，实际: %v", err)
	}
	if err := svc.Delete(ctx, 42); !errors.Is(err, ErrCRJRNotFound) {
		t.Errorf("期望 ErrCRJRNotFound，实际: %v", err)
	}

	created, _ := svc.Create(ctx, req)
	req.STILetterDate = "14-02-2026"
	if _, err := svc.Update(ctx, created.ID, req); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("非法日期期望 ErrInvalidDate，实际: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(st.crjrs.rows) != 0 {
		t.Error("记录应被删除")
	}
}

func TestCRJR_StatisticsAndFilters(t *testing.T) {
	svc, st, _ := setupTestCRJRService()
	ctx := context.Background()
	for _, c := range []model.CRJR{
		{Type: "CR", Stage: "Done", Corp: "Telkom", Year: 2025},
		{Type: "CR", Stage: "Done", Corp: "Telkomsel", Year: 2026},
		{Type: "JR", Stage: "Pending", Organization: "IT", Year: 2026},
	} {
		c := c
		_ = st.crjrs.Create(ctx, &c)
	}

	stats, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics 应成功: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("期望 total=3，实际 %d", stats.Total)
	}
	if stats.ByType[0] != (dto.CountItem{Label: "CR", Count: 2}) {
		t.Errorf("类型统计错误: %+v", stats.ByType)
	}
	if stats.ByYear[0] != (dto.CountItem{Label: "2026", Count: 2}) {
		t.Errorf("年份统计错误: %+v", stats.ByYear)
	}

	f, err := svc.Filters(ctx)
	if err != nil {
		t.Fatalf("Filters 应成功: %v", err)
	}
	if len(f.Years) != 2 || f.Years[0] != 2026 {
		t.Errorf("年份应降序: %v", f.Years)
	}
	if len(f.Corps) != 2 || len(f.Organizations) != 1 || len(f.Stages) != 2 {
		t.Errorf("筛选项错误: %+v", f)
	}

	page, err := svc.List(ctx, &dto.CRJRListRequest{Year: 2026, Type: " CR "})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if page.Total != 1 || page.List[0].Corp != "Telkomsel" {
		t.Errorf("筛选结果错误: %+v", page)
	}
}

func TestCRJR_FiltersEmpty(t *testing.T) {
	svc, _, _ := setupTestCRJRService()
	f, err := svc.Filters(context.Background())
	if err != nil {
		t.Fatalf("Filters 应成功: %v", err)
	}
	if f.Years == nil || f.Types == nil {
		t.Error("空库时筛选项应为空切片")
	}
}
