package service

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

func TestMasterData_CreateDuplicateName(t *testing.T) {
	repo, st := newMockStore()
	svc := NewCategoryService(repo, &mockFileStore{}, nil, zap.NewNop())
	st.categories.add("Connectivity")

	_, err := svc.Create(context.Background(), &dto.MasterDataRequest{Name: " connectivity "})
	if !errors.Is(err, ErrCategoryNameExists) {
		t.Errorf("期望 ErrCategoryNameExists，实际: %v", err)
	}
}

func TestMasterData_DeleteInUse(t *testing.T) {
	repo, st := newMockStore()
	files := &mockFileStore{}
	svc := NewSegmentService(repo, files, nil, zap.NewNop())
	id := st.segments.add("Enterprise")
	st.segments.items[id].IconLight = "/uploads/icons/segment/a.svg"
	st.segments.products[id] = 2

	if err := svc.Delete(context.Background(), id); !errors.Is(err, ErrSegmentInUse) {
		t.Fatalf("期望 ErrSegmentInUse，实际: %v", err)
	}

	st.segments.products[id] = 0
	if err := svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(files.removed) != 1 {
		t.Errorf("删除后应清理图标文件，实际 %v", files.removed)
	}
}

func TestStage_DeleteReferencedByInterval(t *testing.T) {
	repo, st := newMockStore()
	ids := st.seedLifecycle()
	svc := NewStageService(repo, &mockFileStore{}, nil, zap.NewNop())
	_ = st.intervals.Create(context.Background(), &model.StageInterval{
		PreviousStageID: ids[model.StageIntroduction],
		NextStageID:     ids[model.StageGrowth],
		IntervalMonths:  6,
	})

	if err := svc.Delete(context.Background(), ids[model.StageGrowth]); !errors.Is(err, ErrStageInUse) {
		t.Errorf("期望 ErrStageInUse，实际: %v", err)
	}
	if err := svc.Delete(context.Background(), ids[model.StageDecline]); err != nil {
		t.Errorf("未引用的阶段应可删除: %v", err)
	}
}

func TestStage_OptionsLifecycleOrder(t *testing.T) {
	repo, st := newMockStore()
	for _, name := range []string{"Decline", "Retired", "Growth", "Introduction", "Maturity"} {
		st.stages.add(name)
	}
	svc := NewStageService(repo, &mockFileStore{}, nil, zap.NewNop())

	opts, err := svc.Options(context.Background())
	if err != nil {
		t.Fatalf("Options 应成功: %v", err)
	}
	want := []string{"Introduction", "Growth", "Maturity", "Decline", "Retired"}
	for i, o := range opts {
		if o.Name != want[i] {
			t.Fatalf("第 %d 项期望 %s，实际 %s", i, want[i], o.Name)
		}
	}
}

func TestMasterData_UpdateRemovesReplacedIcon(t *testing.T) {
	repo, st := newMockStore()
	files := &mockFileStore{}
	svc := NewCategoryService(repo, files, nil, zap.NewNop())
	id := st.categories.add("Cloud")
	st.categories.items[id].IconDark = "/uploads/icons/category/old.svg"

	resp, err := svc.Update(context.Background(), id, &dto.MasterDataRequest{
		Name:     "Cloud Service",
		IconDark: "/uploads/icons/category/new.svg",
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Name != "Cloud Service" || resp.IconDark != "/uploads/icons/category/new.svg" {
		t.Errorf("更新结果错误: %+v", resp)
	}
	if len(files.removed) != 1 || files.removed[0] != "/uploads/icons/category/old.svg" {
		t.Errorf("旧图标应被删除，实际 %v", files.removed)
	}
}

func TestMasterData_UploadIcon(t *testing.T) {
	repo, _ := newMockStore()
	svc := NewStageService(repo, &mockFileStore{}, nil, zap.NewNop())
	fh := &multipart.FileHeader{Filename: "growth.svg", Size: 100}

	if _, err := svc.UploadIcon(context.Background(), "neon", fh); !errors.Is(err, ErrInvalidIconType) {
		t.Errorf("期望 ErrInvalidIconType，实际: %v", err)
	}
	resp, err := svc.UploadIcon(context.Background(), "Dark", fh)
	if err != nil {
		t.Fatalf("UploadIcon 应成功: %v", err)
	}
	if resp.Type != IconDark || resp.URL == "" {
		t.Errorf("上传结果错误: %+v", resp)
	}
}

// ── 阶段间隔 ──

func TestIntervalService_Validate(t *testing.T) {
	repo, st := newMockStore()
	ids := st.seedLifecycle()
	svc := NewIntervalService(repo, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Create(ctx, &dto.IntervalRequest{
		PreviousStageID: ids[model.StageIntroduction],
		NextStageID:     ids[model.StageGrowth],
		IntervalMonths:  6,
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if created.PreviousStageName != model.StageIntroduction || created.NextStageName != model.StageGrowth {
		t.Errorf("阶段名称未填充: %+v", created)
	}

	tests := []struct {
		name    string
		req     dto.IntervalRequest
		wantErr error
	}{
		{"前后阶段相同", dto.IntervalRequest{PreviousStageID: ids[model.StageGrowth], NextStageID: ids[model.StageGrowth], IntervalMonths: 3}, ErrIntervalSameStage},
		{"月数非正", dto.IntervalRequest{PreviousStageID: ids[model.StageGrowth], NextStageID: ids[model.StageMaturity], IntervalMonths: 0}, ErrIntervalMonths},
		{"阶段不存在", dto.IntervalRequest{PreviousStageID: 999, NextStageID: ids[model.StageMaturity], IntervalMonths: 3}, ErrIntervalStageUnset},
		{"组合重复", dto.IntervalRequest{PreviousStageID: ids[model.StageIntroduction], NextStageID: ids[model.StageGrowth], IntervalMonths: 12}, ErrIntervalExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, &tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}

	// 更新自身时组合不视为重复
	if _, err := svc.Update(ctx, created.ID, &dto.IntervalRequest{
		PreviousStageID: ids[model.StageIntroduction],
		NextStageID:     ids[model.StageGrowth],
		IntervalMonths:  9,
	}); err != nil {
		t.Errorf("Update 自身应成功: %v", err)
	}
}

func TestMasterData_WritesInvalidateDashboardCache(t *testing.T) {
	repo, st := newMockStore()
	cache := newMockCache()
	svc := NewStageService(repo, &mockFileStore{}, cache, zap.NewNop())
	ctx := context.Background()
	id := st.stages.add("Growth")

	_ = cache.SetJSON(ctx, dashboardCachePrefix+"stats", "stale", 0)
	if _, err := svc.Update(ctx, id, &dto.MasterDataRequest{Name: "Growth Phase"}); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if _, ok := cache.values[dashboardCachePrefix+"stats"]; ok {
		t.Error("更新阶段后应清理仪表盘缓存")
	}

	_ = cache.SetJSON(ctx, dashboardCachePrefix+"segments", "stale", 0)
	if _, err := svc.Create(ctx, &dto.MasterDataRequest{Name: "Sunset"}); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if _, ok := cache.values[dashboardCachePrefix+"segments"]; ok {
		t.Error("新建阶段后应清理仪表盘缓存")
	}

	_ = cache.SetJSON(ctx, dashboardCachePrefix+"stats", "stale", 0)
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := cache.values[dashboardCachePrefix+"stats"]; ok {
		t.Error("删除阶段后应清理仪表盘缓存")
	}
}

// 图标 URL 由客户端提交，只删除本类目录下且无其他记录引用的文件
func TestMasterData_DeleteKeepsForeignOrSharedIcons(t *testing.T) {
	repo, st := newMockStore()
	files := &mockFileStore{}
	svc := NewCategoryService(repo, files, nil, zap.NewNop())
	ctx := context.Background()

	shared := "/uploads/icons/category/shared.svg"
	a := st.categories.add("A")
	st.categories.items[a].IconLight = shared
	st.categories.items[a].IconDark = "/uploads/attachments/manual.pdf"
	b := st.categories.add("B")
	st.categories.items[b].IconLight = shared
	c := st.categories.add("C")
	st.categories.items[c].IconDark = "/uploads/icons/segment/retail.svg"

	if err := svc.Delete(ctx, a); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if err := svc.Delete(ctx, c); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(files.removed) != 0 {
		t.Fatalf("共享图标与其他目录文件不应删除，实际 %v", files.removed)
	}

	if err := svc.Delete(ctx, b); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(files.removed) != 1 || files.removed[0] != shared {
		t.Errorf("最后一个引用删除后应清理图标，实际 %v", files.removed)
	}
}
