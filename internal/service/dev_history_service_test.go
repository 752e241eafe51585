package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

func TestDevHistoryService_CreateValidation(t *testing.T) {
	repo, st := newMockStore()
	ids := st.seedLifecycle()
	pid := st.products.add(model.Product{Name: "VPN", CategoryID: ids["Connectivity"], SegmentID: ids["Retail"], StageID: ids[model.StageGrowth]})
	svc := NewDevHistoryService(repo, nil, zap.NewNop())
	ctx := context.Background()

	resp, err := svc.Create(ctx, &dto.DevHistoryRequest{
		ProductID: pid, WorkType: "Feature", StartDate: "2026-01-01", EndDate: "2026-02-01", Status: "released",
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Status != model.DevStatusReleased {
		t.Errorf("状态应规范化为 Released，实际 %s", resp.Status)
	}
	if resp.ProductName != "VPN" {
		t.Errorf("期望产品名 VPN，实际 %s", resp.ProductName)
	}

	tests := []struct {
		name    string
		req     dto.DevHistoryRequest
		wantErr error
	}{
		{"产品不存在", dto.DevHistoryRequest{ProductID: 99, WorkType: "x", StartDate: "2026-01-01", Status: "Testing"}, ErrProductNotFound},
		{"状态非法", dto.DevHistoryRequest{ProductID: pid, WorkType: "x", StartDate: "2026-01-01", Status: "Done"}, ErrDevStatusInvalid},
		{"日期倒序", dto.DevHistoryRequest{ProductID: pid, WorkType: "x", StartDate: "2026-03-01", EndDate: "2026-01-01", Status: "Testing"}, ErrDevDateOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, &tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

func TestDevHistoryService_Import(t *testing.T) {
	repo, st := newMockStore()
	ids := st.seedLifecycle()
	pid := st.products.add(model.Product{Name: "VPN", CategoryID: ids["Connectivity"], SegmentID: ids["Retail"], StageID: ids[model.StageGrowth]})
	svc := NewDevHistoryService(repo, nil, zap.NewNop())

	buf := buildWorkbook(t, devHistoryTemplateSheet, [][]interface{}{
		headerRow(devHistoryImportHeader),
		{pid, "Feature", "2026-01-01", "2026-01-31", "1.0", "", "Released"},
		{"abc", "Feature", "2026-01-01", "", "", "", "Released"},
		{999, "Feature", "2026-01-01", "", "", "", "Released"},
		{pid, "", "2026-01-01", "", "", "", "Released"},
		{pid, "Fix", "2026-02-01", "2026-01-01", "", "", "Testing"},
		{pid, "Fix", "2026-02-01", "", "", "", "Unknown"},
	})

	res, err := svc.Import(context.Background(), buf)
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if res.Success != 1 || res.Failed != 5 {
		t.Fatalf("期望 success=1 failed=5，实际 %+v", res)
	}
	for _, e := range res.Errors {
		if !strings.HasPrefix(e.Reason, "Baris ") {
			t.Errorf("错误信息应带行号前缀: %s", e.Reason)
		}
	}
	if len(st.devs.rows) != 1 {
		t.Errorf("应写入 1 条开发历史，实际 %d", len(st.devs.rows))
	}
}
