package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
)

func setupTestExportService() (*exportService, *mockStore, map[string]int64) {
	repo, st := newMockStore()
	ids := st.seedLifecycle()
	logger := zap.NewNop()

	licenses := NewLicenseService(repo, nil, LicenseOptions{}, logger)
	licenses.(*licenseService).now = func() time.Time { return fixedNow }
	dashboard := NewDashboardService(repo, nil, 0, logger)
	dashboard.(*dashboardService).now = func() time.Time { return fixedNow }

	svc := NewExportService(
		NewLifecycleService(repo, logger),
		dashboard,
		licenses,
		NewCRJRService(repo, nil, logger),
		metrics.New("test"),
		logger,
	).(*exportService)
	svc.now = func() time.Time { return fixedNow }
	return svc, st, ids
}

// readSheet 重新打开导出的工作簿并读取全部行
func readSheet(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出文件无法打开: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("读取工作表 %s 失败: %v", sheet, err)
	}
	return rows
}

func TestExport_LifecycleMatrix(t *testing.T) {
	svc, st, ids := setupTestExportService()
	st.products.add(model.Product{Name: "A", CategoryID: ids["Connectivity"], SegmentID: ids["Retail"], StageID: ids[model.StageGrowth]})

	buf, name, err := svc.LifecycleMatrix(context.Background(), &dto.MatrixFilterRequest{})
	if err != nil {
		t.Fatalf("LifecycleMatrix 应成功: %v", err)
	}
	if name != "transition_matrix_2026-03-10.xlsx" {
		t.Errorf("文件名错误: %s", name)
	}

	rows := readSheet(t, buf, "Transition Matrix")
	if len(rows) != 6 {
		t.Fatalf("期望表头 + 4 个阶段 + 合计行，实际 %d 行", len(rows))
	}
	if rows[0][0] != "Stage" || rows[0][1] != "Enterprise" || rows[0][3] != "Total" {
		t.Errorf("表头错误: %v", rows[0])
	}
	if rows[2][0] != model.StageGrowth || rows[2][2] != "1" {
		t.Errorf("Growth 行错误: %v", rows[2])
	}
	if rows[5][0] != "Total" || rows[5][3] != "1" {
		t.Errorf("合计行错误: %v", rows[5])
	}
}

func TestExport_LifecycleFilterError(t *testing.T) {
	svc, _, _ := setupTestExportService()
	_, _, err := svc.LifecycleMatrix(context.Background(), &dto.MatrixFilterRequest{Stage: "Nope"})
	if !errors.Is(err, ErrUnknownStageFilter) {
		t.Errorf("期望 ErrUnknownStageFilter，实际: %v", err)
	}
}

func TestExport_Distribution(t *testing.T) {
	svc, st, ids := setupTestExportService()
	st.products.add(model.Product{Name: "A", CategoryID: ids["Connectivity"], SegmentID: ids["Retail"], StageID: ids[model.StageIntroduction]})
	st.products.add(model.Product{Name: "B", CategoryID: ids["Connectivity"], SegmentID: ids["Retail"], StageID: ids[model.StageIntroduction]})

	buf, _, err := svc.LifecycleDistribution(context.Background())
	if err != nil {
		t.Fatalf("LifecycleDistribution 应成功: %v", err)
	}
	rows := readSheet(t, buf, "Distribution")
	if rows[1][0] != model.StageIntroduction || rows[1][1] != "2" || rows[1][3] != "A, B" {
		t.Errorf("分布行错误: %v", rows[1])
	}
	if last := rows[len(rows)-1]; last[0] != "Total" || last[1] != "2" {
		t.Errorf("合计行错误: %v", last)
	}
}

func TestExport_Licenses(t *testing.T) {
	svc, st, _ := setupTestExportService()
	ctx := context.Background()
	_ = st.licenses.Create(ctx, &model.License{Name: "Office", Company: "PT A", Qty: 2, TotalPrice: 300, EndDate: datePtr(2026, 3, 20)})

	buf, name, err := svc.Licenses(ctx, &dto.LicenseListRequest{})
	if err != nil {
		t.Fatalf("Licenses 应成功: %v", err)
	}
	if name != "monitoring_license_2026-03-10.xlsx" {
		t.Errorf("文件名错误: %s", name)
	}
	rows := readSheet(t, buf, "License")
	if len(rows) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(rows))
	}
	if rows[1][1] != "Office" || rows[1][16] != model.LicenseStatusExpiring || rows[1][17] != "10" {
		t.Errorf("数据行错误: %v", rows[1])
	}
}

func TestExport_CRJR(t *testing.T) {
	svc, st, _ := setupTestExportService()
	ctx := context.Background()
	no := 7
	_ = st.crjrs.Create(ctx, &model.CRJR{
		No: &no, Type: "CR", ApplicationName: "SIMPEL", Year: 2026,
		MonthlyCounts: model.MonthlyCounts{January: 1, December: 2},
	})

	buf, _, err := svc.CRJR(ctx, &dto.CRJRListRequest{})
	if err != nil {
		t.Fatalf("CRJR 应成功: %v", err)
	}
	rows := readSheet(t, buf, "CR JR")
	if len(rows[0]) != 25 {
		t.Errorf("表头应为 12 个固定列 + 12 个月 + 合计，实际 %d", len(rows[0]))
	}
	row := rows[1]
	if row[0] != "7" || row[12] != "1" || row[23] != "2" || row[24] != "3" {
		t.Errorf("数据行错误: %v", row)
	}
}

func TestExport_PDF(t *testing.T) {
	svc, st, ids := setupTestExportService()
	st.products.add(model.Product{Name: "Ürün", CategoryID: ids["Connectivity"], SegmentID: ids["Retail"], StageID: ids[model.StageGrowth]})
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		fn   func(context.Context) (*bytes.Buffer, string, error)
		file string
	}{
		{"生命周期报告", svc.LifecyclePDF, "lifecycle_report_2026-03-10.pdf"},
		{"仪表盘汇总", svc.DashboardPDF, "dashboard_summary_2026-03-10.pdf"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf, name, err := tc.fn(ctx)
			if err != nil {
				t.Fatalf("生成 PDF 应成功: %v", err)
			}
			if name != tc.file {
				t.Errorf("文件名错误: %s", name)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
				t.Error("输出不是 PDF")
			}
		})
	}

	if n, err := testutil.GatherAndCount(svc.metrics.Registry(), "test_export_files_total"); err != nil || n != 2 {
		t.Errorf("导出计数错误: n=%d err=%v", n, err)
	}
}
