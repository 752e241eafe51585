package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// 导出格式
const (
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

// ExportService 报表导出业务接口
//
// 设计说明：
//   - 数据来自对应的业务 Service，导出层只负责排版
//   - Excel 使用 excelize，PDF 使用 fpdf（内置 Helvetica 字体，非 Latin-1 字符会被替换）
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	LifecycleMatrix(ctx context.Context, req *dto.MatrixFilterRequest) (*bytes.Buffer, string, error)
	LifecycleTimeline(ctx context.Context) (*bytes.Buffer, string, error)
	LifecycleSpeed(ctx context.Context, req *dto.TransitionSpeedRequest) (*bytes.Buffer, string, error)
	LifecycleDistribution(ctx context.Context) (*bytes.Buffer, string, error)
	// LifecyclePDF 矩阵、分布与转换速度汇总为一份 PDF
	LifecyclePDF(ctx context.Context) (*bytes.Buffer, string, error)
	// DashboardPDF 首页统计卡片汇总 PDF
	DashboardPDF(ctx context.Context) (*bytes.Buffer, string, error)
	Licenses(ctx context.Context, req *dto.LicenseListRequest) (*bytes.Buffer, string, error)
	CRJR(ctx context.Context, req *dto.CRJRListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	lifecycle LifecycleService
	dashboard DashboardService
	licenses  LicenseService
	crjr      CRJRService
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(lifecycle LifecycleService, dashboard DashboardService, licenses LicenseService,
	crjr CRJRService, m *metrics.Metrics, logger *zap.Logger) ExportService {
	return &exportService{
		lifecycle: lifecycle,
		dashboard: dashboard,
		licenses:  licenses,
		crjr:      crjr,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// ════════════════════ 生命周期 Excel ════════════════════

func (s *exportService) LifecycleMatrix(ctx context.Context, req *dto.MatrixFilterRequest) (*bytes.Buffer, string, error) {
	m, err := s.lifecycle.TransitionMatrix(ctx, req)
	if err != nil {
		return nil, "", err
	}

	header := append([]string{"Stage"}, m.Segments...)
	header = append(header, "Total")
	rows := make([][]interface{}, 0, len(m.Stages)+1)
	for _, stage := range m.Stages {
		row := []interface{}{stage}
		for _, seg := range m.Segments {
			row = append(row, m.Matrix[stage][seg])
		}
		rows = append(rows, append(row, m.StageTotals[stage]))
	}
	totalRow := []interface{}{"Total"}
	for _, seg := range m.Segments {
		totalRow = append(totalRow, m.SegmentTotals[seg])
	}
	rows = append(rows, append(totalRow, m.Total))

	return s.workbook("transition_matrix", "Transition Matrix", header, rows)
}

func (s *exportService) LifecycleTimeline(ctx context.Context) (*bytes.Buffer, string, error) {
	segments, err := s.lifecycle.Timeline(ctx)
	if err != nil {
		return nil, "", err
	}

	header := []string{"Segment", "Year", "Month", "Stage", "Product Count", "Products"}
	var rows [][]interface{}
	for _, seg := range segments {
		for _, p := range seg.Points {
			rows = append(rows, []interface{}{
				seg.Segment, p.Year, p.Month, p.Stage, p.ProductCount, strings.Join(p.Products, ", "),
			})
		}
	}
	return s.workbook("timeline", "Timeline", header, rows)
}

func (s *exportService) LifecycleSpeed(ctx context.Context, req *dto.TransitionSpeedRequest) (*bytes.Buffer, string, error) {
	speed, err := s.lifecycle.TransitionSpeed(ctx, req)
	if err != nil {
		return nil, "", err
	}

	unit := speed.Unit
	header := []string{
		"Segment", "From", "To", "Count",
		"Avg (" + unit + ")", "Min (" + unit + ")", "Max (" + unit + ")", "Median (" + unit + ")",
		"Planned (" + unit + ")", "Efficiency (%)",
	}
	var rows [][]interface{}
	for _, seg := range speed.Segments {
		for _, t := range seg.Transitions {
			rows = append(rows, []interface{}{
				seg.Segment, t.From, t.To, t.Count, t.Avg, t.Min, t.Max, t.Median, t.Planned, t.Efficiency,
			})
		}
	}
	return s.workbook("transition_speed", "Transition Speed", header, rows)
}

func (s *exportService) LifecycleDistribution(ctx context.Context) (*bytes.Buffer, string, error) {
	d, err := s.lifecycle.Distribution(ctx)
	if err != nil {
		return nil, "", err
	}

	header := []string{"Stage", "Count", "Percentage (%)", "Products"}
	rows := make([][]interface{}, 0, len(d.Stages)+1)
	for _, st := range d.Stages {
		rows = append(rows, []interface{}{st.Stage, st.Count, st.Percentage, strings.Join(st.Products, ", ")})
	}
	rows = append(rows, []interface{}{"Total", d.Total, 100, ""})
	return s.workbook("distribution", "Distribution", header, rows)
}

// ════════════════════ 监控 Excel ════════════════════

func (s *exportService) Licenses(ctx context.Context, req *dto.LicenseListRequest) (*bytes.Buffer, string, error) {
	list, err := s.licenses.ListAll(ctx, req)
	if err != nil {
		return nil, "", err
	}

	header := []string{
		"No", "Nama", "Perusahaan", "BPO", "Jenis", "Periode", "Qty", "Mata Uang",
		"Harga Satuan", "Total Harga", "Harga Jual", "Masa Kontrak (Bulan)", "Periode Kontrak",
		"Tanggal Mulai", "Tanggal Berakhir", "Metode Pembelian", "Status", "Sisa Hari",
	}
	rows := make([][]interface{}, 0, len(list))
	for i, l := range list {
		rows = append(rows, []interface{}{
			i + 1, l.Name, l.Company, l.BPO, l.Type, l.Period, l.Qty, l.Symbol,
			l.UnitPrice, l.TotalPrice, optionalFloat(l.SellingPrice), optionalInt(l.ContractServiceMonths),
			l.ContractPeriod, l.StartDate, l.EndDate, l.PurchaseMethod, l.Status, optionalInt(l.DaysUntilExpiry),
		})
	}
	return s.workbook("monitoring_license", "License", header, rows)
}

// crjrMonthLabels 月份列表头
var crjrMonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func (s *exportService) CRJR(ctx context.Context, req *dto.CRJRListRequest) (*bytes.Buffer, string, error) {
	list, err := s.crjr.ListAll(ctx, req)
	if err != nil {
		return nil, "", err
	}

	header := []string{
		"No", "Type", "Corp", "Sub Bidang", "Nama Aplikasi", "Judul Permintaan", "No Surat Penugasan",
		"Manager PIC", "Tanggal Surat STI", "Tahapan", "Organisasi", "Tahun",
	}
	header = append(header, crjrMonthLabels[:]...)
	header = append(header, "Total")

	rows := make([][]interface{}, 0, len(list))
	for i, c := range list {
		no := i + 1
		if c.No != nil {
			no = *c.No
		}
		row := []interface{}{
			no, c.Type, c.Corp, c.SubField, c.ApplicationName, c.RequestTitle, c.AssignmentLetterNo,
			c.ManagerPIC, c.STILetterDate, c.Stage, c.Organization, c.Year,
		}
		m := c.MonthlyCountsDTO
		for _, v := range []int{m.January, m.February, m.March, m.April, m.May, m.June,
			m.July, m.August, m.September, m.October, m.November, m.December} {
			row = append(row, v)
		}
		rows = append(rows, append(row, c.MonthlyTotal))
	}
	return s.workbook("monitoring_crjr", "CR JR", header, rows)
}

// ════════════════════ PDF ════════════════════

func (s *exportService) LifecyclePDF(ctx context.Context) (*bytes.Buffer, string, error) {
	m, err := s.lifecycle.TransitionMatrix(ctx, &dto.MatrixFilterRequest{})
	if err != nil {
		return nil, "", err
	}
	d, err := s.lifecycle.Distribution(ctx)
	if err != nil {
		return nil, "", err
	}
	speed, err := s.lifecycle.TransitionSpeed(ctx, &dto.TransitionSpeedRequest{Unit: UnitMonths})
	if err != nil {
		return nil, "", err
	}

	doc := newPDFReport("Product Lifecycle Report", s.now())

	doc.section("Transition Matrix")
	header := append([]string{"Stage"}, m.Segments...)
	header = append(header, "Total")
	var rows [][]string
	for _, stage := range m.Stages {
		row := []string{stage}
		for _, seg := range m.Segments {
			row = append(row, strconv.FormatInt(m.Matrix[stage][seg], 10))
		}
		rows = append(rows, append(row, strconv.FormatInt(m.StageTotals[stage], 10)))
	}
	totalRow := []string{"Total"}
	for _, seg := range m.Segments {
		totalRow = append(totalRow, strconv.FormatInt(m.SegmentTotals[seg], 10))
	}
	rows = append(rows, append(totalRow, strconv.FormatInt(m.Total, 10)))
	doc.table(header, rows)

	doc.section("Stage Distribution")
	rows = rows[:0]
	for _, st := range d.Stages {
		rows = append(rows, []string{st.Stage, strconv.FormatInt(st.Count, 10), formatFloat(st.Percentage) + "%"})
	}
	doc.table([]string{"Stage", "Products", "Share"}, rows)

	doc.section("Transition Speed (months)")
	rows = rows[:0]
	for _, seg := range speed.Segments {
		for _, t := range seg.Transitions {
			rows = append(rows, []string{
				seg.Segment, t.From + " > " + t.To, strconv.Itoa(t.Count),
				formatFloat(t.Avg), formatFloat(t.Planned), formatFloat(t.Efficiency) + "%",
			})
		}
	}
	doc.table([]string{"Segment", "Transition", "Count", "Avg", "Planned", "Efficiency"}, rows)

	return s.pdf("lifecycle_report", doc)
}

func (s *exportService) DashboardPDF(ctx context.Context) (*bytes.Buffer, string, error) {
	stats, err := s.dashboard.Stats(ctx)
	if err != nil {
		return nil, "", err
	}
	segments, err := s.dashboard.Segments(ctx)
	if err != nil {
		return nil, "", err
	}
	lic, err := s.dashboard.LicenseStats(ctx)
	if err != nil {
		return nil, "", err
	}
	crjr, err := s.dashboard.CRJRStats(ctx)
	if err != nil {
		return nil, "", err
	}
	run, err := s.dashboard.RunInsights(ctx)
	if err != nil {
		return nil, "", err
	}

	doc := newPDFReport("Dashboard Summary", s.now())

	doc.section("Products by Stage")
	var rows [][]string
	for _, st := range stats.Stages {
		rows = append(rows, []string{st.Name, strconv.FormatInt(st.Count, 10), formatFloat(st.Percentage) + "%"})
	}
	rows = append(rows, []string{"Total", strconv.FormatInt(stats.Total, 10), ""})
	doc.table([]string{"Stage", "Products", "Share"}, rows)

	doc.section("Products by Segment")
	rows = rows[:0]
	for _, seg := range segments {
		rows = append(rows, []string{seg.Name, strconv.FormatInt(seg.Count, 10), formatFloat(seg.Percentage) + "%"})
	}
	doc.table([]string{"Segment", "Products", "Share"}, rows)

	doc.section("License Monitoring")
	doc.table([]string{"Total", "Active", "Expiring Soon", "Expired", "Total Purchase"}, [][]string{{
		strconv.FormatInt(lic.Total, 10),
		strconv.FormatInt(lic.Active, 10),
		strconv.FormatInt(lic.ExpiringSoon, 10),
		strconv.FormatInt(lic.Expired, 10),
		strconv.FormatFloat(lic.TotalPurchase, 'f', 2, 64),
	}})

	doc.section("CR / JR Monitoring")
	doc.table([]string{"Total", "Completed", "In Progress", "Pending"}, [][]string{{
		strconv.FormatInt(crjr.Total, 10),
		strconv.FormatInt(crjr.Completed, 10),
		strconv.FormatInt(crjr.InProgress, 10),
		strconv.FormatInt(crjr.Pending, 10),
	}})

	doc.section("Run Program")
	doc.text(fmt.Sprintf("Total tasks: %d    Average completion: %s%%", run.Total, formatFloat(run.AvgCompletion)))
	rows = rows[:0]
	for _, p := range run.ByPriority {
		rows = append(rows, []string{"Priority", p.Label, strconv.FormatInt(p.Count, 10)})
	}
	for _, st := range run.ByStatus {
		rows = append(rows, []string{"Status", st.Label, strconv.FormatInt(st.Count, 10)})
	}
	doc.table([]string{"Group", "Value", "Tasks"}, rows)

	return s.pdf("dashboard_summary", doc)
}

// ── 输出 ──

// workbook 单工作表 Excel；文件名形如 report_2026-01-02.xlsx
func (s *exportService) workbook(report, sheet string, header []string, rows [][]interface{}) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	if err := writeSheetRows(f, sheet, header, rows); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("report", report), zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("report", report), zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	s.metrics.ObserveExport(report, formatXLSX)
	return buf, s.filename(report, formatXLSX), nil
}

func (s *exportService) pdf(report string, doc *pdfReport) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	if err := doc.pdf.Output(buf); err != nil {
		s.logger.Error("生成 PDF 失败", zap.String("report", report), zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	s.metrics.ObserveExport(report, formatPDF)
	return buf, s.filename(report, formatPDF), nil
}

func (s *exportService) filename(report, ext string) string {
	return fmt.Sprintf("%s_%s.%s", report, s.now().Format("2006-01-02"), ext)
}

// ────────────────────── PDF 排版 ──────────────────────

// pdfReport A4 横向报表：标题 + 若干小节，每节一张表格
type pdfReport struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFReport(title string, generatedAt time.Time) *pdfReport {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("PLC Monitoring", true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetMargins(12, 12, 12)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r := &pdfReport{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, r.tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Generated at "+generatedAt.Format(timeLayout), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
	return r
}

func (r *pdfReport) section(title string) {
	r.pdf.Ln(4)
	r.pdf.SetFont("Helvetica", "B", 12)
	r.pdf.CellFormat(0, 8, r.tr(title), "", 1, "L", false, 0, "")
}

func (r *pdfReport) text(s string) {
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.MultiCell(0, 6, r.tr(s), "", "L", false)
}

// table 等宽列表格；列数过多时缩小字号
func (r *pdfReport) table(header []string, rows [][]string) {
	if len(header) == 0 {
		return
	}
	pageW, _ := r.pdf.GetPageSize()
	left, _, right, _ := r.pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(header))
	fontSize := 9.0
	if len(header) > 8 {
		fontSize = 7
	}

	r.pdf.SetFont("Helvetica", "B", fontSize)
	r.pdf.SetFillColor(68, 114, 196)
	r.pdf.SetTextColor(255, 255, 255)
	for _, h := range header {
		r.pdf.CellFormat(colW, 7, r.fit(h, colW), "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Helvetica", "", fontSize)
	r.pdf.SetTextColor(0, 0, 0)
	if len(rows) == 0 {
		r.pdf.CellFormat(colW*float64(len(header)), 7, "No data", "1", 1, "C", false, 0, "")
		return
	}
	for i, row := range rows {
		fill := i%2 == 1
		r.pdf.SetFillColor(242, 242, 242)
		for c := range header {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			align := "L"
			if c > 0 {
				align = "C"
			}
			r.pdf.CellFormat(colW, 6, r.fit(v, colW), "1", 0, align, fill, 0, "")
		}
		r.pdf.Ln(-1)
	}
}

// fit 截断超出列宽的文本
func (r *pdfReport) fit(s string, width float64) string {
	s = r.tr(s)
	if r.pdf.GetStringWidth(s) <= width-2 {
		return s
	}
	for len(s) > 0 && r.pdf.GetStringWidth(s+"...") > width-2 {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// ── 辅助函数 ──

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
