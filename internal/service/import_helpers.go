package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// ────────────────────── Excel 导入公共部分 ──────────────────────

const maxImportRows = 1000

var (
	ErrImportFile        = errors.New("无法解析 Excel 文件")
	ErrImportNoData      = errors.New("Excel 文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel 表头缺少必要列")
)

// importSheet 已解析的工作表：表头索引 + 数据行（保留 Excel 行号）
type importSheet struct {
	header []string
	col    map[string]int
	rows   []importRow
}

type importRow struct {
	line  int // Excel 行号（从 1 开始，表头为第 1 行）
	cells []string
}

// get 读取指定列，缺列或越界返回空串
func (r importRow) get(sheet *importSheet, key string) string {
	idx, ok := sheet.col[key]
	if !ok || idx < 0 || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

// readImportSheet 打开工作簿并读取 preferred 工作表（不存在时取第一个），
// 按 aliases 解析表头；required 中的列缺失时返回 ErrImportBadHeader。
func readImportSheet(reader io.Reader, preferred string, aliases map[string][]string, required ...string) (*importSheet, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFile, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if preferred != "" {
		if idx, err := f.GetSheetIndex(preferred); err == nil && idx >= 0 {
			sheetName = preferred
		}
	}
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表失败: %v", ErrImportFile, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	sheet := &importSheet{header: excelRows[0], col: parseHeaderIndex(excelRows[0], aliases)}
	var missing []string
	for _, key := range required {
		if sheet.col[key] < 0 {
			missing = append(missing, aliases[key][0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrImportBadHeader, strings.Join(missing, ", "))
	}

	for i := 1; i < len(excelRows); i++ {
		if isBlankRow(excelRows[i]) {
			continue
		}
		sheet.rows = append(sheet.rows, importRow{line: i + 1, cells: excelRows[i]})
	}
	if len(sheet.rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(sheet.rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return sheet, nil
}

// parseHeaderIndex 解析表头，返回列键 -> 列索引（未找到为 -1），匹配不区分大小写
func parseHeaderIndex(header []string, aliases map[string][]string) map[string]int {
	idx := make(map[string]int, len(aliases))
	lookup := make(map[string]string)
	for key, names := range aliases {
		idx[key] = -1
		for _, n := range names {
			lookup[strings.ToLower(n)] = key
		}
	}
	for i, h := range header {
		key, ok := lookup[strings.ToLower(strings.TrimSpace(h))]
		if ok && idx[key] < 0 {
			idx[key] = i
		}
	}
	return idx
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// importDateLayouts 导入时接受的日期格式
var importDateLayouts = []string{model.DateLayout, "02/01/2006", "2006/01/02", "01-02-06", "2/1/2006"}

// parseImportDate 解析导入单元格中的日期；支持 Excel 序列号
func parseImportDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, ErrInvalidDate
}

// parseImportNumber 解析金额/数量单元格，忽略货币符号与千分位逗号
func parseImportNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp")
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	return strconv.ParseFloat(s, 64)
}

// addRowError 记录一条行级错误
func addRowError(res *dto.ImportResult, line int, format string, args ...interface{}) {
	res.Failed++
	res.Errors = append(res.Errors, dto.ImportRowError{Row: line, Reason: fmt.Sprintf(format, args...)})
}

// ────────────────────── Excel 模板公共部分 ──────────────────────

// headerStyle 表头样式（蓝底白字加粗）
func headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	return style
}

// writeSheetRows 写入表头与数据行，表头应用样式并设置列宽
func writeSheetRows(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheet, "A1", last, headerStyle(f))
		lastCol, _ := excelize.ColumnNumberToName(len(header))
		_ = f.SetColWidth(sheet, "A", lastCol, 20)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
