package service

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
)

// ────────────────────── 运营任务 Excel 导入 ──────────────────────
//
// 固定列按别名匹配；周进度列按表头前缀识别，例如
// "Progress Agst W1" / "Next Action Agst W1" / "Status Agst W1" / "Target Sept W1"
// 归入周期 "Agst W1"，周期顺序与表头出现顺序一致。

const runProgramSheet = "Monitoring Run Program"

var runProgramImportAliases = map[string][]string{
	"task_no":            {"No Task", "No. Task", "task_no"},
	"task_name":          {"Task Name", "Nama Task", "task_name"},
	"type":               {"Type", "Tipe"},
	"bpo":                {"BPO"},
	"holding":            {"Holding/SH/AP", "Holding", "holding_sh_ap"},
	"revenue":            {"Potensi Revenue", "Revenue Potential", "potensi_revenue"},
	"pic_team":           {"PIC Team Cusol", "PIC Team", "pic_team"},
	"priority":           {"Priority", "Prioritas"},
	"percent":            {"% Complete", "Percent Complete", "percent_complete"},
	"letter_no":          {"Surat", "No Surat", "letter_no"},
	"letter_date":        {"Tanggal Surat", "letter_date"},
	"letter_subject":     {"Perihal Surat", "letter_subject"},
	"start_date":         {"Start Date", "Tanggal Mulai"},
	"end_date":           {"End Date", "Tanggal Selesai"},
	"pic_icon":           {"PIC ICON", "PIC Icon", "pic_icon"},
	"this_week_progress": {"This Week Progress", "this_week_progress"},
	"next_week_target":   {"Target Next Week Progress", "Next Week Target", "next_week_target"},
	"overall_status":     {"Overall Status", "Status Overall", "overall_status"},
}

// progressColumnPrefixes 周进度列前缀（较长前缀在前）
var progressColumnPrefixes = []struct {
	prefix string
	field  string
}{
	{"next action ", "next_action"},
	{"progress ", "progress"},
	{"status ", "status"},
	{"target ", "target"},
}

// progressColumn 某周期下各字段所在列
type progressColumn struct {
	period string
	cols   map[string]int
}

// parseProgressColumns 从表头中识别周进度列
func parseProgressColumns(header []string, fixed map[string]int) []progressColumn {
	taken := make(map[int]bool, len(fixed))
	for _, idx := range fixed {
		if idx >= 0 {
			taken[idx] = true
		}
	}

	var periods []progressColumn
	byPeriod := make(map[string]int)
	for i, h := range header {
		if taken[i] {
			continue
		}
		name := strings.TrimSpace(h)
		lower := strings.ToLower(name)
		for _, p := range progressColumnPrefixes {
			if !strings.HasPrefix(lower, p.prefix) {
				continue
			}
			period := strings.TrimSpace(name[len(p.prefix):])
			if period == "" {
				break
			}
			key := strings.ToLower(period)
			pos, ok := byPeriod[key]
			if !ok {
				pos = len(periods)
				byPeriod[key] = pos
				periods = append(periods, progressColumn{period: period, cols: map[string]int{}})
			}
			if _, dup := periods[pos].cols[p.field]; !dup {
				periods[pos].cols[p.field] = i
			}
			break
		}
	}
	return periods
}

func (s *runProgramService) Import(ctx context.Context, reader io.Reader) (*dto.ImportResult, error) {
	sheet, err := readImportSheet(reader, runProgramSheet, runProgramImportAliases, "task_name")
	if err != nil {
		return nil, err
	}
	periods := parseProgressColumns(sheet.header, sheet.col)

	res := &dto.ImportResult{Total: len(sheet.rows)}
	programs := make([]model.RunProgram, 0, len(sheet.rows))
	for _, row := range sheet.rows {
		p, reason := s.parseRunProgramRow(sheet, row, periods)
		if reason != "" {
			addRowError(res, row.line, "Baris %d: %s", row.line, reason)
			continue
		}
		programs = append(programs, *p)
	}

	// 全量替换：存在错误行时不改动现有数据
	if res.Failed > 0 {
		s.metrics.ObserveImport("run_program", 0, res.Failed)
		return res, nil
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.RunProgram.ReplaceAll(ctx, programs)
	})
	if err != nil {
		s.logger.Error("导入运营任务失败", zap.Int("rows", len(programs)), zap.Error(err))
		return nil, err
	}
	res.Success = len(programs)
	s.logger.Info("运营任务导入完成", zap.Int("rows", res.Success), zap.Int("periods", len(periods)))

	s.invalidateDashboard(ctx)
	s.metrics.ObserveImport("run_program", res.Success, res.Failed)
	return res, nil
}

// parseRunProgramRow 解析单行，失败时返回原因
func (s *runProgramService) parseRunProgramRow(sheet *importSheet, row importRow, periods []progressColumn) (*model.RunProgram, string) {
	name := row.get(sheet, "task_name")
	if name == "" {
		return nil, "Task Name 不能为空"
	}

	priority := strings.ToUpper(row.get(sheet, "priority"))
	switch priority {
	case "":
		priority = model.PriorityMedium
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
	default:
		return nil, "Priority 必须为 HIGH、MEDIUM 或 LOW (" + priority + ")"
	}

	revenue, err := parseImportNumber(row.get(sheet, "revenue"))
	if err != nil || revenue < 0 {
		return nil, "Potensi Revenue 格式错误 (" + row.get(sheet, "revenue") + ")"
	}
	percent, err := parseImportNumber(strings.TrimSuffix(row.get(sheet, "percent"), "%"))
	if err != nil || percent < 0 || percent > 100 {
		return nil, "% Complete 必须在 0-100 之间 (" + row.get(sheet, "percent") + ")"
	}

	letterDate, err := parseImportDate(row.get(sheet, "letter_date"))
	if err != nil {
		return nil, "Tanggal Surat 格式错误 (" + row.get(sheet, "letter_date") + ")"
	}
	start, err := parseImportDate(row.get(sheet, "start_date"))
	if err != nil {
		return nil, "Start Date 格式错误 (" + row.get(sheet, "start_date") + ")"
	}
	end, err := parseImportDate(row.get(sheet, "end_date"))
	if err != nil {
		return nil, "End Date 格式错误 (" + row.get(sheet, "end_date") + ")"
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, "End Date 不能早于 Start Date"
	}

	p := &model.RunProgram{
		TaskNo:           row.get(sheet, "task_no"),
		TaskName:         name,
		Type:             row.get(sheet, "type"),
		BPO:              row.get(sheet, "bpo"),
		Holding:          row.get(sheet, "holding"),
		RevenuePotential: revenue,
		PICTeam:          row.get(sheet, "pic_team"),
		Priority:         priority,
		PercentComplete:  percent,
		LetterNo:         row.get(sheet, "letter_no"),
		LetterDate:       letterDate,
		LetterSubject:    row.get(sheet, "letter_subject"),
		StartDate:        start,
		EndDate:          end,
		PICIcon:          row.get(sheet, "pic_icon"),
		ThisWeekProgress: row.get(sheet, "this_week_progress"),
		NextWeekTarget:   row.get(sheet, "next_week_target"),
		OverallStatus:    row.get(sheet, "overall_status"),
	}

	for i, period := range periods {
		pg := model.RunProgramProgress{Period: period.period, SortOrder: i + 1}
		cell := func(field string) string {
			idx, ok := period.cols[field]
			if !ok || idx >= len(row.cells) {
				return ""
			}
			return strings.TrimSpace(row.cells[idx])
		}
		pg.Progress = cell("progress")
		pg.NextAction = cell("next_action")
		pg.Status = cell("status")
		pg.Target = cell("target")
		// 空周期不落库
		if pg.Progress == "" && pg.NextAction == "" && pg.Status == "" && pg.Target == "" {
			continue
		}
		p.Progresses = append(p.Progresses, pg)
	}
	return p, ""
}
