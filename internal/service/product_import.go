package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
)

// ────────────────────── 产品 Excel 导入 ──────────────────────

const (
	productTemplateSheet  = "Template Produk"
	productReferenceSheet = "Referensi"
)

var productImportHeader = []string{
	"Nama Produk", "Deskripsi", "Kategori", "Segmen", "Stage", "Harga", "Tanggal Launch", "Customer",
}

var productImportAliases = map[string][]string{
	"name":        {"Nama Produk", "name", "product_name"},
	"description": {"Deskripsi", "description"},
	"category":    {"Kategori", "category"},
	"segment":     {"Segmen", "segment"},
	"stage":       {"Stage", "Tahap"},
	"price":       {"Harga", "price"},
	"launch_date": {"Tanggal Launch", "launch_date"},
	"customer":    {"Customer", "Pelanggan"},
}

// nameIndex 主数据名称（小写）→ ID
func nameIndex(items []model.MasterData) map[string]int64 {
	idx := make(map[string]int64, len(items))
	for _, it := range items {
		idx[strings.ToLower(strings.TrimSpace(it.Name))] = it.ID
	}
	return idx
}

func (s *productService) Import(ctx context.Context, reader io.Reader) (*dto.ImportResult, error) {
	sheet, err := readImportSheet(reader, productTemplateSheet, productImportAliases,
		"name", "category", "segment", "stage")
	if err != nil {
		return nil, err
	}

	categories, err := s.repo.Category.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	segments, err := s.repo.Segment.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stages, err := s.repo.Stage.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	categoryIDs, segmentIDs, stageIDs := nameIndex(categories), nameIndex(segments), nameIndex(stages)

	names := make([]string, 0, len(sheet.rows))
	for _, row := range sheet.rows {
		if n := row.get(sheet, "name"); n != "" {
			names = append(names, n)
		}
	}
	existing, err := s.repo.Product.ExistingNames(ctx, names)
	if err != nil {
		s.logger.Error("查询已存在产品名称失败", zap.Error(err))
		return nil, err
	}

	// 第一阶段：逐行校验
	res := &dto.ImportResult{Total: len(sheet.rows)}
	seen := make(map[string]int)
	var valid []model.Product
	for _, row := range sheet.rows {
		name := row.get(sheet, "name")
		if name == "" {
			addRowError(res, row.line, "Nama Produk 不能为空")
			continue
		}
		if existing[name] {
			addRowError(res, row.line, "产品已存在: %s", name)
			continue
		}
		if first, dup := seen[name]; dup {
			addRowError(res, row.line, "与第 %d 行产品名称重复: %s", first, name)
			continue
		}

		p := model.Product{
			Name:        name,
			Description: row.get(sheet, "description"),
			Customer:    row.get(sheet, "customer"),
		}
		var ok bool
		if p.CategoryID, ok = categoryIDs[strings.ToLower(row.get(sheet, "category"))]; !ok {
			addRowError(res, row.line, "类别不存在: %s", row.get(sheet, "category"))
			continue
		}
		if p.SegmentID, ok = segmentIDs[strings.ToLower(row.get(sheet, "segment"))]; !ok {
			addRowError(res, row.line, "细分市场不存在: %s", row.get(sheet, "segment"))
			continue
		}
		if p.StageID, ok = stageIDs[strings.ToLower(row.get(sheet, "stage"))]; !ok {
			addRowError(res, row.line, "阶段不存在: %s", row.get(sheet, "stage"))
			continue
		}
		price, err := parseImportNumber(row.get(sheet, "price"))
		if err != nil || price < 0 {
			addRowError(res, row.line, "Harga 格式错误: %s", row.get(sheet, "price"))
			continue
		}
		p.Price = price
		if p.LaunchDate, err = parseImportDate(row.get(sheet, "launch_date")); err != nil {
			addRowError(res, row.line, "Tanggal Launch 格式错误: %s", row.get(sheet, "launch_date"))
			continue
		}

		seen[name] = row.line
		valid = append(valid, p)
	}

	// 第二阶段：在事务中批量写入产品及其初始阶段历史
	if len(valid) > 0 {
		now := s.now()
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Product.CreateBatch(ctx, valid); err != nil {
				return err
			}
			for i := range valid {
				if err := tx.Product.CreateStageHistory(ctx, &model.StageHistory{
					ProductID:      valid[i].ID,
					CurrentStageID: valid[i].StageID,
					ChangedAt:      now,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("批量导入产品失败", zap.Int("rows", len(valid)), zap.Error(err))
			return nil, err
		}
		res.Success = len(valid)
		s.invalidateDashboard(ctx)
	}

	s.metrics.ObserveImport("product", res.Success, res.Failed)
	s.logger.Info("产品导入完成",
		zap.Int("total", res.Total), zap.Int("success", res.Success), zap.Int("failed", res.Failed))
	return res, nil
}

// Template 产品导入模板：模板页 + 主数据参考页
func (s *productService) Template(ctx context.Context) (*bytes.Buffer, string, error) {
	opts, err := s.Options(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productTemplateSheet); err != nil {
		return nil, "", err
	}
	example := [][]interface{}{{
		"Contoh Produk", "Deskripsi singkat produk",
		firstOption(opts.Categories), firstOption(opts.Segments), firstOption(opts.Stages),
		1500000, "2026-01-15", "PT Contoh",
	}}
	if err := writeSheetRows(f, productTemplateSheet, productImportHeader, example); err != nil {
		return nil, "", err
	}

	if _, err := f.NewSheet(productReferenceSheet); err != nil {
		return nil, "", err
	}
	refRows := make([][]interface{}, 0)
	for i := 0; i < max(len(opts.Categories), len(opts.Segments), len(opts.Stages)); i++ {
		refRows = append(refRows, []interface{}{
			optionAt(opts.Categories, i), optionAt(opts.Segments, i), optionAt(opts.Stages, i),
		})
	}
	if err := writeSheetRows(f, productReferenceSheet, []string{"Kategori", "Segmen", "Stage"}, refRows); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成产品导入模板失败", zap.Error(err))
		return nil, "", fmt.Errorf("生成 Excel 文件失败: %w", err)
	}
	return buf, "template_produk.xlsx", nil
}

func firstOption(items []dto.OptionItem) string {
	return optionAt(items, 0)
}

func optionAt(items []dto.OptionItem, i int) string {
	if i < len(items) {
		return items[i].Name
	}
	return ""
}

