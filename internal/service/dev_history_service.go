package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	pkgerrors "github.com/Tahatra21/solarhub-sub000/pkg/errors"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
)

var (
	ErrDevHistoryNotFound = errors.New("开发历史不存在")
	ErrDevDateOrder       = errors.New("结束日期不能早于开始日期")
	ErrDevStatusInvalid   = errors.New("状态必须为 Development、Testing、Released 或 Deprecated")
)

// DevHistoryService 产品开发历史业务接口
type DevHistoryService interface {
	List(ctx context.Context, req *dto.DevHistoryListRequest) (*dto.PageResult[dto.DevHistoryResponse], error)
	ProductOptions(ctx context.Context) ([]dto.OptionItem, error)
	GetByID(ctx context.Context, id int64) (*dto.DevHistoryResponse, error)
	Create(ctx context.Context, req *dto.DevHistoryRequest) (*dto.DevHistoryResponse, error)
	Update(ctx context.Context, id int64, req *dto.DevHistoryRequest) (*dto.DevHistoryResponse, error)
	Delete(ctx context.Context, id int64) error
	Import(ctx context.Context, reader io.Reader) (*dto.ImportResult, error)
	Template(ctx context.Context) (*bytes.Buffer, string, error)
}

type devHistoryService struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDevHistoryService 创建 DevHistoryService 实例
func NewDevHistoryService(repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) DevHistoryService {
	return &devHistoryService{repo: repo, metrics: m, logger: logger}
}

func (s *devHistoryService) List(ctx context.Context, req *dto.DevHistoryListRequest) (*dto.PageResult[dto.DevHistoryResponse], error) {
	filter := repository.DevHistoryListFilter{
		Search:    dto.TrimSearch(req.Search),
		ProductID: req.ProductID,
		Status:    req.Status,
		Sort:      toSortSpec(req.SortRequest),
	}
	rows, total, err := s.repo.DevHistory.List(ctx, filter,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出开发历史失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.DevHistoryResponse, 0, len(rows))
	for i := range rows {
		list = append(list, *toDevHistoryResponse(&rows[i]))
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *devHistoryService) ProductOptions(ctx context.Context) ([]dto.OptionItem, error) {
	products, err := s.repo.Product.ListOptions(ctx)
	if err != nil {
		s.logger.Error("查询产品选项失败", zap.Error(err))
		return nil, err
	}
	items := make([]dto.OptionItem, 0, len(products))
	for _, p := range products {
		items = append(items, dto.OptionItem{ID: p.ID, Name: p.Name})
	}
	return items, nil
}

func (s *devHistoryService) GetByID(ctx context.Context, id int64) (*dto.DevHistoryResponse, error) {
	h, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDevHistoryResponse(h), nil
}

func (s *devHistoryService) Create(ctx context.Context, req *dto.DevHistoryRequest) (*dto.DevHistoryResponse, error) {
	h := &model.DevHistory{}
	if err := s.apply(ctx, h, req); err != nil {
		return nil, err
	}
	if err := s.repo.DevHistory.Create(ctx, h); err != nil {
		if pkgerrors.IsForeignKeyViolation(err) {
			return nil, ErrProductNotFound
		}
		s.logger.Error("创建开发历史失败", zap.Int64("product_id", h.ProductID), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, h.ID)
}

func (s *devHistoryService) Update(ctx context.Context, id int64, req *dto.DevHistoryRequest) (*dto.DevHistoryResponse, error) {
	h, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, h, req); err != nil {
		return nil, err
	}
	h.Product = nil
	if err := s.repo.DevHistory.Update(ctx, h); err != nil {
		if pkgerrors.IsForeignKeyViolation(err) {
			return nil, ErrProductNotFound
		}
		s.logger.Error("更新开发历史失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *devHistoryService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DevHistory.Delete(ctx, id); err != nil {
		s.logger.Error("删除开发历史失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *devHistoryService) get(ctx context.Context, id int64) (*model.DevHistory, error) {
	h, err := s.repo.DevHistory.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrDevHistoryNotFound
		}
		s.logger.Error("查询开发历史失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return h, nil
}

func (s *devHistoryService) apply(ctx context.Context, h *model.DevHistory, req *dto.DevHistoryRequest) error {
	if _, err := s.repo.Product.GetByID(ctx, req.ProductID); err != nil {
		if isNotFound(err) {
			return ErrProductNotFound
		}
		return err
	}
	status, ok := normalizeDevStatus(req.Status)
	if !ok {
		return ErrDevStatusInvalid
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil || start == nil {
		return ErrInvalidDate
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return err
	}
	if end != nil && end.Before(*start) {
		return ErrDevDateOrder
	}

	h.ProductID = req.ProductID
	h.WorkType = strings.TrimSpace(req.WorkType)
	h.StartDate = *start
	h.EndDate = end
	h.Version = strings.TrimSpace(req.Version)
	h.Description = strings.TrimSpace(req.Description)
	h.Status = status
	return nil
}

// normalizeDevStatus 不区分大小写匹配合法状态，返回规范写法
func normalizeDevStatus(s string) (string, bool) {
	for _, st := range model.DevStatuses {
		if strings.EqualFold(strings.TrimSpace(s), st) {
			return st, true
		}
	}
	return "", false
}

func toDevHistoryResponse(h *model.DevHistory) *dto.DevHistoryResponse {
	resp := &dto.DevHistoryResponse{
		ID:          h.ID,
		ProductID:   h.ProductID,
		WorkType:    h.WorkType,
		StartDate:   model.FormatDate(&h.StartDate),
		EndDate:     model.FormatDate(h.EndDate),
		Version:     h.Version,
		Description: h.Description,
		Status:      h.Status,
		CreatedAt:   formatTime(h.CreatedAt),
		UpdatedAt:   formatTime(h.UpdatedAt),
	}
	if h.Product != nil {
		resp.ProductName = h.Product.Name
	}
	return resp
}

// ────────────────────── Excel 导入 ──────────────────────

const (
	devHistoryTemplateSheet  = "Template Dev History"
	devHistoryReferenceSheet = "Daftar Produk"
)

var devHistoryImportHeader = []string{
	"ID Produk", "Tipe Pekerjaan", "Tanggal Mulai", "Tanggal Akhir", "Version", "Deskripsi", "Status",
}

var devHistoryImportAliases = map[string][]string{
	"product_id":  {"ID Produk", "product_id"},
	"work_type":   {"Tipe Pekerjaan", "work_type"},
	"start_date":  {"Tanggal Mulai", "start_date"},
	"end_date":    {"Tanggal Akhir", "end_date"},
	"version":     {"Version", "Versi"},
	"description": {"Deskripsi", "description"},
	"status":      {"Status"},
}

func (s *devHistoryService) Import(ctx context.Context, reader io.Reader) (*dto.ImportResult, error) {
	sheet, err := readImportSheet(reader, devHistoryTemplateSheet, devHistoryImportAliases,
		"product_id", "work_type", "start_date", "status")
	if err != nil {
		return nil, err
	}

	products, err := s.repo.Product.ListOptions(ctx)
	if err != nil {
		s.logger.Error("查询产品选项失败", zap.Error(err))
		return nil, err
	}
	productIDs := make(map[int64]bool, len(products))
	for _, p := range products {
		productIDs[p.ID] = true
	}

	res := &dto.ImportResult{Total: len(sheet.rows)}
	rowErr := func(line int, format string, args ...interface{}) {
		addRowError(res, line, "Baris %d: %s", line, fmt.Sprintf(format, args...))
	}

	var valid []model.DevHistory
	for _, row := range sheet.rows {
		rawID := row.get(sheet, "product_id")
		productID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || productID <= 0 {
			rowErr(row.line, "ID Produk 无效 (%s)", rawID)
			continue
		}
		if !productIDs[productID] {
			rowErr(row.line, "产品 ID %d 不存在", productID)
			continue
		}
		workType := row.get(sheet, "work_type")
		if workType == "" {
			rowErr(row.line, "Tipe Pekerjaan 不能为空")
			continue
		}
		start, err := parseImportDate(row.get(sheet, "start_date"))
		if err != nil || start == nil {
			rowErr(row.line, "Tanggal Mulai 格式错误 (%s)", row.get(sheet, "start_date"))
			continue
		}
		end, err := parseImportDate(row.get(sheet, "end_date"))
		if err != nil {
			rowErr(row.line, "Tanggal Akhir 格式错误 (%s)", row.get(sheet, "end_date"))
			continue
		}
		if end != nil && end.Before(*start) {
			rowErr(row.line, "Tanggal Akhir 不能早于 Tanggal Mulai")
			continue
		}
		status, ok := normalizeDevStatus(row.get(sheet, "status"))
		if !ok {
			rowErr(row.line, "Status 无效 (%s)", row.get(sheet, "status"))
			continue
		}

		valid = append(valid, model.DevHistory{
			ProductID:   productID,
			WorkType:    workType,
			StartDate:   *start,
			EndDate:     end,
			Version:     row.get(sheet, "version"),
			Description: row.get(sheet, "description"),
			Status:      status,
		})
	}

	if len(valid) > 0 {
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			return tx.DevHistory.CreateBatch(ctx, valid)
		})
		if err != nil {
			s.logger.Error("批量导入开发历史失败", zap.Int("rows", len(valid)), zap.Error(err))
			return nil, err
		}
		res.Success = len(valid)
	}

	s.metrics.ObserveImport("dev_history", res.Success, res.Failed)
	return res, nil
}

func (s *devHistoryService) Template(ctx context.Context) (*bytes.Buffer, string, error) {
	products, err := s.ProductOptions(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", devHistoryTemplateSheet); err != nil {
		return nil, "", err
	}
	var exampleID int64 = 1
	if len(products) > 0 {
		exampleID = products[0].ID
	}
	today := time.Now().Format(model.DateLayout)
	example := [][]interface{}{{
		exampleID, "Feature Development", today, "", "1.0.0", "Deskripsi pekerjaan", model.DevStatusDevelopment,
	}}
	if err := writeSheetRows(f, devHistoryTemplateSheet, devHistoryImportHeader, example); err != nil {
		return nil, "", err
	}

	if _, err := f.NewSheet(devHistoryReferenceSheet); err != nil {
		return nil, "", err
	}
	refRows := make([][]interface{}, 0, len(products))
	for _, p := range products {
		refRows = append(refRows, []interface{}{p.ID, p.Name})
	}
	if err := writeSheetRows(f, devHistoryReferenceSheet, []string{"ID Produk", "Nama Produk"}, refRows); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成开发历史导入模板失败", zap.Error(err))
		return nil, "", fmt.Errorf("生成 Excel 文件失败: %w", err)
	}
	return buf, "template_dev_history.xlsx", nil
}
