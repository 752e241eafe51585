package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	pkgerrors "github.com/Tahatra21/solarhub-sub000/pkg/errors"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
	"github.com/Tahatra21/solarhub-sub000/pkg/storage"
)

// ProductPageSize 产品列表默认每页数量（卡片 3×3）
const ProductPageSize = 9

var (
	ErrProductNotFound    = errors.New("产品不存在")
	ErrProductNameExists  = errors.New("产品名称已存在")
	ErrProductRefNotFound = errors.New("类别、细分市场或阶段不存在")
	ErrAttachmentNotFound = errors.New("附件不存在")
	ErrStageDateOrder     = errors.New("阶段结束日期不能早于开始日期")
	ErrAttachmentMissing  = errors.New("请选择要上传的附件")
)

// ProductService 产品业务接口
type ProductService interface {
	List(ctx context.Context, req *dto.ProductListRequest) (*dto.PageResult[dto.ProductResponse], error)
	Options(ctx context.Context) (*dto.ProductOptionsResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.ProductDetailResponse, error)
	// Create 产品、附件与初始阶段历史在同一事务中写入
	Create(ctx context.Context, req *dto.ProductFormRequest, files []*multipart.FileHeader) (*dto.ProductDetailResponse, error)
	// Update 新附件追加；阶段变化时同一事务写入阶段历史
	Update(ctx context.Context, id int64, req *dto.ProductFormRequest, files []*multipart.FileHeader) (*dto.ProductDetailResponse, error)
	Delete(ctx context.Context, id int64) error

	ListAttachments(ctx context.Context, productID int64) ([]dto.AttachmentResponse, error)
	AddAttachment(ctx context.Context, productID int64, fh *multipart.FileHeader) (*dto.AttachmentResponse, error)
	DeleteAttachment(ctx context.Context, id int64) error

	// Import 从 xlsx 导入产品（按名称解析类别/细分/阶段）
	Import(ctx context.Context, reader io.Reader) (*dto.ImportResult, error)
	// Template 生成导入模板（含主数据参考工作表）
	Template(ctx context.Context) (*bytes.Buffer, string, error)
}

type productService struct {
	repo    *repository.Repository
	files   FileStore
	cache   Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewProductService 创建 ProductService 实例
func NewProductService(repo *repository.Repository, files FileStore, cache Cache, m *metrics.Metrics, logger *zap.Logger) ProductService {
	return &productService{repo: repo, files: files, cache: cache, metrics: m, logger: logger, now: time.Now}
}

// ────────────────────── 查询 ──────────────────────

func (s *productService) List(ctx context.Context, req *dto.ProductListRequest) (*dto.PageResult[dto.ProductResponse], error) {
	filter := repository.ProductListFilter{
		Search:     dto.TrimSearch(req.Search),
		CategoryID: req.CategoryID,
		SegmentID:  req.SegmentID,
		StageID:    req.StageID,
		Sort:       toSortSpec(req.SortRequest),
	}
	products, total, err := s.repo.Product.List(ctx, filter,
		req.GetOffset(ProductPageSize), req.GetPageSize(ProductPageSize))
	if err != nil {
		s.logger.Error("列出产品失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		list = append(list, *toProductResponse(&products[i]))
	}
	return newPage(list, total, req.PaginationRequest, ProductPageSize), nil
}

func (s *productService) Options(ctx context.Context) (*dto.ProductOptionsResponse, error) {
	categories, err := s.repo.Category.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询类别失败", zap.Error(err))
		return nil, err
	}
	segments, err := s.repo.Segment.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询细分市场失败", zap.Error(err))
		return nil, err
	}
	stages, err := s.repo.Stage.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询阶段失败", zap.Error(err))
		return nil, err
	}
	sortByLifecycle(stages)

	return &dto.ProductOptionsResponse{
		Categories: toOptions(categories),
		Segments:   toOptions(segments),
		Stages:     toOptions(stages),
	}, nil
}

func (s *productService) GetByID(ctx context.Context, id int64) (*dto.ProductDetailResponse, error) {
	product, err := s.get(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.Product.ListStageHistory(ctx, id)
	if err != nil {
		s.logger.Error("查询阶段历史失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	resp := &dto.ProductDetailResponse{
		ProductResponse: *toProductResponse(product),
		StageHistory:    make([]dto.StageHistoryResponse, 0, len(history)),
	}
	for _, h := range history {
		item := dto.StageHistoryResponse{ID: h.ID, ChangedAt: formatTime(h.ChangedAt)}
		if h.PreviousStage != nil {
			item.PreviousStage = h.PreviousStage.Name
		}
		if h.CurrentStage != nil {
			item.CurrentStage = h.CurrentStage.Name
		}
		resp.StageHistory = append(resp.StageHistory, item)
	}
	return resp, nil
}

// ────────────────────── 写操作 ──────────────────────

func (s *productService) Create(ctx context.Context, req *dto.ProductFormRequest, files []*multipart.FileHeader) (*dto.ProductDetailResponse, error) {
	product := &model.Product{}
	if err := s.applyForm(ctx, product, req, 0); err != nil {
		return nil, err
	}

	saved, err := s.saveAttachments(files)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Product.Create(ctx, product); err != nil {
			return err
		}
		if err := tx.Product.CreateAttachments(ctx, attachmentRows(product.ID, saved)); err != nil {
			return err
		}
		return tx.Product.CreateStageHistory(ctx, &model.StageHistory{
			ProductID:      product.ID,
			CurrentStageID: product.StageID,
			ChangedAt:      s.now(),
		})
	})
	if err != nil {
		s.removeFiles(saved)
		return nil, s.mapWriteError(err, "创建产品失败", 0)
	}

	s.invalidateDashboard(ctx)
	return s.GetByID(ctx, product.ID)
}

func (s *productService) Update(ctx context.Context, id int64, req *dto.ProductFormRequest, files []*multipart.FileHeader) (*dto.ProductDetailResponse, error) {
	product, err := s.get(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	prevStageID := product.StageID
	if err := s.applyForm(ctx, product, req, id); err != nil {
		return nil, err
	}
	product.Category, product.Segment, product.Stage, product.Attachments = nil, nil, nil, nil

	saved, err := s.saveAttachments(files)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Product.Update(ctx, product); err != nil {
			return err
		}
		if err := tx.Product.CreateAttachments(ctx, attachmentRows(id, saved)); err != nil {
			return err
		}
		if product.StageID == prevStageID {
			return nil
		}
		prev := prevStageID
		return tx.Product.CreateStageHistory(ctx, &model.StageHistory{
			ProductID:       id,
			PreviousStageID: &prev,
			CurrentStageID:  product.StageID,
			ChangedAt:       s.now(),
		})
	})
	if err != nil {
		s.removeFiles(saved)
		return nil, s.mapWriteError(err, "更新产品失败", id)
	}

	s.invalidateDashboard(ctx)
	return s.GetByID(ctx, id)
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	product, err := s.get(ctx, s.repo, id)
	if err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Product.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除产品失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	for _, att := range product.Attachments {
		s.removeFile(att.URL)
	}
	s.invalidateDashboard(ctx)
	return nil
}

// ────────────────────── 附件 ──────────────────────

func (s *productService) ListAttachments(ctx context.Context, productID int64) ([]dto.AttachmentResponse, error) {
	if _, err := s.get(ctx, s.repo, productID); err != nil {
		return nil, err
	}
	atts, err := s.repo.Product.ListAttachments(ctx, productID)
	if err != nil {
		s.logger.Error("查询附件失败", zap.Int64("product_id", productID), zap.Error(err))
		return nil, err
	}
	return toAttachmentResponses(atts), nil
}

func (s *productService) AddAttachment(ctx context.Context, productID int64, fh *multipart.FileHeader) (*dto.AttachmentResponse, error) {
	if fh == nil {
		return nil, ErrAttachmentMissing
	}
	if _, err := s.get(ctx, s.repo, productID); err != nil {
		return nil, err
	}

	saved, err := s.saveAttachments([]*multipart.FileHeader{fh})
	if err != nil {
		return nil, err
	}
	rows := attachmentRows(productID, saved)
	if err := s.repo.Product.CreateAttachments(ctx, rows); err != nil {
		s.removeFiles(saved)
		s.logger.Error("保存附件失败", zap.Int64("product_id", productID), zap.Error(err))
		return nil, err
	}
	return &toAttachmentResponses(rows)[0], nil
}

func (s *productService) DeleteAttachment(ctx context.Context, id int64) error {
	att, err := s.repo.Product.GetAttachment(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ErrAttachmentNotFound
		}
		s.logger.Error("查询附件失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if err := s.repo.Product.DeleteAttachment(ctx, id); err != nil {
		s.logger.Error("删除附件失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	s.removeFile(att.URL)
	return nil
}

// ── 内部辅助方法 ──

func (s *productService) get(ctx context.Context, repo *repository.Repository, id int64) (*model.Product, error) {
	product, err := repo.Product.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProductNotFound
		}
		s.logger.Error("查询产品失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return product, nil
}

// applyForm 校验表单并写入 product；excludeID 用于更新时的名称查重
func (s *productService) applyForm(ctx context.Context, p *model.Product, req *dto.ProductFormRequest, excludeID int64) error {
	name := strings.TrimSpace(req.Name)
	if _, err := s.repo.Product.GetByName(ctx, name, excludeID); err == nil {
		return ErrProductNameExists
	} else if !isNotFound(err) {
		return err
	}

	refs := []struct {
		repo repository.MasterDataRepository
		id   int64
	}{
		{s.repo.Category, req.CategoryID},
		{s.repo.Segment, req.SegmentID},
		{s.repo.Stage, req.StageID},
	}
	for _, ref := range refs {
		if _, err := ref.repo.GetByID(ctx, ref.id); err != nil {
			if isNotFound(err) {
				return ErrProductRefNotFound
			}
			return err
		}
	}

	launch, err := parseOptionalDate(req.LaunchDate)
	if err != nil {
		return err
	}
	stageStart, err := parseOptionalDate(req.StageStartDate)
	if err != nil {
		return err
	}
	stageEnd, err := parseOptionalDate(req.StageEndDate)
	if err != nil {
		return err
	}
	if stageStart != nil && stageEnd != nil && stageEnd.Before(*stageStart) {
		return ErrStageDateOrder
	}

	p.Name = name
	p.Description = strings.TrimSpace(req.Description)
	p.CategoryID = req.CategoryID
	p.SegmentID = req.SegmentID
	p.StageID = req.StageID
	p.Price = req.Price
	p.LaunchDate = launch
	p.Customer = strings.TrimSpace(req.Customer)
	p.StageStartDate = stageStart
	p.StageEndDate = stageEnd
	return nil
}

// saveAttachments 逐个保存上传文件，任一失败时回收已保存的文件
func (s *productService) saveAttachments(files []*multipart.FileHeader) ([]*storage.File, error) {
	saved := make([]*storage.File, 0, len(files))
	for _, fh := range files {
		f, err := s.files.Save("attachments", fh, storage.AttachmentRule)
		if err != nil {
			s.removeFiles(saved)
			if !isUploadError(err) {
				s.logger.Error("保存附件失败", zap.String("filename", fh.Filename), zap.Error(err))
			}
			return nil, err
		}
		saved = append(saved, f)
	}
	return saved, nil
}

func (s *productService) removeFiles(files []*storage.File) {
	for _, f := range files {
		s.removeFile(f.URL)
	}
}

func (s *productService) removeFile(url string) {
	if err := s.files.Remove(url); err != nil {
		s.logger.Warn("删除附件文件失败", zap.String("url", url), zap.Error(err))
	}
}

func (s *productService) mapWriteError(err error, msg string, id int64) error {
	switch {
	case pkgerrors.IsUniqueViolation(err):
		return ErrProductNameExists
	case pkgerrors.IsForeignKeyViolation(err):
		return ErrProductRefNotFound
	}
	s.logger.Error(msg, zap.Int64("id", id), zap.Error(err))
	return err
}

// invalidateDashboard 产品变更后清理仪表盘缓存
func (s *productService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, dashboardCachePrefix); err != nil {
		s.logger.Warn("清理仪表盘缓存失败", zap.Error(err))
	}
}

func attachmentRows(productID int64, files []*storage.File) []model.ProductAttachment {
	rows := make([]model.ProductAttachment, 0, len(files))
	for _, f := range files {
		rows = append(rows, model.ProductAttachment{
			ProductID: productID,
			Name:      f.Name,
			URL:       f.URL,
			Size:      f.Size,
			MimeType:  f.MimeType,
		})
	}
	return rows
}

func toAttachmentResponses(atts []model.ProductAttachment) []dto.AttachmentResponse {
	list := make([]dto.AttachmentResponse, 0, len(atts))
	for _, a := range atts {
		list = append(list, dto.AttachmentResponse{
			ID:        a.ID,
			ProductID: a.ProductID,
			Name:      a.Name,
			URL:       a.URL,
			Size:      a.Size,
			MimeType:  a.MimeType,
			CreatedAt: formatTime(a.CreatedAt),
		})
	}
	return list
}

func toProductResponse(p *model.Product) *dto.ProductResponse {
	resp := &dto.ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		CategoryID:     p.CategoryID,
		SegmentID:      p.SegmentID,
		StageID:        p.StageID,
		Price:          p.Price,
		LaunchDate:     model.FormatDate(p.LaunchDate),
		Customer:       p.Customer,
		StageStartDate: model.FormatDate(p.StageStartDate),
		StageEndDate:   model.FormatDate(p.StageEndDate),
		Attachments:    toAttachmentResponses(p.Attachments),
		CreatedAt:      formatTime(p.CreatedAt),
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
	if p.Category != nil {
		resp.Category = p.Category.Name
	}
	if p.Segment != nil {
		resp.Segment = p.Segment.Name
	}
	if p.Stage != nil {
		resp.Stage = p.Stage.Name
	}
	return resp
}
