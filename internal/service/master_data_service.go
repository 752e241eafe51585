package service

import (
	"context"
	"errors"
	"mime/multipart"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	pkgerrors "github.com/Tahatra21/solarhub-sub000/pkg/errors"
	"github.com/Tahatra21/solarhub-sub000/pkg/storage"
)

// ═══════════════════════════════════════════════════════════════
// 主数据服务（类别 / 细分 / 阶段）
//
// 设计说明：
//   三类主数据结构和规则一致，区别只在表、业务错误和图标目录。
//   masterKind 描述这些差异，同一份实现按 kind 实例化三次。
//   阶段额外受阶段间隔引用约束，列表与选项按生命周期顺序排列。
// ═══════════════════════════════════════════════════════════════

var (
	ErrCategoryNotFound   = errors.New("类别不存在")
	ErrCategoryNameExists = errors.New("类别名称已存在")
	ErrCategoryInUse      = errors.New("类别已被产品使用，无法删除")

	ErrSegmentNotFound   = errors.New("细分市场不存在")
	ErrSegmentNameExists = errors.New("细分市场名称已存在")
	ErrSegmentInUse      = errors.New("细分市场已被产品使用，无法删除")

	ErrStageNotFound   = errors.New("阶段不存在")
	ErrStageNameExists = errors.New("阶段名称已存在")
	ErrStageInUse      = errors.New("阶段已被产品或阶段间隔使用，无法删除")

	ErrInvalidIconType = errors.New("图标类型必须为 light 或 dark")
)

// 图标类型
const (
	IconLight = "light"
	IconDark  = "dark"
)

// masterKind 区分三类主数据
type masterKind struct {
	name        string // 日志用
	iconDir     string
	lifecycle   bool // 按生命周期顺序排序
	errNotFound error
	errExists   error
	errInUse    error
}

var (
	kindCategory = masterKind{
		name: "category", iconDir: "icons/category",
		errNotFound: ErrCategoryNotFound, errExists: ErrCategoryNameExists, errInUse: ErrCategoryInUse,
	}
	kindSegment = masterKind{
		name: "segment", iconDir: "icons/segment",
		errNotFound: ErrSegmentNotFound, errExists: ErrSegmentNameExists, errInUse: ErrSegmentInUse,
	}
	kindStage = masterKind{
		name: "stage", iconDir: "icons/stage", lifecycle: true,
		errNotFound: ErrStageNotFound, errExists: ErrStageNameExists, errInUse: ErrStageInUse,
	}
)

// MasterDataService 类别、细分、阶段共用的业务接口
type MasterDataService interface {
	List(ctx context.Context, req *dto.NameListRequest) (*dto.PageResult[dto.MasterDataResponse], error)
	Options(ctx context.Context) ([]dto.OptionItem, error)
	GetByID(ctx context.Context, id int64) (*dto.MasterDataResponse, error)
	Create(ctx context.Context, req *dto.MasterDataRequest) (*dto.MasterDataResponse, error)
	Update(ctx context.Context, id int64, req *dto.MasterDataRequest) (*dto.MasterDataResponse, error)
	Delete(ctx context.Context, id int64) error
	// UploadIcon 保存图标文件并返回公开 URL，由随后的创建/更新请求引用
	UploadIcon(ctx context.Context, iconType string, fh *multipart.FileHeader) (*dto.IconUploadResponse, error)
}

type masterDataService struct {
	kind   masterKind
	repo   *repository.Repository
	files  FileStore
	cache  Cache
	logger *zap.Logger
}

// NewCategoryService 类别服务
func NewCategoryService(repo *repository.Repository, files FileStore, cache Cache, logger *zap.Logger) MasterDataService {
	return &masterDataService{kind: kindCategory, repo: repo, files: files, cache: cache, logger: logger}
}

// NewSegmentService 细分市场服务
func NewSegmentService(repo *repository.Repository, files FileStore, cache Cache, logger *zap.Logger) MasterDataService {
	return &masterDataService{kind: kindSegment, repo: repo, files: files, cache: cache, logger: logger}
}

// NewStageService 生命周期阶段服务
func NewStageService(repo *repository.Repository, files FileStore, cache Cache, logger *zap.Logger) MasterDataService {
	return &masterDataService{kind: kindStage, repo: repo, files: files, cache: cache, logger: logger}
}

// table 返回当前 kind 对应的仓储（事务内需传入 txRepo）
func (s *masterDataService) table(r *repository.Repository) repository.MasterDataRepository {
	switch s.kind.name {
	case kindSegment.name:
		return r.Segment
	case kindStage.name:
		return r.Stage
	default:
		return r.Category
	}
}

// ────────────────────── 查询 ──────────────────────

func (s *masterDataService) List(ctx context.Context, req *dto.NameListRequest) (*dto.PageResult[dto.MasterDataResponse], error) {
	sortSpec := toSortSpec(req.SortRequest)
	if sortSpec.Field == "" && s.kind.lifecycle {
		sortSpec.Field = "lifecycle"
	}
	filter := repository.NameListFilter{Search: dto.TrimSearch(req.Search), Sort: sortSpec}

	items, total, err := s.table(s.repo).List(ctx, filter,
		req.GetOffset(dto.DefaultPageSize), req.GetPageSize(dto.DefaultPageSize))
	if err != nil {
		s.logger.Error("列出主数据失败", zap.String("kind", s.kind.name), zap.Error(err))
		return nil, err
	}

	counts, err := s.table(s.repo).CountProductsGrouped(ctx)
	if err != nil {
		s.logger.Error("统计主数据产品数失败", zap.String("kind", s.kind.name), zap.Error(err))
		return nil, err
	}

	list := make([]dto.MasterDataResponse, 0, len(items))
	for i := range items {
		list = append(list, *toMasterDataResponse(&items[i], counts[items[i].ID]))
	}
	return newPage(list, total, req.PaginationRequest, dto.DefaultPageSize), nil
}

func (s *masterDataService) Options(ctx context.Context) ([]dto.OptionItem, error) {
	items, err := s.table(s.repo).ListAll(ctx)
	if err != nil {
		s.logger.Error("查询主数据选项失败", zap.String("kind", s.kind.name), zap.Error(err))
		return nil, err
	}
	if s.kind.lifecycle {
		sortByLifecycle(items)
	}
	return toOptions(items), nil
}

func (s *masterDataService) GetByID(ctx context.Context, id int64) (*dto.MasterDataResponse, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.table(s.repo).CountProducts(ctx, id)
	if err != nil {
		s.logger.Error("统计主数据产品数失败", zap.String("kind", s.kind.name), zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toMasterDataResponse(item, count), nil
}

// ────────────────────── 写操作 ──────────────────────

func (s *masterDataService) Create(ctx context.Context, req *dto.MasterDataRequest) (*dto.MasterDataResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, 0); err != nil {
		return nil, err
	}

	item := &model.MasterData{
		Name:      name,
		IconLight: strings.TrimSpace(req.IconLight),
		IconDark:  strings.TrimSpace(req.IconDark),
	}
	if err := s.table(s.repo).Create(ctx, item); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, s.kind.errExists
		}
		s.logger.Error("创建主数据失败", zap.String("kind", s.kind.name), zap.String("name", name), zap.Error(err))
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return toMasterDataResponse(item, 0), nil
}

func (s *masterDataService) Update(ctx context.Context, id int64, req *dto.MasterDataRequest) (*dto.MasterDataResponse, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, id); err != nil {
		return nil, err
	}

	oldLight, oldDark := item.IconLight, item.IconDark
	item.Name = name
	item.IconLight = strings.TrimSpace(req.IconLight)
	item.IconDark = strings.TrimSpace(req.IconDark)
	if err := s.table(s.repo).Update(ctx, item); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, s.kind.errExists
		}
		s.logger.Error("更新主数据失败", zap.String("kind", s.kind.name), zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	if oldLight != item.IconLight {
		s.removeIcon(ctx, oldLight)
	}
	if oldDark != item.IconDark {
		s.removeIcon(ctx, oldDark)
	}

	s.invalidateDashboard(ctx)
	return s.GetByID(ctx, id)
}

func (s *masterDataService) Delete(ctx context.Context, id int64) error {
	item, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.table(s.repo).CountProducts(ctx, id)
	if err != nil {
		s.logger.Error("统计主数据产品数失败", zap.String("kind", s.kind.name), zap.Int64("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return s.kind.errInUse
	}
	if s.kind.lifecycle {
		n, err := s.repo.Interval.CountByStage(ctx, id)
		if err != nil {
			s.logger.Error("统计阶段间隔失败", zap.Int64("id", id), zap.Error(err))
			return err
		}
		if n > 0 {
			return s.kind.errInUse
		}
	}

	if err := s.table(s.repo).Delete(ctx, id); err != nil {
		if pkgerrors.IsForeignKeyViolation(err) {
			return s.kind.errInUse
		}
		s.logger.Error("删除主数据失败", zap.String("kind", s.kind.name), zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.removeIcon(ctx, item.IconLight)
	s.removeIcon(ctx, item.IconDark)
	s.invalidateDashboard(ctx)
	return nil
}

func (s *masterDataService) UploadIcon(_ context.Context, iconType string, fh *multipart.FileHeader) (*dto.IconUploadResponse, error) {
	iconType = strings.ToLower(strings.TrimSpace(iconType))
	if iconType != IconLight && iconType != IconDark {
		return nil, ErrInvalidIconType
	}

	f, err := s.files.Save(s.kind.iconDir, fh, storage.IconRule)
	if err != nil {
		if !isUploadError(err) {
			s.logger.Error("保存图标失败", zap.String("kind", s.kind.name), zap.Error(err))
		}
		return nil, err
	}
	return &dto.IconUploadResponse{URL: f.URL, Type: iconType}, nil
}

// ── 内部辅助方法 ──

func (s *masterDataService) get(ctx context.Context, id int64) (*model.MasterData, error) {
	item, err := s.table(s.repo).GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, s.kind.errNotFound
		}
		s.logger.Error("查询主数据失败", zap.String("kind", s.kind.name), zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (s *masterDataService) checkName(ctx context.Context, name string, excludeID int64) error {
	if _, err := s.table(s.repo).GetByName(ctx, name, excludeID); err == nil {
		return s.kind.errExists
	} else if !isNotFound(err) {
		return err
	}
	return nil
}

// removeIcon 删除不再引用的图标文件，失败只记录日志
// 只处理本类图标目录下的文件，且同类其他记录仍引用时保留
func (s *masterDataService) removeIcon(ctx context.Context, url string) {
	if !s.ownsIcon(url) {
		return
	}
	items, err := s.table(s.repo).ListAll(ctx)
	if err != nil {
		s.logger.Warn("检查图标引用失败，保留文件", zap.String("url", url), zap.Error(err))
		return
	}
	for _, it := range items {
		if it.IconLight == url || it.IconDark == url {
			return
		}
	}
	if err := s.files.Remove(url); err != nil {
		s.logger.Warn("删除图标文件失败", zap.String("url", url), zap.Error(err))
	}
}

// ownsIcon URL 是否位于本类图标目录（/<prefix>/icons/<kind>/<file>）
func (s *masterDataService) ownsIcon(url string) bool {
	if url == "" || strings.Contains(url, "..") {
		return false
	}
	i := strings.Index(url, "/"+s.kind.iconDir+"/")
	if i < 0 {
		return false
	}
	name := url[i+len(s.kind.iconDir)+2:]
	return name != "" && !strings.Contains(name, "/")
}

func (s *masterDataService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, dashboardCachePrefix); err != nil {
		s.logger.Warn("清理仪表盘缓存失败", zap.String("kind", s.kind.name), zap.Error(err))
	}
}

func toMasterDataResponse(item *model.MasterData, productCount int64) *dto.MasterDataResponse {
	return &dto.MasterDataResponse{
		ID:           item.ID,
		Name:         item.Name,
		IconLight:    item.IconLight,
		IconDark:     item.IconDark,
		ProductCount: productCount,
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
}

func toOptions(items []model.MasterData) []dto.OptionItem {
	opts := make([]dto.OptionItem, 0, len(items))
	for _, it := range items {
		opts = append(opts, dto.OptionItem{ID: it.ID, Name: it.Name})
	}
	return opts
}

// sortByLifecycle 阶段按生命周期排序，同序按名称
func sortByLifecycle(stages []model.MasterData) {
	sort.SliceStable(stages, func(i, j int) bool {
		oi, oj := model.StageOrder(stages[i].Name), model.StageOrder(stages[j].Name)
		if oi != oj {
			return oi < oj
		}
		return stages[i].Name < stages[j].Name
	})
}

// isUploadError 上传校验类错误（返回 400，无需记录错误日志）
func isUploadError(err error) bool {
	return errors.Is(err, storage.ErrFileTooLarge) ||
		errors.Is(err, storage.ErrFileTypeNotAllowed) ||
		errors.Is(err, storage.ErrEmptyFile)
}
