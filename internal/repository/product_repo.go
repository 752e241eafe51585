package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
)

// ProductListFilter 产品列表筛选
type ProductListFilter struct {
	Search     string
	CategoryID int64
	SegmentID  int64
	StageID    int64
	Sort       SortSpec
}

// StageSegmentCount 阶段 × 细分 计数
type StageSegmentCount struct {
	StageID   int64
	SegmentID int64
	Count     int64
}

// ProductRepository 产品、附件与阶段历史数据访问接口
type ProductRepository interface {
	// ── 产品 ──
	Create(ctx context.Context, p *model.Product) error
	CreateBatch(ctx context.Context, products []model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	// GetByName 精确匹配，excludeID > 0 时排除该记录
	GetByName(ctx context.Context, name string, excludeID int64) (*model.Product, error)
	List(ctx context.Context, filter ProductListFilter, offset, limit int) ([]model.Product, int64, error)
	// ListAll 全量产品（预加载类别、细分、阶段），filter 的 ID 条件可选
	ListAll(ctx context.Context, filter ProductListFilter) ([]model.Product, error)
	ListOptions(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	// Delete 删除产品及其附件行、阶段历史、开发历史；调用方负责事务
	Delete(ctx context.Context, id int64) error
	ExistingNames(ctx context.Context, names []string) (map[string]bool, error)
	CountByStageAndSegment(ctx context.Context) ([]StageSegmentCount, error)
	LatestUpdate(ctx context.Context) (*time.Time, error)

	// ── 附件 ──
	CreateAttachments(ctx context.Context, atts []model.ProductAttachment) error
	ListAttachments(ctx context.Context, productID int64) ([]model.ProductAttachment, error)
	GetAttachment(ctx context.Context, id int64) (*model.ProductAttachment, error)
	DeleteAttachment(ctx context.Context, id int64) error

	// ── 阶段历史 ──
	CreateStageHistory(ctx context.Context, h *model.StageHistory) error
	ListStageHistory(ctx context.Context, productID int64) ([]model.StageHistory, error)
	// ListAllStageHistories 按产品、时间升序返回全部历史（时间线与转换速度分析用）
	ListAllStageHistories(ctx context.Context) ([]model.StageHistory, error)
}

type productRepo struct {
	db *gorm.DB
}

// NewProductRepo 创建 ProductRepository 实例
func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

var productSortColumns = map[string]string{
	"id":          "products.id",
	"name":        "products.name",
	"category":    "categories.name",
	"segment":     "segments.name",
	"stage":       "stages.name",
	"price":       "products.price",
	"launch_date": "products.launch_date",
	"created_at":  "products.created_at",
}

// withRefs 预加载名称类关联
func withRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Segment").Preload("Stage")
}

func (r *productRepo) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Joins("LEFT JOIN segments ON segments.id = products.segment_id").
		Joins("LEFT JOIN stages ON stages.id = products.stage_id")
}

func applyProductFilter(db *gorm.DB, f ProductListFilter) *gorm.DB {
	db = searchAny(db, f.Search,
		"products.name", "products.description",
		"categories.name", "segments.name", "stages.name")
	db = eqIfSet(db, "products.category_id", f.CategoryID)
	db = eqIfSet(db, "products.segment_id", f.SegmentID)
	db = eqIfSet(db, "products.stage_id", f.StageID)
	return db
}

// ────────────────────── 产品 ──────────────────────

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Omit("Category", "Segment", "Stage", "Attachments").Create(p).Error
}

func (r *productRepo) CreateBatch(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Omit("Category", "Segment", "Stage", "Attachments").
		CreateInBatches(products, 100).Error
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := withRefs(r.db.WithContext(ctx)).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetByName(ctx context.Context, name string, excludeID int64) (*model.Product, error) {
	var p model.Product
	db := r.db.WithContext(ctx).Where("name = ?", name)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductListFilter, offset, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := applyProductFilter(r.joined(ctx), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Preload 对当前页所有产品的附件只发一次 IN 查询
	err := orderBy(db, filter.Sort, productSortColumns, "id", "products.id").
		Select("products.*").
		Scopes(withRefs).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Offset(offset).Limit(limit).
		Find(&products).Error
	return products, total, err
}

func (r *productRepo) ListAll(ctx context.Context, filter ProductListFilter) ([]model.Product, error) {
	var products []model.Product
	err := orderBy(applyProductFilter(r.joined(ctx), filter), filter.Sort, productSortColumns, "name", "products.id").
		Select("products.*").
		Scopes(withRefs).
		Find(&products).Error
	return products, err
}

func (r *productRepo) ListOptions(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Select("id", "name").
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).
		Omit("Category", "Segment", "Stage", "Attachments", "CreatedAt").
		Save(p).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&model.ProductAttachment{}).Error; err != nil {
		return err
	}
	if err := db.Where("product_id = ?", id).Delete(&model.StageHistory{}).Error; err != nil {
		return err
	}
	if err := db.Where("product_id = ?", id).Delete(&model.DevHistory{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Product{}, id).Error
}

func (r *productRepo) ExistingNames(ctx context.Context, names []string) (map[string]bool, error) {
	result := make(map[string]bool, len(names))
	if len(names) == 0 {
		return result, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("name IN ?", names).
		Pluck("name", &found).Error
	if err != nil {
		return nil, err
	}
	for _, n := range found {
		result[n] = true
	}
	return result, nil
}

func (r *productRepo) CountByStageAndSegment(ctx context.Context) ([]StageSegmentCount, error) {
	var rows []StageSegmentCount
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("stage_id, segment_id, COUNT(*) AS count").
		Group("stage_id, segment_id").
		Scan(&rows).Error
	return rows, err
}

func (r *productRepo) LatestUpdate(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	row := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("MAX(updated_at)").
		Row()
	if err := row.Scan(&latest); err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// ────────────────────── 附件 ──────────────────────

func (r *productRepo) CreateAttachments(ctx context.Context, atts []model.ProductAttachment) error {
	if len(atts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&atts).Error
}

func (r *productRepo) ListAttachments(ctx context.Context, productID int64) ([]model.ProductAttachment, error) {
	var atts []model.ProductAttachment
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&atts).Error
	return atts, err
}

func (r *productRepo) GetAttachment(ctx context.Context, id int64) (*model.ProductAttachment, error) {
	var att model.ProductAttachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&att).Error; err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *productRepo) DeleteAttachment(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.ProductAttachment{}, id).Error
}

// ────────────────────── 阶段历史 ──────────────────────

func (r *productRepo) CreateStageHistory(ctx context.Context, h *model.StageHistory) error {
	return r.db.WithContext(ctx).Omit("PreviousStage", "CurrentStage").Create(h).Error
}

func (r *productRepo) ListStageHistory(ctx context.Context, productID int64) ([]model.StageHistory, error) {
	var rows []model.StageHistory
	err := r.db.WithContext(ctx).
		Preload("PreviousStage").
		Preload("CurrentStage").
		Where("product_id = ?", productID).
		Order("changed_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *productRepo) ListAllStageHistories(ctx context.Context) ([]model.StageHistory, error) {
	var rows []model.StageHistory
	err := r.db.WithContext(ctx).
		Preload("PreviousStage").
		Preload("CurrentStage").
		Order("product_id ASC, changed_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
