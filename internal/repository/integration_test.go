//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/pkg/database"
	pkgerrors "github.com/Tahatra21/solarhub-sub000/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=plc password=plc_password dbname=plc_test sslmode=disable TimeZone=Asia/Jakarta"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取底层连接失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// setupMasterData 创建一组类别 / 细分 / 阶段并返回清理函数
func setupMasterData(t *testing.T, repo *repository.Repository) (cat, seg, stage *model.MasterData, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	cat = &model.MasterData{Name: uniqueName("cat")}
	seg = &model.MasterData{Name: uniqueName("seg")}
	stage = &model.MasterData{Name: uniqueName("stage")}
	if err := repo.Category.Create(ctx, cat); err != nil {
		t.Fatalf("创建类别失败: %v", err)
	}
	if err := repo.Segment.Create(ctx, seg); err != nil {
		t.Fatalf("创建细分失败: %v", err)
	}
	if err := repo.Stage.Create(ctx, stage); err != nil {
		t.Fatalf("创建阶段失败: %v", err)
	}

	cleanup = func() {
		testDB.Exec("DELETE FROM products WHERE category_id = ?", cat.ID)
		testDB.Exec("DELETE FROM categories WHERE id = ?", cat.ID)
		testDB.Exec("DELETE FROM segments WHERE id = ?", seg.ID)
		testDB.Exec("DELETE FROM stages WHERE id = ?", stage.ID)
	}
	return
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	cat, seg, stage, cleanup := setupMasterData(t, repo)
	defer cleanup()
	ctx := context.Background()

	boom := errors.New("boom")
	var created *model.Product
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		created = &model.Product{Name: uniqueName("p"), CategoryID: cat.ID, SegmentID: seg.ID, StageID: stage.ID}
		if err := tx.Product.Create(ctx, created); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望返回 fn 的错误，实际: %v", err)
	}

	if _, err := repo.Product.GetByID(ctx, created.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatal("期望回滚后查不到产品")
	}
}

func TestTransaction_CommitWithStageHistory(t *testing.T) {
	repo := repository.NewRepository(testDB)
	cat, seg, stage, cleanup := setupMasterData(t, repo)
	defer cleanup()
	ctx := context.Background()

	p := &model.Product{Name: uniqueName("p"), CategoryID: cat.ID, SegmentID: seg.ID, StageID: stage.ID}
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Product.Create(ctx, p); err != nil {
			return err
		}
		return tx.Product.CreateStageHistory(ctx, &model.StageHistory{
			ProductID: p.ID, CurrentStageID: stage.ID, ChangedAt: time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("事务应提交成功: %v", err)
	}

	history, err := repo.Product.ListStageHistory(ctx, p.ID)
	if err != nil {
		t.Fatalf("查询阶段历史失败: %v", err)
	}
	if len(history) != 1 || history[0].CurrentStage == nil || history[0].CurrentStage.Name != stage.Name {
		t.Errorf("阶段历史不符: %+v", history)
	}

	if err := repo.Product.Delete(ctx, p.ID); err != nil {
		t.Fatalf("删除产品失败: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Constraints
// ═══════════════════════════════════════════════════════════

func TestUniqueNameCaseInsensitive(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	name := uniqueName("Stage")
	first := &model.MasterData{Name: name}
	if err := repo.Stage.Create(ctx, first); err != nil {
		t.Fatalf("创建阶段失败: %v", err)
	}
	defer testDB.Exec("DELETE FROM stages WHERE id = ?", first.ID)

	if _, err := repo.Stage.GetByName(ctx, strings.ToLower(name), 0); err != nil {
		t.Fatalf("不区分大小写查询应命中: %v", err)
	}

	dup := &model.MasterData{Name: strings.ToUpper(name)}
	err := repo.Stage.Create(ctx, dup)
	if err == nil {
		testDB.Exec("DELETE FROM stages WHERE id = ?", dup.ID)
		t.Fatal("期望唯一约束违反，但创建成功了")
	}
	if !pkgerrors.IsUniqueViolation(err) {
		t.Errorf("期望 23505，实际: %v", err)
	}
}

func TestMasterDataInUse(t *testing.T) {
	repo := repository.NewRepository(testDB)
	cat, seg, stage, cleanup := setupMasterData(t, repo)
	defer cleanup()
	ctx := context.Background()

	p := &model.Product{Name: uniqueName("p"), CategoryID: cat.ID, SegmentID: seg.ID, StageID: stage.ID}
	if err := repo.Product.Create(ctx, p); err != nil {
		t.Fatalf("创建产品失败: %v", err)
	}

	n, err := repo.Stage.CountProducts(ctx, stage.ID)
	if err != nil || n != 1 {
		t.Fatalf("期望阶段被 1 个产品引用，实际: %d, %v", n, err)
	}

	// 外键兜底：绕过服务层检查直接删除应失败
	err = repo.Stage.Delete(ctx, stage.ID)
	if !pkgerrors.IsForeignKeyViolation(err) {
		t.Errorf("期望外键违反，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Aggregation
// ═══════════════════════════════════════════════════════════

func TestCountByStageAndSegment(t *testing.T) {
	repo := repository.NewRepository(testDB)
	cat, seg, stage, cleanup := setupMasterData(t, repo)
	defer cleanup()
	ctx := context.Background()

	products := []model.Product{
		{Name: uniqueName("a"), CategoryID: cat.ID, SegmentID: seg.ID, StageID: stage.ID},
		{Name: uniqueName("b"), CategoryID: cat.ID, SegmentID: seg.ID, StageID: stage.ID},
	}
	if err := repo.Product.CreateBatch(ctx, products); err != nil {
		t.Fatalf("批量创建失败: %v", err)
	}

	rows, err := repo.Product.CountByStageAndSegment(ctx)
	if err != nil {
		t.Fatalf("分组计数失败: %v", err)
	}
	var got int64
	for _, r := range rows {
		if r.StageID == stage.ID && r.SegmentID == seg.ID {
			got = r.Count
		}
	}
	if got != 2 {
		t.Errorf("期望 2，实际 %d", got)
	}
}

func TestLicenseListExpiring(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mk := func(end time.Time) *model.License {
		return &model.License{
			Name: uniqueName("lic"), Company: "PLN", BPO: "IT", Type: "Subscription",
			Period: "Yearly", Qty: 2, UnitPrice: 100, TotalPrice: 200, EndDate: &end,
		}
	}
	licenses := []*model.License{
		mk(today.AddDate(0, 0, -1)),
		mk(today.AddDate(0, 0, 10)),
		mk(today.AddDate(0, 0, 90)),
	}
	for _, l := range licenses {
		if err := repo.License.Create(ctx, l); err != nil {
			t.Fatalf("创建许可证失败: %v", err)
		}
		defer testDB.Exec("DELETE FROM licenses WHERE id = ?", l.ID)
	}

	expiring, err := repo.License.ListExpiring(ctx, today, today.AddDate(0, 0, 30), 20)
	if err != nil {
		t.Fatalf("查询即将到期失败: %v", err)
	}
	found := false
	for _, l := range expiring {
		if l.ID == licenses[1].ID {
			found = true
		}
		if l.ID == licenses[0].ID || l.ID == licenses[2].ID {
			t.Errorf("不应包含窗口外许可证: %d", l.ID)
		}
	}
	if !found {
		t.Error("10 天后到期的许可证应在列表中")
	}
}
