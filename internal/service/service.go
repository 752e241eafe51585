package service

import (
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/config"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/pkg/jwt"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
	"github.com/Tahatra21/solarhub-sub000/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Role       RoleService
	Position   PositionService
	Category   MasterDataService
	Segment    MasterDataService
	Stage      MasterDataService
	Interval   IntervalService
	Product    ProductService
	DevHistory DevHistoryService
	Dashboard  DashboardService
	Lifecycle  LifecycleService
	License    LicenseService
	CRJR       CRJRService
	RunProgram RunProgramService
	Export     ExportService
}

// NewService 创建 Service 聚合；rdb 为 nil 时缓存与 Token 黑名单自动降级
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	files FileStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	window := cfg.Scheduler.NotifyWindowDays

	dashboard := NewDashboardService(repo, rdb, window, logger)
	lifecycle := NewLifecycleService(repo, logger)
	license := NewLicenseService(repo, rdb, LicenseOptions{
		WindowDays:     window,
		NotifyCacheTTL: cfg.Scheduler.NotifyCacheTTL,
	}, logger)
	crjr := NewCRJRService(repo, rdb, logger)

	return &Service{
		Auth:       NewAuthService(repo, jwtMgr, rdb, logger),
		User:       NewUserService(repo, files, logger),
		Role:       NewRoleService(repo, logger),
		Position:   NewPositionService(repo, logger),
		Category:   NewCategoryService(repo, files, rdb, logger),
		Segment:    NewSegmentService(repo, files, rdb, logger),
		Stage:      NewStageService(repo, files, rdb, logger),
		Interval:   NewIntervalService(repo, logger),
		Product:    NewProductService(repo, files, rdb, m, logger),
		DevHistory: NewDevHistoryService(repo, m, logger),
		Dashboard:  dashboard,
		Lifecycle:  lifecycle,
		License:    license,
		CRJR:       crjr,
		RunProgram: NewRunProgramService(repo, rdb, m, logger),
		Export:     NewExportService(lifecycle, dashboard, license, crjr, m, logger),
	}
}
