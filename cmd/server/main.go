package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/config"
	"github.com/Tahatra21/solarhub-sub000/internal/api/handler"
	"github.com/Tahatra21/solarhub-sub000/internal/api/router"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/internal/service"
	"github.com/Tahatra21/solarhub-sub000/pkg/database"
	"github.com/Tahatra21/solarhub-sub000/pkg/jwt"
	applogger "github.com/Tahatra21/solarhub-sub000/pkg/logger"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
	"github.com/Tahatra21/solarhub-sub000/pkg/redis"
	"github.com/Tahatra21/solarhub-sub000/pkg/storage"
)

func main() {
	// 1. 加载配置（PLC_CONFIG 指定配置文件路径，环境变量前缀 PLC_）
	cfg, err := config.Load(os.Getenv("PLC_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，缓存、Token 黑名单与分布式限流将降级", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器、上传存储与指标
	jwtMgr := jwt.NewManager(&cfg.Auth)
	files, err := storage.NewLocal(cfg.Server.UploadDir, cfg.Server.PublicURLPrefix)
	if err != nil {
		logger.Fatal("初始化上传目录失败", zap.Error(err))
	}
	m := metrics.New("plc")

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, files, m, logger)
	h := handler.NewHandler(svc)

	// 6.1 许可证到期提醒定时任务
	var notifier *service.LicenseNotifier
	if cfg.Scheduler.Enabled {
		notifier = service.NewLicenseNotifier(svc.License, cfg.Scheduler.LicenseNotifyCron, m, logger)
		if err := notifier.Start(); err != nil {
			logger.Fatal("启动许可证提醒任务失败", zap.Error(err))
		}
	}

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, m, db, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if notifier != nil {
		notifier.Stop()
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
