// plcctl 产品生命周期平台的运维命令行：数据库迁移、初始化数据与账号维护。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/config"
	"github.com/Tahatra21/solarhub-sub000/pkg/database"
	applogger "github.com/Tahatra21/solarhub-sub000/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "plcctl",
	Short:         "产品生命周期平台运维工具",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PLC_CONFIG"), "配置文件路径（默认读取 PLC_CONFIG，环境变量前缀 PLC_）")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// env 命令执行所需的配置、日志与数据库连接
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.logger.Sync()
}

// openEnv 加载配置并连接数据库
func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}
