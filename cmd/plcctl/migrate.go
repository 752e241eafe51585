package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tahatra21/solarhub-sub000/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "管理数据库迁移",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "执行全部未应用的迁移",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		sqlDB, err := e.db.DB()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(sqlDB, e.logger); err != nil {
			return err
		}
		return printVersion(cmd, e)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "回滚迁移（默认 1 步）",
	Example: `  plcctl migrate down
  plcctl migrate down 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("回滚步数必须为正整数: %q", args[0])
			}
			steps = n
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		sqlDB, err := e.db.DB()
		if err != nil {
			return err
		}
		cmd.Printf("回滚 %d 步迁移...\n", steps)
		if err := database.RollbackMigrations(sqlDB, steps); err != nil {
			return err
		}
		return printVersion(cmd, e)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示当前迁移版本",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		return printVersion(cmd, e)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func printVersion(cmd *cobra.Command, e *env) error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	version, dirty, err := database.MigrationVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if version == 0 {
		cmd.Println("尚未执行任何迁移")
		return nil
	}
	cmd.Printf("当前版本: %d\n", version)
	if dirty {
		cmd.Println("警告: 数据库迁移处于 dirty 状态，需要人工处理")
	}
	return nil
}
