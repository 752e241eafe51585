package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/pkg/database"
)

var seedOpts struct {
	username string
	password string
	email    string
	fullname string
}

// defaultPositions 职位表为空时写入
var defaultPositions = []string{"Manager", "Officer", "Staff"}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "执行迁移并写入初始数据（职位、管理员账号），可重复执行",
	Long: `执行迁移并写入初始数据。

角色、阶段、阶段间隔与菜单由迁移脚本写入；本命令补充默认职位，
并在管理员账号不存在时创建。已存在的数据不会被修改。`,
	Args: cobra.NoArgs,
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

		ctx := cmd.Context()
		repo := repository.NewRepository(e.db)

		// ── 职位 ──
		positions, err := repo.Position.ListAll(ctx)
		if err != nil {
			return err
		}
		if len(positions) == 0 {
			for _, name := range defaultPositions {
				if err := repo.Position.Create(ctx, &model.Position{Name: name}); err != nil {
					return fmt.Errorf("写入职位 %s 失败: %w", name, err)
				}
			}
			cmd.Printf("已写入 %d 个默认职位\n", len(defaultPositions))
		}

		// ── 管理员 ──
		_, err = repo.User.GetByUsername(ctx, seedOpts.username)
		if err == nil {
			cmd.Printf("管理员 %s 已存在，跳过\n", seedOpts.username)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		role, err := repo.Role.GetByName(ctx, model.RoleAdmin, 0)
		if err != nil {
			return fmt.Errorf("未找到 %s 角色，请确认迁移已执行: %w", model.RoleAdmin, err)
		}

		password := seedOpts.password
		generated := password == ""
		if generated {
			password = randomPassword()
		}
		hash, err := hashPassword(password)
		if err != nil {
			return err
		}

		admin := &model.User{
			Username:     seedOpts.username,
			Fullname:     seedOpts.fullname,
			Email:        seedOpts.email,
			PasswordHash: hash,
			RoleID:       role.ID,
		}
		if err := repo.User.Create(ctx, admin); err != nil {
			return fmt.Errorf("创建管理员失败: %w", err)
		}

		cmd.Printf("已创建管理员 %s\n", admin.Username)
		if generated {
			cmd.Printf("初始密码: %s（请登录后立即修改）\n", password)
		}
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedOpts.username, "admin-username", "admin", "管理员用户名")
	f.StringVar(&seedOpts.password, "admin-password", "", "管理员密码，留空则随机生成")
	f.StringVar(&seedOpts.email, "admin-email", "admin@example.com", "管理员邮箱")
	f.StringVar(&seedOpts.fullname, "admin-fullname", "Administrator", "管理员姓名")
	rootCmd.AddCommand(seedCmd)
}
