package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/repository"
)

const minPasswordLen = 8

var resetPassword string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "账号维护",
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <username>",
	Short: "重置用户密码；未指定 --password 时生成随机密码并打印",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := resetPassword
		generated := password == ""
		if generated {
			password = randomPassword()
		}
		hash, err := hashPassword(password)
		if err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		repo := repository.NewRepository(e.db)
		user, err := repo.User.GetByUsername(ctx, args[0])
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("用户 %q 不存在", args[0])
		}
		if err != nil {
			return err
		}
		if err := repo.User.UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("更新密码失败: %w", err)
		}

		cmd.Printf("用户 %s 的密码已重置\n", user.Username)
		if generated {
			cmd.Printf("新密码: %s\n", password)
		}
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <plain>",
	Short: "输出明文密码的 bcrypt 哈希（用于手工写库）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := hashPassword(args[0])
		if err != nil {
			return err
		}
		cmd.Println(hash)
		return nil
	},
}

func init() {
	userResetPasswordCmd.Flags().StringVarP(&resetPassword, "password", "p", "", "新密码（至少 8 位）")
	userCmd.AddCommand(userResetPasswordCmd)
	rootCmd.AddCommand(userCmd, hashPasswordCmd)
}

func hashPassword(plain string) (string, error) {
	if len(plain) < minPasswordLen {
		return "", fmt.Errorf("密码至少 %d 位", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码加密失败: %w", err)
	}
	return string(hash), nil
}

// randomPassword 16 位随机十六进制串
func randomPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
