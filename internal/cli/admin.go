// file: internal/cli/admin.go
package cli

import (
	"errors"
	"fmt"

	"Jobly/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/cobra"
)

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "管理员账户维护",
	}
	cmd.AddCommand(newAdminCreateCommand())
	return cmd
}

func newAdminCreateCommand() *cobra.Command {
	var in domain.NewUser
	in.IsAdmin = true

	cmd := &cobra.Command{
		Use:   "create",
		Short: "创建一个管理员账户",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			if cfg == nil {
				return errors.New("配置未加载")
			}
			if err := binding.Validator.ValidateStruct(&in); err != nil {
				return fmt.Errorf("参数校验失败: %w", err)
			}

			st, closeDB, err := openStore(cmd.Context(), cfg)
			defer closeDB()
			if err != nil {
				return err
			}
			accounts, _, err := newAccounts(cfg, st)
			if err != nil {
				return err
			}

			u, _, err := accounts.Register(cmd.Context(), in, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 已创建管理员 '%s'\n", u.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "用户名")
	cmd.Flags().StringVar(&in.Password, "password", "", "密码 (5-20 位)")
	cmd.Flags().StringVar(&in.Email, "email", "", "邮箱")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "Admin", "名")
	cmd.Flags().StringVar(&in.LastName, "last-name", "Admin", "姓")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
