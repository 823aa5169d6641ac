// Package cli 提供 jobly 命令行入口
package cli

import (
	"context"
	"fmt"
	"os"

	"Jobly/internal/config"
	"Jobly/internal/observe"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// 版本信息，构建时通过 -ldflags 注入
var (
	Version   = "v0.1.0"
	GitCommit = "unknown"
)

type configKey struct{}
type viperKey struct{}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "jobly",
		Short:   "Jobly - 职位与公司信息服务",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			v := viper.New()
			cfg, err := config.Load(v, cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			observe.InitLogger(cfg.Log.Level, cfg.Log.Format)

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, viperKey{}, v)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认查找 ./jobly.yaml)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAdminCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute 运行根命令
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func configFrom(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey{}).(*config.Config)
	return cfg
}

func viperFrom(ctx context.Context) *viper.Viper {
	v, _ := ctx.Value(viperKey{}).(*viper.Viper)
	return v
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jobly %s (commit %s)\n", Version, GitCommit)
		},
	}
}
