package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/universe/pkg/config"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Universe builder - 일별 거래 가능 종목 스크리닝",
	Long: `Universe Builder CLI

보통주 필터와 21거래일 유동성/가격 필터로
매 거래일 투자 가능 유니버스를 생성합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant universe screen
  go run ./cmd/quant universe build --date 2026-10-16 --save
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
