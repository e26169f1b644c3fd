package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/universe/internal/api"
	"github.com/wonny/universe/internal/api/handlers"
	"github.com/wonny/universe/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                      - Health check
  GET  /metrics                     - Prometheus metrics
  GET  /api/universe?date=          - Universe 조회 (기본: 최신)
  GET  /api/universe/latest         - 최신 Universe
  GET  /api/universe/screen         - 스크린 표현식
  GET  /api/universe/stocks/{code}  - 종목 포함 여부와 제외 사유
  POST /api/universe/build?date=    - Universe 생성 및 저장

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	h := handlers.NewUniverseHandler(a.builder, a.store, a.screen, a.log)
	limit := &api.BuildLimit{
		Limiter: redis.NewRateLimiter(a.redis, "universe"),
		Config:  redis.UniverseBuildLimit(cfg.Universe.BuildRateLimit, cfg.Universe.BuildRateWindow),
	}
	server := api.New(cfg, a.log, api.NewRouter(h, a.metrics, limit, a.log))

	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Server running on http://localhost:%s (Ctrl+C to stop)", cfg.Port))

	if err := server.Run(ctx); err != nil {
		return err
	}
	a.log.Info("Server stopped")
	return nil
}
