// 值班排班服务
// 主程序入口

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paiban/callrota/internal/config"
	"github.com/paiban/callrota/internal/database"
	"github.com/paiban/callrota/internal/handler"
	"github.com/paiban/callrota/internal/metrics"
	"github.com/paiban/callrota/internal/repository"
	"github.com/paiban/callrota/internal/security"
	"github.com/paiban/callrota/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("CALLROTA_CONFIG"), "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Logger())

	if err := run(cfg); err != nil {
		logger.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.GetRegistry()
	s, err := cfg.Solver.NewSolver(metrics.NewSolveObserver(reg))
	if err != nil {
		return err
	}

	opts := []handler.Option{
		handler.WithBuildInfo(handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}),
	}

	var store repository.RotaStore
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store = repository.NewRotaRepository(db)
		opts = append(opts, handler.WithHealthCheck(db.Health))
	} else {
		logger.Warn().Msg("未启用数据库，运行记录只保存在内存中")
		store = repository.NewMemoryStore()
	}

	limiter := security.NewRateLimiter(cfg.Security.RateLimit, cfg.Security.RateWindow)
	go limiter.Run(ctx)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	h := handler.New(s, store, reg, opts...)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.App.Port),
		Handler: h.Routes(handler.RouteOptions{
			Guard:        security.NewKeyGuard(cfg.Security.APIKeys),
			Limiter:      limiter,
			MaxBodyBytes: cfg.Security.MaxBodyBytes,
			MetricsPath:  metricsPath,
		}),
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("engine", s.Name()).
			Str("env", cfg.App.Env).
			Bool("database", cfg.Database.Enabled).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	logger.Info().Msg("服务器已关闭")
	return nil
}
