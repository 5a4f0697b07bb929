// 月度排班引擎服务
// 主程序入口

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paiban/monthroster/internal/broker"
	"github.com/paiban/monthroster/internal/config"
	"github.com/paiban/monthroster/internal/database"
	"github.com/paiban/monthroster/internal/handler"
	"github.com/paiban/monthroster/internal/metrics"
	"github.com/paiban/monthroster/internal/middleware"
	"github.com/paiban/monthroster/internal/repository"
	"github.com/paiban/monthroster/internal/security"
	"github.com/paiban/monthroster/pkg/holiday"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/scheduler"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})

	fmt.Printf("月度排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := metrics.GetRegistry()
	engine := scheduler.NewEngine(scheduler.WithObserver(registry))

	opts := []handler.Option{
		handler.WithTimeout(cfg.Scheduler.DefaultTimeout),
		handler.WithBatchWorkers(cfg.Scheduler.BatchWorkers),
		handler.WithOutputDir(cfg.Scheduler.OutputDir),
		handler.WithVersion(handler.VersionInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}),
	}

	// 结果库可选
	if cfg.Database.Enabled() {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("连接结果库失败")
			os.Exit(1)
		}
		defer db.Close()

		repo := repository.NewScheduleRepository(db)
		if err := repo.Migrate(context.Background()); err != nil {
			logger.Error().Err(err).Msg("初始化结果表失败")
			os.Exit(1)
		}
		opts = append(opts, handler.WithRunStore(repo), handler.WithHealthCheck("database", db.Health))
	}

	// 节假日数据源可选
	if cfg.Holiday.Country != "" {
		provider, err := holidayProvider(cfg.Holiday, registry)
		if err != nil {
			logger.Error().Err(err).Msg("初始化节假日缓存失败")
			os.Exit(1)
		}
		opts = append(opts, handler.WithHolidays(provider, cfg.Holiday.Country))
	}

	// 结果发布可选
	if cfg.NATS.Enabled() {
		pub, closePub, err := broker.Connect(context.Background(), broker.Config{
			URL:     cfg.NATS.URL,
			Stream:  cfg.NATS.Stream,
			Subject: cfg.NATS.Subject,
			MaxAge:  cfg.NATS.MaxAge,
		})
		if err != nil {
			logger.Error().Err(err).Msg("连接 NATS 失败")
			os.Exit(1)
		}
		defer closePub()
		opts = append(opts, handler.WithSink(pub))
	}

	r := gin.New()
	// 中间件执行顺序：recovery -> requestID -> rateLimit -> cors -> logging -> apiKey -> handler
	r.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.API.RateLimit)),
		middleware.SecurityHeaders(),
	)
	if cfg.API.CORS.Enabled {
		r.Use(middleware.CORS(cfg.API.CORS.Origins))
	}
	r.Use(
		middleware.BodyLimit(cfg.API.MaxBodyBytes),
		middleware.Logging(registry),
	)
	if cfg.API.Keys == "" && cfg.IsProduction() {
		logger.Warn().Msg("生产环境未配置 API_KEYS，接口不做鉴权")
	}
	if cfg.API.Keys != "" {
		keys, err := security.ParseKeys(cfg.API.Keys)
		if err != nil {
			logger.Error().Err(err).Msg("解析 API_KEYS 失败")
			os.Exit(1)
		}
		logger.Info().Int("keys", keys.Len()).Msg("已启用API密钥校验")
		r.Use(middleware.APIKeyAuth(keys, "/health", "/version", cfg.Metrics.Path))
	}
	handler.New(engine, opts...).Register(r)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(registry.Handler()))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      r,
		ReadTimeout:  cfg.API.Timeout,
		WriteTimeout: cfg.Scheduler.DefaultTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("persistence", cfg.Database.Enabled()).
			Str("holiday_country", cfg.Holiday.Country).
			Bool("publish", cfg.NATS.Enabled()).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// holidayProvider 节假日 HTTP 客户端外包一层 gorm 缓存，查询失败计入指标
func holidayProvider(cfg config.HolidayConfig, registry *metrics.Registry) (holiday.Provider, error) {
	db, err := holiday.OpenDB(cfg.CacheDSN)
	if err != nil {
		return nil, err
	}
	client := holiday.NewClient(cfg.BaseURL, cfg.Timeout)
	return &countingProvider{inner: holiday.NewCache(db, client), registry: registry}, nil
}

type countingProvider struct {
	inner    holiday.Provider
	registry *metrics.Registry
}

func (p *countingProvider) Holidays(ctx context.Context, country string, year int) ([]holiday.Holiday, error) {
	hs, err := p.inner.Holidays(ctx, country, year)
	if err != nil {
		p.registry.RecordHolidayFailure(country)
	}
	return hs, err
}
