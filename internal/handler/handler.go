// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paiban/monthroster/internal/repository"
	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/holiday"
	"github.com/paiban/monthroster/pkg/scheduler"
	"github.com/paiban/monthroster/pkg/source"
)

// RunStore 排班结果存储
type RunStore interface {
	source.OutputSink
	GetRun(ctx context.Context, runID string) (*repository.RunRecord, error)
	Load(ctx context.Context, runID string) (*source.Output, error)
	Cells(ctx context.Context, runID, staffID string) (map[string]string, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*repository.RunRecord, int, error)
}

// VersionInfo 构建信息
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Option 处理器选项
type Option func(*Handler)

// WithRunStore 启用结果持久化和查询接口
func WithRunStore(store RunStore) Option {
	return func(h *Handler) { h.runs = store }
}

// WithHolidays 请求未提供日历时按国家查询节假日
func WithHolidays(provider holiday.Provider, country string) Option {
	return func(h *Handler) {
		h.holidays = provider
		h.country = country
	}
}

// WithTimeout 单次排班的超时时间
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithBatchWorkers 批量排班的并发数
func WithBatchWorkers(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.batchWorkers = n
		}
	}
}

// WithOutputDir 每次生成的结果另写一份 JSON 文件到 dir
func WithOutputDir(dir string) Option {
	return func(h *Handler) {
		if dir != "" {
			h.sinks = append(h.sinks, source.JSONFileSink{Dir: dir})
		}
	}
}

// WithSink 每次生成的结果都写入 sink（例如消息发布），不受 persist 参数控制
func WithSink(sink source.OutputSink) Option {
	return func(h *Handler) {
		if sink != nil {
			h.sinks = append(h.sinks, sink)
		}
	}
}

// WithHealthCheck 健康检查时附带的依赖探测，例如结果库连通性
func WithHealthCheck(name string, check func(ctx context.Context) error) Option {
	return func(h *Handler) {
		h.checks = append(h.checks, healthCheck{name: name, check: check})
	}
}

// WithVersion 设置版本信息
func WithVersion(v VersionInfo) Option {
	return func(h *Handler) { h.version = v }
}

// Handler 排班 API 处理器
type Handler struct {
	engine   *scheduler.Engine
	runs     RunStore
	sinks    []source.OutputSink
	holidays holiday.Provider
	country  string
	locks    *KeyedLock
	timeout  time.Duration
	version  VersionInfo

	batchWorkers int
	checks       []healthCheck
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// New 创建处理器
func New(engine *scheduler.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine:       engine,
		locks:        NewKeyedLock(),
		timeout:      30 * time.Second,
		version:      VersionInfo{Version: "dev", BuildTime: "unknown", GitCommit: "unknown"},
		batchWorkers: 4,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register 注册路由
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/version", h.Version)

	api := r.Group("/api/v1")
	{
		api.GET("/", h.Index)
		api.POST("/roster/generate", h.Generate)
		api.POST("/roster/batch", h.Batch)
		api.POST("/roster/validate", h.Validate)
		api.GET("/roster/rules", h.Rules)
		api.GET("/roster/rules/:key", h.Rule)
		api.POST("/roster/swap/evaluate", h.EvaluateSwap)
		api.POST("/roster/swap/recommend", h.RecommendSwaps)

		runs := api.Group("/roster/runs")
		runs.GET("", h.ListRuns)
		runs.GET("/:id", h.GetRun)
		runs.GET("/:id/staff/:staff", h.GetStaffCells)
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	deps := gin.H{}
	for _, hc := range h.checks {
		if err := hc.check(ctx); err != nil {
			deps[hc.name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[hc.name] = "ok"
	}
	body := gin.H{"status": status, "service": "monthroster"}
	if len(h.checks) > 0 {
		body["dependencies"] = deps
	}
	c.JSON(code, body)
}

// Version 版本信息
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, h.version)
}

// Index API 根路由
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "月度排班引擎 API v1",
		"endpoints": gin.H{
			"generate": "POST /api/v1/roster/generate",
			"batch":    "POST /api/v1/roster/batch",
			"validate": "POST /api/v1/roster/validate",
			"rules":    "GET /api/v1/roster/rules",
			"swap":     "POST /api/v1/roster/swap/evaluate",
			"advise":   "POST /api/v1/roster/swap/recommend",
			"runs":     "GET /api/v1/roster/runs",
			"run":      "GET /api/v1/roster/runs/:id",
			"cells":    "GET /api/v1/roster/runs/:id/staff/:staff",
		},
	})
}

// outputs 合并请求级输出端和常驻输出端
func (h *Handler) outputs(sink source.OutputSink) source.OutputSink {
	return source.Sinks(append([]source.OutputSink{sink}, h.sinks...)...)
}

// respondError 返回错误响应
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "服务器内部错误")
	}
	body := gin.H{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, body)
}
