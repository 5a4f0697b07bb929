package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/holiday"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler"
	"github.com/paiban/monthroster/pkg/scheduler/optimizer"
	"github.com/paiban/monthroster/pkg/source"
	"github.com/paiban/monthroster/pkg/stats"
	"github.com/paiban/monthroster/pkg/validator"
)

// GenerateRequest 排班生成请求，名单、班次、规则、请假、日历的结构与 YAML 配置文件一致
type GenerateRequest struct {
	Month string `json:"month" binding:"required"`
	source.FileConfig
	Persist bool `json:"persist,omitempty"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	RunID       string                       `json:"run_id"`
	Month       string                       `json:"month"`
	Valid       bool                         `json:"valid"`
	Persisted   bool                         `json:"persisted"`
	Dates       []string                     `json:"dates"`
	Days        []model.DayProfile           `json:"days"`
	Cells       map[string]map[string]string `json:"cells"`
	Violations  []validator.Violation        `json:"violations"`
	Summaries   []stats.StaffSummary         `json:"summaries"`
	Coverage    *stats.CoverageMetrics       `json:"coverage"`
	Fairness    *stats.FairnessMetrics       `json:"fairness"`
	Balancer    *optimizer.Report            `json:"balancer"`
	Score       float64                      `json:"score"`
	Diagnostics []logger.Entry               `json:"diagnostics,omitempty"`
	Duration    string                       `json:"duration"`
}

// ValidateRequest 网格校验请求
type ValidateRequest struct {
	Month string `json:"month" binding:"required"`
	source.FileConfig
	Cells scheduler.Cells `json:"cells" binding:"required"`
}

// Generate 生成月度排班
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error()))
		return
	}
	ym, src, err := h.sources(c.Request.Context(), req.Month, &req.FileConfig)
	if err != nil {
		respondError(c, err)
		return
	}

	var sink source.OutputSink
	if req.Persist {
		if h.runs == nil {
			respondError(c, apperrors.New(apperrors.CodeInvalidInput, "未配置结果库，无法持久化"))
			return
		}
		sink = h.runs
	}
	sink = h.outputs(sink)

	unlock := h.locks.Lock(ym.String())
	defer unlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.engine.Generate(ctx, src, ym, sink)
	if err != nil {
		respondError(c, err)
		return
	}

	out := result.Output()
	c.JSON(http.StatusOK, GenerateResponse{
		RunID:       result.RunID,
		Month:       out.Month,
		Valid:       result.Valid,
		Persisted:   req.Persist,
		Dates:       out.Dates,
		Days:        result.Days,
		Cells:       out.Cells,
		Violations:  result.Violations,
		Summaries:   result.Summaries,
		Coverage:    result.Coverage,
		Fairness:    result.Fairness,
		Balancer:    result.Balancer,
		Score:       result.Score,
		Diagnostics: result.Diagnostics,
		Duration:    result.Duration.String(),
	})
}

// Validate 校验已有网格
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error()))
		return
	}
	in, err := h.input(c, req.Month, &req.FileConfig)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.engine.Check(in, req.Cells)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// sources 解析月份并组装数据源；请求未提供日历时回退到节假日数据源
func (h *Handler) sources(ctx context.Context, month string, fc *source.FileConfig) (model.YearMonth, scheduler.Sources, error) {
	ym, err := model.ParseYearMonth(month)
	if err != nil {
		return ym, scheduler.Sources{}, apperrors.Wrap(err, apperrors.CodeInvalidInput, "月份格式应为 YYYY-MM")
	}
	if err := fc.Resolve(); err != nil {
		return ym, scheduler.Sources{}, err
	}

	src := scheduler.Sources{Config: fc, Calendar: fc, Leave: fc}
	if len(fc.Calendar) == 0 && h.holidays != nil && h.country != "" {
		src.Calendar = &holiday.Calendar{Provider: h.holidays, Country: h.country}
	}
	return ym, src, nil
}
