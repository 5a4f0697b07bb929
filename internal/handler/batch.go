package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/scheduler"
	"github.com/paiban/monthroster/pkg/scheduler/optimizer"
	"github.com/paiban/monthroster/pkg/source"
)

// maxBatchMonths 单次批量请求的月份上限
const maxBatchMonths = 12

// BatchRequest 多月份批量排班请求，所有月份共享同一份名单、班次和规则
type BatchRequest struct {
	Months []string `json:"months" binding:"required,min=1,max=12"`
	source.FileConfig
	Persist bool `json:"persist,omitempty"`
}

// BatchItem 单个月份的批量结果
type BatchItem struct {
	Month      string                       `json:"month"`
	RunID      string                       `json:"run_id,omitempty"`
	Valid      bool                         `json:"valid"`
	Violations int                          `json:"violations"`
	Score      float64                      `json:"score"`
	Balancer   *optimizer.Report            `json:"balancer,omitempty"`
	Cells      map[string]map[string]string `json:"cells,omitempty"`
	Persisted  bool                         `json:"persisted"`
	Error      *BatchError                  `json:"error,omitempty"`
}

// BatchError 失败月份的错误
type BatchError struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// BatchResponse 批量排班响应，结果顺序与请求中的月份一致
type BatchResponse struct {
	Results   []BatchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// Batch 并行生成多个月份的排班
func (h *Handler) Batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error()))
		return
	}
	if len(req.Months) > maxBatchMonths {
		respondError(c, apperrors.New(apperrors.CodeInvalidInput, "月份数量超过上限"))
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

	inputs := make([]scheduler.Input, 0, len(req.Months))
	keys := make([]string, 0, len(req.Months))
	seen := make(map[string]bool, len(req.Months))
	for _, month := range req.Months {
		ym, src, err := h.sources(c.Request.Context(), month, &req.FileConfig)
		if err != nil {
			respondError(c, err)
			return
		}
		if seen[ym.String()] {
			respondError(c, apperrors.New(apperrors.CodeInvalidInput, "月份重复").WithField("month", month))
			return
		}
		seen[ym.String()] = true

		in, err := src.Gather(c.Request.Context(), ym)
		if err != nil {
			respondError(c, err)
			return
		}
		inputs = append(inputs, in)
		keys = append(keys, ym.String())
	}

	// 按月份顺序加锁，避免与其他批量请求交叉等待
	sort.Strings(keys)
	for _, k := range keys {
		unlock := h.locks.Lock(k)
		defer unlock()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := h.engine.RunBatch(ctx, inputs, h.batchWorkers)

	resp := BatchResponse{Results: make([]BatchItem, len(results))}
	for i, r := range results {
		item := BatchItem{Month: inputs[i].Month.String()}
		err := r.Err
		if err == nil {
			if err = scheduler.WriteOutput(ctx, sink, r.Result); err == nil {
				item.Persisted = req.Persist
			}
		}
		if r.Result != nil {
			item.RunID = r.Result.RunID
			item.Valid = r.Result.Valid
			item.Violations = len(r.Result.Violations)
			item.Score = r.Result.Score
			item.Balancer = r.Result.Balancer
			item.Cells = r.Result.Output().Cells
		}
		if err != nil {
			item.Error = batchError(err)
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results[i] = item
	}
	c.JSON(http.StatusOK, resp)
}

func batchError(err error) *BatchError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &BatchError{Code: appErr.Code, Message: appErr.Message}
	}
	return &BatchError{Code: apperrors.CodeInternal, Message: err.Error()}
}
