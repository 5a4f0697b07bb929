package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/scheduler"
	"github.com/paiban/monthroster/pkg/source"
	"github.com/paiban/monthroster/pkg/swap"
)

// SwapEvaluateRequest 换班评估请求
type SwapEvaluateRequest struct {
	ValidateRequest
	Swap swap.Request `json:"swap" binding:"required"`
}

// SwapRecommendRequest 换班推荐请求
type SwapRecommendRequest struct {
	ValidateRequest
	StaffID string                 `json:"staff_id" binding:"required"`
	Date    string                 `json:"date" binding:"required"`
	Options *swap.RecommendOptions `json:"options,omitempty"`
}

// SwapRecommendResponse 换班推荐响应
type SwapRecommendResponse struct {
	StaffID         string                `json:"staff_id"`
	Date            string                `json:"date"`
	Recommendations []swap.Recommendation `json:"recommendations"`
}

// EvaluateSwap 评估在已有网格上交换两个单元格
func (h *Handler) EvaluateSwap(c *gin.Context) {
	var req SwapEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error()))
		return
	}
	in, err := h.input(c, req.Month, &req.FileConfig)
	if err != nil {
		respondError(c, err)
		return
	}
	ev, err := h.engine.EvaluateSwap(in, req.Cells, req.Swap)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// RecommendSwaps 为一个单元格推荐换班对象
func (h *Handler) RecommendSwaps(c *gin.Context) {
	var req SwapRecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error()))
		return
	}
	in, err := h.input(c, req.Month, &req.FileConfig)
	if err != nil {
		respondError(c, err)
		return
	}
	recs, err := h.engine.RecommendSwaps(in, req.Cells, req.StaffID, req.Date, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	if recs == nil {
		recs = []swap.Recommendation{}
	}
	c.JSON(http.StatusOK, SwapRecommendResponse{StaffID: req.StaffID, Date: req.Date, Recommendations: recs})
}

// input 解析月份并收集一次运行的输入
func (h *Handler) input(c *gin.Context, month string, fc *source.FileConfig) (scheduler.Input, error) {
	ym, src, err := h.sources(c.Request.Context(), month, fc)
	if err != nil {
		return scheduler.Input{}, err
	}
	return src.Gather(c.Request.Context(), ym)
}
