package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paiban/monthroster/internal/repository"
	apperrors "github.com/paiban/monthroster/pkg/errors"
)

// ListRuns 列出已保存的运行
func (h *Handler) ListRuns(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	filter := repository.DefaultListFilter()
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "查询参数无效"))
		return
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	runs, total, err := h.runs.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "total": total, "offset": filter.Offset, "limit": filter.Limit})
}

// GetRun 获取一次运行的完整输出
func (h *Handler) GetRun(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	out, err := h.runs.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetStaffCells 获取某员工在一次运行中的逐日班次
func (h *Handler) GetStaffCells(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	runID := c.Param("id")
	if _, err := h.runs.GetRun(c.Request.Context(), runID); err != nil {
		respondError(c, err)
		return
	}
	cells, err := h.runs.Cells(c.Request.Context(), runID, c.Param("staff"))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(cells) == 0 {
		respondError(c, apperrors.NotFound("员工", c.Param("staff")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "staff_id": c.Param("staff"), "cells": cells})
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.runs == nil {
		respondError(c, apperrors.New(apperrors.CodeNotFound, "未配置结果库"))
		return false
	}
	return true
}
