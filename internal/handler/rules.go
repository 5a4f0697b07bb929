package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paiban/monthroster/internal/constraints"
	apperrors "github.com/paiban/monthroster/pkg/errors"
)

// Rules 返回规则表目录，可按 kind 或 category 过滤
func (h *Handler) Rules(c *gin.Context) {
	kind := c.Query("kind")
	category := c.Query("category")

	lib := constraints.GetLibrary()
	out := make([]constraints.RuleDefinition, 0, len(lib))
	for _, d := range lib {
		if kind != "" && d.Kind != kind {
			continue
		}
		if category != "" && d.Category != category {
			continue
		}
		out = append(out, d)
	}
	c.JSON(http.StatusOK, constraints.LibraryResponse{Library: out})
}

// Rule 返回单个规则键的定义
func (h *Handler) Rule(c *gin.Context) {
	d, ok := constraints.Lookup(c.Param("key"))
	if !ok {
		respondError(c, apperrors.NotFound("规则", c.Param("key")))
		return
	}
	c.JSON(http.StatusOK, d)
}
