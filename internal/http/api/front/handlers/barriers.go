package handlers

import (
	"net/http"

	"github.com/FreeVigilance/HappyBarrier/internal/barriers"
	apihttp "github.com/FreeVigilance/HappyBarrier/internal/http"
	"github.com/FreeVigilance/HappyBarrier/internal/pagination"
	"github.com/gin-gonic/gin"
)

// BarrierHandler exposes the barriers the authenticated user belongs to.
type BarrierHandler struct {
	registry *barriers.Registry
}

// NewBarrierHandler constructs a BarrierHandler.
func NewBarrierHandler(registry *barriers.Registry) *BarrierHandler {
	return &BarrierHandler{registry: registry}
}

// List returns the user's active barriers ordered by an allow-listed field.
func (h *BarrierHandler) List(c *gin.Context) {
	page := pagination.FromQuery(c)
	rows, total, err := h.registry.ListForUser(c.Request.Context(), apihttp.CurrentUser(c), page)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, barrierJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"barriers":  out,
		"total":     total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}
