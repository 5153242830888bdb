package handlers

import (
	"net/http"
	"strings"

	"github.com/FreeVigilance/HappyBarrier/internal/accessrequests"
	apihttp "github.com/FreeVigilance/HappyBarrier/internal/http"
	"github.com/FreeVigilance/HappyBarrier/internal/pagination"
	"github.com/gin-gonic/gin"
)

// AccessRequestHandler exposes the admin side of the access request
// lifecycle.
type AccessRequestHandler struct {
	engine *accessrequests.Engine
}

// NewAccessRequestHandler constructs an AccessRequestHandler.
func NewAccessRequestHandler(engine *accessrequests.Engine) *AccessRequestHandler {
	return &AccessRequestHandler{engine: engine}
}

// createAccessRequestBody defines the request body for request creation.
type createAccessRequestBody struct {
	User    uint64 `json:"user"`
	Barrier uint64 `json:"barrier"`
}

// Create opens a barrier-initiated request for a user on an owned barrier.
func (h *AccessRequestHandler) Create(c *gin.Context) {
	var body createAccessRequestBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	request, err := h.engine.Create(c.Request.Context(), apihttp.CurrentUser(c), body.User, body.Barrier)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, accessRequestJSON(request))
}

// List returns requests targeting the admin's barriers.
func (h *AccessRequestHandler) List(c *gin.Context) {
	page := pagination.FromQuery(c)
	rows, total, err := h.engine.ListForAdmin(c.Request.Context(), apihttp.CurrentUser(c), page)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, accessRequestJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"access_requests": out,
		"total":           total,
		"page":            page.Page,
		"page_size":       page.PageSize,
	})
}

// Get returns a single request visible to the admin.
func (h *AccessRequestHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	request, err := h.engine.Get(c.Request.Context(), apihttp.CurrentUser(c), id)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accessRequestJSON(request))
}

// transitionBody defines the request body for a status change.
type transitionBody struct {
	Status string `json:"status"`
}

// Transition moves a request into a terminal status.
func (h *AccessRequestHandler) Transition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body transitionBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	request, err := h.engine.Transition(c.Request.Context(), apihttp.CurrentUser(c), id, strings.ToLower(strings.TrimSpace(body.Status)))
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accessRequestJSON(request))
}
