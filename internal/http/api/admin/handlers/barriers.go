package handlers

import (
	"net/http"

	"github.com/FreeVigilance/HappyBarrier/internal/barriers"
	apihttp "github.com/FreeVigilance/HappyBarrier/internal/http"
	"github.com/FreeVigilance/HappyBarrier/internal/pagination"
	"github.com/gin-gonic/gin"
)

// BarrierHandler manages barrier administration endpoints.
type BarrierHandler struct {
	registry *barriers.Registry
}

// NewBarrierHandler constructs a BarrierHandler.
func NewBarrierHandler(registry *barriers.Registry) *BarrierHandler {
	return &BarrierHandler{registry: registry}
}

// createBarrierBody defines the request body for barrier creation.
type createBarrierBody struct {
	Address        string `json:"address"`
	DevicePhone    string `json:"device_phone"`
	DeviceModel    string `json:"device_model"`
	DevicePassword string `json:"device_password"`
	AdditionalInfo string `json:"additional_info"`
	IsPublic       *bool  `json:"is_public"`
}

// Create registers a new barrier owned by the authenticated admin.
func (h *BarrierHandler) Create(c *gin.Context) {
	var body createBarrierBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	isPublic := true
	if body.IsPublic != nil {
		isPublic = *body.IsPublic
	}
	barrier, err := h.registry.Create(c.Request.Context(), apihttp.CurrentUser(c), barriers.CreateInput{
		Address:        body.Address,
		DevicePhone:    body.DevicePhone,
		DeviceModel:    body.DeviceModel,
		DevicePassword: body.DevicePassword,
		AdditionalInfo: body.AdditionalInfo,
		IsPublic:       isPublic,
	})
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adminBarrierJSON(barrier))
}

// List returns the admin's active barriers.
func (h *BarrierHandler) List(c *gin.Context) {
	page := pagination.FromQuery(c)
	rows, total, err := h.registry.ListOwned(c.Request.Context(), apihttp.CurrentUser(c), page)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, adminBarrierJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"barriers":  out,
		"total":     total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// Get returns a single owned barrier.
func (h *BarrierHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	barrier, err := h.registry.GetOwned(c.Request.Context(), apihttp.CurrentUser(c), id)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, adminBarrierJSON(barrier))
}

// updateBarrierBody defines the request body for a partial barrier update.
type updateBarrierBody struct {
	Address        *string `json:"address"`
	DevicePhone    *string `json:"device_phone"`
	DevicePassword *string `json:"device_password"`
	AdditionalInfo *string `json:"additional_info"`
	IsPublic       *bool   `json:"is_public"`
}

// Update applies a partial update to an owned barrier.
func (h *BarrierHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateBarrierBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	barrier, err := h.registry.Update(c.Request.Context(), apihttp.CurrentUser(c), id, barriers.UpdateInput{
		Address:        body.Address,
		DevicePhone:    body.DevicePhone,
		DevicePassword: body.DevicePassword,
		AdditionalInfo: body.AdditionalInfo,
		IsPublic:       body.IsPublic,
	})
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, adminBarrierJSON(barrier))
}

// Delete soft-deletes an owned barrier with full credential cleanup.
func (h *BarrierHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.registry.Delete(c.Request.Context(), apihttp.CurrentUser(c), id); err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Barrier deleted."})
}

// updateLimitBody defines the request body for a partial limit update.
type updateLimitBody struct {
	UserPhoneLimit       *int `json:"user_phone_limit"`
	UserTempPhoneLimit   *int `json:"user_temp_phone_limit"`
	GlobalTempPhoneLimit *int `json:"global_temp_phone_limit"`
	SMSWeeklyLimit       *int `json:"sms_weekly_limit"`
}

// UpdateLimit applies a partial update to the barrier's limits.
func (h *BarrierHandler) UpdateLimit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateLimitBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	limit, err := h.registry.UpdateLimit(c.Request.Context(), apihttp.CurrentUser(c), id, barriers.LimitInput{
		UserPhoneLimit:       body.UserPhoneLimit,
		UserTempPhoneLimit:   body.UserTempPhoneLimit,
		GlobalTempPhoneLimit: body.GlobalTempPhoneLimit,
		SMSWeeklyLimit:       body.SMSWeeklyLimit,
	})
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, limitJSON(limit))
}

// ListMembers returns active members of an owned barrier.
func (h *BarrierHandler) ListMembers(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	page := pagination.FromQuery(c)

	rows, total, err := h.registry.ListMembers(c.Request.Context(), apihttp.CurrentUser(c), id, c.Query("q"), page)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, memberJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"users":     out,
		"total":     total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// RemoveUser revokes a user's membership and credentials on an owned barrier.
func (h *BarrierHandler) RemoveUser(c *gin.Context) {
	barrierID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	userID, ok := idParam(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.registry.RemoveUser(c.Request.Context(), apihttp.CurrentUser(c), userID, barrierID); err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User successfully removed from barrier."})
}
