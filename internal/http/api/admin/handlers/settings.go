package handlers

import (
	"net/http"

	"github.com/FreeVigilance/HappyBarrier/internal/actionlog"
	"github.com/FreeVigilance/HappyBarrier/internal/barriers"
	apihttp "github.com/FreeVigilance/HappyBarrier/internal/http"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/FreeVigilance/HappyBarrier/internal/sms"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SettingsHandler exposes device configuration and balance check commands.
type SettingsHandler struct {
	db       *gorm.DB
	registry *barriers.Registry
	sms      *sms.Service
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB, registry *barriers.Registry, smsService *sms.Service) *SettingsHandler {
	return &SettingsHandler{db: db, registry: registry, sms: smsService}
}

// Available returns the settings supported by the barrier's device model.
func (h *SettingsHandler) Available(c *gin.Context) {
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

	catalog, err := h.sms.AvailableSettings(c.Request.Context(), barrier)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"device_model": barrier.DeviceModel,
		"settings":     catalog,
	})
}

// sendSettingBody defines the request body for sending a device setting.
type sendSettingBody struct {
	Setting string            `json:"setting"`
	Params  map[string]string `json:"params"`
}

// Send validates a setting command, logs it and dispatches it to the device.
// The log entry exists before dispatch so the audit trail survives a failed
// send.
func (h *SettingsHandler) Send(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body sendSettingBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Setting == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing setting"})
		return
	}

	barrier, err := h.registry.GetOwned(c.Request.Context(), apihttp.CurrentUser(c), id)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}

	entry := &models.BarrierActionLog{
		BarrierID:  barrier.ID,
		Author:     models.AuthorAdmin,
		ActionType: models.ActionBarrierSetting,
		Reason:     models.ReasonSettingChange,
		NewValue:   body.Setting,
	}
	if errRecord := actionlog.Record(h.db.WithContext(c.Request.Context()), entry); errRecord != nil {
		apihttp.RespondError(c, errRecord)
		return
	}

	if errSend := h.sms.SendBarrierSetting(c.Request.Context(), barrier, body.Setting, body.Params, entry); errSend != nil {
		apihttp.RespondError(c, errSend)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Setting sent successfully.", "action": entry.ID})
}

// BalanceCheck asks the gateway for the SIM balance, subject to the global
// cooldown window.
func (h *SettingsHandler) BalanceCheck(c *gin.Context) {
	msg, err := h.sms.SendBalanceCheck(c.Request.Context())
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Balance check command sent.", "sms": msg.ID})
}

// Actions returns the barrier's audit trail, optionally filtered by phone,
// action type and reason.
func (h *SettingsHandler) Actions(c *gin.Context) {
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

	filter := actionlog.Filter{
		BarrierID:  barrier.ID,
		ActionType: c.Query("action_type"),
		Reason:     c.Query("reason"),
	}
	if phoneID, okPhone := idQuery(c, "phone"); okPhone {
		filter.PhoneID = phoneID
	}

	rows, err := actionlog.Find(c.Request.Context(), h.db, filter)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		entry := &rows[i]
		out = append(out, gin.H{
			"id":          entry.ID,
			"barrier":     entry.BarrierID,
			"phone":       entry.PhoneID,
			"author":      entry.Author,
			"action_type": entry.ActionType,
			"reason":      entry.Reason,
			"old_value":   entry.OldValue,
			"new_value":   entry.NewValue,
			"created_at":  entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"actions": out})
}
