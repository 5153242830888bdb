package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/gin-gonic/gin"
)

// idParam parses a numeric path parameter.
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	return id, err == nil
}

// idQuery parses a numeric query parameter; absent values report false.
func idQuery(c *gin.Context, name string) (uint64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil
}

// adminBarrierJSON renders a barrier for the owning admin, including the
// device fields hidden from regular users.
func adminBarrierJSON(b *models.Barrier) gin.H {
	return gin.H{
		"id":              b.ID,
		"owner":           b.OwnerID,
		"address":         b.Address,
		"device_phone":    b.DevicePhone,
		"device_model":    b.DeviceModel,
		"additional_info": b.AdditionalInfo,
		"is_public":       b.IsPublic,
		"created_at":      b.CreatedAt,
		"updated_at":      b.UpdatedAt,
	}
}

// limitJSON renders barrier limits.
func limitJSON(l *models.BarrierLimit) gin.H {
	return gin.H{
		"barrier":                 l.BarrierID,
		"user_phone_limit":        l.UserPhoneLimit,
		"user_temp_phone_limit":   l.UserTempPhoneLimit,
		"global_temp_phone_limit": l.GlobalTempPhoneLimit,
		"sms_weekly_limit":        l.SMSWeeklyLimit,
	}
}

// memberJSON renders a barrier member.
func memberJSON(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"phone":     u.Phone,
		"full_name": u.FullName,
	}
}

// accessRequestJSON renders an access request.
func accessRequestJSON(r *models.AccessRequest) gin.H {
	var finishedAt *time.Time
	if r.FinishedAt != nil {
		t := r.FinishedAt.UTC()
		finishedAt = &t
	}
	return gin.H{
		"id":           r.ID,
		"user":         r.UserID,
		"barrier":      r.BarrierID,
		"request_type": r.RequestType,
		"status":       r.Status,
		"finished_at":  finishedAt,
		"created_at":   r.CreatedAt,
	}
}
