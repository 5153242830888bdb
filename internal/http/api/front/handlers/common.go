package handlers

import (
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/gin-gonic/gin"
)

// accessRequestJSON renders an access request for API responses.
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

// barrierJSON renders a barrier for user-facing responses. Device
// credentials are admin-only and never exposed here.
func barrierJSON(b *models.Barrier) gin.H {
	return gin.H{
		"id":              b.ID,
		"address":         b.Address,
		"device_model":    b.DeviceModel,
		"additional_info": b.AdditionalInfo,
		"is_public":       b.IsPublic,
		"created_at":      b.CreatedAt,
		"updated_at":      b.UpdatedAt,
	}
}
