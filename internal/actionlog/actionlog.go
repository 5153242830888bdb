// Package actionlog records barrier credential and setting changes. The log
// is append-only: entries are created once and never mutated.
package actionlog

import (
	"context"

	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"gorm.io/gorm"
)

// Record appends an entry within the caller's transaction.
func Record(tx *gorm.DB, entry *models.BarrierActionLog) error {
	return tx.Create(entry).Error
}

// Filter narrows audit queries. Zero values are ignored.
type Filter struct {
	BarrierID  uint64
	PhoneID    uint64
	ActionType string
	Reason     string
}

// Find returns matching entries, newest first.
func Find(ctx context.Context, conn *gorm.DB, filter Filter) ([]models.BarrierActionLog, error) {
	q := conn.WithContext(ctx).Model(&models.BarrierActionLog{})
	if filter.BarrierID != 0 {
		q = q.Where("barrier_id = ?", filter.BarrierID)
	}
	if filter.PhoneID != 0 {
		q = q.Where("phone_id = ?", filter.PhoneID)
	}
	if filter.ActionType != "" {
		q = q.Where("action_type = ?", filter.ActionType)
	}
	if filter.Reason != "" {
		q = q.Where("reason = ?", filter.Reason)
	}

	var rows []models.BarrierActionLog
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
