package models

import "time"

// BarrierActionLog authors.
const (
	AuthorSystem = "system"
	AuthorAdmin  = "admin"
	AuthorUser   = "user"
)

// BarrierActionLog action types.
const (
	ActionAddPhone       = "add_phone"
	ActionRemovePhone    = "remove_phone"
	ActionBarrierSetting = "barrier_setting"
)

// BarrierActionLog reasons.
const (
	ReasonAccessGranted  = "access_granted"
	ReasonBarrierDeleted = "barrier_deleted"
	ReasonBarrierExit    = "barrier_exit"
	ReasonManual         = "manual"
	ReasonSettingChange  = "setting_change"
)

// BarrierActionLog is an append-only audit record of credential and setting
// changes. Rows are never updated or deleted after creation.
type BarrierActionLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BarrierID uint64   `gorm:"not null;index"`       // Barrier the action applies to.
	Barrier   *Barrier `gorm:"foreignKey:BarrierID"` // Barrier record.

	PhoneID *uint64       `gorm:"index"`              // Affected credential, nil for setting changes.
	Phone   *BarrierPhone `gorm:"foreignKey:PhoneID"` // Affected credential record.

	Author     string `gorm:"type:text;not null"`       // "system", "admin" or "user".
	ActionType string `gorm:"type:text;not null;index"` // What was done.
	Reason     string `gorm:"type:text;not null;index"` // Why it was done.

	OldValue string `gorm:"type:text"` // Descriptive parameters before the action.
	NewValue string `gorm:"type:text"` // Descriptive parameters after the action.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
