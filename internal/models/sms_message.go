package models

import (
	"time"

	"gorm.io/datatypes"
)

// SMSMessage types.
const (
	SMSPhoneCommand   = "phone_command"
	SMSSettingCommand = "setting_command"
	SMSBalanceCheck   = "balance_check"
)

// SMSMessage statuses.
const (
	SMSPending = "pending"
	SMSSent    = "sent"
	SMSFailed  = "failed"
)

// SMSMessage is an outbound device command queued for the SMS gateway.
type SMSMessage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	MessageType string `gorm:"type:text;not null;index"` // Command class.
	Recipient   string `gorm:"type:text"`                // Device phone number, empty for balance checks.
	Content     string `gorm:"type:text;not null"`       // Rendered command text.

	Status         string         `gorm:"type:text;not null;default:pending"` // Dispatch status.
	SentAt         *time.Time     `gorm:"index"`                              // Set when handed to the gateway.
	DeliveryReport datatypes.JSON `gorm:"type:json"`                          // Raw gateway delivery report, if received.

	LogID *uint64           `gorm:"index"`            // Action log entry that triggered the message.
	Log   *BarrierActionLog `gorm:"foreignKey:LogID"` // Action log record.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
