package models

import (
	"fmt"
	"time"
)

// BarrierPhone types. Only primary credentials are provisioned automatically;
// the rest are managed per-user within the barrier limits.
const (
	PhonePrimary   = "primary"
	PhonePermanent = "permanent"
	PhoneTemporary = "temporary"
	PhoneSchedule  = "schedule"
)

// BarrierPhone is a remote-control phone credential tied to a membership.
type BarrierPhone struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    uint64   `gorm:"not null;index:idx_phone_user_barrier"` // Credential owner ID.
	User      *User    `gorm:"foreignKey:UserID"`                     // Credential owner record.
	BarrierID uint64   `gorm:"not null;index:idx_phone_user_barrier"` // Barrier ID.
	Barrier   *Barrier `gorm:"foreignKey:BarrierID"`                  // Barrier record.

	Phone string `gorm:"type:text;not null"`                 // Phone number programmed into the device.
	Type  string `gorm:"type:text;not null;default:primary"` // Credential type.
	Name  string `gorm:"type:text"`                          // Label shown in listings and logs.

	IsActive bool `gorm:"not null;default:true"` // Cleared when the credential is removed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// DescribeParams renders the credential's descriptive parameters for action
// log values.
func (p *BarrierPhone) DescribeParams() string {
	return fmt.Sprintf("phone: %s, type: %s, name: %s", p.Phone, p.Type, p.Name)
}
