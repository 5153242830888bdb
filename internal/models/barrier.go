package models

import "time"

// Barrier represents a managed physical access point with an owning admin.
type Barrier struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OwnerID uint64 `gorm:"not null;index"`     // Owning administrator ID.
	Owner   *User  `gorm:"foreignKey:OwnerID"` // Owning administrator record.

	Address        string `gorm:"type:text;not null"`              // Street address shown to users.
	DevicePhone    string `gorm:"type:text;not null"`              // SIM phone number of the GSM relay.
	DeviceModel    string `gorm:"type:text;not null"`              // Hardware model identifier.
	DevicePassword string `gorm:"type:text;not null;default:1234"` // Device command password.
	AdditionalInfo string `gorm:"type:text"`                       // Free-form notes.

	IsPublic bool `gorm:"not null;default:true"` // Private barriers are invisible to users.
	IsActive bool `gorm:"not null;default:true"` // Soft-delete flag; inactive means absent.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BarrierLimit holds per-barrier provisioning limits, created with defaults
// alongside the barrier.
type BarrierLimit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BarrierID uint64   `gorm:"not null;uniqueIndex"` // Barrier the limits apply to.
	Barrier   *Barrier `gorm:"foreignKey:BarrierID"` // Barrier record.

	UserPhoneLimit       int `gorm:"not null;default:3"`  // Max credentials per user.
	UserTempPhoneLimit   int `gorm:"not null;default:1"`  // Max temporary credentials per user.
	GlobalTempPhoneLimit int `gorm:"not null;default:50"` // Max temporary credentials per barrier.
	SMSWeeklyLimit       int `gorm:"not null;default:70"` // Outbound SMS budget per week.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// UserBarrier is the current access grant of a user to a barrier. At most one
// active row may exist per (user, barrier) pair.
type UserBarrier struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    uint64   `gorm:"not null;index:idx_user_barrier"` // Member user ID.
	User      *User    `gorm:"foreignKey:UserID"`               // Member user record.
	BarrierID uint64   `gorm:"not null;index:idx_user_barrier"` // Barrier ID.
	Barrier   *Barrier `gorm:"foreignKey:BarrierID"`            // Barrier record.

	AccessRequestID uint64         `gorm:"not null"`                   // Request that granted the membership.
	AccessRequest   *AccessRequest `gorm:"foreignKey:AccessRequestID"` // Originating request record.

	IsActive bool `gorm:"not null;default:true"` // Cleared on removal or barrier deletion.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
