package models

import "time"

// AccessRequest origins.
const (
	// RequestFromUser marks a request created by the target user themselves.
	RequestFromUser = "from_user"
	// RequestFromBarrier marks a request created by the barrier's owning admin.
	RequestFromBarrier = "from_barrier"
)

// AccessRequest statuses. Pending is the only non-terminal status.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestRejected  = "rejected"
	RequestCancelled = "cancelled"
)

// AccessRequest is a proposal to grant a user access to a barrier. At most one
// pending row may exist per (user, barrier) pair.
type AccessRequest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    uint64   `gorm:"not null;index:idx_request_user_barrier"` // Target user ID.
	User      *User    `gorm:"foreignKey:UserID"`                       // Target user record.
	BarrierID uint64   `gorm:"not null;index:idx_request_user_barrier"` // Target barrier ID.
	Barrier   *Barrier `gorm:"foreignKey:BarrierID"`                    // Target barrier record.

	RequestType string `gorm:"type:text;not null"`                 // "from_user" or "from_barrier".
	Status      string `gorm:"type:text;not null;default:pending"` // Lifecycle status.

	FinishedAt *time.Time // Set when the request reaches a terminal status.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsFinished reports whether the request is in a terminal status.
func (r *AccessRequest) IsFinished() bool {
	return r.Status != RequestPending
}
