package models

import "time"

// User roles.
const (
	// RoleUser is a regular resident account.
	RoleUser = "user"
	// RoleAdmin is a barrier-owning administrator account.
	RoleAdmin = "admin"
)

// User represents a resident or administrator account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Phone    string `gorm:"type:text;not null;uniqueIndex"` // Phone number used for login and credentials.
	FullName string `gorm:"type:text;not null"`             // Display name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Role string `gorm:"type:text;not null;default:user"` // Either "user" or "admin".

	IsActive bool `gorm:"not null;default:true"` // Inactive users are treated as absent.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsAdmin reports whether the account has the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
