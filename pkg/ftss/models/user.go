package models

import "time"

// AnonymousEmail is the mask substituted for user emails when entities are
// served to unauthenticated visitors.
const AnonymousEmail = "email.hidden@undp.org"

// User represents a user in the system. Users are provisioned lazily on
// their first successfully verified token, or explicitly by an admin.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `json:"-"` // Optional - only set for local/bootstrap accounts
	Role         Role      `gorm:"type:varchar(20);default:'Visitor'" json:"role"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Acclab       bool      `gorm:"default:false" json:"acclab"`
}

// IsAdmin reports whether the user is an admin.
func (u User) IsAdmin() bool { return u.Role.IsAdmin() }

// IsStaff reports whether the user is a curator or admin.
func (u User) IsStaff() bool { return u.Role.IsStaff() }

// IsRegular reports whether the user is a real logged-in user rather than
// the API-key visitor.
func (u User) IsRegular() bool { return u.Role.IsRegular() }
