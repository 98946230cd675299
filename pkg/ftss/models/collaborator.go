package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// groupTokenPrefix tags group collaborators in the wire format, e.g. "group:3".
const groupTokenPrefix = "group:"

// Collaborator is a tagged variant: either a user identified by email or a
// whole user group identified by ID. The wire format keeps the legacy
// "group:{id}" token, but internally the two cases are explicit.
type Collaborator struct {
	Email   string
	GroupID uint
}

// IsGroup reports whether the collaborator is a group.
func (c Collaborator) IsGroup() bool { return c.GroupID != 0 }

// String renders the wire representation.
func (c Collaborator) String() string {
	if c.IsGroup() {
		return groupTokenPrefix + strconv.FormatUint(uint64(c.GroupID), 10)
	}
	return c.Email
}

// ParseCollaborator interprets a wire token as a user email or a
// "group:{id}" reference.
func ParseCollaborator(token string) (Collaborator, error) {
	if rest, ok := strings.CutPrefix(token, groupTokenPrefix); ok {
		id, err := strconv.ParseUint(rest, 10, 64)
		if err != nil || id == 0 {
			return Collaborator{}, fmt.Errorf("invalid group reference %q", token)
		}
		return Collaborator{GroupID: uint(id)}, nil
	}
	if token == "" {
		return Collaborator{}, fmt.Errorf("empty collaborator")
	}
	return Collaborator{Email: token}, nil
}

// GroupCollaborator builds the group variant.
func GroupCollaborator(groupID uint) Collaborator {
	return Collaborator{GroupID: groupID}
}

// UserCollaborator builds the user variant.
func UserCollaborator(email string) Collaborator {
	return Collaborator{Email: email}
}

// SignalCollaborator grants a single user direct edit rights on a signal.
type SignalCollaborator struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SignalID  uint      `gorm:"not null;uniqueIndex:idx_signal_user_email;index" json:"signal_id"`
	UserEmail string    `gorm:"not null;uniqueIndex:idx_signal_user_email" json:"user_email"`
}

// SignalCollaboratorGroup grants every member of a group edit rights on a
// signal.
type SignalCollaboratorGroup struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SignalID  uint      `gorm:"not null;uniqueIndex:idx_signal_group;index" json:"signal_id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_signal_group" json:"group_id"`
}
