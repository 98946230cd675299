package models

import "time"

// UserGroup represents a collaboration group. Members can be granted edit
// rights on individual signals associated with the group via CollaboratorMap.
//
// Intended invariants: every key of CollaboratorMap corresponds to an ID in
// SignalIDs, and every user ID in AdminIDs or in a CollaboratorMap value is
// present in UserIDs. The mutation helpers below preserve these.
type UserGroup struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Name            string          `gorm:"not null" json:"name"`
	SignalIDs       IDList          `gorm:"type:text" json:"signal_ids"`
	UserIDs         IDList          `gorm:"type:text" json:"user_ids"`
	AdminIDs        IDList          `gorm:"type:text" json:"admin_ids"`
	CollaboratorMap CollaboratorMap `gorm:"type:text" json:"collaborator_map"`
}

// HasMember reports whether userID is a member or admin of the group.
func (g *UserGroup) HasMember(userID uint) bool {
	return g.UserIDs.Contains(userID) || g.AdminIDs.Contains(userID)
}

// HasAdmin reports whether userID is an admin of the group.
func (g *UserGroup) HasAdmin(userID uint) bool {
	return g.AdminIDs.Contains(userID)
}

// AddUser idempotently adds userID to the member list and reports whether
// the group changed.
func (g *UserGroup) AddUser(userID uint) bool {
	return g.UserIDs.Add(userID)
}

// RemoveUser removes userID from the member and admin lists and strips it
// from every collaborator entry, pruning entries that become empty.
// Reports whether userID was a member.
func (g *UserGroup) RemoveUser(userID uint) bool {
	removed := g.UserIDs.Remove(userID)
	g.AdminIDs.Remove(userID)
	if g.CollaboratorMap != nil {
		g.CollaboratorMap.RemoveUser(userID)
	}
	return removed
}

// AddSignal idempotently associates signalID with the group.
func (g *UserGroup) AddSignal(signalID uint) bool {
	return g.SignalIDs.Add(signalID)
}

// RemoveSignal disassociates signalID and deletes its collaborator entry.
// Reports whether signalID was associated.
func (g *UserGroup) RemoveSignal(signalID uint) bool {
	removed := g.SignalIDs.Remove(signalID)
	if g.CollaboratorMap != nil {
		g.CollaboratorMap.RemoveSignal(signalID)
	}
	return removed
}

// AddCollaborator grants userID edit rights on signalID. The signal must be
// associated with the group and the user must be a member.
func (g *UserGroup) AddCollaborator(signalID, userID uint) bool {
	if !g.SignalIDs.Contains(signalID) || !g.HasMember(userID) {
		return false
	}
	if g.CollaboratorMap == nil {
		g.CollaboratorMap = CollaboratorMap{}
	}
	g.CollaboratorMap.Add(signalID, userID)
	return true
}

// RemoveCollaborator revokes userID's edit rights on signalID. Reports
// whether the user was a collaborator.
func (g *UserGroup) RemoveCollaborator(signalID, userID uint) bool {
	if g.CollaboratorMap == nil {
		return false
	}
	return g.CollaboratorMap.Remove(signalID, userID)
}
