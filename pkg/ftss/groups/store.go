package groups

import (
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// CreateGroup creates a user group with the creator as its first admin.
// Member emails that do not resolve to known users are skipped.
func CreateGroup(db *gorm.DB, name string, creator models.User, memberEmails []string) (uint, error) {
	group := models.UserGroup{
		Name:            name,
		UserIDs:         models.IDList{creator.ID},
		AdminIDs:        models.IDList{creator.ID},
		SignalIDs:       models.IDList{},
		CollaboratorMap: models.CollaboratorMap{},
	}

	if len(memberEmails) > 0 {
		var members []models.User
		if err := db.Where("email IN ?", memberEmails).Find(&members).Error; err != nil {
			return 0, err
		}
		for _, m := range members {
			group.UserIDs.Add(m.ID)
		}
	}

	if err := db.Create(&group).Error; err != nil {
		return 0, err
	}
	return group.ID, nil
}

// loadGroup fetches a group by ID, reporting existence separately from errors
func loadGroup(db *gorm.DB, groupID uint) (*models.UserGroup, bool, error) {
	var group models.UserGroup
	if err := db.First(&group, groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &group, true, nil
}

// AddUser adds a user to a group's membership. Fails when the group or the
// user does not exist.
func AddUser(db *gorm.DB, groupID, userID uint) (bool, error) {
	group, ok, err := loadGroup(db, groupID)
	if !ok || err != nil {
		return false, err
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	group.AddUser(userID)
	if err := db.Save(group).Error; err != nil {
		return false, err
	}
	return true, nil
}

// RemoveUser removes a user from a group, stripping them from every
// collaborator map entry so no orphaned grants remain. Fails when the user
// was not a member.
func RemoveUser(db *gorm.DB, groupID, userID uint) (bool, error) {
	group, ok, err := loadGroup(db, groupID)
	if !ok || err != nil {
		return false, err
	}
	if !group.RemoveUser(userID) {
		return false, nil
	}
	if err := db.Save(group).Error; err != nil {
		return false, err
	}
	return true, nil
}

// AddSignal links a signal into a group's shared set
func AddSignal(db *gorm.DB, groupID, signalID uint) (bool, error) {
	group, ok, err := loadGroup(db, groupID)
	if !ok || err != nil {
		return false, err
	}
	group.AddSignal(signalID)
	if err := db.Save(group).Error; err != nil {
		return false, err
	}
	return true, nil
}

// RemoveSignal unlinks a signal from a group and drops its collaborator
// entry. Fails when the signal was not linked.
func RemoveSignal(db *gorm.DB, groupID, signalID uint) (bool, error) {
	group, ok, err := loadGroup(db, groupID)
	if !ok || err != nil {
		return false, err
	}
	if !group.RemoveSignal(signalID) {
		return false, nil
	}
	if err := db.Save(group).Error; err != nil {
		return false, err
	}
	return true, nil
}

// AddCollaborator grants a group member edit rights on one of the group's
// signals. Fails when the signal is not in the group or the user is not a member.
func AddCollaborator(db *gorm.DB, groupID, signalID, userID uint) (bool, error) {
	group, ok, err := loadGroup(db, groupID)
	if !ok || err != nil {
		return false, err
	}
	if !group.AddCollaborator(signalID, userID) {
		return false, nil
	}
	if err := db.Save(group).Error; err != nil {
		return false, err
	}
	return true, nil
}

// RemoveCollaborator revokes a per-signal edit grant. Fails when no such
// grant exists.
func RemoveCollaborator(db *gorm.DB, groupID, signalID, userID uint) (bool, error) {
	group, ok, err := loadGroup(db, groupID)
	if !ok || err != nil {
		return false, err
	}
	if !group.RemoveCollaborator(signalID, userID) {
		return false, nil
	}
	if err := db.Save(group).Error; err != nil {
		return false, err
	}
	return true, nil
}

// GroupsForUser returns every group the user belongs to or administers.
// Membership lives in serialised ID lists, so the filter runs in memory.
func GroupsForUser(db *gorm.DB, userID uint) ([]models.UserGroup, error) {
	var all []models.UserGroup
	if err := db.Find(&all).Error; err != nil {
		return nil, err
	}
	var mine []models.UserGroup
	for _, g := range all {
		if g.HasMember(userID) || g.HasAdmin(userID) {
			mine = append(mine, g)
		}
	}
	return mine, nil
}

// SignalGroupCollaborators returns the union of users granted edit rights on
// the signal through any group's collaborator map
func SignalGroupCollaborators(db *gorm.DB, signalID uint) ([]uint, error) {
	var all []models.UserGroup
	if err := db.Find(&all).Error; err != nil {
		return nil, err
	}
	seen := make(map[uint]bool)
	var userIDs []uint
	for _, g := range all {
		if !g.SignalIDs.Contains(signalID) {
			continue
		}
		for _, uid := range g.CollaboratorMap[signalID] {
			if !seen[uid] {
				seen[uid] = true
				userIDs = append(userIDs, uid)
			}
		}
	}
	return userIDs, nil
}

// DeleteGroup removes a group together with its signal back-references
func DeleteGroup(db *gorm.DB, groupID uint) (bool, error) {
	group, ok, err := loadGroup(db, groupID)
	if !ok || err != nil {
		return false, err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.SignalCollaboratorGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(group).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// CanUserEditSignal decides whether a user may modify a signal. Staff always
// may; otherwise the creator, direct collaborators, members of groups linked
// to the signal, and users granted through a group collaborator map may.
func CanUserEditSignal(db *gorm.DB, signalID uint, user models.User) (bool, error) {
	if user.IsStaff() {
		return true, nil
	}
	if user.Role == models.RoleVisitor {
		return false, nil
	}

	var signal models.Signal
	if err := db.First(&signal, signalID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	if signal.CreatedBy == user.Email {
		return true, nil
	}

	var directCount int64
	if err := db.Model(&models.SignalCollaborator{}).
		Where("signal_id = ? AND user_email = ?", signalID, user.Email).
		Count(&directCount).Error; err != nil {
		return false, err
	}
	if directCount > 0 {
		return true, nil
	}

	var links []models.SignalCollaboratorGroup
	if err := db.Where("signal_id = ?", signalID).Find(&links).Error; err != nil {
		return false, err
	}
	for _, link := range links {
		group, ok, err := loadGroup(db, link.GroupID)
		if err != nil {
			return false, err
		}
		if ok && group.HasMember(user.ID) {
			return true, nil
		}
	}

	var all []models.UserGroup
	if err := db.Find(&all).Error; err != nil {
		return false, err
	}
	for _, g := range all {
		if !g.SignalIDs.Contains(signalID) {
			continue
		}
		if g.CollaboratorMap.Contains(signalID, user.ID) {
			return true, nil
		}
	}

	return false, nil
}
