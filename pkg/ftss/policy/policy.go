// Package policy implements the pure access-control decisions: which items
// survive in a page of search results for a given viewer, and whether a
// single entity may be read at all.
package policy

import "github.com/undp-futures/ftss/pkg/ftss/models"

// Entity is the minimal view of a signal or trend the policy needs.
type Entity interface {
	EntityStatus() models.Status
	EntityCreator() string
	Anonymise()
}

// CanView reports whether user may read a single entity by ID. Visitors may
// only read approved entities; every other role may read anything
// (ownership is only checked for writes).
func CanView(user models.User, entity Entity) bool {
	if user.Role.IsRegular() {
		return true
	}
	return entity.EntityStatus() == models.StatusApproved
}

// FilterPage removes the items a viewer has no permission to see from one
// page of search results and anonymises the rest where required.
//
// The filter runs strictly after pagination, so the page's total_count keeps
// reflecting the pre-filter match count. That asymmetry is a documented
// product decision, not something to fix here.
func FilterPage[E Entity](user models.User, items []E) []E {
	switch user.Role {
	case models.RoleAdmin:
		return items
	case models.RoleCurator:
		// everything except other users' drafts
		kept := items[:0]
		for _, item := range items {
			if item.EntityStatus() == models.StatusDraft && item.EntityCreator() != user.Email {
				continue
			}
			kept = append(kept, item)
		}
		return kept
	case models.RoleUser:
		// approved entities plus the user's own
		kept := items[:0]
		for _, item := range items {
			if item.EntityStatus() != models.StatusApproved && item.EntityCreator() != user.Email {
				continue
			}
			kept = append(kept, item)
		}
		return kept
	default:
		// visitors: approved entities only, anonymised
		kept := items[:0]
		for _, item := range items {
			if item.EntityStatus() != models.StatusApproved {
				continue
			}
			item.Anonymise()
			kept = append(kept, item)
		}
		return kept
	}
}
