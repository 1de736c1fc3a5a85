// Package auth holds the process-wide authorization predicates.
package auth

import "strings"

// Admins is the single admin-identity predicate. Every admin bypass in the
// system (rate limits, report availability, ops endpoints) consults the same
// list, sourced from ADMIN_IDS at startup.
type Admins struct {
	ids map[string]struct{}
}

func NewAdmins(tgIDs []string) *Admins {
	ids := make(map[string]struct{}, len(tgIDs))
	for _, id := range tgIDs {
		if v := strings.TrimSpace(id); v != "" {
			ids[v] = struct{}{}
		}
	}
	return &Admins{ids: ids}
}

// Is reports whether the Telegram id belongs to an admin.
func (a *Admins) Is(tgID string) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[strings.TrimSpace(tgID)]
	return ok
}
