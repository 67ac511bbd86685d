package model

// Actor is the authenticated identity an operation runs as.
type Actor struct {
	UserID   int64
	Username string
	Role     string
	BaseID   *int64
}

// HasRole reports whether the actor has one of the given roles.
func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// GlobalScope reports whether the actor may see every base.
func (a Actor) GlobalScope() bool {
	return a.Role == RoleAdmin || a.Role == RoleLogisticsOfficer
}

// HomeBase reports whether baseID is the actor's home base.
func (a Actor) HomeBase(baseID int64) bool {
	return a.BaseID != nil && *a.BaseID == baseID
}

// CanAccessBase is the single access-scoping rule: admins and logistics
// officers reach every base, everyone else only their home base.
func (a Actor) CanAccessBase(baseID int64) bool {
	return a.GlobalScope() || a.HomeBase(baseID)
}

// ScopeBase resolves the base filter for a read. Actors without global scope
// are pinned to their home base regardless of what they ask for.
func (a Actor) ScopeBase(requested *int64) *int64 {
	if a.GlobalScope() {
		return requested
	}
	if a.BaseID == nil {
		// No home base: match nothing.
		none := int64(0)
		return &none
	}
	home := *a.BaseID
	return &home
}
