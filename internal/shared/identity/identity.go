package identity

import "strings"

// Actor is the capability descriptor supplied by the surrounding system for
// every call into the core. The core never resolves identity itself; tier and
// admin flag arrive already verified by the external auth layer.
type Actor struct {
	UserID  string
	Tier    int
	IsAdmin bool
}

func (a Actor) Valid() bool {
	return strings.TrimSpace(a.UserID) != ""
}

// Owns reports whether the actor is the owner of the given resource.
func (a Actor) Owns(ownerID string) bool {
	return strings.EqualFold(strings.TrimSpace(a.UserID), strings.TrimSpace(ownerID))
}

// CanManage is the owner-or-admin rule that gates every lifecycle transition.
func (a Actor) CanManage(ownerID string) bool {
	return a.IsAdmin || a.Owns(ownerID)
}
