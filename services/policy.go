package services

import (
	"tvcms/models"
	"tvcms/utils"
)

// Decision is the outcome of an authorization check
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Owned is implemented by every resource that carries an owner field
type Owned interface {
	ResourceOwnerID() string
}

// Actor is the authenticated subject of a request plus the request origin
// recorded in the activity log
type Actor struct {
	User      *models.User
	IP        string
	UserAgent string
}

// UserID returns the actor's user id, or "" for anonymous actors
func (a Actor) UserID() string {
	if a.User == nil {
		return ""
	}
	return a.User.ID
}

// Decide applies the mutate-class rule: admins always pass, everyone else
// only on resources they own.
func Decide(role models.Role, isOwner bool) Decision {
	if role == models.RoleAdmin || isOwner {
		return Allow
	}
	return Deny
}

// CanMutate reports whether user may update or delete resource
func CanMutate(user *models.User, resource Owned) bool {
	if user == nil {
		return false
	}
	return Decide(user.Role, resource.ResourceOwnerID() == user.ID) == Allow
}

// Authorize returns a forbidden error unless user may mutate resource
func Authorize(user *models.User, resource Owned, action string) error {
	if !CanMutate(user, resource) {
		return utils.NewForbiddenError("You do not have permission to " + action)
	}
	return nil
}
