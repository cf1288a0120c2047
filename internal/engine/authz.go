package engine

import (
	"autocrud/internal/metadata"
)

// IsForbidden resolves whether the role may not perform the action on the
// entity. Decision order, first match wins:
//
//  1. the role's action list contains "all"
//  2. the action appears by exact name
//  3. any named custom predicate returns true for (user, action, request);
//     a name with no registered predicate denies outright, the same way an
//     unregistered validator name is a configuration error
//
// Decisions are never cached: the user and request context vary per call.
func IsForbidden(reg *metadata.Registry, entity *metadata.Entity, role, action string, user *metadata.UserContext, req metadata.RequestContext) bool {
	ra, ok := entity.ForbiddenActions.ForRole(role)
	if !ok {
		return false
	}
	if ra.DeniesAll() {
		return true
	}
	if ra.Denies(action) {
		return true
	}
	for _, name := range ra.Custom {
		fn, ok := reg.Predicate(name)
		if !ok {
			return true
		}
		if fn(user, action, req) {
			return true
		}
	}
	return false
}

// CheckAction is the error-returning form used by the orchestrator and the
// HTTP surface; it short-circuits before any persistence work.
func CheckAction(reg *metadata.Registry, entity *metadata.Entity, action string, user *metadata.UserContext, req metadata.RequestContext) error {
	if user == nil {
		return UnauthorizedError("Authentication required")
	}
	if IsForbidden(reg, entity, user.Role, action, user, req) {
		return UnauthorizedActionError(action, entity.Name)
	}
	return nil
}
