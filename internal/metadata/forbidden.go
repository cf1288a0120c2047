package metadata

// ActionAll inside a role's action list forbids every action on the entity.
const ActionAll = "all"

// RoleActions lists what a role may not do: literal action names (or
// ActionAll) plus named custom predicates evaluated per request.
type RoleActions struct {
	Actions []string `json:"actions,omitempty"`
	Custom  []string `json:"custom,omitempty"`
}

// ForbiddenActionSet maps role names to denied actions for one entity.
type ForbiddenActionSet map[string]RoleActions

// ForRole returns the role's denials and whether any are declared.
func (s ForbiddenActionSet) ForRole(role string) (RoleActions, bool) {
	ra, ok := s[role]
	return ra, ok
}

// Denies reports whether the role's literal action list contains the action.
func (ra RoleActions) Denies(action string) bool {
	for _, a := range ra.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// DeniesAll reports whether the role is barred from every action.
func (ra RoleActions) DeniesAll() bool {
	return ra.Denies(ActionAll)
}
