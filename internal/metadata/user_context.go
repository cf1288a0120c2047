package metadata

// UserContext represents the authenticated user, set by auth middleware.
type UserContext struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// RequestContext carries the request facts a custom predicate may inspect.
type RequestContext struct {
	Entity   string         `json:"entity"`
	RecordID string         `json:"record_id,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}
