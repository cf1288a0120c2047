package engine

import "context"

// HookContext is handed to lifecycle hooks. Fields is the validated input
// (mutable before persistence); Record is the current row where one exists.
type HookContext struct {
	Entity string
	ID     any
	Fields map[string]any
	Record map[string]any
}

// Lifecycle hook points. An entity's hook set implements whichever of these
// it cares about; the orchestrator discovers capability by interface
// satisfaction and calls nothing else.
type (
	OnCreating interface {
		Creating(ctx context.Context, h *HookContext) error
	}
	OnCreated interface {
		Created(ctx context.Context, h *HookContext) error
	}
	OnUpdating interface {
		Updating(ctx context.Context, h *HookContext) error
	}
	OnUpdated interface {
		Updated(ctx context.Context, h *HookContext) error
	}
	OnDeleting interface {
		Deleting(ctx context.Context, h *HookContext) error
	}
	OnDeleted interface {
		Deleted(ctx context.Context, h *HookContext) error
	}
	OnSaving interface {
		Saving(ctx context.Context, h *HookContext) error
	}
	OnSaved interface {
		Saved(ctx context.Context, h *HookContext) error
	}
	OnRestored interface {
		Restored(ctx context.Context, h *HookContext) error
	}
)
