package engine

import (
	"errors"
	"testing"

	"autocrud/internal/metadata"
)

func forbiddenEntity() *metadata.Entity {
	return &metadata.Entity{
		Name: "factura", Table: "facturas",
		ForbiddenActions: metadata.ForbiddenActionSet{
			"invitado": {Actions: []string{"all"}},
			"editor":   {Actions: []string{"destroy", "destroyPermanent"}},
			"revisor":  {Actions: []string{"update"}, Custom: []string{"cerrada"}},
		},
	}
}

func TestIsForbidden_AllDeniesEverything(t *testing.T) {
	reg := testRegistry()
	entity := forbiddenEntity()
	user := &metadata.UserContext{ID: "u1", Role: "invitado"}

	for _, action := range []string{ActionIndex, ActionStore, ActionDestroy, ActionUpdatePivot} {
		if !IsForbidden(reg, entity, "invitado", action, user, metadata.RequestContext{}) {
			t.Fatalf("expected %s forbidden for invitado", action)
		}
	}
}

func TestIsForbidden_ExactNameMatch(t *testing.T) {
	reg := testRegistry()
	entity := forbiddenEntity()
	user := &metadata.UserContext{ID: "u1", Role: "editor"}

	if !IsForbidden(reg, entity, "editor", ActionDestroy, user, metadata.RequestContext{}) {
		t.Fatal("expected destroy forbidden for editor")
	}
	if IsForbidden(reg, entity, "editor", ActionUpdate, user, metadata.RequestContext{}) {
		t.Fatal("update is not listed for editor")
	}
}

func TestIsForbidden_UnlistedRoleIsAllowed(t *testing.T) {
	reg := testRegistry()
	entity := forbiddenEntity()
	user := &metadata.UserContext{ID: "u1", Role: "admin"}

	if IsForbidden(reg, entity, "admin", ActionDestroy, user, metadata.RequestContext{}) {
		t.Fatal("roles without an entry are unrestricted")
	}
}

func TestIsForbidden_CustomPredicateRunsAfterNames(t *testing.T) {
	reg := testRegistry()
	entity := forbiddenEntity()
	user := &metadata.UserContext{ID: "u1", Role: "revisor"}

	var called bool
	reg.RegisterPredicate("cerrada", func(u *metadata.UserContext, action string, req metadata.RequestContext) bool {
		called = true
		return req.RecordID == "cerrado-1"
	})

	// Exact name match short-circuits; the predicate never runs.
	if !IsForbidden(reg, entity, "revisor", ActionUpdate, user, metadata.RequestContext{}) {
		t.Fatal("expected update forbidden by name")
	}
	if called {
		t.Fatal("predicate must not run when the name already matched")
	}

	// Unlisted action consults the predicate with the request context.
	if !IsForbidden(reg, entity, "revisor", ActionDestroy, user,
		metadata.RequestContext{Entity: "factura", RecordID: "cerrado-1"}) {
		t.Fatal("expected predicate to forbid destroy")
	}
	if !called {
		t.Fatal("predicate should have run")
	}
	if IsForbidden(reg, entity, "revisor", ActionDestroy, user,
		metadata.RequestContext{Entity: "factura", RecordID: "abierto-9"}) {
		t.Fatal("predicate returning false allows the action")
	}
}

func TestIsForbidden_UnregisteredPredicateDenies(t *testing.T) {
	reg := testRegistry()
	entity := forbiddenEntity()
	user := &metadata.UserContext{ID: "u1", Role: "revisor"}

	// "cerrada" is not registered on this registry: a predicate name that
	// resolves to nothing denies instead of silently allowing.
	if !IsForbidden(reg, entity, "revisor", ActionDestroy, user, metadata.RequestContext{}) {
		t.Fatal("missing predicate must fail closed")
	}
}

func TestCheckAction(t *testing.T) {
	reg := testRegistry()
	entity := forbiddenEntity()

	err := CheckAction(reg, entity, ActionIndex, nil, metadata.RequestContext{})
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Status != 401 {
		t.Fatalf("expected 401 for anonymous, got %v", err)
	}

	user := &metadata.UserContext{ID: "u1", Role: "editor"}
	err = CheckAction(reg, entity, ActionDestroy, user, metadata.RequestContext{})
	if !errors.As(err, &appErr) || appErr.Code != "FORBIDDEN_ACTION" || appErr.Status != 403 {
		t.Fatalf("expected FORBIDDEN_ACTION 403, got %v", err)
	}

	if err := CheckAction(reg, entity, ActionIndex, user, metadata.RequestContext{}); err != nil {
		t.Fatalf("index should pass for editor: %v", err)
	}
}

func TestExprPredicate_FailsClosed(t *testing.T) {
	fn, err := ExprPredicate(`user.role == "externo" && action == "destroy"`)
	if err != nil {
		t.Fatalf("compile predicate: %v", err)
	}
	user := &metadata.UserContext{ID: "u1", Role: "externo"}
	if !fn(user, "destroy", metadata.RequestContext{}) {
		t.Fatal("expected forbidden for externo destroy")
	}
	if fn(user, "index", metadata.RequestContext{}) {
		t.Fatal("expected allowed for externo index")
	}
}
