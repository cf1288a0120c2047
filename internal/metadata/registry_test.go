package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_CachedLoaderRunsOnce(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.SetLoader(func() ([]*Entity, error) {
		calls++
		return []*Entity{{Name: "pais", Table: "paises"}}, nil
	}, true)

	for i := 0; i < 3; i++ {
		if _, err := reg.Get("pais"); err != nil {
			t.Fatalf("entity should be loaded: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}

	reg.Invalidate()
	if _, err := reg.Get("pais"); err != nil {
		t.Fatalf("entity should reload after invalidation: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after Invalidate, got %d calls", calls)
	}
}

func TestRegistry_UncachedLoaderRunsEveryAccess(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.SetLoader(func() ([]*Entity, error) {
		calls++
		return []*Entity{{Name: "pais", Table: "paises"}}, nil
	}, false)

	reg.Get("pais")
	reg.Get("pais")
	if calls != 2 {
		t.Fatalf("expected a load per access, got %d", calls)
	}
}

func TestRegistry_UnknownNameIsNotFound(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Entity{Name: "pais", Table: "paises"})
	if _, err := reg.Get("os.File"); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("arbitrary names must not resolve, got %v", err)
	}
	if _, err := reg.Get(""); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("empty name must not resolve, got %v", err)
	}
}

func TestRegistry_LoaderFailureIsNotNotFound(t *testing.T) {
	reg := NewRegistry()
	broken := errors.New("metadata dir unreadable")
	reg.SetLoader(func() ([]*Entity, error) {
		return nil, broken
	}, true)

	_, err := reg.Get("pais")
	if err == nil {
		t.Fatal("a failing loader must surface its error")
	}
	if errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("loader failure must not read as not-found: %v", err)
	}
	if !errors.Is(err, broken) {
		t.Fatalf("expected the loader error, got %v", err)
	}
}

func TestLoadDir_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	good := `{"name": "pais", "table": "paises", "fields": [{"name": "Nombre", "field": "nombre", "type": "string"}]}`
	bad := `{"name": "roto", "table":`
	missingTable := `{"name": "sin_tabla"}`
	if err := os.WriteFile(filepath.Join(dir, "pais.json"), []byte(good), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "roto.json"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sin_tabla.json"), []byte(missingTable), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notas.txt"), []byte("ignorar"), 0644); err != nil {
		t.Fatal(err)
	}

	entities, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 1 || entities[0].Name != "pais" {
		t.Fatalf("expected only the valid entity, got %v", entities)
	}
}

func TestEntity_RelationFromField(t *testing.T) {
	e := &Entity{
		Name: "pais", Table: "paises",
		Fields: []Field{
			{Name: "Presidente", Field: "presidente_id", Type: TypeNumber,
				Relation: &FieldRelation{Entity: "presidente", Name: "presidente"}},
		},
	}
	binding, ok := e.Relation("presidente")
	if !ok {
		t.Fatal("relation should resolve")
	}
	if binding.Kind != BelongsTo || binding.ForeignKey != "presidente_id" || binding.Entity != "presidente" {
		t.Fatalf("unexpected binding: %+v", binding)
	}
}

func TestEntity_ExternalRelationBinding(t *testing.T) {
	e := &Entity{
		Name: "empresa", Table: "empresas",
		ExternalRelations: []ExternalRelation{{
			Name: "socios", Entity: "socio", PivotTable: "empresa_socio",
			ForeignKey: "empresa_id", RelatedKey: "socio_id",
		}},
	}
	binding, ok := e.Relation("socios")
	if !ok {
		t.Fatal("external relation should resolve")
	}
	if binding.Kind != BelongsToMany || binding.ForeignKey != "empresa_id" || binding.OwnerKey != "socio_id" {
		t.Fatalf("unexpected binding: %+v", binding)
	}
}

func TestEntity_TableHeadersUseRelationKey(t *testing.T) {
	e := &Entity{
		Name: "pais", Table: "paises",
		Fields: []Field{
			{Name: "Nombre", Field: "nombre", Type: TypeString, Table: true},
			{Name: "Presidente", Field: "presidente_id", Type: TypeNumber, Table: true,
				Relation: &FieldRelation{Entity: "presidente", Name: "presidente", TableKey: "nombre"}},
			{Name: "Gobernador", Field: "gobernador_id", Type: TypeNumber, Table: true,
				Relation: &FieldRelation{Entity: "presidente", Name: "gobernador", TableKey: "{nombre} {apellido}"}},
			{Name: "Oculto", Field: "oculto", Type: TypeString},
		},
	}
	headers := e.TableHeaders()
	if len(headers) != 3 {
		t.Fatalf("expected 3 headers, got %v", headers)
	}
	if headers[0]["key"] != "nombre" {
		t.Fatalf("unexpected key: %v", headers[0])
	}
	if headers[1]["key"] != "presidente.nombre" {
		t.Fatalf("unexpected relation key: %v", headers[1])
	}
	// templated labels keep the storage key; the compiler resolves the
	// template from the field itself
	if headers[2]["key"] != "gobernador_id" {
		t.Fatalf("unexpected templated key: %v", headers[2])
	}
}

func TestForbiddenActionSet(t *testing.T) {
	set := ForbiddenActionSet{
		"invitado": {Actions: []string{"all"}},
		"editor":   {Actions: []string{"destroy"}},
	}
	if ra, ok := set.ForRole("invitado"); !ok || !ra.DeniesAll() {
		t.Fatal("invitado denies everything")
	}
	ra, _ := set.ForRole("editor")
	if !ra.Denies("destroy") || ra.Denies("update") || ra.DeniesAll() {
		t.Fatalf("unexpected editor actions: %+v", ra)
	}
	if _, ok := set.ForRole("admin"); ok {
		t.Fatal("unlisted role has no entry")
	}
}
