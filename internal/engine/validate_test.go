package engine

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"autocrud/internal/metadata"
	"autocrud/internal/store"
)

func TestValidate_AggregatesAllFailures(t *testing.T) {
	reg := testRegistry()
	rs, err := Synthesize(reg, testEntity(reg, "pais"), nil, nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	input := map[string]any{"fundacion": "no es fecha"}
	details, err := Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs, input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %v", details)
	}
	byField := map[string]string{}
	for _, d := range details {
		byField[d.Field] = d.Rule
	}
	if byField["nombre"] != "required" {
		t.Fatalf("expected required on nombre, got %v", details)
	}
	if byField["fundacion"] != "date" {
		t.Fatalf("expected date on fundacion, got %v", details)
	}
}

func TestValidate_MultiSelectNamesOffendingOption(t *testing.T) {
	reg := testRegistry()
	entity := &metadata.Entity{
		Name: "perfil", Table: "perfiles",
		Fields: []metadata.Field{
			{Name: "Idiomas", Field: "idiomas", Type: metadata.TypeSelect, Form: true, Multiple: true,
				Options: []string{"es", "en"}},
		},
	}
	rs, err := Synthesize(reg, entity, nil, nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	input := map[string]any{"idiomas": []string{"es", "xx"}}
	details, err := Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs, input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected one detail, got %v", details)
	}
	if details[0].Message != "The selected option 'xx' is not valid" {
		t.Fatalf("unexpected message: %s", details[0].Message)
	}
}

func TestValidate_UniqueConflictOnUpdate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	reg := testRegistry()
	rs, err := Synthesize(reg, testEntity(reg, "pais"), "42", nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	mock.ExpectQuery("SELECT COUNT(*) FROM paises WHERE nombre = ?1 AND id != ?2").
		WithArgs("Chile", "42").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	input := map[string]any{"nombre": "Chile"}
	details, err := Validate(context.Background(), db, &store.SQLiteDialect{}, reg, rs, input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 1 || details[0].Rule != "unique" || details[0].Field != "nombre" {
		t.Fatalf("expected unique failure, got %v", details)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestValidate_BooleanPivotUnique(t *testing.T) {
	reg := testRegistry()
	entity := testEntity(reg, "empresa")
	pivot := &PivotContext{Relation: entity.ExternalRelation("socios"), ParentID: "7", ItemID: "3"}
	rs, err := Synthesize(reg, entity, nil, pivot)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	// A false flag never conflicts; no query runs.
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	details, err := Validate(context.Background(), db, &store.SQLiteDialect{}, reg, rs,
		map[string]any{"principal": false}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 0 {
		t.Fatalf("false flag should pass, got %v", details)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("false flag must not query: %v", err)
	}

	// A true flag conflicts with another true row of the same parent.
	mock.ExpectQuery("SELECT COUNT(*) FROM empresa_socio WHERE principal = ?1 AND empresa_id = ?2 AND socio_id != ?3").
		WithArgs(true, "7", "3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	details, err = Validate(context.Background(), db, &store.SQLiteDialect{}, reg, rs,
		map[string]any{"principal": true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 1 || details[0].Rule != "unique" {
		t.Fatalf("expected unique failure for second true flag, got %v", details)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestValidate_TelephoneDigitCount(t *testing.T) {
	reg := testRegistry()
	entity := &metadata.Entity{
		Name: "contacto", Table: "contactos",
		Fields: []metadata.Field{
			{Name: "Telefono", Field: "telefono", Type: metadata.TypeTelephone, Form: true},
		},
	}
	rs, err := Synthesize(reg, entity, nil, nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	cases := []struct {
		value any
		pass  bool
	}{
		{"912345678", true},
		{"123456789012345", true},
		{1234567, false},
		{"1234567890123456", false},
		{"91-234-5678", false},
		{"+34912345678", false},
		{"telefono", false},
		{912345678, true},
	}
	for _, tc := range cases {
		details, err := Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs,
			map[string]any{"telefono": tc.value}, nil)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", tc.value, err)
		}
		if tc.pass && len(details) != 0 {
			t.Fatalf("%v should pass, got %v", tc.value, details)
		}
		if !tc.pass && (len(details) != 1 || details[0].Rule != "digits_between") {
			t.Fatalf("%v should fail digits_between, got %v", tc.value, details)
		}
	}
}

func TestValidate_MultipartStringsSatisfyTypedRules(t *testing.T) {
	reg := testRegistry()
	entity := &metadata.Entity{
		Name: "producto", Table: "productos",
		Fields: []metadata.Field{
			{Name: "Unidades", Field: "unidades", Type: metadata.TypeNumber, Form: true},
			{Name: "Precio", Field: "precio", Type: metadata.TypeFloat, Form: true},
			{Name: "Activo", Field: "activo", Type: metadata.TypeBoolean, Form: true},
		},
	}
	rs, err := Synthesize(reg, entity, nil, nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	// Multipart forms deliver every value as a string.
	input := map[string]any{"unidades": "42", "precio": "19.90", "activo": "true"}
	details, err := Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs, input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 0 {
		t.Fatalf("numeric strings should pass, got %v", details)
	}

	input = map[string]any{"unidades": "42.5", "precio": "caro", "activo": "yes"}
	details, err = Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs, input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rules := map[string]string{}
	for _, d := range details {
		rules[d.Field] = d.Rule
	}
	if rules["unidades"] != "integer" || rules["precio"] != "numeric" || rules["activo"] != "boolean" {
		t.Fatalf("expected typed failures, got %v", details)
	}
}

func TestValidate_CustomExpressionValidator(t *testing.T) {
	reg := testRegistry()
	fn, err := ExprValidator("value >= 18", "Debe ser mayor de edad")
	if err != nil {
		t.Fatalf("compile validator: %v", err)
	}
	reg.RegisterValidator("mayor_de_edad", fn)

	entity := &metadata.Entity{
		Name: "persona", Table: "personas",
		Fields: []metadata.Field{
			{Name: "Edad", Field: "edad", Type: metadata.TypeNumber, Form: true,
				Rules: metadata.FieldRules{Custom: []string{"mayor_de_edad"}}},
		},
	}
	rs, err := Synthesize(reg, entity, nil, nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	details, err := Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs,
		map[string]any{"edad": 15}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 1 || details[0].Message != "Debe ser mayor de edad" {
		t.Fatalf("expected custom message, got %v", details)
	}

	details, err = Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs,
		map[string]any{"edad": 30}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 0 {
		t.Fatalf("expected pass, got %v", details)
	}
}

func TestValidate_FileConstraints(t *testing.T) {
	reg := testRegistry()
	entity := &metadata.Entity{
		Name: "documento", Table: "documentos",
		Fields: []metadata.Field{
			{Name: "Foto", Field: "foto", Type: metadata.TypeImage, Form: true,
				Rules: metadata.FieldRules{Max: 1, Mimes: []string{"image/png"}}},
		},
	}
	rs, err := Synthesize(reg, entity, nil, nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	files := map[string]*FileUpload{
		"foto": {Filename: "a.jpg", Size: 4096, Mime: "image/jpeg"},
	}
	details, err := Validate(context.Background(), nil, &store.SQLiteDialect{}, reg, rs, map[string]any{}, files)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rules := map[string]bool{}
	for _, d := range details {
		rules[d.Rule] = true
	}
	if !rules["mimes"] || !rules["max"] {
		t.Fatalf("expected mimes and max failures, got %v", details)
	}
}
