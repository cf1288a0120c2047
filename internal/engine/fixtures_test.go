package engine

import "autocrud/internal/metadata"

// testRegistry builds the descriptor set shared by the engine tests: a
// country whose listing label comes from its president, a president with a
// nested city relation, and a company with a partners pivot.
func testRegistry() *metadata.Registry {
	reg := metadata.NewRegistry()

	reg.Register(&metadata.Entity{
		Name: "pais", Table: "paises", SoftDelete: true, Timestamps: true,
		Fields: []metadata.Field{
			{Name: "Nombre", Field: "nombre", Type: metadata.TypeString, Table: true, Form: true,
				Rules: metadata.FieldRules{Required: true, Unique: true}},
			{Name: "Presidente", Field: "presidente_id", Type: metadata.TypeNumber, Table: true, Form: true,
				Relation: &metadata.FieldRelation{
					Entity: "presidente", Name: "presidente",
					TableKey: "{nombre} {apellido}", FormKey: "{nombre} {apellido}",
				}},
			{Name: "Fundacion", Field: "fundacion", Type: metadata.TypeDate, Table: true, Form: true},
		},
	})

	reg.Register(&metadata.Entity{
		Name: "presidente", Table: "presidentes", Timestamps: true,
		Fields: []metadata.Field{
			{Name: "Nombre", Field: "nombre", Type: metadata.TypeString, Table: true, Form: true},
			{Name: "Apellido", Field: "apellido", Type: metadata.TypeString, Table: true, Form: true},
			{Name: "Ciudad", Field: "ciudad_id", Type: metadata.TypeNumber, Form: true,
				Relation: &metadata.FieldRelation{Entity: "ciudad", Name: "ciudad", TableKey: "{nombre}"}},
		},
	})

	reg.Register(&metadata.Entity{
		Name: "ciudad", Table: "ciudades",
		Fields: []metadata.Field{
			{Name: "Nombre", Field: "nombre", Type: metadata.TypeString, Table: true, Form: true},
		},
	})

	reg.Register(&metadata.Entity{
		Name: "empresa", Table: "empresas",
		Fields: []metadata.Field{
			{Name: "Nombre", Field: "nombre", Type: metadata.TypeString, Table: true, Form: true},
		},
		ExternalRelations: []metadata.ExternalRelation{{
			Name: "socios", Entity: "socio", PivotTable: "empresa_socio",
			ForeignKey: "empresa_id", RelatedKey: "socio_id",
			PivotFields: []metadata.Field{
				{Name: "Principal", Field: "principal", Type: metadata.TypeBoolean, Form: true,
					Rules: metadata.FieldRules{Unique: true}},
				{Name: "Porcentaje", Field: "porcentaje", Type: metadata.TypeNumber, Form: true},
			},
		}},
	})

	reg.Register(&metadata.Entity{
		Name: "socio", Table: "socios",
		Fields: []metadata.Field{
			{Name: "Nombre", Field: "nombre", Type: metadata.TypeString, Table: true, Form: true},
		},
	})

	reg.Register(&metadata.Entity{
		Name: "usuario", Table: "usuarios",
		Fields: []metadata.Field{
			{Name: "Nombre", Field: "nombre", Type: metadata.TypeString, Table: true, Form: true},
			{Name: "Email", Field: "email", Type: metadata.TypeEmail, Table: true, Form: true,
				Rules: metadata.FieldRules{Required: true}},
			{Name: "Password", Field: "password", Type: metadata.TypePassword, Form: true,
				Rules: metadata.FieldRules{Required: true}},
		},
	})

	return reg
}

// testMorphEntity declares a comment pointing polymorphically at its target.
func testMorphEntity() *metadata.Entity {
	return &metadata.Entity{
		Name: "comentario", Table: "comentarios",
		Fields: []metadata.Field{
			{Name: "Texto", Field: "texto", Type: metadata.TypeString, Table: true, Form: true},
			{Name: "Comentable", Field: "comentable_id", Type: metadata.TypeString, Table: true,
				Relation: &metadata.FieldRelation{
					Entity: "", Name: "comentable",
					Polymorphic: true, MorphType: "comentable_type",
				}},
		},
	}
}

func testEntity(reg *metadata.Registry, name string) *metadata.Entity {
	e, err := reg.Get(name)
	if err != nil {
		panic("fixture entity missing: " + name)
	}
	return e
}
