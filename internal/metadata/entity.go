package metadata

import "strings"

// Entity is the full static description of a record type: its table, fields,
// relations and per-role forbidden actions. Descriptors are immutable after
// registration; engine calls receive them by value of this pointer and never
// mutate them.
type Entity struct {
	Name              string             `json:"name"`
	Table             string             `json:"table"`
	PrimaryKey        string             `json:"primary_key,omitempty"` // defaults to "id"
	SoftDelete        bool               `json:"soft_delete"`
	Timestamps        bool               `json:"timestamps"`
	Fields            []Field            `json:"fields"`
	ExternalRelations []ExternalRelation `json:"external_relations,omitempty"`
	ForbiddenActions  ForbiddenActionSet `json:"forbidden_actions,omitempty"`
}

// PK returns the primary key column, defaulting to "id".
func (e *Entity) PK() string {
	if e.PrimaryKey == "" {
		return "id"
	}
	return e.PrimaryKey
}

// GetField returns the field with the given storage key, or nil.
func (e *Entity) GetField(key string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Field == key {
			return &e.Fields[i]
		}
	}
	return nil
}

// HasField reports whether a field with the given storage key exists.
func (e *Entity) HasField(key string) bool {
	return e.GetField(key) != nil
}

// FormFields returns the fields editable through forms, in declaration order.
func (e *Entity) FormFields() []Field {
	var fields []Field
	for _, f := range e.Fields {
		if f.Form {
			fields = append(fields, f)
		}
	}
	return fields
}

// TableFields returns the fields shown in table listings.
func (e *Entity) TableFields() []Field {
	var fields []Field
	for _, f := range e.Fields {
		if f.Table {
			fields = append(fields, f)
		}
	}
	return fields
}

// Relation resolves a relation name declared on this entity, checking
// field-level relations first and external relations second.
func (e *Entity) Relation(name string) (RelationBinding, bool) {
	for _, f := range e.Fields {
		r := f.Relation
		if r == nil || r.Name != name {
			continue
		}
		kind := BelongsTo
		if r.Polymorphic {
			kind = MorphTo
		}
		return RelationBinding{
			Name:       r.Name,
			Kind:       kind,
			Entity:     r.Entity,
			ForeignKey: f.Field,
			OwnerKey:   "", // filled from the related entity's PK by the planner
			MorphType:  r.MorphType,
		}, true
	}
	for _, x := range e.ExternalRelations {
		if x.Name == name {
			return x.Binding(), true
		}
	}
	return RelationBinding{}, false
}

// ExternalRelation returns the named pivot association, or nil.
func (e *Entity) ExternalRelation(name string) *ExternalRelation {
	for i := range e.ExternalRelations {
		if e.ExternalRelations[i].Name == name {
			return &e.ExternalRelations[i]
		}
	}
	return nil
}

// RelationNames lists every declared relation (field-level and external),
// in declaration order. Used for eager loading.
func (e *Entity) RelationNames() []string {
	var names []string
	for _, f := range e.Fields {
		if f.Relation != nil {
			names = append(names, f.Relation.Name)
		}
	}
	for _, x := range e.ExternalRelations {
		names = append(names, x.Name)
	}
	return names
}

// TableHeaders describes the listing columns for a client. A relation field
// with a plain column table key exposes it as relation.column; templated keys
// keep the field's storage key, which the query compiler resolves through the
// same template.
func (e *Entity) TableHeaders() []map[string]any {
	var headers []map[string]any
	for _, f := range e.TableFields() {
		key := f.Field
		if f.Relation != nil && f.Relation.TableKey != "" && !strings.ContainsRune(f.Relation.TableKey, '{') {
			key = f.Relation.Name + "." + f.Relation.TableKey
		}
		headers = append(headers, map[string]any{
			"title":    f.Name,
			"key":      key,
			"field":    f.Field,
			"sortable": true,
		})
	}
	return headers
}
