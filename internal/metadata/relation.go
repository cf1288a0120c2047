package metadata

// RelationKind discriminates how a binding joins two entities.
type RelationKind string

const (
	BelongsTo     RelationKind = "belongs_to"
	BelongsToMany RelationKind = "belongs_to_many"
	MorphTo       RelationKind = "morph_to"
)

// RelationBinding is the typed join description consulted by name when a
// field path crosses a relation. It replaces any dynamic dispatch: the
// planner asks the entity for a binding and gets back tables and keys.
type RelationBinding struct {
	Name       string       `json:"name"`
	Kind       RelationKind `json:"kind"`
	Entity     string       `json:"entity"`      // related entity name
	ForeignKey string       `json:"foreign_key"` // column on the owning table
	OwnerKey   string       `json:"owner_key"`   // column on the related table (usually its PK)
	MorphType  string       `json:"morph_type,omitempty"`
}

// ExternalRelation is a many-to-many association through a pivot table.
// Pivot fields are ordinary Fields scoped to the pivot; their uniqueness is
// composite with ForeignKey.
type ExternalRelation struct {
	Name        string  `json:"relation"`
	Entity      string  `json:"entity"` // related entity name
	PivotTable  string  `json:"pivot_table"`
	ForeignKey  string  `json:"foreign_key"` // pivot column pointing at the owner
	RelatedKey  string  `json:"related_key"` // pivot column pointing at the related row
	PivotFields []Field `json:"pivot_fields,omitempty"`
	FormKey     string  `json:"form_key,omitempty"` // label template for related rows
}

// Binding exposes the external relation as a join description.
func (x ExternalRelation) Binding() RelationBinding {
	return RelationBinding{
		Name:       x.Name,
		Kind:       BelongsToMany,
		Entity:     x.Entity,
		ForeignKey: x.ForeignKey,
		OwnerKey:   x.RelatedKey,
	}
}
