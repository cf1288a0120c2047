package engine

import (
	"fmt"

	"autocrud/internal/metadata"
)

// ConstraintKind names one synthesized validation constraint.
type ConstraintKind string

const (
	ConstraintRequired      ConstraintKind = "required"
	ConstraintNullable      ConstraintKind = "nullable"
	ConstraintMaxLength     ConstraintKind = "max_length"
	ConstraintEmail         ConstraintKind = "email"
	ConstraintInteger       ConstraintKind = "integer"
	ConstraintNumeric       ConstraintKind = "numeric"
	ConstraintBoolean       ConstraintKind = "boolean"
	ConstraintDate          ConstraintKind = "date"
	ConstraintIn            ConstraintKind = "in"
	ConstraintInEach        ConstraintKind = "in_each"
	ConstraintDigitsBetween ConstraintKind = "digits_between"
	ConstraintFile          ConstraintKind = "file"
	ConstraintMimes         ConstraintKind = "mimes"
	ConstraintMaxFileSize   ConstraintKind = "max_file_size"
	ConstraintUnique        ConstraintKind = "unique"
	ConstraintCustom        ConstraintKind = "custom"
)

// Constraint is one executable validation rule. Only the parameters relevant
// to its Kind are set.
type Constraint struct {
	Kind      ConstraintKind
	Max       int
	MinDigits int
	MaxDigits int
	Options   []string
	Mimes     []string
	MaxKB     int
	Unique    *UniqueScope
	Validator string // custom validator name
}

// UniqueScope describes the uniqueness check for a field. For pivot fields
// the scope is composite: rows of the same parent, excluding the current
// related item; boolean pivot fields only conflict with other true rows.
type UniqueScope struct {
	Table         string
	Column        string
	PKColumn      string
	ExceptID      any // exclude the current record on update
	BooleanOnly   bool
	ParentKey     string // pivot FK column
	ParentID      any
	RelatedKey    string // pivot related-item column
	ExceptRelated any
}

// PivotContext scopes rule synthesis to a pivot attach/update instead of the
// entity's own form fields.
type PivotContext struct {
	Relation *metadata.ExternalRelation
	ParentID any
	ItemID   any
}

// RuleEntry pairs a field with its synthesized constraints, preserving
// declaration order for stable error output.
type RuleEntry struct {
	Field       metadata.Field
	Constraints []Constraint
}

// RuleSet is the synthesized constraint set for one operation.
type RuleSet struct {
	Entries []RuleEntry
}

// Map exposes the constraints keyed by storage key.
func (rs *RuleSet) Map() map[string][]Constraint {
	m := make(map[string][]Constraint, len(rs.Entries))
	for _, e := range rs.Entries {
		m[e.Field.Field] = e.Constraints
	}
	return m
}

// Synthesize derives the concrete constraint set for an entity operation.
// recordID is non-nil on update (uniqueness ignores the row itself); a
// non-nil pivot switches synthesis to the pivot relation's fields.
// Referencing an undeclared custom validator is a configuration error
// reported here, not at submission time.
func Synthesize(reg *metadata.Registry, entity *metadata.Entity, recordID any, pivot *PivotContext) (*RuleSet, error) {
	rs := &RuleSet{}

	if pivot != nil {
		for _, field := range pivot.Relation.PivotFields {
			constraints, err := fieldConstraints(reg, entity, field, recordID, pivot)
			if err != nil {
				return nil, err
			}
			rs.Entries = append(rs.Entries, RuleEntry{Field: field, Constraints: constraints})
		}
		return rs, nil
	}

	for _, field := range entity.FormFields() {
		constraints, err := fieldConstraints(reg, entity, field, recordID, nil)
		if err != nil {
			return nil, err
		}
		rs.Entries = append(rs.Entries, RuleEntry{Field: field, Constraints: constraints})
	}
	return rs, nil
}

func fieldConstraints(reg *metadata.Registry, entity *metadata.Entity, field metadata.Field, recordID any, pivot *PivotContext) ([]Constraint, error) {
	var constraints []Constraint

	// Required is never injected for images and passwords: an update without
	// a new upload or password must not force re-submission.
	if field.Rules.Required && field.Type != metadata.TypeImage && field.Type != metadata.TypePassword {
		constraints = append(constraints, Constraint{Kind: ConstraintRequired})
	} else {
		constraints = append(constraints, Constraint{Kind: ConstraintNullable})
	}

	switch field.Type {
	case metadata.TypeString:
		constraints = append(constraints, Constraint{Kind: ConstraintMaxLength, Max: 191})
	case metadata.TypeEmail:
		constraints = append(constraints,
			Constraint{Kind: ConstraintEmail},
			Constraint{Kind: ConstraintMaxLength, Max: 191})
	case metadata.TypeNumber:
		constraints = append(constraints, Constraint{Kind: ConstraintInteger})
	case metadata.TypeFloat:
		constraints = append(constraints, Constraint{Kind: ConstraintNumeric})
	case metadata.TypeBoolean:
		constraints = append(constraints, Constraint{Kind: ConstraintBoolean})
	case metadata.TypeDate, metadata.TypeDatetime:
		constraints = append(constraints, Constraint{Kind: ConstraintDate})
	case metadata.TypeSelect:
		if len(field.Options) > 0 {
			kind := ConstraintIn
			if field.Multiple {
				kind = ConstraintInEach
			}
			constraints = append(constraints, Constraint{Kind: kind, Options: field.Options})
		}
	case metadata.TypeTelephone:
		constraints = append(constraints, Constraint{Kind: ConstraintDigitsBetween, MinDigits: 8, MaxDigits: 15})
	case metadata.TypeImage, metadata.TypeFile:
		constraints = append(constraints, Constraint{Kind: ConstraintFile})
		if field.Rules.Max > 0 {
			constraints = append(constraints, Constraint{Kind: ConstraintMaxFileSize, MaxKB: field.Rules.Max})
		}
		if len(field.Rules.Mimes) > 0 {
			constraints = append(constraints, Constraint{Kind: ConstraintMimes, Mimes: field.Rules.Mimes})
		}
	}

	if field.Rules.Unique {
		constraints = append(constraints, Constraint{Kind: ConstraintUnique, Unique: uniqueScope(entity, field, recordID, pivot)})
	}

	for _, name := range field.Rules.Custom {
		if _, ok := reg.Validator(name); !ok {
			return nil, NewAppError("UNKNOWN_VALIDATOR", 500,
				fmt.Sprintf("Custom validator %s referenced by %s.%s is not registered", name, entity.Name, field.Field))
		}
		constraints = append(constraints, Constraint{Kind: ConstraintCustom, Validator: name})
	}

	return constraints, nil
}

func uniqueScope(entity *metadata.Entity, field metadata.Field, recordID any, pivot *PivotContext) *UniqueScope {
	if pivot != nil {
		return &UniqueScope{
			Table:         pivot.Relation.PivotTable,
			Column:        field.Field,
			BooleanOnly:   field.Type == metadata.TypeBoolean,
			ParentKey:     pivot.Relation.ForeignKey,
			ParentID:      pivot.ParentID,
			RelatedKey:    pivot.Relation.RelatedKey,
			ExceptRelated: pivot.ItemID,
		}
	}
	return &UniqueScope{
		Table:       entity.Table,
		Column:      field.Field,
		PKColumn:    entity.PK(),
		ExceptID:    recordID,
		BooleanOnly: field.Type == metadata.TypeBoolean,
	}
}
