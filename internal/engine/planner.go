package engine

import (
	"fmt"
	"strings"

	"autocrud/internal/metadata"
)

// Hop is one resolved relation traversal: LEFT JOIN Table AS Alias ON
// ParentAlias.ParentKey = Alias.ChildKey. Aliases are the underscore-joined
// relation path from the root, so a chain resolved twice produces identical
// aliases and the compiler can deduplicate joins by string equality.
type Hop struct {
	Relation    string
	Alias       string
	Table       string
	ParentAlias string
	ParentKey   string
	ChildKey    string
}

// JoinSQL renders the hop as a LEFT JOIN clause.
func (h Hop) JoinSQL() string {
	return fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
		h.Table, h.Alias, h.ParentAlias, h.ParentKey, h.Alias, h.ChildKey)
}

// ResolvedRef is the outcome of resolving a dotted field path: the alias and
// column to reference in SQL, plus the join chain required to reach them.
type ResolvedRef struct {
	TableAlias string
	Column     string
	Chain      []Hop
}

// Expr returns the qualified column reference.
func (r ResolvedRef) Expr() string {
	return r.TableAlias + "." + r.Column
}

// RelationContext marks that a path is being evaluated inside an
// already-entered relation, such as a field's label template (paths are
// relative to the field's relation) or a pivot's related-entity template.
type RelationContext struct {
	Name string // relation name on the root entity
}

// Planner resolves dotted field paths against the root entity's declared
// relations. It is stateless per query; join deduplication belongs to the
// compilation that consumes the chains.
type Planner struct {
	reg  *metadata.Registry
	root *metadata.Entity
}

func NewPlanner(reg *metadata.Registry, root *metadata.Entity) *Planner {
	return &Planner{reg: reg, root: root}
}

// Resolve splits fieldPath on '.'; all segments but the last are relation
// hops, the last is the column. With a non-nil base the chain starts inside
// that relation instead of at the root table.
func (p *Planner) Resolve(fieldPath string, base *RelationContext) (ResolvedRef, error) {
	segments := strings.Split(fieldPath, ".")
	column := segments[len(segments)-1]
	hops := segments[:len(segments)-1]

	if base != nil {
		hops = append([]string{base.Name}, hops...)
	}

	if len(hops) == 0 {
		return ResolvedRef{TableAlias: p.root.Table, Column: column}, nil
	}

	var chain []Hop
	current := p.root
	parentAlias := p.root.Table
	var pathSoFar []string

	for _, name := range hops {
		binding, ok := current.Relation(name)
		if !ok {
			return ResolvedRef{}, UnknownRelationError(current.Name, name)
		}
		// A polymorphic hop has no single related table to join; reject it
		// before the related-entity lookup, which has no name to resolve.
		if binding.Kind == metadata.MorphTo {
			return ResolvedRef{}, NewAppError("POLYMORPHIC_JOIN", 400,
				fmt.Sprintf("Relation %s on %s is polymorphic and cannot be joined", name, current.Name))
		}
		related, err := p.reg.Get(binding.Entity)
		if err != nil {
			return ResolvedRef{}, entityLookupError(binding.Entity, err)
		}

		pathSoFar = append(pathSoFar, name)
		alias := strings.Join(pathSoFar, "_")

		switch binding.Kind {
		case metadata.BelongsTo:
			ownerKey := binding.OwnerKey
			if ownerKey == "" {
				ownerKey = related.PK()
			}
			chain = append(chain, Hop{
				Relation:    name,
				Alias:       alias,
				Table:       related.Table,
				ParentAlias: parentAlias,
				ParentKey:   binding.ForeignKey,
				ChildKey:    ownerKey,
			})

		case metadata.BelongsToMany:
			ext := current.ExternalRelation(name)
			if ext == nil {
				return ResolvedRef{}, UnknownRelationError(current.Name, name)
			}
			pivotAlias := alias + "_pivot"
			chain = append(chain,
				Hop{
					Relation:    name,
					Alias:       pivotAlias,
					Table:       ext.PivotTable,
					ParentAlias: parentAlias,
					ParentKey:   current.PK(),
					ChildKey:    ext.ForeignKey,
				},
				Hop{
					Relation:    name,
					Alias:       alias,
					Table:       related.Table,
					ParentAlias: pivotAlias,
					ParentKey:   ext.RelatedKey,
					ChildKey:    related.PK(),
				})

		default:
			return ResolvedRef{}, UnknownRelationError(current.Name, name)
		}

		parentAlias = alias
		current = related
	}

	if !knownColumn(current, column) {
		return ResolvedRef{}, UnknownFieldError(current.Name, column)
	}

	return ResolvedRef{TableAlias: parentAlias, Column: column, Chain: chain}, nil
}

// knownColumn accepts declared fields plus the implicit PK and timestamp
// columns every entity table carries.
func knownColumn(e *metadata.Entity, column string) bool {
	if e.HasField(column) || column == e.PK() {
		return true
	}
	switch column {
	case "created_at", "updated_at", "deleted_at":
		return true
	}
	return false
}
