package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"autocrud/internal/metadata"
	"autocrud/internal/store"
)

// Loader eagerly attaches every declared relation to a page of rows. Each
// relation costs one query regardless of row count; rows are matched back in
// memory.
type Loader struct {
	reg     *metadata.Registry
	dialect store.Dialect
}

func NewLoader(reg *metadata.Registry, dialect store.Dialect) *Loader {
	return &Loader{reg: reg, dialect: dialect}
}

// LoadRelations populates rows in place with their related data: belongs_to
// and morph_to rows under the relation name, belongs_to_many as arrays with
// pivot columns nested under "pivot", and the audit trail under "records".
func (l *Loader) LoadRelations(ctx context.Context, q store.Querier, entity *metadata.Entity, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	// The audit log resolves its targets instead of carrying relations of
	// its own.
	if entity.Table == "records" {
		return ResolveAuditTargets(ctx, q, l.dialect, l.reg, rows)
	}

	for i := range entity.Fields {
		f := &entity.Fields[i]
		if f.Relation == nil {
			continue
		}
		var err error
		if f.Relation.Polymorphic {
			err = l.loadMorphTo(ctx, q, f, rows)
		} else {
			err = l.loadBelongsTo(ctx, q, f, rows)
		}
		if err != nil {
			return err
		}
	}
	for i := range entity.ExternalRelations {
		if err := l.loadBelongsToMany(ctx, q, entity, &entity.ExternalRelations[i], rows); err != nil {
			return err
		}
	}
	return LoadAuditTrail(ctx, q, l.dialect, entity, rows)
}

func (l *Loader) loadBelongsTo(ctx context.Context, q store.Querier, field *metadata.Field, rows []map[string]any) error {
	related, err := l.reg.Get(field.Relation.Entity)
	if err != nil {
		return entityLookupError(field.Relation.Entity, err)
	}

	keys := collectKeys(rows, field.Field)
	if len(keys) == 0 {
		attachNil(rows, field.Relation.Name)
		return nil
	}

	pb := l.dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
		related.Table, related.PK(), placeholderList(pb, keys))
	relRows, err := store.QueryRows(ctx, q, sql, pb.Params()...)
	if err != nil {
		return fmt.Errorf("load relation %s: %w", field.Relation.Name, err)
	}
	store.NormalizeBooleans(relRows, booleanFields(related))

	indexed := indexByKey(relRows, related.PK())
	for _, row := range rows {
		key := stringKey(row[field.Field])
		if rel, ok := indexed[key]; ok {
			row[field.Relation.Name] = rel
		} else {
			row[field.Relation.Name] = nil
		}
	}
	return nil
}

// loadMorphTo resolves a polymorphic reference per row: the kind column names
// the target entity, the id column names the target row. Rows sharing a kind
// share one query.
func (l *Loader) loadMorphTo(ctx context.Context, q store.Querier, field *metadata.Field, rows []map[string]any) error {
	kindColumn := field.Relation.MorphType

	byKind := make(map[string][]string)
	for _, row := range rows {
		kind := stringKey(row[kindColumn])
		id := stringKey(row[field.Field])
		if kind == "" || id == "" {
			continue
		}
		byKind[kind] = append(byKind[kind], id)
	}

	resolved := make(map[string]map[string]map[string]any, len(byKind))
	for kind, ids := range byKind {
		target, err := l.reg.Get(kind)
		if err != nil {
			if errors.Is(err, metadata.ErrEntityNotFound) {
				log.Printf("WARN: polymorphic kind %s on %s is not registered", kind, field.Field)
				continue
			}
			return entityLookupError(kind, err)
		}
		pb := l.dialect.NewParamBuilder()
		sql := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
			target.Table, target.PK(), placeholderList(pb, ids))
		targetRows, err := store.QueryRows(ctx, q, sql, pb.Params()...)
		if err != nil {
			return fmt.Errorf("load polymorphic %s (%s): %w", field.Relation.Name, kind, err)
		}
		store.NormalizeBooleans(targetRows, booleanFields(target))
		resolved[kind] = indexByKey(targetRows, target.PK())
	}

	for _, row := range rows {
		kind := stringKey(row[kindColumn])
		id := stringKey(row[field.Field])
		if indexed, ok := resolved[kind]; ok {
			row[field.Relation.Name] = indexed[id]
		} else {
			row[field.Relation.Name] = nil
		}
	}
	return nil
}

func (l *Loader) loadBelongsToMany(ctx context.Context, q store.Querier, entity *metadata.Entity, rel *metadata.ExternalRelation, rows []map[string]any) error {
	related, err := l.reg.Get(rel.Entity)
	if err != nil {
		return entityLookupError(rel.Entity, err)
	}

	parentIDs := collectKeys(rows, entity.PK())
	if len(parentIDs) == 0 {
		return nil
	}

	// One query fetches related rows and pivot columns together; the pivot
	// owner key rides along to group results back onto parents.
	selectCols := []string{
		fmt.Sprintf("%s.*", related.Table),
		fmt.Sprintf("pivot.%s AS pivot_owner_id", rel.ForeignKey),
		fmt.Sprintf("pivot.%s AS pivot_related_id", rel.RelatedKey),
	}
	for _, pf := range rel.PivotFields {
		selectCols = append(selectCols, fmt.Sprintf("pivot.%s AS pivot_%s", pf.Field, pf.Field))
	}

	pb := l.dialect.NewParamBuilder()
	sql := fmt.Sprintf(
		"SELECT %s FROM %s AS pivot JOIN %s ON %s.%s = pivot.%s WHERE pivot.%s IN (%s)",
		strings.Join(selectCols, ", "), rel.PivotTable, related.Table,
		related.Table, related.PK(), rel.RelatedKey,
		rel.ForeignKey, placeholderList(pb, parentIDs))
	relRows, err := store.QueryRows(ctx, q, sql, pb.Params()...)
	if err != nil {
		return fmt.Errorf("load relation %s: %w", rel.Name, err)
	}
	store.NormalizeBooleans(relRows, booleanFields(related))

	grouped := make(map[string][]map[string]any)
	for _, rr := range relRows {
		ownerID := stringKey(rr["pivot_owner_id"])
		pivot := map[string]any{
			rel.ForeignKey: rr["pivot_owner_id"],
			rel.RelatedKey: rr["pivot_related_id"],
		}
		delete(rr, "pivot_owner_id")
		delete(rr, "pivot_related_id")
		for _, pf := range rel.PivotFields {
			alias := "pivot_" + pf.Field
			pivot[pf.Field] = rr[alias]
			delete(rr, alias)
		}
		store.NormalizeBooleans([]map[string]any{pivot}, pivotBooleanFields(rel))
		rr["pivot"] = pivot
		grouped[ownerID] = append(grouped[ownerID], rr)
	}

	for _, row := range rows {
		key := stringKey(row[entity.PK()])
		if items, ok := grouped[key]; ok {
			row[rel.Name] = items
		} else {
			row[rel.Name] = []map[string]any{}
		}
	}
	return nil
}

func booleanFields(entity *metadata.Entity) []string {
	var fields []string
	for _, f := range entity.Fields {
		if f.Type == metadata.TypeBoolean {
			fields = append(fields, f.Field)
		}
	}
	return fields
}

func pivotBooleanFields(rel *metadata.ExternalRelation) []string {
	var fields []string
	for _, pf := range rel.PivotFields {
		if pf.Type == metadata.TypeBoolean {
			fields = append(fields, pf.Field)
		}
	}
	return fields
}

func collectKeys(rows []map[string]any, column string) []string {
	seen := make(map[string]bool, len(rows))
	var keys []string
	for _, row := range rows {
		key := stringKey(row[column])
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func indexByKey(rows []map[string]any, column string) map[string]map[string]any {
	indexed := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		indexed[stringKey(row[column])] = row
	}
	return indexed
}

func placeholderList(pb store.ParamBuilder, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = pb.Add(v)
	}
	return strings.Join(parts, ", ")
}

func attachNil(rows []map[string]any, name string) {
	for _, row := range rows {
		row[name] = nil
	}
}

func stringKey(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
