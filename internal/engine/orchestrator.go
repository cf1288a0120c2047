package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"autocrud/internal/metadata"
	"autocrud/internal/storage"
	"autocrud/internal/store"
)

// Action names used for authorization checks. They match the names declared
// in forbidden-action metadata.
const (
	ActionIndex            = "index"
	ActionShow             = "show"
	ActionStore            = "store"
	ActionUpdate           = "update"
	ActionDestroy          = "destroy"
	ActionDestroyPermanent = "destroyPermanent"
	ActionRestore          = "restore"
	ActionBind             = "bind"
	ActionUnbind           = "unbind"
	ActionUpdatePivot      = "updatePivot"
	ActionExport           = "export"
	ActionAutocomplete     = "autocomplete"
)

// Input is one submitted mutation payload. Cleared marks file fields the
// client emptied explicitly; absence of a file field means "keep".
type Input struct {
	Fields  map[string]any
	Files   map[string]*FileUpload
	Cleared map[string]bool
}

// Orchestrator runs the write side of the engine: validate, run lifecycle
// hooks, persist inside a transaction, audit, then perform file I/O. File
// writes happen after commit; a failed write is recorded as a file_error
// audit entry against the row instead of rolling back the data.
type Orchestrator struct {
	store *store.Store
	reg   *metadata.Registry
	files *storage.LocalStorage
	hooks map[string]any
}

func NewOrchestrator(st *store.Store, reg *metadata.Registry, files *storage.LocalStorage) *Orchestrator {
	return &Orchestrator{store: st, reg: reg, files: files, hooks: make(map[string]any)}
}

// RegisterHooks attaches a lifecycle hook set to an entity. The set
// implements whichever OnCreating, OnUpdated, ... interfaces it cares about.
func (o *Orchestrator) RegisterHooks(entity string, hooks any) {
	o.hooks[entity] = hooks
}

// fileOp is deferred file I/O executed after the transaction commits.
type fileOp struct {
	save    *FileUpload
	stored  string
	public  bool
	deletes []string
}

// Create validates input, persists a new row and audits it. The created row
// is re-read and returned.
func (o *Orchestrator) Create(ctx context.Context, entityName string, user *metadata.UserContext, input *Input) (map[string]any, error) {
	entity, err := o.reg.Get(entityName)
	if err != nil {
		return nil, entityLookupError(entityName, err)
	}
	req := metadata.RequestContext{Entity: entityName, Params: input.Fields}
	if err := CheckAction(o.reg, entity, ActionStore, user, req); err != nil {
		return nil, err
	}

	rs, err := Synthesize(o.reg, entity, nil, nil)
	if err != nil {
		return nil, err
	}
	details, err := Validate(ctx, o.store.DB, o.store.Dialect, o.reg, rs, input.Fields, input.Files)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		return nil, ValidationError(details)
	}

	id := uuid.New().String()
	hctx := &HookContext{Entity: entityName, ID: id, Fields: input.Fields}
	if err := o.fireCreating(ctx, entityName, hctx); err != nil {
		return nil, err
	}

	columns, values, ops, err := o.columnValues(entity, input, nil)
	if err != nil {
		return nil, err
	}
	columns = append([]string{entity.PK()}, columns...)
	values = append([]any{id}, values...)

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return nil, PersistenceError(err)
	}
	defer tx.Rollback()

	if err := o.insert(ctx, tx, entity, columns, values); err != nil {
		return nil, err
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entityName, id, AuditCreate); err != nil {
		return nil, PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, PersistenceError(err)
	}

	o.applyFileOps(ctx, entity, user, id, ops)

	row, err := o.fetch(ctx, entity, id, false)
	if err != nil {
		return nil, err
	}
	hctx.Record = row
	if err := o.fireCreated(ctx, entityName, hctx); err != nil {
		return nil, err
	}
	return row, nil
}

// Update validates input against the existing row and persists the changed
// columns. Empty password submissions keep the stored hash; file fields
// replace or clear their artifact only when told to.
func (o *Orchestrator) Update(ctx context.Context, entityName, id string, user *metadata.UserContext, input *Input) (map[string]any, error) {
	entity, err := o.reg.Get(entityName)
	if err != nil {
		return nil, entityLookupError(entityName, err)
	}
	req := metadata.RequestContext{Entity: entityName, RecordID: id, Params: input.Fields}
	if err := CheckAction(o.reg, entity, ActionUpdate, user, req); err != nil {
		return nil, err
	}

	existing, err := o.fetch(ctx, entity, id, false)
	if err != nil {
		return nil, err
	}

	rs, err := Synthesize(o.reg, entity, id, nil)
	if err != nil {
		return nil, err
	}
	details, err := Validate(ctx, o.store.DB, o.store.Dialect, o.reg, rs, input.Fields, input.Files)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		return nil, ValidationError(details)
	}

	hctx := &HookContext{Entity: entityName, ID: id, Fields: input.Fields, Record: existing}
	if err := o.fireUpdating(ctx, entityName, hctx); err != nil {
		return nil, err
	}

	columns, values, ops, err := o.columnValues(entity, input, existing)
	if err != nil {
		return nil, err
	}

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return nil, PersistenceError(err)
	}
	defer tx.Rollback()

	if len(columns) > 0 {
		if err := o.update(ctx, tx, entity, id, columns, values); err != nil {
			return nil, err
		}
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entityName, id, AuditUpdate); err != nil {
		return nil, PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, PersistenceError(err)
	}

	o.applyFileOps(ctx, entity, user, id, ops)

	row, err := o.fetch(ctx, entity, id, false)
	if err != nil {
		return nil, err
	}
	hctx.Record = row
	if err := o.fireUpdated(ctx, entityName, hctx); err != nil {
		return nil, err
	}
	return row, nil
}

// Destroy removes a row: soft-deletable entities get their deleted_at stamp,
// others are deleted outright (artifacts included).
func (o *Orchestrator) Destroy(ctx context.Context, entityName, id string, user *metadata.UserContext) error {
	entity, err := o.reg.Get(entityName)
	if err != nil {
		return entityLookupError(entityName, err)
	}
	req := metadata.RequestContext{Entity: entityName, RecordID: id}
	if err := CheckAction(o.reg, entity, ActionDestroy, user, req); err != nil {
		return err
	}

	row, err := o.fetch(ctx, entity, id, false)
	if err != nil {
		return err
	}
	hctx := &HookContext{Entity: entityName, ID: id, Record: row}
	if err := o.fireDeleting(ctx, entityName, hctx); err != nil {
		return err
	}

	if !entity.SoftDelete {
		return o.purge(ctx, entity, id, user, row, hctx)
	}

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return PersistenceError(err)
	}
	defer tx.Rollback()

	pb := o.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("UPDATE %s SET deleted_at = %s WHERE %s = %s AND deleted_at IS NULL",
		entity.Table, o.store.Dialect.NowExpr(), entity.PK(), pb.Add(id))
	n, err := store.Exec(ctx, tx, sqlStr, pb.Params()...)
	if err != nil {
		return PersistenceError(err)
	}
	if n == 0 {
		return NotFoundError(entityName, id)
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entityName, id, AuditDelete); err != nil {
		return PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return PersistenceError(err)
	}
	return o.fireDeleted(ctx, entityName, hctx)
}

// Restore clears a soft-deleted row's deleted_at stamp.
func (o *Orchestrator) Restore(ctx context.Context, entityName, id string, user *metadata.UserContext) (map[string]any, error) {
	entity, err := o.reg.Get(entityName)
	if err != nil {
		return nil, entityLookupError(entityName, err)
	}
	req := metadata.RequestContext{Entity: entityName, RecordID: id}
	if err := CheckAction(o.reg, entity, ActionRestore, user, req); err != nil {
		return nil, err
	}
	if !entity.SoftDelete {
		return nil, NewAppError("NOT_SOFT_DELETABLE", 400,
			fmt.Sprintf("Entity %s does not support restore", entityName))
	}

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return nil, PersistenceError(err)
	}
	defer tx.Rollback()

	pb := o.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("UPDATE %s SET deleted_at = NULL WHERE %s = %s AND deleted_at IS NOT NULL",
		entity.Table, entity.PK(), pb.Add(id))
	n, err := store.Exec(ctx, tx, sqlStr, pb.Params()...)
	if err != nil {
		return nil, PersistenceError(err)
	}
	if n == 0 {
		return nil, NotFoundError(entityName, id)
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entityName, id, AuditRestore); err != nil {
		return nil, PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, PersistenceError(err)
	}

	row, err := o.fetch(ctx, entity, id, false)
	if err != nil {
		return nil, err
	}
	hctx := &HookContext{Entity: entityName, ID: id, Record: row}
	if err := o.fireRestored(ctx, entityName, hctx); err != nil {
		return nil, err
	}
	return row, nil
}

// DestroyPermanent deletes a row for good, trashed or not, along with its
// stored file artifacts and pivot attachments.
func (o *Orchestrator) DestroyPermanent(ctx context.Context, entityName, id string, user *metadata.UserContext) error {
	entity, err := o.reg.Get(entityName)
	if err != nil {
		return entityLookupError(entityName, err)
	}
	req := metadata.RequestContext{Entity: entityName, RecordID: id}
	if err := CheckAction(o.reg, entity, ActionDestroyPermanent, user, req); err != nil {
		return err
	}

	row, err := o.fetch(ctx, entity, id, true)
	if err != nil {
		return err
	}
	hctx := &HookContext{Entity: entityName, ID: id, Record: row}
	if err := o.fireDeleting(ctx, entityName, hctx); err != nil {
		return err
	}
	return o.purge(ctx, entity, id, user, row, hctx)
}

func (o *Orchestrator) purge(ctx context.Context, entity *metadata.Entity, id string, user *metadata.UserContext, row map[string]any, hctx *HookContext) error {
	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return PersistenceError(err)
	}
	defer tx.Rollback()

	for _, rel := range entity.ExternalRelations {
		pb := o.store.Dialect.NewParamBuilder()
		sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", rel.PivotTable, rel.ForeignKey, pb.Add(id))
		if _, err := store.Exec(ctx, tx, sqlStr, pb.Params()...); err != nil {
			return PersistenceError(err)
		}
	}

	pb := o.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", entity.Table, entity.PK(), pb.Add(id))
	n, err := store.Exec(ctx, tx, sqlStr, pb.Params()...)
	if err != nil {
		return PersistenceError(err)
	}
	if n == 0 {
		return NotFoundError(entity.Name, id)
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entity.Name, id, AuditPurge); err != nil {
		return PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return PersistenceError(err)
	}

	for _, f := range entity.Fields {
		if !f.IsFile() {
			continue
		}
		if stored, ok := row[f.Field].(string); ok && stored != "" {
			if err := o.files.Delete(ctx, entity.Name, stored); err != nil {
				log.Printf("WARN: delete artifact %s for %s %s: %v", stored, entity.Name, id, err)
			}
		}
	}
	return o.fireDeleted(ctx, entity.Name, hctx)
}

// Bind attaches a related item through a pivot relation, validating the
// pivot payload first.
func (o *Orchestrator) Bind(ctx context.Context, entityName, id, relation, itemID string, user *metadata.UserContext, fields map[string]any) error {
	entity, rel, err := o.pivotTarget(entityName, relation)
	if err != nil {
		return err
	}
	req := metadata.RequestContext{Entity: entityName, RecordID: id, Params: fields}
	if err := CheckAction(o.reg, entity, ActionBind, user, req); err != nil {
		return err
	}
	if _, err := o.fetch(ctx, entity, id, false); err != nil {
		return err
	}

	if err := o.validatePivot(ctx, entity, rel, id, itemID, fields); err != nil {
		return err
	}

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return PersistenceError(err)
	}
	defer tx.Rollback()

	pb := o.store.Dialect.NewParamBuilder()
	columns := []string{rel.ForeignKey, rel.RelatedKey}
	placeholders := []string{pb.Add(id), pb.Add(itemID)}
	for _, pf := range rel.PivotFields {
		if v, ok := fields[pf.Field]; ok {
			columns = append(columns, pf.Field)
			placeholders = append(placeholders, pb.Add(v))
		}
	}
	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		rel.PivotTable, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := store.Exec(ctx, tx, sqlStr, pb.Params()...); err != nil {
		return o.mapWriteError(err)
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entityName, id, AuditUpdate); err != nil {
		return PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return PersistenceError(err)
	}
	return nil
}

// Unbind detaches a related item from a pivot relation.
func (o *Orchestrator) Unbind(ctx context.Context, entityName, id, relation, itemID string, user *metadata.UserContext) error {
	entity, rel, err := o.pivotTarget(entityName, relation)
	if err != nil {
		return err
	}
	req := metadata.RequestContext{Entity: entityName, RecordID: id}
	if err := CheckAction(o.reg, entity, ActionUnbind, user, req); err != nil {
		return err
	}

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return PersistenceError(err)
	}
	defer tx.Rollback()

	pb := o.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s",
		rel.PivotTable, rel.ForeignKey, pb.Add(id), rel.RelatedKey, pb.Add(itemID))
	n, err := store.Exec(ctx, tx, sqlStr, pb.Params()...)
	if err != nil {
		return PersistenceError(err)
	}
	if n == 0 {
		return NotFoundError(relation, itemID)
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entityName, id, AuditUpdate); err != nil {
		return PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return PersistenceError(err)
	}
	return nil
}

// UpdatePivot rewrites the pivot columns of an existing attachment.
func (o *Orchestrator) UpdatePivot(ctx context.Context, entityName, id, relation, itemID string, user *metadata.UserContext, fields map[string]any) error {
	entity, rel, err := o.pivotTarget(entityName, relation)
	if err != nil {
		return err
	}
	req := metadata.RequestContext{Entity: entityName, RecordID: id, Params: fields}
	if err := CheckAction(o.reg, entity, ActionUpdatePivot, user, req); err != nil {
		return err
	}

	if err := o.validatePivot(ctx, entity, rel, id, itemID, fields); err != nil {
		return err
	}

	var sets []string
	pb := o.store.Dialect.NewParamBuilder()
	for _, pf := range rel.PivotFields {
		if v, ok := fields[pf.Field]; ok {
			sets = append(sets, fmt.Sprintf("%s = %s", pf.Field, pb.Add(v)))
		}
	}
	if len(sets) == 0 {
		return nil
	}

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return PersistenceError(err)
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s AND %s = %s",
		rel.PivotTable, strings.Join(sets, ", "),
		rel.ForeignKey, pb.Add(id), rel.RelatedKey, pb.Add(itemID))
	n, err := store.Exec(ctx, tx, sqlStr, pb.Params()...)
	if err != nil {
		return o.mapWriteError(err)
	}
	if n == 0 {
		return NotFoundError(relation, itemID)
	}
	if err := writeAudit(ctx, tx, o.store.Dialect, user, entityName, id, AuditUpdate); err != nil {
		return PersistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return PersistenceError(err)
	}
	return nil
}

func (o *Orchestrator) pivotTarget(entityName, relation string) (*metadata.Entity, *metadata.ExternalRelation, error) {
	entity, err := o.reg.Get(entityName)
	if err != nil {
		return nil, nil, entityLookupError(entityName, err)
	}
	rel := entity.ExternalRelation(relation)
	if rel == nil {
		return nil, nil, UnknownRelationError(entityName, relation)
	}
	return entity, rel, nil
}

func (o *Orchestrator) validatePivot(ctx context.Context, entity *metadata.Entity, rel *metadata.ExternalRelation, parentID, itemID string, fields map[string]any) error {
	pivot := &PivotContext{Relation: rel, ParentID: parentID, ItemID: itemID}
	rs, err := Synthesize(o.reg, entity, nil, pivot)
	if err != nil {
		return err
	}
	details, err := Validate(ctx, o.store.DB, o.store.Dialect, o.reg, rs, fields, nil)
	if err != nil {
		return err
	}
	if len(details) > 0 {
		return ValidationError(details)
	}
	return nil
}

// columnValues converts validated input into column/value pairs plus the
// deferred file operations. existing is nil on create.
func (o *Orchestrator) columnValues(entity *metadata.Entity, input *Input, existing map[string]any) ([]string, []any, []fileOp, error) {
	var columns []string
	var values []any
	var ops []fileOp

	for _, field := range entity.FormFields() {
		switch {
		case field.IsFile():
			if up, ok := input.Files[field.Field]; ok && up != nil {
				stored := storage.StoredName(up.Filename)
				op := fileOp{save: up, stored: stored, public: field.Public}
				if existing != nil {
					if old, ok := existing[field.Field].(string); ok && old != "" {
						op.deletes = append(op.deletes, old)
					}
				}
				columns = append(columns, field.Field)
				values = append(values, stored)
				ops = append(ops, op)
				continue
			}
			if input.Cleared[field.Field] && existing != nil {
				if old, ok := existing[field.Field].(string); ok && old != "" {
					ops = append(ops, fileOp{deletes: []string{old}})
				}
				columns = append(columns, field.Field)
				values = append(values, nil)
			}
			// no upload, not cleared: keep
		case field.Type == metadata.TypePassword:
			raw, ok := input.Fields[field.Field]
			s, _ := raw.(string)
			if !ok || s == "" {
				// empty password on update keeps the stored hash
				continue
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
			if err != nil {
				return nil, nil, nil, PersistenceError(err)
			}
			columns = append(columns, field.Field)
			values = append(values, string(hash))
		case field.Type == metadata.TypeSelect && field.Multiple:
			if raw, ok := input.Fields[field.Field]; ok {
				columns = append(columns, field.Field)
				values = append(values, strings.Join(optionList(raw), ", "))
			}
		default:
			if v, ok := input.Fields[field.Field]; ok {
				columns = append(columns, field.Field)
				values = append(values, v)
			}
		}
	}

	return columns, values, ops, nil
}

func (o *Orchestrator) insert(ctx context.Context, q store.Querier, entity *metadata.Entity, columns []string, values []any) error {
	pb := o.store.Dialect.NewParamBuilder()
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = pb.Add(v)
	}
	if entity.Timestamps {
		now := o.store.Dialect.NowExpr()
		columns = append(columns, "created_at", "updated_at")
		placeholders = append(placeholders, now, now)
	}
	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		entity.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := store.Exec(ctx, q, sqlStr, pb.Params()...); err != nil {
		return o.mapWriteError(err)
	}
	return nil
}

func (o *Orchestrator) update(ctx context.Context, q store.Querier, entity *metadata.Entity, id string, columns []string, values []any) error {
	pb := o.store.Dialect.NewParamBuilder()
	sets := make([]string, len(columns))
	for i, col := range columns {
		sets[i] = fmt.Sprintf("%s = %s", col, pb.Add(values[i]))
	}
	if entity.Timestamps {
		sets = append(sets, "updated_at = "+o.store.Dialect.NowExpr())
	}
	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		entity.Table, strings.Join(sets, ", "), entity.PK(), pb.Add(id))
	n, err := store.Exec(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return o.mapWriteError(err)
	}
	if n == 0 {
		return NotFoundError(entity.Name, id)
	}
	return nil
}

// fetch reads one row by id. Soft-deleted rows are hidden unless withTrashed.
func (o *Orchestrator) fetch(ctx context.Context, entity *metadata.Entity, id string, withTrashed bool) (map[string]any, error) {
	pb := o.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", entity.Table, entity.PK(), pb.Add(id))
	if entity.SoftDelete && !withTrashed {
		sqlStr += " AND deleted_at IS NULL"
	}
	row, err := store.QueryRow(ctx, o.store.DB, sqlStr, pb.Params()...)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError(entity.Name, id)
	}
	if err != nil {
		return nil, PersistenceError(err)
	}
	if o.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, booleanFields(entity))
	}
	return row, nil
}

// applyFileOps runs deferred file I/O after the data is committed. A failed
// artifact write does not undo the row; it is flagged with a file_error audit
// entry so the reference can be reconciled.
func (o *Orchestrator) applyFileOps(ctx context.Context, entity *metadata.Entity, user *metadata.UserContext, id string, ops []fileOp) {
	for _, op := range ops {
		if op.save != nil {
			if err := o.files.Save(ctx, entity.Name, op.stored, op.save.Content, op.public); err != nil {
				log.Printf("ERROR: write artifact %s for %s %s: %v", op.stored, entity.Name, id, err)
				if aerr := writeAudit(ctx, o.store.DB, o.store.Dialect, user, entity.Name, id, AuditFileError); aerr != nil {
					log.Printf("ERROR: record file_error for %s %s: %v", entity.Name, id, aerr)
				}
				continue
			}
		}
		for _, old := range op.deletes {
			if err := o.files.Delete(ctx, entity.Name, old); err != nil {
				log.Printf("WARN: delete artifact %s for %s %s: %v", old, entity.Name, id, err)
			}
		}
	}
}

func (o *Orchestrator) mapWriteError(err error) error {
	if mapped := o.store.Dialect.MapError(err); errors.Is(mapped, store.ErrUniqueViolation) {
		return NewAppError("UNIQUE_VIOLATION", 409, "A record with the same unique value already exists")
	}
	return PersistenceError(err)
}

// fire helpers dispatch whichever lifecycle interfaces the entity's hook set
// implements. Saving/Saved wrap both create and update.

func (o *Orchestrator) fireCreating(ctx context.Context, entity string, h *HookContext) error {
	hs := o.hooks[entity]
	if hook, ok := hs.(OnCreating); ok {
		if err := hook.Creating(ctx, h); err != nil {
			return err
		}
	}
	if hook, ok := hs.(OnSaving); ok {
		return hook.Saving(ctx, h)
	}
	return nil
}

func (o *Orchestrator) fireCreated(ctx context.Context, entity string, h *HookContext) error {
	hs := o.hooks[entity]
	if hook, ok := hs.(OnCreated); ok {
		if err := hook.Created(ctx, h); err != nil {
			return err
		}
	}
	if hook, ok := hs.(OnSaved); ok {
		return hook.Saved(ctx, h)
	}
	return nil
}

func (o *Orchestrator) fireUpdating(ctx context.Context, entity string, h *HookContext) error {
	hs := o.hooks[entity]
	if hook, ok := hs.(OnUpdating); ok {
		if err := hook.Updating(ctx, h); err != nil {
			return err
		}
	}
	if hook, ok := hs.(OnSaving); ok {
		return hook.Saving(ctx, h)
	}
	return nil
}

func (o *Orchestrator) fireUpdated(ctx context.Context, entity string, h *HookContext) error {
	hs := o.hooks[entity]
	if hook, ok := hs.(OnUpdated); ok {
		if err := hook.Updated(ctx, h); err != nil {
			return err
		}
	}
	if hook, ok := hs.(OnSaved); ok {
		return hook.Saved(ctx, h)
	}
	return nil
}

func (o *Orchestrator) fireDeleting(ctx context.Context, entity string, h *HookContext) error {
	if hook, ok := o.hooks[entity].(OnDeleting); ok {
		return hook.Deleting(ctx, h)
	}
	return nil
}

func (o *Orchestrator) fireDeleted(ctx context.Context, entity string, h *HookContext) error {
	if hook, ok := o.hooks[entity].(OnDeleted); ok {
		return hook.Deleted(ctx, h)
	}
	return nil
}

func (o *Orchestrator) fireRestored(ctx context.Context, entity string, h *HookContext) error {
	if hook, ok := o.hooks[entity].(OnRestored); ok {
		return hook.Restored(ctx, h)
	}
	return nil
}
