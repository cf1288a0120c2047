package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"autocrud/internal/metadata"
	"autocrud/internal/store"
)

// Audit actions recorded by the orchestrator.
const (
	AuditCreate    = "create"
	AuditUpdate    = "update"
	AuditDelete    = "delete"
	AuditRestore   = "restore"
	AuditPurge     = "purge"
	AuditFileError = "file_error" // flags a row whose file artifact write failed
)

// writeAudit appends one immutable audit row. The target is a (kind, id)
// pair; the kind is an entity name resolved through the registry on read,
// never a stored type name.
func writeAudit(ctx context.Context, q store.Querier, dialect store.Dialect, user *metadata.UserContext, entityName string, elementID any, action string) error {
	userID := ""
	if user != nil {
		userID = user.ID
	}
	pb := dialect.NewParamBuilder()
	sql := fmt.Sprintf(
		"INSERT INTO records (id, user_id, model, element_id, action, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(uuid.New().String()), pb.Add(userID), pb.Add(entityName),
		pb.Add(fmt.Sprintf("%v", elementID)), pb.Add(action), dialect.NowExpr())
	if _, err := store.Exec(ctx, q, sql, pb.Params()...); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// AuditEntity is the built-in descriptor for the audit log itself, so the
// trail is browsable through the ordinary listing surface. None of its
// fields are form-editable; rows are written by the orchestrator only.
func AuditEntity() *metadata.Entity {
	return &metadata.Entity{
		Name:       "record",
		Table:      "records",
		PrimaryKey: "id",
		Fields: []metadata.Field{
			{Name: "User", Field: "user_id", Type: metadata.TypeString, Table: true},
			{Name: "Model", Field: "model", Type: metadata.TypeString, Table: true},
			{Name: "Element", Field: "element_id", Type: metadata.TypeString, Table: true},
			{Name: "Action", Field: "action", Type: metadata.TypeString, Table: true},
			{Name: "Date", Field: "created_at", Type: metadata.TypeDatetime, Table: true},
		},
	}
}

// LoadAuditTrail attaches each row's audit entries under "records", newest
// first. Part of the always-eager relation set.
func LoadAuditTrail(ctx context.Context, q store.Querier, dialect store.Dialect, entity *metadata.Entity, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, fmt.Sprintf("%v", row[entity.PK()]))
	}

	pb := dialect.NewParamBuilder()
	modelPh := pb.Add(entity.Name)
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = pb.Add(id)
	}
	sql := fmt.Sprintf(
		"SELECT id, user_id, model, element_id, action, created_at FROM records WHERE model = %s AND element_id IN (%s) ORDER BY created_at DESC",
		modelPh, strings.Join(placeholders, ", "))

	auditRows, err := store.QueryRows(ctx, q, sql, pb.Params()...)
	if err != nil {
		return fmt.Errorf("load audit trail: %w", err)
	}

	grouped := make(map[string][]map[string]any)
	for _, ar := range auditRows {
		key := fmt.Sprintf("%v", ar["element_id"])
		grouped[key] = append(grouped[key], ar)
	}
	for _, row := range rows {
		key := fmt.Sprintf("%v", row[entity.PK()])
		if entries, ok := grouped[key]; ok {
			row["records"] = entries
		} else {
			row["records"] = []map[string]any{}
		}
	}
	return nil
}

// ResolveAuditTargets attaches the referenced row to each audit record,
// grouped per target kind so each entity table is queried once. Unregistered
// kinds are left unresolved rather than failing the listing.
func ResolveAuditTargets(ctx context.Context, q store.Querier, dialect store.Dialect, reg *metadata.Registry, auditRows []map[string]any) error {
	byKind := make(map[string][]string)
	for _, row := range auditRows {
		kind, _ := row["model"].(string)
		if kind == "" {
			continue
		}
		byKind[kind] = append(byKind[kind], fmt.Sprintf("%v", row["element_id"]))
	}

	targets := make(map[string]map[string]map[string]any, len(byKind))
	for kind, ids := range byKind {
		entity, err := reg.Get(kind)
		if err != nil {
			if errors.Is(err, metadata.ErrEntityNotFound) {
				log.Printf("WARN: audit target kind %s is not registered", kind)
				continue
			}
			return entityLookupError(kind, err)
		}
		pb := dialect.NewParamBuilder()
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = pb.Add(id)
		}
		sql := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
			entity.Table, entity.PK(), strings.Join(placeholders, ", "))
		rows, err := store.QueryRows(ctx, q, sql, pb.Params()...)
		if err != nil {
			return fmt.Errorf("resolve audit targets for %s: %w", kind, err)
		}
		indexed := make(map[string]map[string]any, len(rows))
		for _, r := range rows {
			indexed[fmt.Sprintf("%v", r[entity.PK()])] = r
		}
		targets[kind] = indexed
	}

	for _, row := range auditRows {
		kind, _ := row["model"].(string)
		id := fmt.Sprintf("%v", row["element_id"])
		if indexed, ok := targets[kind]; ok {
			row["element"] = indexed[id]
		}
	}
	return nil
}
