package engine

import (
	"fmt"
	"sort"
	"strings"

	"autocrud/internal/metadata"
	"autocrud/internal/store"
)

// SortKey is one entry of a multi-key sort, applied in array order.
type SortKey struct {
	Key   string `json:"key"`
	Order string `json:"order"` // "asc" or "desc"
}

// QuerySpec is the per-request, single-use description of a listing query.
// OnlyTrashed switches the scope to soft-deleted rows exclusively; this
// mirrors the established client contract and is deliberately not an
// "include both" flag.
type QuerySpec struct {
	Search      map[string]string
	SortBy      []SortKey
	Page        int
	PageSize    int // -1 means one page holding every matching row
	OnlyTrashed bool
}

// CompiledQuery holds the assembled fragments of one listing query. Join
// deduplication is scoped to a single CompiledQuery: every distinct alias
// contributes exactly one LEFT JOIN no matter how many search terms, sort
// keys or templates walked through it.
type CompiledQuery struct {
	entity   *metadata.Entity
	dialect  store.Dialect
	pb       store.ParamBuilder
	joins    []string
	joined   map[string]bool
	where    []string
	order    []string
	page     int
	pageSize int
}

// Compiler turns a QuerySpec into SQL for one entity. It is cheap to
// construct; build one per request.
type Compiler struct {
	reg     *metadata.Registry
	dialect store.Dialect
}

func NewCompiler(reg *metadata.Registry, dialect store.Dialect) *Compiler {
	return &Compiler{reg: reg, dialect: dialect}
}

// Compile resolves every search and sort key of the request against the
// entity's metadata. Unknown keys and relations fail the whole compilation;
// nothing is silently skipped.
func (c *Compiler) Compile(entity *metadata.Entity, spec *QuerySpec) (*CompiledQuery, error) {
	cq := &CompiledQuery{
		entity:   entity,
		dialect:  c.dialect,
		pb:       c.dialect.NewParamBuilder(),
		joined:   make(map[string]bool),
		page:     spec.Page,
		pageSize: spec.PageSize,
	}
	if cq.page < 1 {
		cq.page = 1
	}

	planner := NewPlanner(c.reg, entity)

	if entity.SoftDelete {
		if spec.OnlyTrashed {
			cq.where = append(cq.where, fmt.Sprintf("%s.deleted_at IS NOT NULL", entity.Table))
		} else {
			cq.where = append(cq.where, fmt.Sprintf("%s.deleted_at IS NULL", entity.Table))
		}
	}

	// Deterministic compile order for map-keyed search terms.
	searchKeys := make([]string, 0, len(spec.Search))
	for key := range spec.Search {
		searchKeys = append(searchKeys, key)
	}
	sort.Strings(searchKeys)

	for _, key := range searchKeys {
		value := strings.TrimSpace(spec.Search[key])
		if value == "" {
			continue
		}
		if err := c.compileSearch(cq, planner, key, value); err != nil {
			return nil, err
		}
	}

	if len(spec.SortBy) > 0 {
		for _, s := range spec.SortBy {
			if err := c.compileSort(cq, planner, s); err != nil {
				return nil, err
			}
		}
	} else {
		cq.order = append(cq.order, fmt.Sprintf("%s.%s DESC", entity.Table, entity.PK()))
	}

	return cq, nil
}

// searchTarget resolves a request key to its label template and the relation
// context the template is evaluated in. A field declaring a relation with a
// table key searches the rendered label; everything else searches the key
// itself, so a plain column name or relation.subfield shorthand keeps
// working as "{key}".
func (c *Compiler) searchTarget(entity *metadata.Entity, key string) (template string, base *RelationContext, err error) {
	field := entity.GetField(key)
	if field == nil {
		if strings.Contains(key, ".") || knownColumn(entity, key) {
			return "{" + key + "}", nil, nil
		}
		return "", nil, UnknownFieldError(entity.Name, key)
	}
	if field.Relation != nil && field.Relation.TableKey != "" {
		return field.Relation.TableKey, &RelationContext{Name: field.Relation.Name}, nil
	}
	return "{" + field.Field + "}", nil, nil
}

func (c *Compiler) compileSearch(cq *CompiledQuery, planner *Planner, key, value string) error {
	template, base, err := c.searchTarget(cq.entity, key)
	if err != nil {
		return err
	}

	tmpl, err := ParseTemplate(template)
	if err != nil {
		return err
	}

	// Timestamp columns match against their dd-mm-yyyy rendering instead of
	// the raw stored value.
	if len(tmpl.Paths) == 1 && base == nil {
		if ref, temporal, terr := c.temporalRef(cq, planner, tmpl.Paths[0]); terr != nil {
			return terr
		} else if temporal {
			expr := c.dialect.DateFormatExpr(ref.Expr())
			cq.where = append(cq.where, c.dialect.LikeExpr(expr, cq.pb, "%"+value+"%"))
			return nil
		}
	}

	expr, err := c.concatExpr(cq, planner, tmpl, base)
	if err != nil {
		return err
	}

	// Every whitespace-separated word must appear somewhere in the rendered
	// label, in any order.
	for _, word := range strings.Fields(value) {
		cq.where = append(cq.where, c.dialect.LikeExpr(expr, cq.pb, "%"+word+"%"))
	}
	return nil
}

func (c *Compiler) compileSort(cq *CompiledQuery, planner *Planner, s SortKey) error {
	dir := "ASC"
	if strings.EqualFold(s.Order, "desc") {
		dir = "DESC"
	}

	template, base, err := c.searchTarget(cq.entity, s.Key)
	if err != nil {
		return err
	}
	tmpl, err := ParseTemplate(template)
	if err != nil {
		return err
	}

	if len(tmpl.Paths) == 1 && base == nil && tmpl.Literals[0] == "" && tmpl.Literals[1] == "" {
		ref, err := c.resolve(cq, planner, tmpl.Paths[0], nil)
		if err != nil {
			return err
		}
		cq.order = append(cq.order, ref.Expr()+" "+dir)
		return nil
	}

	expr, err := c.concatExpr(cq, planner, tmpl, base)
	if err != nil {
		return err
	}
	cq.order = append(cq.order, expr+" "+dir)
	return nil
}

// concatExpr builds the rendered-label SQL expression for a template:
// CONCAT_WS('', lit0, IFNULL(a0.c0, ''), lit1, ..., litN). Coalescing each
// column is mandatory so a NULL relation value cannot null out the label.
func (c *Compiler) concatExpr(cq *CompiledQuery, planner *Planner, tmpl *Template, base *RelationContext) (string, error) {
	var parts []string
	for i, path := range tmpl.Paths {
		if lit := tmpl.Literals[i]; lit != "" {
			parts = append(parts, sqlLiteral(lit))
		}
		ref, err := c.resolve(cq, planner, path, base)
		if err != nil {
			return "", err
		}
		parts = append(parts, c.dialect.IfNull(ref.Expr()))
	}
	if lit := tmpl.Literals[len(tmpl.Paths)]; lit != "" {
		parts = append(parts, sqlLiteral(lit))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return c.dialect.ConcatWS(parts), nil
}

// resolve runs the planner and registers any newly-needed joins on the query.
func (c *Compiler) resolve(cq *CompiledQuery, planner *Planner, path string, base *RelationContext) (ResolvedRef, error) {
	ref, err := planner.Resolve(path, base)
	if err != nil {
		return ResolvedRef{}, err
	}
	for _, hop := range ref.Chain {
		if cq.joined[hop.Alias] {
			continue
		}
		cq.joined[hop.Alias] = true
		cq.joins = append(cq.joins, hop.JoinSQL())
	}
	return ref, nil
}

// temporalRef resolves a single-segment path and reports whether it targets
// a date-valued column.
func (c *Compiler) temporalRef(cq *CompiledQuery, planner *Planner, path string) (ResolvedRef, bool, error) {
	segments := strings.Split(path, ".")
	column := segments[len(segments)-1]

	temporal := false
	switch column {
	case "created_at", "updated_at", "deleted_at":
		temporal = true
	default:
		if f := cq.entity.GetField(column); f != nil && f.IsTemporal() && len(segments) == 1 {
			temporal = true
		}
	}
	if !temporal {
		return ResolvedRef{}, false, nil
	}

	ref, err := c.resolve(cq, planner, path, nil)
	if err != nil {
		return ResolvedRef{}, false, err
	}
	return ref, true, nil
}

// SelectSQL renders the data query. Pagination is embedded as integer
// literals so the parameter list stays shared with CountSQL.
func (cq *CompiledQuery) SelectSQL() string {
	sql := cq.baseSQL(fmt.Sprintf("SELECT %s.*", cq.entity.Table))
	if len(cq.order) > 0 {
		sql += " ORDER BY " + strings.Join(cq.order, ", ")
	}
	if cq.pageSize > 0 {
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", cq.pageSize, (cq.page-1)*cq.pageSize)
	}
	return sql
}

// CountSQL renders the matching-row count query with the same filters and
// joins as the data query.
func (cq *CompiledQuery) CountSQL() string {
	return cq.baseSQL("SELECT COUNT(*)")
}

func (cq *CompiledQuery) baseSQL(head string) string {
	sql := fmt.Sprintf("%s FROM %s", head, cq.entity.Table)
	if len(cq.joins) > 0 {
		sql += " " + strings.Join(cq.joins, " ")
	}
	if len(cq.where) > 0 {
		sql += " WHERE " + strings.Join(cq.where, " AND ")
	}
	return sql
}

// Params returns the bound parameters for both SelectSQL and CountSQL.
func (cq *CompiledQuery) Params() []any {
	return cq.pb.Params()
}

// Page returns the effective page number.
func (cq *CompiledQuery) Page() int { return cq.page }

// PageSize returns the effective page size; -1 means everything.
func (cq *CompiledQuery) PageSize() int { return cq.pageSize }

// SetPageSize overrides the page size after the total count is known,
// resolving the -1 sentinel into one page with every matching row.
func (cq *CompiledQuery) SetPageSize(n int) {
	cq.pageSize = n
	cq.page = 1
}

// CompileAutocomplete builds a bounded lookup query: the first limit rows
// whose key column matches the search, for type-ahead widgets.
func (c *Compiler) CompileAutocomplete(entity *metadata.Entity, key, search string, limit int) (string, []any, error) {
	if !knownColumn(entity, key) {
		return "", nil, UnknownFieldError(entity.Name, key)
	}
	pb := c.dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT %s.* FROM %s", entity.Table, entity.Table)

	var where []string
	if entity.SoftDelete {
		where = append(where, fmt.Sprintf("%s.deleted_at IS NULL", entity.Table))
	}
	if search != "" {
		where = append(where, c.dialect.LikeExpr(
			c.dialect.IfNull(entity.Table+"."+key), pb, "%"+search+"%"))
	}
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s.%s LIMIT %d", entity.Table, key, limit)
	return sql, pb.Params(), nil
}

// sqlLiteral quotes a trusted template literal for SQL embedding.
func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
