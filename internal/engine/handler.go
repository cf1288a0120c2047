package engine

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"autocrud/internal/metadata"
	"autocrud/internal/storage"
	"autocrud/internal/store"
)

// autocompleteLimit bounds type-ahead lookups.
const autocompleteLimit = 6

type Handler struct {
	store        *store.Store
	registry     *metadata.Registry
	orchestrator *Orchestrator
	loader       *Loader
	files        *storage.LocalStorage
	maxFileSize  int64
}

func NewHandler(s *store.Store, reg *metadata.Registry, o *Orchestrator, files *storage.LocalStorage, maxFileSize int64) *Handler {
	return &Handler{
		store:        s,
		registry:     reg,
		orchestrator: o,
		loader:       NewLoader(reg, s.Dialect),
		files:        files,
		maxFileSize:  maxFileSize,
	}
}

// List handles GET /api/:entity
func (h *Handler) List(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	user := getUser(c)
	if err := CheckAction(h.registry, entity, ActionIndex, user, requestContext(c, entity)); err != nil {
		return h.respond(c, err)
	}

	spec, err := parseQuerySpec(c)
	if err != nil {
		return h.respond(c, err)
	}

	cq, err := NewCompiler(h.registry, h.store.Dialect).Compile(entity, spec)
	if err != nil {
		return h.respond(c, err)
	}

	total, err := store.QueryCount(c.Context(), h.store.DB, cq.CountSQL(), cq.Params()...)
	if err != nil {
		return fmt.Errorf("count %s: %w", entity.Name, err)
	}
	if cq.PageSize() == -1 {
		cq.SetPageSize(int(total))
	}

	rows, err := store.QueryRows(c.Context(), h.store.DB, cq.SelectSQL(), cq.Params()...)
	if err != nil {
		return fmt.Errorf("list %s: %w", entity.Name, err)
	}
	if h.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, booleanFields(entity))
	}
	if err := h.loader.LoadRelations(c.Context(), h.store.DB, entity, rows); err != nil {
		return h.respond(c, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return c.JSON(fiber.Map{
		"data": rows,
		"meta": fiber.Map{
			"page":     cq.Page(),
			"per_page": cq.PageSize(),
			"total":    total,
		},
	})
}

// GetByID handles GET /api/:entity/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	user := getUser(c)
	if err := CheckAction(h.registry, entity, ActionShow, user, requestContext(c, entity)); err != nil {
		return h.respond(c, err)
	}

	row, err := h.orchestrator.fetch(c.Context(), entity, c.Params("id"), false)
	if err != nil {
		return h.respond(c, err)
	}
	rows := []map[string]any{row}
	if err := h.loader.LoadRelations(c.Context(), h.store.DB, entity, rows); err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": rows[0]})
}

// Describe handles GET /api/:entity/_model: the client-facing shape of the
// entity, enough to render its table and form without hardcoding.
func (h *Handler) Describe(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	user := getUser(c)
	if err := CheckAction(h.registry, entity, ActionIndex, user, requestContext(c, entity)); err != nil {
		return h.respond(c, err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"name":        entity.Name,
			"primary_key": entity.PK(),
			"soft_delete": entity.SoftDelete,
			"headers":     entity.TableHeaders(),
			"fields":      entity.FormFields(),
			"relations":   entity.RelationNames(),
		},
	})
}

// Autocomplete handles GET /api/:entity/autocomplete?field=...&q=...
func (h *Handler) Autocomplete(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	user := getUser(c)
	if err := CheckAction(h.registry, entity, ActionAutocomplete, user, requestContext(c, entity)); err != nil {
		return h.respond(c, err)
	}

	field := c.Query("field")
	if field == "" {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Missing field parameter"))
	}
	sqlStr, params, err := NewCompiler(h.registry, h.store.Dialect).
		CompileAutocomplete(entity, field, c.Query("q"), autocompleteLimit)
	if err != nil {
		return h.respond(c, err)
	}
	rows, err := store.QueryRows(c.Context(), h.store.DB, sqlStr, params...)
	if err != nil {
		return fmt.Errorf("autocomplete %s: %w", entity.Name, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Export handles GET /api/:entity/export: the current filtered listing as
// CSV, every matching row.
func (h *Handler) Export(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	user := getUser(c)
	if err := CheckAction(h.registry, entity, ActionExport, user, requestContext(c, entity)); err != nil {
		return h.respond(c, err)
	}

	spec, err := parseQuerySpec(c)
	if err != nil {
		return h.respond(c, err)
	}
	spec.PageSize = -1

	cq, err := NewCompiler(h.registry, h.store.Dialect).Compile(entity, spec)
	if err != nil {
		return h.respond(c, err)
	}
	rows, err := store.QueryRows(c.Context(), h.store.DB, cq.SelectSQL(), cq.Params()...)
	if err != nil {
		return fmt.Errorf("export %s: %w", entity.Name, err)
	}

	fields := entity.TableFields()
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("export %s: %w", entity.Name, err)
	}
	for _, row := range rows {
		record := make([]string, len(fields))
		for i, f := range fields {
			if v := row[f.Field]; v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("export %s: %w", entity.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export %s: %w", entity.Name, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.csv"`, entity.Name))
	return c.SendString(buf.String())
}

// Create handles POST /api/:entity
func (h *Handler) Create(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	input, err := h.parseInput(c, entity)
	if err != nil {
		return h.respond(c, err)
	}
	record, err := h.orchestrator.Create(c.Context(), entity.Name, getUser(c), input)
	if err != nil {
		return h.respond(c, err)
	}
	record, err = h.withRelations(c, entity, record)
	if err != nil {
		return h.respond(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"data": record})
}

// Update handles PUT /api/:entity/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	input, err := h.parseInput(c, entity)
	if err != nil {
		return h.respond(c, err)
	}
	record, err := h.orchestrator.Update(c.Context(), entity.Name, c.Params("id"), getUser(c), input)
	if err != nil {
		return h.respond(c, err)
	}
	record, err = h.withRelations(c, entity, record)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": record})
}

// Delete handles DELETE /api/:entity/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	if err := h.orchestrator.Destroy(c.Context(), entity.Name, id, getUser(c)); err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// Restore handles POST /api/:entity/:id/restore
func (h *Handler) Restore(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	record, err := h.orchestrator.Restore(c.Context(), entity.Name, c.Params("id"), getUser(c))
	if err != nil {
		return h.respond(c, err)
	}
	record, err = h.withRelations(c, entity, record)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": record})
}

// DeletePermanent handles DELETE /api/:entity/:id/permanent
func (h *Handler) DeletePermanent(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	if err := h.orchestrator.DestroyPermanent(c.Context(), entity.Name, id, getUser(c)); err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// Bind handles POST /api/:entity/:id/:relation/:itemId
func (h *Handler) Bind(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	fields, err := parseBody(c)
	if err != nil {
		return h.respond(c, err)
	}
	if err := h.orchestrator.Bind(c.Context(), entity.Name, c.Params("id"),
		c.Params("relation"), c.Params("itemId"), getUser(c), fields); err != nil {
		return h.respond(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id")}})
}

// UpdatePivot handles PUT /api/:entity/:id/:relation/:itemId
func (h *Handler) UpdatePivot(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	fields, err := parseBody(c)
	if err != nil {
		return h.respond(c, err)
	}
	if err := h.orchestrator.UpdatePivot(c.Context(), entity.Name, c.Params("id"),
		c.Params("relation"), c.Params("itemId"), getUser(c), fields); err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id")}})
}

// Unbind handles DELETE /api/:entity/:id/:relation/:itemId
func (h *Handler) Unbind(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	if err := h.orchestrator.Unbind(c.Context(), entity.Name, c.Params("id"),
		c.Params("relation"), c.Params("itemId"), getUser(c)); err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id")}})
}

// ServeFile handles GET /api/:entity/:id/file/:field, decoding private
// artifacts before sending.
func (h *Handler) ServeFile(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	user := getUser(c)
	if err := CheckAction(h.registry, entity, ActionShow, user, requestContext(c, entity)); err != nil {
		return h.respond(c, err)
	}

	field := entity.GetField(c.Params("field"))
	if field == nil || !field.IsFile() {
		return respondError(c, UnknownFieldError(entity.Name, c.Params("field")))
	}

	row, err := h.orchestrator.fetch(c.Context(), entity, c.Params("id"), false)
	if err != nil {
		return h.respond(c, err)
	}
	stored, _ := row[field.Field].(string)
	if stored == "" {
		return respondError(c, NotFoundError(field.Field, c.Params("id")))
	}

	content, err := h.files.Read(c.Context(), entity.Name, stored, field.Public)
	if err != nil {
		return h.respond(c, StorageError(err))
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, storedOriginalName(stored)))
	return c.Send(content)
}

// withRelations eager-loads the declared relations onto a single mutated row
// so mutation responses carry the same shape as listings.
func (h *Handler) withRelations(c *fiber.Ctx, entity *metadata.Entity, record map[string]any) (map[string]any, error) {
	rows := []map[string]any{record}
	if err := h.loader.LoadRelations(c.Context(), h.store.DB, entity, rows); err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (*metadata.Entity, error) {
	name := c.Params("entity")
	entity, err := h.registry.Get(name)
	if err != nil {
		return nil, entityLookupError(name, err)
	}
	return entity, nil
}

// parseInput reads a mutation payload from either a JSON body or a multipart
// form. In multipart forms an empty value on a file field marks it cleared.
func (h *Handler) parseInput(c *fiber.Ctx, entity *metadata.Entity) (*Input, error) {
	input := &Input{
		Fields:  map[string]any{},
		Files:   map[string]*FileUpload{},
		Cleared: map[string]bool{},
	}

	form, err := c.MultipartForm()
	if err != nil {
		fields, perr := parseBody(c)
		if perr != nil {
			return nil, perr
		}
		for _, f := range entity.FormFields() {
			if f.IsFile() {
				if v, ok := fields[f.Field]; ok && v == nil {
					input.Cleared[f.Field] = true
					delete(fields, f.Field)
				}
			}
		}
		input.Fields = fields
		return input, nil
	}

	for key, values := range form.Value {
		if len(values) == 1 {
			input.Fields[key] = values[0]
		} else {
			input.Fields[key] = values
		}
	}
	for _, f := range entity.FormFields() {
		if !f.IsFile() {
			continue
		}
		if v, ok := input.Fields[f.Field]; ok {
			if s, _ := v.(string); s == "" {
				input.Cleared[f.Field] = true
			}
			delete(input.Fields, f.Field)
		}
	}

	for key, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
			return nil, NewAppError("FILE_TOO_LARGE", 413,
				fmt.Sprintf("File too large: %d bytes (max %d)", fh.Size, h.maxFileSize))
		}
		src, err := fh.Open()
		if err != nil {
			return nil, StorageError(err)
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, StorageError(err)
		}
		mime := fh.Header.Get("Content-Type")
		if mime == "" {
			mime = "application/octet-stream"
		}
		input.Files[key] = &FileUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Mime:     mime,
			Content:  content,
		}
		delete(input.Cleared, key)
	}

	return input, nil
}

// respond maps engine errors onto the HTTP surface; anything that is not an
// AppError bubbles up to the global error handler.
func (h *Handler) respond(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return respondError(c, appErr)
	}
	return err
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}

func getUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}

func requestContext(c *fiber.Ctx, entity *metadata.Entity) metadata.RequestContext {
	params := map[string]any{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		params[string(k)] = string(v)
	})
	return metadata.RequestContext{
		Entity:   entity.Name,
		RecordID: c.Params("id"),
		Params:   params,
	}
}

// parseQuerySpec reads listing parameters: page, itemsPerPage (-1 for all),
// deleted=true for the trashed scope, sortBy as a JSON array of {key, order}
// and search as a JSON object of key to term.
func parseQuerySpec(c *fiber.Ctx) (*QuerySpec, error) {
	spec := &QuerySpec{Search: map[string]string{}, Page: 1, PageSize: 10}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, NewAppError("INVALID_PAYLOAD", 400, "Invalid page parameter")
		}
		spec.Page = n
	}
	if v := c.Query("itemsPerPage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n < 1 && n != -1) {
			return nil, NewAppError("INVALID_PAYLOAD", 400, "Invalid itemsPerPage parameter")
		}
		spec.PageSize = n
	}
	spec.OnlyTrashed = c.Query("deleted") == "true"

	if v := c.Query("sortBy"); v != "" {
		if err := json.Unmarshal([]byte(v), &spec.SortBy); err != nil {
			return nil, NewAppError("INVALID_PAYLOAD", 400, "Invalid sortBy parameter")
		}
	}
	if v := c.Query("search"); v != "" {
		if err := json.Unmarshal([]byte(v), &spec.Search); err != nil {
			return nil, NewAppError("INVALID_PAYLOAD", 400, "Invalid search parameter")
		}
	}
	return spec, nil
}

func parseBody(c *fiber.Ctx) (map[string]any, error) {
	body := map[string]any{}
	if len(c.Body()) == 0 {
		return body, nil
	}
	if err := c.BodyParser(&body); err != nil {
		return nil, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	return body, nil
}

// storedOriginalName strips the uuid prefix a stored name carries.
func storedOriginalName(stored string) string {
	if i := strings.IndexByte(stored, '_'); i >= 0 && i < len(stored)-1 {
		return stored[i+1:]
	}
	return stored
}
