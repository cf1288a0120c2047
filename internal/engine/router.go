package engine

import "github.com/gofiber/fiber/v2"

// RegisterDynamicRoutes mounts the generic entity surface. Fixed segments
// (_model, autocomplete, export) are registered before the :id routes so
// fiber matches them first.
func RegisterDynamicRoutes(api fiber.Router, h *Handler) {
	api.Get("/:entity", h.List)
	api.Get("/:entity/_model", h.Describe)
	api.Get("/:entity/autocomplete", h.Autocomplete)
	api.Get("/:entity/export", h.Export)
	api.Get("/:entity/:id", h.GetByID)
	api.Get("/:entity/:id/file/:field", h.ServeFile)
	api.Post("/:entity", h.Create)
	api.Put("/:entity/:id", h.Update)
	api.Delete("/:entity/:id", h.Delete)
	api.Post("/:entity/:id/restore", h.Restore)
	api.Delete("/:entity/:id/permanent", h.DeletePermanent)
	api.Post("/:entity/:id/:relation/:itemId", h.Bind)
	api.Put("/:entity/:id/:relation/:itemId", h.UpdatePivot)
	api.Delete("/:entity/:id/:relation/:itemId", h.Unbind)
}
