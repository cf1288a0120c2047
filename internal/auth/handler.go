package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"autocrud/internal/engine"
	"autocrud/internal/metadata"
	"autocrud/internal/store"
)

// Handler serves the authentication endpoints.
type Handler struct {
	store     *store.Store
	registry  *metadata.Registry
	jwtSecret string
}

func NewHandler(s *store.Store, reg *metadata.Registry, jwtSecret string) *Handler {
	return &Handler{store: s, registry: reg, jwtSecret: jwtSecret}
}

// Login handles POST /api/auth/login. A successful login invalidates the
// metadata cache so descriptor changes roll out without a restart.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.UnauthorizedError("Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.UnauthorizedError("Email and password are required")
	}

	pb := h.store.Dialect.NewParamBuilder()
	user, err := store.QueryRow(c.Context(), h.store.DB,
		fmt.Sprintf("SELECT id, name, email, password, role FROM users WHERE email = %s", pb.Add(body.Email)),
		pb.Params()...)
	if err != nil {
		return engine.UnauthorizedError("Invalid email or password")
	}

	hash, _ := user["password"].(string)
	if !CheckPassword(body.Password, hash) {
		return engine.UnauthorizedError("Invalid email or password")
	}

	userID := fmt.Sprintf("%v", user["id"])
	role, _ := user["role"].(string)
	token, err := GenerateToken(userID, role, h.jwtSecret)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate token")
	}

	h.registry.Invalidate()

	return c.JSON(fiber.Map{"data": fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    userID,
			"name":  user["name"],
			"email": user["email"],
			"role":  role,
		},
	}})
}

// Me handles GET /api/auth/me for the authenticated user.
func (h *Handler) Me(c *fiber.Ctx) error {
	user := GetUser(c)
	if user == nil {
		return engine.UnauthorizedError("Missing auth token")
	}

	pb := h.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(c.Context(), h.store.DB,
		fmt.Sprintf("SELECT id, name, email, role FROM users WHERE id = %s", pb.Add(user.ID)),
		pb.Params()...)
	if err != nil {
		return engine.UnauthorizedError("Unknown user")
	}
	return c.JSON(fiber.Map{"data": row})
}

// RegisterRoutes mounts the auth endpoints. Login is public; Me sits behind
// the token middleware.
func RegisterRoutes(app *fiber.App, h *Handler) {
	grp := app.Group("/api/auth")
	grp.Post("/login", h.Login)
	grp.Get("/me", Middleware(h.jwtSecret), h.Me)
}
