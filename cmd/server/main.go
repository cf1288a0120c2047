package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"autocrud/internal/auth"
	"autocrud/internal/config"
	"autocrud/internal/engine"
	"autocrud/internal/metadata"
	"autocrud/internal/storage"
	"autocrud/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, driver: %s)", cfg.Server.Port, cfg.Database.Driver)

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}

	reg := metadata.NewRegistry()
	dirLoader := metadata.DirLoader(cfg.Metadata.Dir)
	reg.SetLoader(func() ([]*metadata.Entity, error) {
		entities, err := dirLoader()
		if err != nil {
			return nil, err
		}
		return append(entities, engine.AuditEntity()), nil
	}, cfg.IsProduction())

	var cipher *storage.Cipher
	if cfg.Storage.CipherKey != "" {
		cipher, err = storage.NewCipher(cfg.Storage.CipherKey)
		if err != nil {
			log.Fatalf("Failed to init storage cipher: %v", err)
		}
	}
	files := storage.NewLocalStorage(cfg.Storage.LocalPath, cipher)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authHandler := auth.NewHandler(db, reg, cfg.JWTSecret)
	auth.RegisterRoutes(app, authHandler)

	orchestrator := engine.NewOrchestrator(db, reg, files)
	engineHandler := engine.NewHandler(db, reg, orchestrator, files, cfg.Storage.MaxFileSize)

	api := app.Group("/api", auth.Middleware(cfg.JWTSecret))
	engine.RegisterDynamicRoutes(api, engineHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(engine.ErrorResponse{
		Error: engine.NewAppError("INTERNAL_ERROR", code, "An unexpected error occurred"),
	})
}
