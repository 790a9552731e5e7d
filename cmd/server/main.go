package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/dealerdesk/dealerdesk-backend/internal/agent"
	"github.com/dealerdesk/dealerdesk-backend/internal/api"
	"github.com/dealerdesk/dealerdesk-backend/internal/api/handlers"
	"github.com/dealerdesk/dealerdesk-backend/internal/config"
	"github.com/dealerdesk/dealerdesk-backend/internal/database"
	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
	"github.com/dealerdesk/dealerdesk-backend/internal/memory"
	"github.com/dealerdesk/dealerdesk-backend/internal/ratelimit"
	"github.com/dealerdesk/dealerdesk-backend/internal/repository/postgres"
	"github.com/dealerdesk/dealerdesk-backend/internal/task"
	"github.com/dealerdesk/dealerdesk-backend/internal/vectorstore"
	"github.com/dealerdesk/dealerdesk-backend/internal/warehouse"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLogger := logrus.New()
	appLogger.SetLevel(logrus.InfoLevel)
	appLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the application database (documents, counters)
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Connect to the read-only sales warehouse
	warehouseDB, err := database.NewWarehouseConnection(cfg.Warehouse)
	if err != nil {
		log.Fatal("Failed to connect to warehouse:", err)
	}
	defer warehouseDB.Close()

	// LLM client (chat completions + embeddings)
	client, err := llm.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		log.Fatal("Failed to create LLM client:", err)
	}

	exec := task.NewExecutor(cfg.Routing.MaxBlockingCalls)
	store := vectorstore.NewStore(db.DB, client)
	wh := warehouse.New(warehouseDB, cfg.Routing.SchemaFile)

	qaAgent := agent.New(client, store, wh, exec, cfg.Routing, cfg.Retrieval, appLogger)
	sessions := memory.NewStore(
		time.Duration(cfg.Session.TTLSeconds)*time.Second,
		cfg.Session.MaxHistoryPairs,
	)
	rateLimitRepo := postgres.NewRateLimitRepository(db.DB)
	limiter := ratelimit.NewLimiter(rateLimitRepo)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "DealerDesk Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Token",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	api.SetupRoutes(app, handlers.Deps{
		Agent:   qaAgent,
		Memory:  sessions,
		Limiter: limiter,
		Config:  cfg,
		Logger:  appLogger,
	}, rateLimitRepo)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("DealerDesk Backend starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
