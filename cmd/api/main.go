package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	config "github.com/smiletime/smiletime-api/configs"
	"github.com/smiletime/smiletime-api/database"
	"github.com/smiletime/smiletime-api/handlers"
	"github.com/smiletime/smiletime-api/jobs"
	"github.com/smiletime/smiletime-api/presence"
	"github.com/smiletime/smiletime-api/routes"
	"github.com/smiletime/smiletime-api/websocket"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()

	registry := presence.NewRegistry()
	hub := websocket.NewHub(registry)
	handlers.InitMessaging(context.Background(), database.DB, hub)

	c := cron.New()
	c.AddFunc("*/10 * * * *", func() { jobs.PruneStalePresence(registry) })
	go c.Start()
	log.Println("Cron job for presence cleanup scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:       "SmileTime API",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	routes.MessagingRoutes(app)
	routes.UploadRoutes(app)

	port := config.Config("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
