package main

import (
	"log"
	"time"

	"github.com/anjiri1684/logoped_crm/cache"
	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/jobs"
	"github.com/anjiri1684/logoped_crm/notifications"
	"github.com/anjiri1684/logoped_crm/routes"
	"github.com/anjiri1684/logoped_crm/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	cache.ConnectRedis()
	notifications.InitEmailService()

	c := cron.New()
	if _, err := c.AddFunc("*/10 * * * *", jobs.SweepOrgGrace); err != nil {
		log.Fatalf("🔥 Failed to schedule grace sweep: %v", err)
	}
	if _, err := c.AddFunc("0 9 * * *", jobs.SendPendingPayoutDigest); err != nil {
		log.Fatalf("🔥 Failed to schedule payout digest: %v", err)
	}
	go c.Start()
	log.Println("✅ Cron jobs for grace sweep and payout digest scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Logoped CRM",
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
		TimeZone:   config.Config("APP_TIMEZONE"),
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Logoped CRM API",
		})
	})

	routes.Register(app)

	go websocket.RunHub()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	port := config.Config("PORT")
	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
