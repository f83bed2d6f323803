package routes

import (
	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/handlers"
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/gofiber/fiber/v2"
)

func SettlementRoutes(app *fiber.App) {
	api := app.Group("/api")

	settlements := api.Group("/settlements", middleware.Protected())
	settlements.Get("/preview", handlers.PreviewSettlement)
	settlements.Post("/statement", handlers.GenerateStatement)

	transactions := api.Group("/transactions", middleware.Protected())
	transactions.Get("", handlers.ListTransactions)
	transactions.Post("/settlement", middleware.RequireRoles(access.PayoutOperators...), handlers.RecordSettlementAdjustment)
	transactions.Post("/archive", middleware.RequireRoles(access.PayoutOperators...), handlers.ArchiveTransactions)

	lessons := api.Group("/lessons", middleware.Protected())
	lessons.Post("", handlers.CreateLesson)
	lessons.Post("/:lessonId/complete", handlers.CompleteLesson)
}
