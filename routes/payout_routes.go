package routes

import (
	"github.com/anjiri1684/logoped_crm/handlers"
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/gofiber/fiber/v2"
)

func PayoutRoutes(app *fiber.App) {
	api := app.Group("/api")

	request := api.Group("/payout-request", middleware.Protected())
	request.Post("", handlers.CreatePayoutRequest)
	request.Post("/cancel", handlers.CancelPayoutRequest)
	request.Post("/:requestId/approve", handlers.ApprovePayoutRequest)
	request.Post("/:requestId/reject", handlers.RejectPayoutRequest)

	api.Get("/payout-requests", middleware.Protected(), handlers.ListPayoutRequests)

	payouts := api.Group("/payouts", middleware.Protected())
	payouts.Get("/my-status", handlers.GetMyPayoutStatus)
	payouts.Get("/pending-count", handlers.GetPendingPayoutCount)
	payouts.Get("/me", handlers.GetMyPayoutPage)
}
