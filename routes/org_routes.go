package routes

import (
	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/handlers"
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/gofiber/fiber/v2"
)

func OrgRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/org-grace", middleware.Protected(), handlers.EvaluateOrgGrace)

	// Route-level guards: a group on "/org" would also match "/org-grace" by prefix.
	api.Post("/org/members/:userId/remove",
		middleware.Protected(),
		middleware.RequireRoles(access.OrgAdmins...),
		handlers.RemoveOrgMember)
}
