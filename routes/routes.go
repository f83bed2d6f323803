package routes

import "github.com/gofiber/fiber/v2"

// Register mounts every route group on app.
func Register(app *fiber.App) {
	AuthRoutes(app)
	PayoutRoutes(app)
	SettlementRoutes(app)
	OrgRoutes(app)
	WsRoutes(app)
}
