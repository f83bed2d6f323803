package handlers

import (
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/anjiri1684/logoped_crm/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// EvaluateOrgGrace is polled by the dashboard; it settles the caller's own expired membership.
func EvaluateOrgGrace(c *fiber.Ctx) error {
	res, err := services.EvaluateGrace(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "cleared": res.Cleared})
}

func RemoveOrgMember(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	until, err := services.StartGrace(c.UserContext(), middleware.CurrentIdentity(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "graceUntil": until})
}
