package handlers

import (
	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/anjiri1684/logoped_crm/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SettlementAdjustmentRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Amount int64     `json:"amount" validate:"required"`
	Note   string    `json:"note" validate:"max=500"`
}

type ArchiveRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Before string    `json:"before" validate:"required"`
}

func ListTransactions(c *fiber.Ctx) error {
	actor := middleware.CurrentIdentity(c)
	userID, err := optionalUUID(c.Query("userId"), actor.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid userId"})
	}
	period, err := resolvePeriod(c)
	if err != nil {
		return respondError(c, err)
	}

	rows, err := services.ListTransactions(c.UserContext(), actor, userID, period, c.QueryBool("archived"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

func RecordSettlementAdjustment(c *fiber.Ctx) error {
	var req SettlementAdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	entry, err := services.RecordSettlementAdjustment(c.UserContext(), middleware.CurrentIdentity(c), req.UserID, req.Amount, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func ArchiveTransactions(c *fiber.Ctx) error {
	var req ArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	before, err := services.ParseInstant(req.Before, config.Location())
	if err != nil {
		return respondError(c, err)
	}

	n, err := services.ArchiveTransactions(c.UserContext(), middleware.CurrentIdentity(c), req.UserID, before)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"archived": n})
}
