package handlers

import (
	"time"

	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/anjiri1684/logoped_crm/services"
	"github.com/gofiber/fiber/v2"
)

func resolvePeriod(c *fiber.Ctx) (services.Period, error) {
	return services.ResolvePeriod(c.Query("period"), c.Query("from"), c.Query("to"), time.Now(), config.Location())
}

// PreviewSettlement returns the settlement of userId (default: the caller) for the requested
// period.
func PreviewSettlement(c *fiber.Ctx) error {
	actor := middleware.CurrentIdentity(c)
	userID, err := optionalUUID(c.Query("userId"), actor.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid userId"})
	}
	period, err := resolvePeriod(c)
	if err != nil {
		return respondError(c, err)
	}

	s, err := services.PreviewSettlement(c.UserContext(), actor, userID, period)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"period": fiber.Map{"name": s.Period.Name, "from": s.From(), "to": s.To()},
		"totals": fiber.Map{
			"tshare":   s.TShare,
			"cashTher": s.CashTher,
			"payouts":  s.Payouts,
			"net":      s.Net,
		},
		"payouts":     s.PayoutRows,
		"settlements": s.SettlementRows,
		"lessons":     s.Lessons,
	})
}

type statementRequest struct {
	UserID string `json:"user_id" validate:"omitempty,uuid"`
	Period string `json:"period"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func GenerateStatement(c *fiber.Ctx) error {
	var req statementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	actor := middleware.CurrentIdentity(c)
	userID, err := optionalUUID(req.UserID, actor.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user_id"})
	}
	period, err := services.ResolvePeriod(req.Period, req.From, req.To, time.Now(), config.Location())
	if err != nil {
		return respondError(c, err)
	}

	st, err := services.BuildStatement(c.UserContext(), actor, userID, period)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}
