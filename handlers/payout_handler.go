package handlers

import (
	"errors"
	"strconv"

	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/anjiri1684/logoped_crm/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func payoutsPage(flag string) string {
	path := config.Config("PAYOUTS_PAGE_PATH")
	if path == "" {
		path = "/dashboard/payouts"
	}
	return path + "?" + flag + "=1"
}

// CreatePayoutRequest handles the dashboard form. Operators may pass logopedId to file a
// request on a therapist's behalf.
func CreatePayoutRequest(c *fiber.Ctx) error {
	actor := middleware.CurrentIdentity(c)
	logopedID, err := optionalUUID(c.FormValue("logopedId"), actor.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid logopedId"})
	}

	res, err := services.CreatePayoutRequest(c.UserContext(), actor, logopedID)
	if err != nil {
		return respondError(c, err)
	}

	switch res.Outcome {
	case services.OutcomeAlreadyPending:
		return c.Redirect(payoutsPage("pending"), fiber.StatusSeeOther)
	default:
		return c.Redirect(payoutsPage("sent"), fiber.StatusSeeOther)
	}
}

func CancelPayoutRequest(c *fiber.Ctx) error {
	actor := middleware.CurrentIdentity(c)
	logopedID, err := optionalUUID(c.FormValue("logopedId"), actor.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid logopedId"})
	}

	var requestID *uuid.UUID
	if raw := c.FormValue("requestId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid requestId"})
		}
		requestID = &id
	}

	if _, err := services.CancelPayoutRequest(c.UserContext(), actor, logopedID, requestID); err != nil {
		return respondError(c, err)
	}
	return c.Redirect(payoutsPage("cancelled"), fiber.StatusSeeOther)
}

type decisionRequest struct {
	Note string `json:"note" form:"note" validate:"max=500"`
}

func decidePayout(c *fiber.Ctx, approve bool) error {
	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request ID"})
	}

	var req decisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
		}
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	actor := middleware.CurrentIdentity(c)
	var res services.PayoutResult
	if approve {
		res, err = services.ApprovePayoutRequest(c.UserContext(), actor, requestID, req.Note)
	} else {
		res, err = services.RejectPayoutRequest(c.UserContext(), actor, requestID, req.Note)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"outcome": res.Outcome, "request": res.Request})
}

func ApprovePayoutRequest(c *fiber.Ctx) error { return decidePayout(c, true) }

func RejectPayoutRequest(c *fiber.Ctx) error { return decidePayout(c, false) }

func GetMyPayoutStatus(c *fiber.Ctx) error {
	status, err := services.MyStatus(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func GetPendingPayoutCount(c *fiber.Ctx) error {
	n, err := services.PendingCount(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

func ListPayoutRequests(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	requests, err := services.ListPayoutRequests(c.UserContext(), middleware.CurrentIdentity(c), c.Query("status"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

func GetMyPayoutPage(c *fiber.Ctx) error {
	page, err := services.LoadPayoutPage(c.UserContext(), middleware.CurrentIdentity(c))
	if errors.Is(err, services.ErrForbidden) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only therapists have a payout page"})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
