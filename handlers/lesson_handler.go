package handlers

import (
	"time"

	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/anjiri1684/logoped_crm/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateLessonRequest struct {
	LogopedID *uuid.UUID `json:"logoped_id"`
	ParentID  *uuid.UUID `json:"parent_id"`
	BranchID  *uuid.UUID `json:"branch_id"`
	StartsAt  time.Time  `json:"starts_at" validate:"required"`
	Price     int64      `json:"price" validate:"required,gt=0"`
}

type CompleteLessonRequest struct {
	PaidBy string `json:"paid_by" form:"paid_by" validate:"required,oneof=CASH CARD TRANSFER"`
}

func CreateLesson(c *fiber.Ctx) error {
	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	actor := middleware.CurrentIdentity(c)
	logopedID := actor.UserID
	if req.LogopedID != nil {
		logopedID = *req.LogopedID
	}

	lesson, err := services.CreateLesson(c.UserContext(), actor, services.LessonInput{
		LogopedID: logopedID,
		ParentID:  req.ParentID,
		BranchID:  req.BranchID,
		StartsAt:  req.StartsAt,
		Price:     req.Price,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func CompleteLesson(c *fiber.Ctx) error {
	lessonID, err := uuid.Parse(c.Params("lessonId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson ID"})
	}

	var req CompleteLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	lesson, err := services.SettleLesson(c.UserContext(), middleware.CurrentIdentity(c), lessonID, req.PaidBy)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lesson)
}
